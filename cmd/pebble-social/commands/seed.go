package commands

import (
	"context"
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-social/cmd/pebble-social/output"
	"github.com/marshallshelly/pebble-social/internal/social"
)

var (
	seedUsers    int
	seedPosts    int
	seedComments int
	seedFollows  int
	seedValue    int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake social data",
	Long: `Create fake users with profiles, posts, comments and follows.

Every seeded user gets the password "password123".

Examples:
  pebble-social seed --users 20 --posts 3
  pebble-social seed --seed 42   # Reproducible data`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntVar(&seedUsers, "users", 10, "Number of users")
	seedCmd.Flags().IntVar(&seedPosts, "posts", 2, "Posts per user")
	seedCmd.Flags().IntVar(&seedComments, "comments", 3, "Comments per post")
	seedCmd.Flags().IntVar(&seedFollows, "follows", 3, "Users each user follows")
	seedCmd.Flags().Int64Var(&seedValue, "seed", 0, "Random seed (0 picks one)")
}

const seedPassword = "password123"

type fakeUser struct {
	Email string
	Bio   string
}

type fakePost struct {
	Author   int
	ImageURL string
	Caption  string
}

type fakeComment struct {
	Author int
	Post   int
	Text   string
}

// seedPlan is the data a seed run inserts. Users, posts and comments refer
// to each other by slice index.
type seedPlan struct {
	Users    []fakeUser
	Posts    []fakePost
	Comments []fakeComment
	Follows  [][2]int
}

func newSeedPlan(f *gofakeit.Faker, users, postsPerUser, commentsPerPost, followsPerUser int) seedPlan {
	var p seedPlan
	for i := range users {
		bio := f.Sentence(12)
		if len(bio) > 250 {
			bio = bio[:250]
		}
		p.Users = append(p.Users, fakeUser{
			Email: fmt.Sprintf("%d.%s", i+1, f.Email()),
			Bio:   bio,
		})
	}
	if users == 0 {
		return p
	}

	for author := range users {
		for range postsPerUser {
			p.Posts = append(p.Posts, fakePost{
				Author:   author,
				ImageURL: f.ImageURL(640, 480),
				Caption:  f.Sentence(8),
			})
		}
	}
	for post := range p.Posts {
		for range commentsPerPost {
			p.Comments = append(p.Comments, fakeComment{
				Author: f.Number(0, users-1),
				Post:   post,
				Text:   f.Sentence(6),
			})
		}
	}

	follows := min(followsPerUser, users-1)
	for follower := range users {
		offsets := sequence(1, users-1)
		f.ShuffleInts(offsets)
		for _, offset := range offsets[:follows] {
			p.Follows = append(p.Follows, [2]int{follower, (follower + offset) % users})
		}
	}
	return p
}

func sequence(from, to int) []int {
	var s []int
	for i := from; i <= to; i++ {
		s = append(s, i)
	}
	return s
}

func runSeed(ctx context.Context) error {
	db, session, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	f := gofakeit.New(seedValue)
	plan := newSeedPlan(f, seedUsers, seedPosts, seedComments, seedFollows)
	svc := social.New(session)

	output.Section("Seeding")

	userIDs := make([]int, len(plan.Users))
	for i, u := range plan.Users {
		created, err := svc.CreateUser(ctx, u.Email, seedPassword, u.Bio, cfg.BcryptCost)
		if err != nil {
			return err
		}
		userIDs[i] = created.ID
	}
	output.Success("Created %d users", len(userIDs))

	postIDs := make([]int, len(plan.Posts))
	for i, p := range plan.Posts {
		created, err := svc.CreatePost(ctx, userIDs[p.Author], p.ImageURL, p.Caption)
		if err != nil {
			return err
		}
		postIDs[i] = created.ID
	}
	output.Success("Created %d posts", len(postIDs))

	for _, c := range plan.Comments {
		if _, err := svc.AddComment(ctx, userIDs[c.Author], postIDs[c.Post], c.Text); err != nil {
			return err
		}
	}
	output.Success("Created %d comments", len(plan.Comments))

	for _, edge := range plan.Follows {
		if _, err := svc.Follow(ctx, userIDs[edge[0]], userIDs[edge[1]]); err != nil {
			return err
		}
	}
	output.Success("Created %d follows", len(plan.Follows))

	output.Muted("Every seeded user signs in with %q", seedPassword)
	return nil
}
