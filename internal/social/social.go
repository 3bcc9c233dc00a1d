// Package social loads entities with the relationships their projections
// read, and manages follow edges.
//
// Storage errors are returned as the builder produced them, so callers can
// still match *pgconn.PgError or the runtime sentinels.
package social

import (
	"context"

	"github.com/mdobak/go-xerrors"

	"github.com/marshallshelly/pebble-social/internal/models"
	"github.com/marshallshelly/pebble-social/pkg/builder"
	"github.com/marshallshelly/pebble-social/pkg/runtime"
)

var (
	ErrSelfFollow   = xerrors.Message("a user cannot follow themselves")
	ErrNotFollowing = xerrors.Message("follow edge does not exist")
)

// Relationships preloaded for each projection.
var (
	UserPreloads    = []string{"Profile", "Posts", "Comments", "Followed", "Followers"}
	PostPreloads    = []string{"User", "Comments"}
	CommentPreloads = []string{"User"}
	FollowPreloads  = []string{"Follower", "Followed"}
)

// Page selects a window of rows ordered by id. A zero Size means no limit.
type Page struct {
	Number int
	Size   int
}

func (p Page) offset() int {
	if p.Number <= 1 || p.Size <= 0 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Service reads and writes the social schema through one session.
type Service struct {
	db *builder.DB
}

func New(db *builder.DB) *Service {
	return &Service{db: db}
}

// DB returns the session the service runs on.
func (s *Service) DB() *builder.DB {
	return s.db
}

func list[T any](ctx context.Context, db *builder.DB, page Page, preloads []string) ([]T, error) {
	q := builder.Select[T](db).OrderByAsc("id").Preload(preloads...)
	if page.Size > 0 {
		q = q.Limit(page.Size).Offset(page.offset())
	}
	return q.All(ctx)
}

func load[T any](ctx context.Context, db *builder.DB, id int, preloads []string) (*T, error) {
	return builder.Select[T](db).Where(builder.Eq("id", id)).Preload(preloads...).First(ctx)
}

func (s *Service) LoadUser(ctx context.Context, id int) (*models.User, error) {
	return load[models.User](ctx, s.db, id, UserPreloads)
}

func (s *Service) ListUsers(ctx context.Context, page Page) ([]models.User, error) {
	return list[models.User](ctx, s.db, page, UserPreloads)
}

// FindUserByEmail returns the user with the given email, without relations.
func (s *Service) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return builder.Select[models.User](s.db).Where(builder.Eq(builder.Col[models.User](s.db, "Email"), email)).First(ctx)
}

func (s *Service) LoadProfile(ctx context.Context, id int) (*models.Profile, error) {
	return load[models.Profile](ctx, s.db, id, nil)
}

func (s *Service) ListProfiles(ctx context.Context, page Page) ([]models.Profile, error) {
	return list[models.Profile](ctx, s.db, page, nil)
}

func (s *Service) LoadPost(ctx context.Context, id int) (*models.Post, error) {
	return load[models.Post](ctx, s.db, id, PostPreloads)
}

func (s *Service) ListPosts(ctx context.Context, page Page) ([]models.Post, error) {
	return list[models.Post](ctx, s.db, page, PostPreloads)
}

func (s *Service) LoadComment(ctx context.Context, id int) (*models.Comment, error) {
	return load[models.Comment](ctx, s.db, id, CommentPreloads)
}

func (s *Service) ListComments(ctx context.Context, page Page) ([]models.Comment, error) {
	return list[models.Comment](ctx, s.db, page, CommentPreloads)
}

func (s *Service) LoadFollow(ctx context.Context, id int) (*models.Follow, error) {
	return load[models.Follow](ctx, s.db, id, FollowPreloads)
}

func (s *Service) ListFollows(ctx context.Context, page Page) ([]models.Follow, error) {
	return list[models.Follow](ctx, s.db, page, FollowPreloads)
}

// Follow records that follower follows followed and returns the new edge
// with both users loaded. Following twice fails with the unique violation
// from storage.
func (s *Service) Follow(ctx context.Context, followerID, followedID int) (*models.Follow, error) {
	if followerID == followedID {
		return nil, xerrors.New(ErrSelfFollow)
	}

	var follow *models.Follow
	err := s.db.WithTx(ctx, func(tx *builder.DB) error {
		rows, err := builder.Insert[models.Follow](tx).
			Values(models.Follow{FollowerID: followerID, FollowedID: followedID}).
			ExecReturning(ctx)
		if err != nil {
			return err
		}
		follow, err = load[models.Follow](ctx, tx, rows[0].ID, FollowPreloads)
		return err
	})
	if err != nil {
		return nil, err
	}
	return follow, nil
}

// Unfollow removes the edge from follower to followed.
func (s *Service) Unfollow(ctx context.Context, followerID, followedID int) error {
	n, err := builder.Delete[models.Follow](s.db).
		Where(builder.Eq(builder.Col[models.Follow](s.db, "FollowerID"), followerID)).
		And(builder.Eq(builder.Col[models.Follow](s.db, "FollowedID"), followedID)).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return xerrors.New(ErrNotFollowing)
	}
	return nil
}

// IsFollowing reports whether follower follows followed.
func (s *Service) IsFollowing(ctx context.Context, followerID, followedID int) (bool, error) {
	return builder.Select[models.Follow](s.db).
		Where(builder.Eq(builder.Col[models.Follow](s.db, "FollowerID"), followerID)).
		And(builder.Eq(builder.Col[models.Follow](s.db, "FollowedID"), followedID)).
		Exists(ctx)
}

// CreateUser hashes the password and inserts the user, with a profile when
// bio is not empty.
func (s *Service) CreateUser(ctx context.Context, email, password, bio string, cost int) (*models.User, error) {
	u := models.User{Email: email, IsActive: true}
	if err := u.SetPassword(password, cost); err != nil {
		return nil, xerrors.New(err)
	}

	var id int
	err := s.db.WithTx(ctx, func(tx *builder.DB) error {
		rows, err := builder.Insert[models.User](tx).Values(u).ExecReturning(ctx)
		if err != nil {
			return err
		}
		id = rows[0].ID
		if bio == "" {
			return nil
		}
		_, err = builder.Insert[models.Profile](tx).Values(models.Profile{Bio: bio, UserID: id}).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.LoadUser(ctx, id)
}

// CreatePost inserts a post by userID and returns it with its author
// loaded.
func (s *Service) CreatePost(ctx context.Context, userID int, imageURL, caption string) (*models.Post, error) {
	rows, err := builder.Insert[models.Post](s.db).
		Values(models.Post{UserID: userID, ImageURL: imageURL, Caption: caption}).
		ExecReturning(ctx)
	if err != nil {
		return nil, err
	}
	return s.LoadPost(ctx, rows[0].ID)
}

// AddComment inserts a comment by userID on postID.
func (s *Service) AddComment(ctx context.Context, userID, postID int, text string) (*models.Comment, error) {
	rows, err := builder.Insert[models.Comment](s.db).
		Values(models.Comment{UserID: userID, PostID: postID, Text: text}).
		ExecReturning(ctx)
	if err != nil {
		return nil, err
	}
	return s.LoadComment(ctx, rows[0].ID)
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return runtime.IsNotFound(err)
}
