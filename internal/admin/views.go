package admin

import (
	"context"
	"fmt"

	"github.com/mdobak/go-xerrors"

	"github.com/marshallshelly/pebble-social/internal/models"
	"github.com/marshallshelly/pebble-social/internal/social"
	"github.com/marshallshelly/pebble-social/internal/validator"
	"github.com/marshallshelly/pebble-social/pkg/builder"
)

// Setup returns an admin named name with a view for every model.
// Passwords given to the users view are hashed with bcryptCost.
func Setup(name string, db *builder.DB, bcryptCost int) (*Admin, error) {
	a := New(name)

	users, err := NewModelView(db,
		WithLabel[models.User]("Users"),
		WithPreload[models.User](social.UserPreloads...),
		WithValidation[models.User](validateUser),
		WithPrepare[models.User](hashPassword(bcryptCost)),
	)
	if err != nil {
		return nil, err
	}
	profiles, err := NewModelView(db,
		WithLabel[models.Profile]("Profiles"),
	)
	if err != nil {
		return nil, err
	}
	posts, err := NewModelView(db,
		WithLabel[models.Post]("Posts"),
		WithPreload[models.Post](social.PostPreloads...),
	)
	if err != nil {
		return nil, err
	}
	comments, err := NewModelView(db,
		WithLabel[models.Comment]("Comments"),
		WithPreload[models.Comment](social.CommentPreloads...),
		WithValidation[models.Comment](validateComment),
	)
	if err != nil {
		return nil, err
	}
	follows, err := NewModelView(db,
		WithLabel[models.Follow]("Follows"),
		WithPreload[models.Follow](social.FollowPreloads...),
		WithValidation[models.Follow](validateFollow),
	)
	if err != nil {
		return nil, err
	}

	for _, v := range []View{users, profiles, posts, comments, follows} {
		if err := a.AddView(v); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func validateUser(v *validator.Validator, fields map[string]any, _ bool) {
	if email, ok := fields["email"].(string); ok {
		v.Check(validator.Matches(email, validator.EmailRX), "email", "must be a valid email address")
	}
	if password, ok := fields["password"].(string); ok {
		v.Check(len(password) >= 8, "password", "must be at least 8 characters long")
		v.Check(len(password) <= 72, "password", "must not be more than 72 bytes long")
	}
}

func validateComment(v *validator.Validator, fields map[string]any, _ bool) {
	if text, ok := fields["text"].(string); ok {
		v.Check(validator.NotBlank(text), "text", "must not be blank")
	}
}

// validateFollow rejects self-follows when both ends are in the input. An
// update touching one end is left to the table's CHECK constraint.
func validateFollow(v *validator.Validator, fields map[string]any, _ bool) {
	follower, okFollower := fields["follower_id"]
	followed, okFollowed := fields["followed_id"]
	if okFollower && okFollowed && follower != nil && fmt.Sprint(follower) == fmt.Sprint(followed) {
		v.AddError("followed_id", "a user cannot follow themselves")
	}
}

// hashPassword replaces a plaintext password with its bcrypt hash.
func hashPassword(cost int) func(context.Context, map[string]any) error {
	return func(_ context.Context, fields map[string]any) error {
		password, ok := fields["password"].(string)
		if !ok {
			return nil
		}
		hash, err := models.HashPassword(password, cost)
		if err != nil {
			return xerrors.New(err)
		}
		fields["password"] = hash
		return nil
	}
}
