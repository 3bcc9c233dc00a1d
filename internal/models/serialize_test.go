package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSerialize_NeverIncludesPassword(t *testing.T) {
	users := []User{
		{ID: 1, Email: "a@example.com", Password: "plaintext"},
		{ID: 2, Email: "b@example.com", Password: "$2a$12$abcdefghijklmnopqrstuv", IsActive: true},
		{ID: 3, Email: "c@example.com", Profile: &Profile{ID: 1, Bio: "hi", UserID: 3}},
	}

	for _, u := range users {
		out := u.Serialize()
		assert.NotContains(t, out, "password")
		assert.NotContains(t, out, "is_active")

		body, err := json.Marshal(out)
		require.NoError(t, err)
		if u.Password != "" {
			assert.NotContains(t, string(body), u.Password)
		}
	}
}

func TestUserSerialize_ProfileRoundTrip(t *testing.T) {
	u := User{ID: 7, Email: "bio@example.com"}
	u.Profile = &Profile{ID: 3, Bio: "Gopher and photographer", UserID: u.ID}

	out := u.Serialize()
	profile, ok := out["profile"].(map[string]any)
	require.True(t, ok, "profile should serialize to a nested object")
	assert.Equal(t, "Gopher and photographer", profile["bio"])
	assert.Equal(t, 7, profile["user_id"])
	assert.Equal(t, 3, profile["id"])
}

func TestUserSerialize_WithoutProfile(t *testing.T) {
	out := (&User{ID: 1, Email: "lonely@example.com"}).Serialize()

	assert.Contains(t, out, "profile")
	assert.Nil(t, out["profile"])

	body, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"profile":null`)
}

func TestUserSerialize_Counts(t *testing.T) {
	u := User{
		ID:        1,
		Email:     "counts@example.com",
		Posts:     []Post{{ID: 1}, {ID: 2}},
		Comments:  []Comment{{ID: 1}, {ID: 2}, {ID: 3}},
		Followed:  []Follow{{ID: 1}},
		Followers: []Follow{{ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}},
	}

	out := u.Serialize()
	assert.Equal(t, 2, out["posts_count"])
	assert.Equal(t, 3, out["comments_count"])
	assert.Equal(t, 1, out["followed_count"])
	assert.Equal(t, 4, out["followers_count"])

	assert.Equal(t, 0, (&User{}).Serialize()["posts_count"])
}

func TestPostSerialize(t *testing.T) {
	created := time.Date(2024, 3, 9, 14, 30, 5, 123456000, time.FixedZone("CET", 3600))
	author := &User{ID: 4, Email: "author@example.com"}

	p := Post{
		ID:        10,
		ImageURL:  "https://example.com/p.jpg",
		Caption:   "sunset",
		CreatedAt: created,
		UserID:    author.ID,
		User:      author,
		Comments:  []Comment{{ID: 1, PostID: 10}, {ID: 2, PostID: 10}, {ID: 3, PostID: 10}},
	}

	out := p.Serialize()
	assert.Equal(t, map[string]any{
		"id":             10,
		"image_url":      "https://example.com/p.jpg",
		"caption":        "sunset",
		"created_at":     "2024-03-09T13:30:05.123456",
		"user_id":        4,
		"user_email":     "author@example.com",
		"comments_count": 3,
	}, out)
}

func TestPostSerialize_UnloadedUser(t *testing.T) {
	out := (&Post{ID: 1, UserID: 2}).Serialize()
	assert.Nil(t, out["user_email"])
	assert.Equal(t, 0, out["comments_count"])
}

func TestCommentSerialize(t *testing.T) {
	c := Comment{
		ID:        5,
		Text:      "nice shot",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		UserID:    8,
		PostID:    10,
		User:      &User{ID: 8, Email: "commenter@example.com"},
	}

	out := c.Serialize()
	assert.Equal(t, "2024-01-02T03:04:05", out["created_at"])
	assert.Equal(t, "commenter@example.com", out["user_email"])
	assert.Equal(t, 10, out["post_id"])
	assert.Equal(t, "nice shot", out["text"])
}

func TestFollowSerialize_EmailsAttributed(t *testing.T) {
	a := &User{ID: 1, Email: "a@example.com"}
	b := &User{ID: 2, Email: "b@example.com"}

	f := Follow{
		ID:         9,
		FollowerID: a.ID,
		FollowedID: b.ID,
		CreatedAt:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Follower:   a,
		Followed:   b,
	}

	out := f.Serialize()
	assert.Equal(t, "a@example.com", out["follower_email"])
	assert.Equal(t, "b@example.com", out["followed_email"])
	assert.Equal(t, 1, out["follower_id"])
	assert.Equal(t, 2, out["followed_id"])
	assert.Equal(t, "2024-06-01T00:00:00", out["created_at"])

	reverse := Follow{FollowerID: b.ID, FollowedID: a.ID, Follower: b, Followed: a}
	assert.Equal(t, "b@example.com", reverse.Serialize()["follower_email"])
	assert.Equal(t, "a@example.com", reverse.Serialize()["followed_email"])
}

func TestProfileSerialize(t *testing.T) {
	out := (&Profile{ID: 2, Bio: "", UserID: 5}).Serialize()
	assert.Equal(t, map[string]any{"id": 2, "bio": "", "user_id": 5}, out)
}

func TestIsoTime(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)

	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"whole seconds", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05"},
		{"fraction keeps six digits", time.Date(2024, 1, 2, 3, 4, 5, 120_000_000, time.UTC), "2024-01-02T03:04:05.120000"},
		{"nanoseconds are truncated", time.Date(2024, 1, 2, 3, 4, 5, 1_999, time.UTC), "2024-01-02T03:04:05.000001"},
		{"below a microsecond", time.Date(2024, 1, 2, 3, 4, 5, 999, time.UTC), "2024-01-02T03:04:05"},
		{"converted to UTC", time.Date(2024, 1, 1, 22, 4, 5, 0, est), "2024-01-02T03:04:05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isoTime(tt.in))
		})
	}
}
