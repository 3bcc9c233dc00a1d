package models

import "time"

// TimeFormat is the ISO-8601 layout used for serialized timestamps: UTC
// without an offset, with microseconds only when they are not zero.
const TimeFormat = "2006-01-02T15:04:05"

const microFormat = TimeFormat + ".000000"

func isoTime(t time.Time) string {
	t = t.UTC().Truncate(time.Microsecond)
	if t.Nanosecond() == 0 {
		return t.Format(TimeFormat)
	}
	return t.Format(microFormat)
}

// email returns the address of a loaded user, or nil when the relation was
// not loaded.
func email(u *User) any {
	if u == nil {
		return nil
	}
	return u.Email
}

func (u *User) Serialize() map[string]any {
	var profile any
	if u.Profile != nil {
		profile = u.Profile.Serialize()
	}
	return map[string]any{
		"id":              u.ID,
		"email":           u.Email,
		"profile":         profile,
		"posts_count":     len(u.Posts),
		"comments_count":  len(u.Comments),
		"followed_count":  len(u.Followed),
		"followers_count": len(u.Followers),
	}
}

func (p *Profile) Serialize() map[string]any {
	return map[string]any{
		"id":      p.ID,
		"bio":     p.Bio,
		"user_id": p.UserID,
	}
}

func (p *Post) Serialize() map[string]any {
	return map[string]any{
		"id":             p.ID,
		"image_url":      p.ImageURL,
		"caption":        p.Caption,
		"created_at":     isoTime(p.CreatedAt),
		"user_id":        p.UserID,
		"user_email":     email(p.User),
		"comments_count": len(p.Comments),
	}
}

func (c *Comment) Serialize() map[string]any {
	return map[string]any{
		"id":         c.ID,
		"text":       c.Text,
		"created_at": isoTime(c.CreatedAt),
		"user_id":    c.UserID,
		"user_email": email(c.User),
		"post_id":    c.PostID,
	}
}

func (f *Follow) Serialize() map[string]any {
	return map[string]any{
		"id":             f.ID,
		"follower_id":    f.FollowerID,
		"followed_id":    f.FollowedID,
		"created_at":     isoTime(f.CreatedAt),
		"follower_email": email(f.Follower),
		"followed_email": email(f.Followed),
	}
}
