// Package models defines the social schema: users, their profiles, posts,
// comments and the follow graph between users.
//
// Relationship fields are filled by preloading (see internal/social) and
// are what Serialize counts and reads emails from.
package models

import "time"

// User is an account. Password holds a bcrypt hash and is never serialized.
type User struct {
	ID       int    `po:"id,primaryKey,serial"`
	Email    string `po:"email,varchar(120),unique,notNull"`
	Password string `po:"password,text,notNull" json:"-"`
	IsActive bool   `po:"is_active,boolean,notNull"`

	Profile  *Profile  `po:"-,hasOne,foreignKey(user_id)"`
	Posts    []Post    `po:"-,hasMany,foreignKey(user_id)"`
	Comments []Comment `po:"-,hasMany,foreignKey(user_id)"`

	// Followed holds edges where this user is the follower.
	Followed []Follow `po:"-,hasMany,foreignKey(follower_id)"`
	// Followers holds edges where this user is the one followed.
	Followers []Follow `po:"-,hasMany,foreignKey(followed_id)"`
}

func (User) TableName() string { return "users" }

// Profile is the one-to-one extension of a User.
type Profile struct {
	ID     int    `po:"id,primaryKey,serial"`
	Bio    string `po:"bio,varchar(250),notNull"`
	UserID int    `po:"user_id,integer,notNull,unique,fk(users.id)"`

	User *User `po:"-,belongsTo,foreignKey(user_id)"`
}

func (Profile) TableName() string { return "profiles" }

type Post struct {
	ID        int       `po:"id,primaryKey,serial"`
	ImageURL  string    `po:"image_url,varchar(255),notNull"`
	Caption   string    `po:"caption,varchar(500),notNull"`
	CreatedAt time.Time `po:"created_at,timestamptz,default(NOW()),notNull"`
	UserID    int       `po:"user_id,integer,notNull,fk(users.id),index"`

	User     *User     `po:"-,belongsTo,foreignKey(user_id)"`
	Comments []Comment `po:"-,hasMany,foreignKey(post_id)"`
}

func (Post) TableName() string { return "posts" }

type Comment struct {
	ID        int       `po:"id,primaryKey,serial"`
	Text      string    `po:"text,text,notNull"`
	CreatedAt time.Time `po:"created_at,timestamptz,default(NOW()),notNull"`
	UserID    int       `po:"user_id,integer,notNull,fk(users.id),index"`
	PostID    int       `po:"post_id,integer,notNull,fk(posts.id),index"`

	User *User `po:"-,belongsTo,foreignKey(user_id)"`
	Post *Post `po:"-,belongsTo,foreignKey(post_id)"`
}

func (Comment) TableName() string { return "comments" }

// Follow is a directed edge: Follower follows Followed. A user cannot follow
// itself and an edge exists at most once.
type Follow struct {
	ID         int       `po:"id,primaryKey,serial"`
	FollowerID int       `po:"follower_id,integer,notNull,fk(users.id),uniqueIndex(follows_follower_followed_key),check(follower_id <> followed_id)"`
	FollowedID int       `po:"followed_id,integer,notNull,fk(users.id),uniqueIndex(follows_follower_followed_key),index"`
	CreatedAt  time.Time `po:"created_at,timestamptz,default(NOW()),notNull"`

	Follower *User `po:"-,belongsTo,foreignKey(follower_id)"`
	Followed *User `po:"-,belongsTo,foreignKey(followed_id)"`
}

func (Follow) TableName() string { return "follows" }
