package domain

import (
	"context"
	"time"
)

// User is stored at /users/{id}. Followers and Followings are the two halves of
// the follow edges the user takes part in, Posts lists the user's post ids in
// creation order. Password and PasswordConfirm only carry input and are never stored.
type User struct {
	ID              string    `json:"id"`
	FullName        string    `json:"fullName"`
	Email           string    `json:"email"`
	Password        string    `json:"-"`
	PasswordConfirm string    `json:"-"`
	PasswordHash    string    `json:"passwordHash"`
	Address         string    `json:"address"`
	Bio             string    `json:"bio"`
	ProfileImage    string    `json:"profileImage,omitempty"`
	Followers       IDSet     `json:"followers"`
	Followings      IDSet     `json:"followings"`
	Posts           []string  `json:"posts"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Profile is the public view of a User. It never contains credentials.
type Profile struct {
	ID             string   `json:"id"`
	FullName       string   `json:"fullName"`
	Email          string   `json:"email"`
	Address        string   `json:"address"`
	Bio            string   `json:"bio"`
	ProfileImage   string   `json:"profileImage,omitempty"`
	Followers      []string `json:"followers"`
	Followings     []string `json:"followings"`
	Posts          []string `json:"posts"`
	FollowerCount  int      `json:"followerCount"`
	FollowingCount int      `json:"followingCount"`
	PostCount      int      `json:"postCount"`
	// AuthFollow tells whether the requesting user follows this profile.
	AuthFollow *bool `json:"authFollow,omitempty"`
}

// Profile returns the public view of u.
func (u *User) Profile() Profile {
	posts := u.Posts
	if posts == nil {
		posts = []string{}
	}
	return Profile{
		ID:             u.ID,
		FullName:       u.FullName,
		Email:          u.Email,
		Address:        u.Address,
		Bio:            u.Bio,
		ProfileImage:   u.ProfileImage,
		Followers:      u.Followers.Slice(),
		Followings:     u.Followings.Slice(),
		Posts:          posts,
		FollowerCount:  u.Followers.Len(),
		FollowingCount: u.Followings.Len(),
		PostCount:      len(posts),
	}
}

// UserUpdate holds the profile fields a user may change. Nil fields are left alone.
type UserUpdate struct {
	FullName     *string `json:"fullName"`
	Address      *string `json:"address"`
	Bio          *string `json:"bio"`
	ProfileImage *string `json:"profileImage"`
}

// UserService is the profile directory.
type UserService interface {
	Create(ctx context.Context, user *User) error
	ByID(ctx context.Context, id string) (*User, error)
	ByIDs(ctx context.Context, ids []string) ([]User, error)
	Search(ctx context.Context, query string) ([]User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
}
