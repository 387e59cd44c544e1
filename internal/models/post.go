package models

import "time"

// MaxTitleLen is the longest accepted post title, in characters.
const MaxTitleLen = 60

// Post is a row in the posts table. IDs grow monotonically and double as
// the recency order.
type Post struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// PostView is a post joined with the author fields shown in listings.
type PostView struct {
	Post
	AuthorHandle string `json:"author_handle"`
	AuthorAvatar string `json:"author_avatar"`
}

// AvatarOrDefault returns the author's avatar or the placeholder.
func (p PostView) AvatarOrDefault() string {
	if p.AuthorAvatar == "" {
		return DefaultAvatar
	}
	return p.AuthorAvatar
}

// AuthorStat is the "most posts" card on the index page.
type AuthorStat struct {
	UserID int64  `json:"user_id"`
	Handle string `json:"handle"`
	Avatar string `json:"avatar"`
	Posts  int    `json:"posts"`
}

// Stats holds the dashboard aggregates.
type Stats struct {
	Posts int `json:"posts"`
	Users int `json:"users"`
}
