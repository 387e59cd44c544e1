package auth

import "github.com/ayush/blog/internal/models"

// RequireLoggedIn rejects anonymous principals.
func RequireLoggedIn(p Principal) error {
	if p.IsAnonymous() {
		return models.ErrNotLoggedIn
	}
	return nil
}

// CanModifyPost allows the administrator or the post's author to delete it.
func CanModifyPost(p Principal, post *models.Post) bool {
	return p.IsAdmin() || CanEditPost(p, post)
}

// CanEditPost allows only the author. The administrator may delete any post
// but not rewrite it.
func CanEditPost(p Principal, post *models.Post) bool {
	return p.IsUser() && post != nil && post.AuthorID == p.UserID
}

// CanModifyUser allows the administrator to act on any account except the
// identity it is acting as.
func CanModifyUser(p Principal, targetID int64) bool {
	return p.IsAdmin() && targetID > 0 && targetID != p.UserID
}
