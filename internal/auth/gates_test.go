package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ayush/blog/internal/models"
)

func TestCanModifyPost(t *testing.T) {
	post := &models.Post{ID: 1, AuthorID: 10}
	admin := Principal{Kind: Administrator}
	author := Principal{Kind: RegisteredUser, UserID: 10}
	other := Principal{Kind: RegisteredUser, UserID: 11}

	assert.True(t, CanModifyPost(admin, post))
	assert.True(t, CanModifyPost(author, post))
	assert.False(t, CanModifyPost(other, post))
	assert.False(t, CanModifyPost(Principal{}, post))
}

func TestCanEditPost_AdminCannotEdit(t *testing.T) {
	post := &models.Post{ID: 1, AuthorID: 10}
	assert.False(t, CanEditPost(Principal{Kind: Administrator}, post))
	assert.True(t, CanEditPost(Principal{Kind: RegisteredUser, UserID: 10}, post))
	assert.False(t, CanEditPost(Principal{Kind: RegisteredUser, UserID: 10}, nil))
}

func TestCanModifyUser(t *testing.T) {
	assert.True(t, CanModifyUser(Principal{Kind: Administrator}, 3))
	assert.False(t, CanModifyUser(Principal{Kind: Administrator}, 0))
	assert.False(t, CanModifyUser(Principal{Kind: RegisteredUser, UserID: 1}, 3))
	assert.False(t, CanModifyUser(Principal{Kind: RegisteredUser, UserID: 3}, 3))
}

func TestRequireLoggedIn(t *testing.T) {
	assert.ErrorIs(t, RequireLoggedIn(Principal{}), models.ErrNotLoggedIn)
	assert.NoError(t, RequireLoggedIn(Principal{Kind: Administrator}))
	assert.NoError(t, RequireLoggedIn(Principal{Kind: RegisteredUser, UserID: 1}))
}

func TestPrincipalContext(t *testing.T) {
	ctx := WithPrincipal(t.Context(), Principal{Kind: RegisteredUser, UserID: 5, Handle: "ana"})
	assert.Equal(t, int64(5), PrincipalFrom(ctx).UserID)
	assert.True(t, PrincipalFrom(t.Context()).IsAnonymous())
	assert.Equal(t, "anonymous", Principal{}.Name())
}
