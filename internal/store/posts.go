package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/ayush/blog/internal/models"
)

const postViewSelect = `SELECT p.id, p.author_id, p.title, p.body, p.created_at, u.handle, COALESCE(u.avatar, '')
	FROM posts p
	JOIN users u ON u.id = p.author_id
	WHERE u.active`

func scanPostView(row pgx.Row) (*models.PostView, error) {
	var v models.PostView
	err := row.Scan(&v.ID, &v.AuthorID, &v.Title, &v.Body, &v.CreatedAt, &v.AuthorHandle, &v.AuthorAvatar)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PostgresStore) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	var p models.Post
	err := s.pool.QueryRow(ctx,
		`SELECT id, author_id, title, body, created_at FROM posts WHERE id = $1`, id,
	).Scan(&p.ID, &p.AuthorID, &p.Title, &p.Body, &p.CreatedAt)
	if err != nil {
		return nil, oops.Code("POST_GET_FAILED").With("id", id).Wrap(classify(err))
	}
	return &p, nil
}

// ListPosts returns the posts of authors in good standing, newest first.
func (s *PostgresStore) ListPosts(ctx context.Context) ([]models.PostView, error) {
	rows, err := s.pool.Query(ctx, postViewSelect+` ORDER BY p.id DESC`)
	if err != nil {
		return nil, oops.Code("POST_LIST_FAILED").Wrap(classify(err))
	}
	defer rows.Close()

	var posts []models.PostView
	for rows.Next() {
		v, err := scanPostView(rows)
		if err != nil {
			return nil, oops.Code("POST_LIST_FAILED").With("operation", "scan").Wrap(classify(err))
		}
		posts = append(posts, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("POST_LIST_FAILED").With("operation", "iterate").Wrap(classify(err))
	}
	return posts, nil
}

func (s *PostgresStore) CreatePost(ctx context.Context, p *models.Post) (*models.Post, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO posts (title, body, author_id) VALUES ($1, $2, $3) RETURNING id, created_at`,
		p.Title, p.Body, p.AuthorID,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, oops.Code("POST_CREATE_FAILED").With("author_id", p.AuthorID).Wrap(classify(err))
	}
	return p, nil
}

// UpdatePost rewrites a post only when authorID owns it.
func (s *PostgresStore) UpdatePost(ctx context.Context, id, authorID int64, title, body string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE posts SET title = $1, body = $2 WHERE id = $3 AND author_id = $4`,
		title, body, id, authorID)
	if err != nil {
		return oops.Code("POST_UPDATE_FAILED").With("id", id).Wrap(classify(err))
	}
	if tag.RowsAffected() == 0 {
		return s.missOrDenied(ctx, "POST_UPDATE_FAILED", id)
	}
	return nil
}

// DeletePost removes a post when actorID owns it or asAdmin is set.
func (s *PostgresStore) DeletePost(ctx context.Context, id, actorID int64, asAdmin bool) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM posts WHERE id = $1 AND ($2 OR author_id = $3)`,
		id, asAdmin, actorID)
	if err != nil {
		return oops.Code("POST_DELETE_FAILED").With("id", id).Wrap(classify(err))
	}
	if tag.RowsAffected() == 0 {
		return s.missOrDenied(ctx, "POST_DELETE_FAILED", id)
	}
	return nil
}

// missOrDenied explains why a conditional mutation matched no row.
func (s *PostgresStore) missOrDenied(ctx context.Context, code string, id int64) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return oops.Code(code).With("id", id).Wrap(classify(err))
	}
	if !exists {
		return oops.Code("POST_NOT_FOUND").With("id", id).Wrap(models.ErrNotFound)
	}
	return oops.Code("POST_NOT_OWNED").With("id", id).Wrap(models.ErrNotAuthorized)
}

func (s *PostgresStore) CountPosts(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, oops.Code("POST_COUNT_FAILED").Wrap(classify(err))
	}
	return n, nil
}

// MostFamousPost returns the longest visible post.
func (s *PostgresStore) MostFamousPost(ctx context.Context) (*models.PostView, error) {
	v, err := scanPostView(s.pool.QueryRow(ctx, postViewSelect+` ORDER BY CHAR_LENGTH(p.body) DESC, p.id DESC LIMIT 1`))
	if err != nil {
		return nil, oops.Code("POST_MOST_FAMOUS_FAILED").Wrap(classify(err))
	}
	return v, nil
}

// TopAuthor returns the active user with the most posts.
func (s *PostgresStore) TopAuthor(ctx context.Context) (*models.AuthorStat, error) {
	var a models.AuthorStat
	err := s.pool.QueryRow(ctx,
		`SELECT u.id, u.handle, COALESCE(u.avatar, ''), COUNT(p.id) AS total
		 FROM users u
		 JOIN posts p ON p.author_id = u.id
		 WHERE u.active
		 GROUP BY u.id
		 ORDER BY total DESC, u.id
		 LIMIT 1`,
	).Scan(&a.UserID, &a.Handle, &a.Avatar, &a.Posts)
	if err != nil {
		return nil, oops.Code("POST_TOP_AUTHOR_FAILED").Wrap(classify(err))
	}
	return &a, nil
}
