package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"docspace/internal/domain"
)

// CommentRepository - простой CRUD комментариев к документам.
type CommentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	err := ext(ctx, r.db).QueryRowxContext(ctx,
		`INSERT INTO doc_comment (file_id, created_by, content) VALUES ($1, $2, $3)
         RETURNING id, time_posted`,
		comment.FileID, comment.CreatedBy, comment.Content,
	).Scan(&comment.ID, &comment.TimePosted)
	return wrapErr("create comment", err)
}

func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	var comment domain.Comment
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &comment,
		`SELECT id, file_id, created_by, content, time_posted FROM doc_comment WHERE id = $1`, id)
	if err != nil {
		return nil, wrapErr("get comment", err)
	}
	return &comment, nil
}

func (r *CommentRepository) ListByDocument(ctx context.Context, documentID int64) ([]domain.Comment, error) {
	var comments []domain.Comment
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &comments,
		`SELECT id, file_id, created_by, content, time_posted
         FROM doc_comment WHERE file_id = $1 ORDER BY time_posted`, documentID)
	if err != nil {
		return nil, wrapErr("list comments", err)
	}
	return comments, nil
}

func (r *CommentRepository) UpdateContent(ctx context.Context, id int64, content string) error {
	res, err := ext(ctx, r.db).ExecContext(ctx,
		`UPDATE doc_comment SET content = $1 WHERE id = $2`, content, id)
	if err != nil {
		return wrapErr("update comment", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("update comment", err)
	}
	if affected == 0 {
		return wrapErr("update comment", errNoRowsAffected)
	}
	return nil
}

func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	res, err := ext(ctx, r.db).ExecContext(ctx, `DELETE FROM doc_comment WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete comment", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("delete comment", err)
	}
	if affected == 0 {
		return wrapErr("delete comment", errNoRowsAffected)
	}
	return nil
}
