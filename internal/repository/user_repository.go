package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"docspace/internal/domain"
)

// UserRepository - справочник пользователей. Ядро потребляет его только для
// поиска по email при выдаче прав и отображения имён.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByEmail возвращает nil без ошибки, если пользователь не найден.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &user,
		`SELECT id, username, email FROM doc_user WHERE email = $1`, email)
	if err != nil {
		wrapped := wrapErr("get user by email", err)
		if isNotFound(wrapped) {
			return nil, nil
		}
		return nil, wrapped
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &user,
		`SELECT id, username, email FROM doc_user WHERE id = $1`, id)
	if err != nil {
		return nil, wrapErr("get user", err)
	}
	return &user, nil
}
