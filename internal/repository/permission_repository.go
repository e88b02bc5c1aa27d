package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"docspace/internal/domain"
)

// PermissionRepository - примитивы хранения выданных прав.
type PermissionRepository struct {
	db *sqlx.DB
}

func NewPermissionRepository(db *sqlx.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Get возвращает строку права для пары (ресурс, субъект), nil если её нет.
func (r *PermissionRepository) Get(ctx context.Context, res domain.Resource, principal domain.Principal) (*domain.Permission, error) {
	var perm domain.Permission
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &perm,
		`SELECT id, file_id, folder_id, user_id, team_id, ability
         FROM permission
         WHERE file_id IS NOT DISTINCT FROM $1
           AND folder_id IS NOT DISTINCT FROM $2
           AND user_id IS NOT DISTINCT FROM $3
           AND team_id IS NOT DISTINCT FROM $4`,
		res.FileID, res.FolderID, principal.UserID, principal.TeamID)
	if err != nil {
		wrapped := wrapErr("get permission", err)
		if isNotFound(wrapped) {
			return nil, nil
		}
		return nil, wrapped
	}
	return &perm, nil
}

func (r *PermissionRepository) GetByID(ctx context.Context, id int64) (*domain.Permission, error) {
	var perm domain.Permission
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &perm,
		`SELECT id, file_id, folder_id, user_id, team_id, ability
         FROM permission WHERE id = $1`, id)
	if err != nil {
		return nil, wrapErr("get permission", err)
	}
	return &perm, nil
}

// Upsert перезаписывает право для пары (ресурс, субъект) вместо дублирования:
// не более одной строки на пару. Требует транзакцию, чтобы проверка и запись
// не разошлись с конкурирующим grant.
func (r *PermissionRepository) Upsert(ctx context.Context, perm *domain.Permission) error {
	if err := requireTx(ctx, "upsert permission"); err != nil {
		return err
	}
	e := ext(ctx, r.db)

	var existingID int64
	err := sqlx.GetContext(ctx, e, &existingID,
		`SELECT id FROM permission
         WHERE file_id IS NOT DISTINCT FROM $1
           AND folder_id IS NOT DISTINCT FROM $2
           AND user_id IS NOT DISTINCT FROM $3
           AND team_id IS NOT DISTINCT FROM $4
         FOR UPDATE`,
		perm.FileID, perm.FolderID, perm.UserID, perm.TeamID)
	if err != nil {
		wrapped := wrapErr("find permission", err)
		if !isNotFound(wrapped) {
			return wrapped
		}

		insert := `
            INSERT INTO permission (file_id, folder_id, user_id, team_id, ability)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING id`
		err = e.QueryRowxContext(ctx, insert,
			perm.FileID, perm.FolderID, perm.UserID, perm.TeamID, perm.Ability,
		).Scan(&perm.ID)
		return wrapErr("insert permission", err)
	}

	_, err = e.ExecContext(ctx,
		`UPDATE permission SET ability = $1 WHERE id = $2`, perm.Ability, existingID)
	if err != nil {
		return wrapErr("update permission", err)
	}
	perm.ID = existingID
	return nil
}

func (r *PermissionRepository) SetAbility(ctx context.Context, id int64, ability domain.Ability) error {
	res, err := ext(ctx, r.db).ExecContext(ctx,
		`UPDATE permission SET ability = $1 WHERE id = $2`, ability, id)
	if err != nil {
		return wrapErr("set ability", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("set ability", err)
	}
	if affected == 0 {
		return wrapErr("set ability", errNoRowsAffected)
	}
	return nil
}

func (r *PermissionRepository) Delete(ctx context.Context, id int64) error {
	res, err := ext(ctx, r.db).ExecContext(ctx, `DELETE FROM permission WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete permission", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("delete permission", err)
	}
	if affected == 0 {
		return wrapErr("delete permission", errNoRowsAffected)
	}
	return nil
}

// ListByResource возвращает все права на ресурс для интерфейса управления.
func (r *PermissionRepository) ListByResource(ctx context.Context, res domain.Resource) ([]domain.Permission, error) {
	var perms []domain.Permission
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &perms,
		`SELECT id, file_id, folder_id, user_id, team_id, ability
         FROM permission
         WHERE file_id IS NOT DISTINCT FROM $1
           AND folder_id IS NOT DISTINCT FROM $2
         ORDER BY id`,
		res.FileID, res.FolderID)
	if err != nil {
		return nil, wrapErr("list permissions", err)
	}
	return perms, nil
}
