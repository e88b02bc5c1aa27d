package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docspace/internal/domain"
)

// VersionRepository - примитивы журнала версий. Выделение номера версии
// (прочитать максимум, вставить максимум+1) корректно только под блокировкой
// строки документа, поэтому мутирующие методы требуют транзакцию.
type VersionRepository struct {
	db *sqlx.DB
}

func NewVersionRepository(db *sqlx.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// LockDocument блокирует строку документа, сериализуя конкурирующие записи
// версий одного документа.
func (r *VersionRepository) LockDocument(ctx context.Context, documentID int64) error {
	if err := requireTx(ctx, "lock document"); err != nil {
		return err
	}
	var id int64
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &id,
		`SELECT id FROM document WHERE id = $1 FOR UPDATE`, documentID)
	return wrapErr("lock document", err)
}

// MaxVersionNumber возвращает номер последней версии документа, 0 если версий нет.
func (r *VersionRepository) MaxVersionNumber(ctx context.Context, documentID int64) (int, error) {
	var max int
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &max,
		`SELECT COALESCE(MAX(version_number), 0) FROM version WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, wrapErr("get max version number", err)
	}
	return max, nil
}

// Insert добавляет запись версии и обновляет кешированный размер документа.
func (r *VersionRepository) Insert(ctx context.Context, version *domain.Version) error {
	if err := requireTx(ctx, "insert version"); err != nil {
		return err
	}
	e := ext(ctx, r.db)

	query := `
        INSERT INTO version (document_id, author_id, version_number, content, idempotency_key)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`

	err := e.QueryRowxContext(
		ctx,
		query,
		version.DocumentID,
		version.AuthorID,
		version.VersionNumber,
		version.Content,
		version.IdempotencyKey,
	).Scan(&version.ID, &version.CreatedAt)
	if err != nil {
		return wrapErr("insert version", err)
	}

	_, err = e.ExecContext(ctx,
		`UPDATE document SET size = $1, modified_at = CURRENT_TIMESTAMP WHERE id = $2`,
		int64(len(version.Content)), version.DocumentID,
	)
	return wrapErr("update document size", err)
}

func (r *VersionRepository) GetByID(ctx context.Context, id int64) (*domain.Version, error) {
	var version domain.Version
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &version,
		`SELECT id, document_id, author_id, version_number, created_at, content, idempotency_key
         FROM version WHERE id = $1`, id)
	if err != nil {
		return nil, wrapErr("get version", err)
	}
	return &version, nil
}

// GetByIdempotencyKey ищет уже зафиксированную версию по ключу повтора.
// Возвращает nil без ошибки, если такой записи нет.
func (r *VersionRepository) GetByIdempotencyKey(ctx context.Context, documentID int64, key uuid.UUID) (*domain.Version, error) {
	var version domain.Version
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &version,
		`SELECT id, document_id, author_id, version_number, created_at, content, idempotency_key
         FROM version WHERE document_id = $1 AND idempotency_key = $2`, documentID, key)
	if err != nil {
		wrapped := wrapErr("get version by idempotency key", err)
		if isNotFound(wrapped) {
			return nil, nil
		}
		return nil, wrapped
	}
	return &version, nil
}

// GetLatest возвращает версию с максимальным номером для документа.
func (r *VersionRepository) GetLatest(ctx context.Context, documentID int64) (*domain.Version, error) {
	var version domain.Version
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &version,
		`SELECT id, document_id, author_id, version_number, created_at, content, idempotency_key
         FROM version WHERE document_id = $1
         ORDER BY version_number DESC LIMIT 1`, documentID)
	if err != nil {
		return nil, wrapErr("get latest version", err)
	}
	return &version, nil
}

// Delete удаляет запись версии. Защита от удаления последней версии -
// забота сервисного слоя, под блокировкой документа.
func (r *VersionRepository) Delete(ctx context.Context, id int64) error {
	res, err := ext(ctx, r.db).ExecContext(ctx, `DELETE FROM version WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete version", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("delete version", err)
	}
	if affected == 0 {
		return wrapErr("delete version", errNoRowsAffected)
	}
	return nil
}

// History возвращает строки истории без содержимого, новые сверху.
func (r *VersionRepository) History(ctx context.Context, documentID int64) ([]domain.VersionInfo, error) {
	var history []domain.VersionInfo
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &history,
		`SELECT id, version_number, author_id, created_at
         FROM version WHERE document_id = $1
         ORDER BY version_number DESC`, documentID)
	if err != nil {
		return nil, wrapErr("get version history", err)
	}
	return history, nil
}
