package domain

import (
	"time"

	"github.com/google/uuid"
)

// Version - одна запись журнала версий документа. Журнал только дописывается:
// содержимое никогда не перезаписывается, откат - это новая версия со старым
// содержимым. Content может быть NULL (начальная пустая версия).
type Version struct {
	ID             int64      `json:"id" db:"id"`
	DocumentID     int64      `json:"document_id" db:"document_id"`
	AuthorID       int64      `json:"author_id" db:"author_id"`
	VersionNumber  int        `json:"version_number" db:"version_number"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	Content        []byte     `json:"content,omitempty" db:"content"`
	IdempotencyKey *uuid.UUID `json:"idempotency_key,omitempty" db:"idempotency_key"`
}

// VersionInfo - строка истории версий без содержимого.
type VersionInfo struct {
	ID            int64     `json:"version_id" db:"id"`
	VersionNumber int       `json:"version_number" db:"version_number"`
	AuthorID      int64     `json:"author_id" db:"author_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
