package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"docspace/internal/domain"
	"docspace/pkg/logger"
)

// VersionStore - примитивы хранения версий, см. repository.VersionRepository.
type VersionStore interface {
	LockDocument(ctx context.Context, documentID int64) error
	MaxVersionNumber(ctx context.Context, documentID int64) (int, error)
	Insert(ctx context.Context, v *domain.Version) error
	GetByID(ctx context.Context, id int64) (*domain.Version, error)
	GetByIdempotencyKey(ctx context.Context, documentID int64, key uuid.UUID) (*domain.Version, error)
	GetLatest(ctx context.Context, documentID int64) (*domain.Version, error)
	Delete(ctx context.Context, id int64) error
	History(ctx context.Context, documentID int64) ([]domain.VersionInfo, error)
}

// DocumentGetter - доступ к документам, нужный сервису версий.
type DocumentGetter interface {
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)
}

// VersionService ведёт журнал версий документа: только добавление в конец,
// номера сплошные начиная с 1, верхушку журнала удалить нельзя.
type VersionService struct {
	versions VersionStore
	docs     DocumentGetter
	resolver AbilityResolver
	txm      TxManager
}

func NewVersionService(versions VersionStore, docs DocumentGetter, resolver AbilityResolver, txm TxManager) *VersionService {
	return &VersionService{
		versions: versions,
		docs:     docs,
		resolver: resolver,
		txm:      txm,
	}
}

// AppendVersion добавляет версию в конец журнала. Номер выделяется под
// блокировкой строки документа, поэтому параллельные вызовы получают
// соседние номера без дырок. Ключ идемпотентности позволяет безопасно
// повторять запрос: повтор возвращает уже записанную версию.
func (s *VersionService) AppendVersion(ctx context.Context, actorID int64, documentID int64, content []byte, key *uuid.UUID) (*domain.Version, error) {
	if _, err := s.docs.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if err := s.resolver.RequireAbility(ctx, domain.FileResource(documentID), actorID, domain.AbilityEdit); err != nil {
		return nil, err
	}

	version := &domain.Version{
		DocumentID:     documentID,
		AuthorID:       actorID,
		Content:        content,
		IdempotencyKey: key,
	}

	err := s.txm.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.versions.LockDocument(ctx, documentID); err != nil {
			return err
		}

		if key != nil {
			existing, err := s.versions.GetByIdempotencyKey(ctx, documentID, *key)
			if err != nil {
				return err
			}
			if existing != nil {
				version = existing
				return nil
			}
		}

		max, err := s.versions.MaxVersionNumber(ctx, documentID)
		if err != nil {
			return err
		}
		version.VersionNumber = max + 1
		return s.versions.Insert(ctx, version)
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to append version to document %d: %v", documentID, err)
		return nil, err
	}

	return version, nil
}

// GetLatestContent возвращает содержимое последней версии документа.
func (s *VersionService) GetLatestContent(ctx context.Context, actorID int64, documentID int64) ([]byte, error) {
	if _, err := s.docs.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if err := s.resolver.RequireAbility(ctx, domain.FileResource(documentID), actorID, domain.AbilityView); err != nil {
		return nil, err
	}

	latest, err := s.versions.GetLatest(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if latest.Content == nil {
		return []byte{}, nil
	}
	return latest.Content, nil
}

// GetVersion возвращает одну версию по идентификатору.
func (s *VersionService) GetVersion(ctx context.Context, actorID int64, versionID int64) (*domain.Version, error) {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.RequireAbility(ctx, domain.FileResource(version.DocumentID), actorID, domain.AbilityView); err != nil {
		return nil, err
	}
	return version, nil
}

// GetHistory возвращает журнал версий, новые сверху.
func (s *VersionService) GetHistory(ctx context.Context, actorID int64, documentID int64) ([]domain.VersionInfo, error) {
	if _, err := s.docs.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if err := s.resolver.RequireAbility(ctx, domain.FileResource(documentID), actorID, domain.AbilityView); err != nil {
		return nil, err
	}
	return s.versions.History(ctx, documentID)
}

// RevertTo делает откат: содержимое старой версии записывается новой версией
// в конец журнала, история не переписывается.
func (s *VersionService) RevertTo(ctx context.Context, actorID int64, versionID int64) (*domain.Version, error) {
	old, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return s.AppendVersion(ctx, actorID, old.DocumentID, old.Content, nil)
}

// DeleteVersion удаляет версию из середины журнала. Последнюю версию удалить
// нельзя, после удаления в нумерации остаётся дырка. Удалять может только
// владелец документа.
func (s *VersionService) DeleteVersion(ctx context.Context, actorID int64, versionID int64) error {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return err
	}

	doc, err := s.docs.GetDocument(ctx, version.DocumentID)
	if err != nil {
		return err
	}
	if doc.OwnerID != actorID {
		return fmt.Errorf("only the document owner may delete versions: %w", domain.ErrPermissionDenied)
	}

	return s.txm.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.versions.LockDocument(ctx, version.DocumentID); err != nil {
			return err
		}
		max, err := s.versions.MaxVersionNumber(ctx, version.DocumentID)
		if err != nil {
			return err
		}
		if version.VersionNumber == max {
			return fmt.Errorf("cannot delete the latest version: %w", domain.ErrInvalidOperation)
		}
		return s.versions.Delete(ctx, versionID)
	})
}
