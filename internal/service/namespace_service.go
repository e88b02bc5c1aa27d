package service

import (
	"context"
	"fmt"

	"docspace/internal/domain"
	"docspace/pkg/logger"
)

// NamespaceStore - примитивы хранения пространства имён,
// см. repository.NamespaceRepository.
type NamespaceStore interface {
	CreateFolder(ctx context.Context, folder *domain.Folder, path string) error
	CreateDocument(ctx context.Context, doc *domain.Document) error
	GetFolder(ctx context.Context, id int64) (*domain.Folder, error)
	GetFolderForUpdate(ctx context.Context, id int64) (*domain.Folder, error)
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)
	GetPath(ctx context.Context, folderID int64) (string, error)
	SetPath(ctx context.Context, folderID int64, path string) error
	UpdateFolderName(ctx context.Context, id int64, name string) error
	UpdateFolderParent(ctx context.Context, id int64, parentID *int64) error
	UpdateDocumentName(ctx context.Context, id int64, name string) error
	UpdateDocumentParent(ctx context.Context, id int64, parentID *int64) error
	GetChildFoldersForUpdate(ctx context.Context, parentID int64) ([]domain.Folder, error)
	FolderExists(ctx context.Context, parentID *int64, name string, excludeID int64) (bool, error)
	ListEntries(ctx context.Context, parentID *int64) ([]domain.FolderEntry, error)
	DeleteFolder(ctx context.Context, id int64, cascade bool) error
	DeleteDocument(ctx context.Context, id int64, cascade bool) error
}

// AbilityResolver - срез PermissionService, нужный остальным сервисам
// для проверки доступа.
type AbilityResolver interface {
	EffectiveAbility(ctx context.Context, res domain.Resource, principal domain.Principal) (*domain.Ability, error)
	RequireAbility(ctx context.Context, res domain.Resource, userID int64, min domain.Ability) error
}

// NamespaceService управляет деревом папок и документов и держит кэш
// материализованных путей согласованным при переименованиях и переносах.
type NamespaceService struct {
	store    NamespaceStore
	resolver AbilityResolver
	txm      TxManager
	cascade  bool
}

func NewNamespaceService(store NamespaceStore, resolver AbilityResolver, txm TxManager, cascadeDelete bool) *NamespaceService {
	return &NamespaceService{
		store:    store,
		resolver: resolver,
		txm:      txm,
		cascade:  cascadeDelete,
	}
}

// CreateFolder создаёт папку вместе с записью пути и правом EDIT владельца.
// parentID == domain.RootFolderID означает корень.
func (s *NamespaceService) CreateFolder(ctx context.Context, actorID int64, parentID int64, name string) (*domain.Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name must not be empty: %w", domain.ErrInvalidOperation)
	}

	folder := &domain.Folder{
		OwnerID:   actorID,
		CreatedBy: actorID,
		Name:      name,
	}
	if parentID != domain.RootFolderID {
		if _, err := s.store.GetFolder(ctx, parentID); err != nil {
			return nil, err
		}
		if err := s.resolver.RequireAbility(ctx, domain.FolderResource(parentID), actorID, domain.AbilityEdit); err != nil {
			return nil, err
		}
		folder.ParentID = &parentID
	}

	err := s.txm.ExecTx(ctx, func(ctx context.Context) error {
		parentPath := ""
		if folder.ParentID != nil {
			// Блокируем родителя, чтобы его путь не уехал под нами
			if _, err := s.store.GetFolderForUpdate(ctx, *folder.ParentID); err != nil {
				return err
			}
			var err error
			parentPath, err = s.store.GetPath(ctx, *folder.ParentID)
			if err != nil {
				return err
			}
		}

		exists, err := s.store.FolderExists(ctx, folder.ParentID, name, 0)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("folder %q already exists in parent: %w", name, domain.ErrConflict)
		}

		return s.store.CreateFolder(ctx, folder, domain.JoinPath(parentPath, name))
	})
	if err != nil {
		return nil, err
	}

	logger.Sugar.Infof("Folder %d created by user %d", folder.ID, actorID)
	return folder, nil
}

// CreateDocument создаёт документ вместе с правом владельца и пустой первой
// версией.
func (s *NamespaceService) CreateDocument(ctx context.Context, actorID int64, parentID int64, name, fileType string) (*domain.Document, error) {
	if name == "" {
		return nil, fmt.Errorf("document name must not be empty: %w", domain.ErrInvalidOperation)
	}

	doc := &domain.Document{
		OwnerID:   actorID,
		CreatedBy: actorID,
		Name:      name,
		FileType:  fileType,
	}
	if parentID != domain.RootFolderID {
		if _, err := s.store.GetFolder(ctx, parentID); err != nil {
			return nil, err
		}
		if err := s.resolver.RequireAbility(ctx, domain.FolderResource(parentID), actorID, domain.AbilityEdit); err != nil {
			return nil, err
		}
		doc.ParentID = &parentID
	}

	err := s.txm.ExecTx(ctx, func(ctx context.Context) error {
		if doc.ParentID != nil {
			if _, err := s.store.GetFolder(ctx, *doc.ParentID); err != nil {
				return err
			}
		}
		return s.store.CreateDocument(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Sugar.Infof("Document %d created by user %d", doc.ID, actorID)
	return doc, nil
}

// GetFolder возвращает папку, доступную пользователю хотя бы на чтение.
func (s *NamespaceService) GetFolder(ctx context.Context, actorID int64, folderID int64) (*domain.Folder, error) {
	folder, err := s.store.GetFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.RequireAbility(ctx, domain.FolderResource(folderID), actorID, domain.AbilityView); err != nil {
		return nil, err
	}
	return folder, nil
}

// GetDocument возвращает документ, доступный пользователю хотя бы на чтение.
func (s *NamespaceService) GetDocument(ctx context.Context, actorID int64, documentID int64) (*domain.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.RequireAbility(ctx, domain.FileResource(documentID), actorID, domain.AbilityView); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetPath возвращает материализованный путь папки. Корень отдаёт пустой путь.
func (s *NamespaceService) GetPath(ctx context.Context, folderID int64) (string, error) {
	return s.store.GetPath(ctx, folderID)
}

// RenameFolder меняет имя папки и в той же транзакции переписывает пути
// всего её поддерева.
func (s *NamespaceService) RenameFolder(ctx context.Context, actorID int64, folderID int64, newName string) error {
	if newName == "" {
		return fmt.Errorf("folder name must not be empty: %w", domain.ErrInvalidOperation)
	}
	if _, err := s.store.GetFolder(ctx, folderID); err != nil {
		return err
	}
	if err := s.resolver.RequireAbility(ctx, domain.FolderResource(folderID), actorID, domain.AbilityEdit); err != nil {
		return err
	}

	return s.txm.ExecTx(ctx, func(ctx context.Context) error {
		folder, err := s.store.GetFolderForUpdate(ctx, folderID)
		if err != nil {
			return err
		}

		exists, err := s.store.FolderExists(ctx, folder.ParentID, newName, folderID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("folder %q already exists in parent: %w", newName, domain.ErrConflict)
		}

		parentPath := ""
		if folder.ParentID != nil {
			parentPath, err = s.store.GetPath(ctx, *folder.ParentID)
			if err != nil {
				return err
			}
		}

		if err := s.store.UpdateFolderName(ctx, folderID, newName); err != nil {
			return err
		}
		return s.rewriteSubtreePaths(ctx, folderID, domain.JoinPath(parentPath, newName))
	})
}

// MoveFolder переносит папку под нового родителя. Перенос в себя или в своё
// поддерево отклоняется, проверка цикла идёт в той же транзакции, что и
// перезапись путей.
func (s *NamespaceService) MoveFolder(ctx context.Context, actorID int64, folderID int64, newParentID int64) error {
	if _, err := s.store.GetFolder(ctx, folderID); err != nil {
		return err
	}
	if err := s.resolver.RequireAbility(ctx, domain.FolderResource(folderID), actorID, domain.AbilityEdit); err != nil {
		return err
	}
	if newParentID != domain.RootFolderID {
		if err := s.resolver.RequireAbility(ctx, domain.FolderResource(newParentID), actorID, domain.AbilityEdit); err != nil {
			return err
		}
	}
	if newParentID == folderID {
		return fmt.Errorf("cannot move a folder into itself: %w", domain.ErrInvalidOperation)
	}

	return s.txm.ExecTx(ctx, func(ctx context.Context) error {
		folder, err := s.store.GetFolderForUpdate(ctx, folderID)
		if err != nil {
			return err
		}

		oldPath, err := s.store.GetPath(ctx, folderID)
		if err != nil {
			return err
		}

		var newParent *int64
		parentPath := ""
		if newParentID != domain.RootFolderID {
			if _, err := s.store.GetFolderForUpdate(ctx, newParentID); err != nil {
				return err
			}
			parentPath, err = s.store.GetPath(ctx, newParentID)
			if err != nil {
				return err
			}
			if domain.IsSubPath(oldPath, parentPath) {
				return fmt.Errorf("cannot move a folder into its own subtree: %w", domain.ErrInvalidOperation)
			}
			newParent = &newParentID
		}

		exists, err := s.store.FolderExists(ctx, newParent, folder.Name, folderID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("folder %q already exists in target: %w", folder.Name, domain.ErrConflict)
		}

		if err := s.store.UpdateFolderParent(ctx, folderID, newParent); err != nil {
			return err
		}
		return s.rewriteSubtreePaths(ctx, folderID, domain.JoinPath(parentPath, folder.Name))
	})
}

// RenameDocument меняет имя документа. Путей у документов нет,
// каскад не нужен.
func (s *NamespaceService) RenameDocument(ctx context.Context, actorID int64, documentID int64, newName string) error {
	if newName == "" {
		return fmt.Errorf("document name must not be empty: %w", domain.ErrInvalidOperation)
	}
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.resolver.RequireAbility(ctx, domain.FileResource(documentID), actorID, domain.AbilityEdit); err != nil {
		return err
	}
	return s.store.UpdateDocumentName(ctx, documentID, newName)
}

// MoveDocument переносит документ под нового родителя.
func (s *NamespaceService) MoveDocument(ctx context.Context, actorID int64, documentID int64, newParentID int64) error {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.resolver.RequireAbility(ctx, domain.FileResource(documentID), actorID, domain.AbilityEdit); err != nil {
		return err
	}

	var newParent *int64
	if newParentID != domain.RootFolderID {
		if _, err := s.store.GetFolder(ctx, newParentID); err != nil {
			return err
		}
		if err := s.resolver.RequireAbility(ctx, domain.FolderResource(newParentID), actorID, domain.AbilityEdit); err != nil {
			return err
		}
		newParent = &newParentID
	}

	return s.store.UpdateDocumentParent(ctx, documentID, newParent)
}

// ListChildren возвращает содержимое папки, отфильтрованное по доступу:
// остаются только записи с эффективным уровнем не ниже VIEW.
func (s *NamespaceService) ListChildren(ctx context.Context, actorID int64, parentID int64) ([]domain.FolderEntry, error) {
	var parent *int64
	if parentID != domain.RootFolderID {
		if _, err := s.store.GetFolder(ctx, parentID); err != nil {
			return nil, err
		}
		parent = &parentID
	}

	entries, err := s.store.ListEntries(ctx, parent)
	if err != nil {
		return nil, err
	}

	visible := make([]domain.FolderEntry, 0, len(entries))
	for _, entry := range entries {
		res := domain.FolderResource(entry.ID)
		if entry.Kind == domain.EntryKindFile {
			res = domain.FileResource(entry.ID)
		}
		ability, err := s.resolver.EffectiveAbility(ctx, res, domain.UserPrincipal(actorID))
		if err != nil {
			return nil, err
		}
		if ability != nil && ability.Allows(domain.AbilityView) {
			visible = append(visible, entry)
		}
	}
	return visible, nil
}

// DeleteFolder удаляет папку. При включённом каскаде в одной транзакции
// уходит всё поддерево вместе с версиями, правами и комментариями; иначе
// удаляется только сама папка, содержимое остаётся осиротевшим.
func (s *NamespaceService) DeleteFolder(ctx context.Context, actorID int64, folderID int64) error {
	if _, err := s.store.GetFolder(ctx, folderID); err != nil {
		return err
	}
	if err := s.resolver.RequireAbility(ctx, domain.FolderResource(folderID), actorID, domain.AbilityEdit); err != nil {
		return err
	}

	return s.txm.ExecTx(ctx, func(ctx context.Context) error {
		if s.cascade {
			if _, err := s.store.GetFolderForUpdate(ctx, folderID); err != nil {
				return err
			}
		}
		return s.store.DeleteFolder(ctx, folderID, s.cascade)
	})
}

// DeleteDocument удаляет документ. При включённом каскаде вместе с ним в
// одной транзакции уходят версии, права и комментарии; иначе удаляется
// только строка документа, остальное остаётся осиротевшим.
func (s *NamespaceService) DeleteDocument(ctx context.Context, actorID int64, documentID int64) error {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.resolver.RequireAbility(ctx, domain.FileResource(documentID), actorID, domain.AbilityEdit); err != nil {
		return err
	}

	return s.txm.ExecTx(ctx, func(ctx context.Context) error {
		return s.store.DeleteDocument(ctx, documentID, s.cascade)
	})
}

// rewriteSubtreePaths переписывает путь папки и обходом в глубину пути всех
// её потомков. Дочерние папки блокируются FOR UPDATE в стабильном порядке,
// чтобы параллельные переносы не взаимоблокировались.
func (s *NamespaceService) rewriteSubtreePaths(ctx context.Context, folderID int64, newPath string) error {
	if err := s.store.SetPath(ctx, folderID, newPath); err != nil {
		return err
	}

	children, err := s.store.GetChildFoldersForUpdate(ctx, folderID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := s.rewriteSubtreePaths(ctx, child.ID, domain.JoinPath(newPath, child.Name)); err != nil {
			return err
		}
	}
	return nil
}
