package service

import (
	"context"
	"fmt"

	"docspace/internal/domain"
	"docspace/pkg/logger"
)

// PermissionStore - примитивы хранения прав, см. repository.PermissionRepository.
type PermissionStore interface {
	Get(ctx context.Context, res domain.Resource, principal domain.Principal) (*domain.Permission, error)
	GetByID(ctx context.Context, id int64) (*domain.Permission, error)
	Upsert(ctx context.Context, perm *domain.Permission) error
	SetAbility(ctx context.Context, id int64, ability domain.Ability) error
	Delete(ctx context.Context, id int64) error
	ListByResource(ctx context.Context, res domain.Resource) ([]domain.Permission, error)
}

// TeamDirectory поставляет членство в командах для разрешения прав.
type TeamDirectory interface {
	TeamIDsOf(ctx context.Context, userID int64) ([]int64, error)
}

// ResourceDirectory нужен резолверу только чтобы узнать владельца ресурса.
type ResourceDirectory interface {
	GetFolder(ctx context.Context, id int64) (*domain.Folder, error)
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)
}

// PermissionService - резолвер прав: выдача, отзыв и вычисление эффективного
// уровня доступа субъекта к ресурсу.
type PermissionService struct {
	perms     PermissionStore
	teams     TeamDirectory
	resources ResourceDirectory
	txm       TxManager
}

func NewPermissionService(
	perms PermissionStore,
	teams TeamDirectory,
	resources ResourceDirectory,
	txm TxManager,
) *PermissionService {
	return &PermissionService{
		perms:     perms,
		teams:     teams,
		resources: resources,
		txm:       txm,
	}
}

// EffectiveAbility собирает прямое право субъекта и права всех его команд
// и возвращает максимальный уровень, nil если прав нет вовсе.
// Командное право с более высоким уровнем перекрывает прямое: побеждает
// порядок уровней, а не давность выдачи.
func (s *PermissionService) EffectiveAbility(ctx context.Context, res domain.Resource, principal domain.Principal) (*domain.Ability, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	if err := principal.Validate(); err != nil {
		return nil, err
	}

	var abilities []domain.Ability

	direct, err := s.perms.Get(ctx, res, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to get direct permission: %w", err)
	}
	if direct != nil {
		abilities = append(abilities, direct.Ability)
	}

	// У командного субъекта только прямые права; у пользователя - ещё и
	// права каждой его команды
	if principal.UserID != nil {
		teamIDs, err := s.teams.TeamIDsOf(ctx, *principal.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user teams: %w", err)
		}
		for _, teamID := range teamIDs {
			perm, err := s.perms.Get(ctx, res, domain.TeamPrincipal(teamID))
			if err != nil {
				return nil, fmt.Errorf("failed to get team permission: %w", err)
			}
			if perm != nil {
				abilities = append(abilities, perm.Ability)
			}
		}
	}

	return domain.MaxAbility(abilities), nil
}

// RequireAbility - проверка на стороне вызывающего: у действующего
// пользователя должен быть уровень не ниже min.
func (s *PermissionService) RequireAbility(ctx context.Context, res domain.Resource, userID int64, min domain.Ability) error {
	ability, err := s.EffectiveAbility(ctx, res, domain.UserPrincipal(userID))
	if err != nil {
		return err
	}
	if ability == nil || !ability.Allows(min) {
		return fmt.Errorf("user %d needs %s on %s: %w", userID, min, res, domain.ErrPermissionDenied)
	}
	return nil
}

// Grant выдаёт право субъекту на ресурс. Повторная выдача той же паре
// перезаписывает уровень, а не создаёт дубликат. Выдавать может только
// владелец ресурса; строку самого владельца Grant не трогает.
func (s *PermissionService) Grant(ctx context.Context, actorID int64, res domain.Resource, principal domain.Principal, ability domain.Ability) (*domain.Permission, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	if err := principal.Validate(); err != nil {
		return nil, err
	}
	if !ability.Valid() {
		return nil, fmt.Errorf("ability %d out of range: %w", ability, domain.ErrInvalidOperation)
	}

	ownerID, err := s.resourceOwner(ctx, res)
	if err != nil {
		return nil, err
	}
	if ownerID != actorID {
		return nil, fmt.Errorf("only the resource owner may grant permissions: %w", domain.ErrPermissionDenied)
	}
	if principal.UserID != nil && *principal.UserID == ownerID {
		return nil, fmt.Errorf("cannot change the owner's permission: %w", domain.ErrInvalidOperation)
	}

	perm := &domain.Permission{
		FileID:   res.FileID,
		FolderID: res.FolderID,
		UserID:   principal.UserID,
		TeamID:   principal.TeamID,
		Ability:  ability,
	}

	err = s.txm.ExecTx(ctx, func(ctx context.Context) error {
		return s.perms.Upsert(ctx, perm)
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to grant %s on %s to %s: %v", ability, res, principal, err)
		return nil, err
	}

	return perm, nil
}

// SetAbility меняет уровень существующего права. Строка владельца не трогается:
// владелец всегда держит EDIT.
func (s *PermissionService) SetAbility(ctx context.Context, actorID int64, permissionID int64, ability domain.Ability) error {
	if !ability.Valid() {
		return fmt.Errorf("ability %d out of range: %w", ability, domain.ErrInvalidOperation)
	}

	perm, err := s.perms.GetByID(ctx, permissionID)
	if err != nil {
		return err
	}

	ownerID, err := s.resourceOwner(ctx, perm.Resource())
	if err != nil {
		return err
	}
	if ownerID != actorID {
		return fmt.Errorf("only the resource owner may change permissions: %w", domain.ErrPermissionDenied)
	}
	if perm.UserID != nil && *perm.UserID == ownerID {
		return fmt.Errorf("cannot change the owner's permission: %w", domain.ErrInvalidOperation)
	}

	return s.perms.SetAbility(ctx, permissionID, ability)
}

// Revoke отзывает право. Право владельца отозвать нельзя, пока ресурс жив.
func (s *PermissionService) Revoke(ctx context.Context, actorID int64, permissionID int64) error {
	perm, err := s.perms.GetByID(ctx, permissionID)
	if err != nil {
		return err
	}

	ownerID, err := s.resourceOwner(ctx, perm.Resource())
	if err != nil {
		return err
	}
	if ownerID != actorID {
		return fmt.Errorf("only the resource owner may revoke permissions: %w", domain.ErrPermissionDenied)
	}
	if perm.UserID != nil && *perm.UserID == ownerID {
		return fmt.Errorf("cannot revoke the owner's permission: %w", domain.ErrInvalidOperation)
	}

	return s.perms.Delete(ctx, permissionID)
}

// GetResourcePermissions возвращает все права на ресурс для окна управления.
func (s *PermissionService) GetResourcePermissions(ctx context.Context, actorID int64, res domain.Resource) ([]domain.Permission, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}

	ownerID, err := s.resourceOwner(ctx, res)
	if err != nil {
		return nil, err
	}
	if ownerID != actorID {
		return nil, fmt.Errorf("only the resource owner may list permissions: %w", domain.ErrPermissionDenied)
	}

	return s.perms.ListByResource(ctx, res)
}

func (s *PermissionService) resourceOwner(ctx context.Context, res domain.Resource) (int64, error) {
	if res.IsFile() {
		doc, err := s.resources.GetDocument(ctx, *res.FileID)
		if err != nil {
			return 0, err
		}
		return doc.OwnerID, nil
	}
	folder, err := s.resources.GetFolder(ctx, *res.FolderID)
	if err != nil {
		return 0, err
	}
	return folder.OwnerID, nil
}
