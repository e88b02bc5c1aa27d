package service

import (
	"context"
	"fmt"

	"docspace/internal/domain"
	"docspace/pkg/logger"
)

// TeamStore - примитивы хранения команд, см. repository.TeamRepository.
type TeamStore interface {
	Create(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id int64) (*domain.Team, error)
	Delete(ctx context.Context, id int64) error
	TeamIDsOf(ctx context.Context, userID int64) ([]int64, error)
	TeamsOf(ctx context.Context, userID int64) ([]domain.Team, error)
	AddMember(ctx context.Context, teamID, userID int64) error
	RemoveMember(ctx context.Context, teamID, userID int64) error
	Members(ctx context.Context, teamID int64) ([]domain.User, error)
	MemberCount(ctx context.Context, teamID int64) (int, error)
}

// TeamService управляет командами и их составом. Команды выступают
// субъектами прав: право, выданное команде, получает каждый её участник.
type TeamService struct {
	teams TeamStore
	txm   TxManager
}

func NewTeamService(teams TeamStore, txm TxManager) *TeamService {
	return &TeamService{teams: teams, txm: txm}
}

// Create создаёт команду; создатель становится владельцем и первым
// участником в одной транзакции.
func (s *TeamService) Create(ctx context.Context, actorID int64, name, description string) (*domain.Team, error) {
	if name == "" {
		return nil, fmt.Errorf("team name must not be empty: %w", domain.ErrInvalidOperation)
	}

	team := &domain.Team{
		OwnerID:     actorID,
		Name:        name,
		Description: description,
	}
	err := s.txm.ExecTx(ctx, func(ctx context.Context) error {
		return s.teams.Create(ctx, team)
	})
	if err != nil {
		return nil, err
	}

	logger.Sugar.Infof("Team %d created by user %d", team.ID, actorID)
	return team, nil
}

// Get возвращает команду по идентификатору.
func (s *TeamService) Get(ctx context.Context, teamID int64) (*domain.Team, error) {
	return s.teams.GetByID(ctx, teamID)
}

// Delete удаляет команду. Доступно только владельцу.
func (s *TeamService) Delete(ctx context.Context, actorID int64, teamID int64) error {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return err
	}
	if team.OwnerID != actorID {
		return fmt.Errorf("only the team owner may delete the team: %w", domain.ErrPermissionDenied)
	}
	return s.teams.Delete(ctx, teamID)
}

// AddMember добавляет пользователя в команду. Доступно только владельцу.
func (s *TeamService) AddMember(ctx context.Context, actorID int64, teamID, userID int64) error {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return err
	}
	if team.OwnerID != actorID {
		return fmt.Errorf("only the team owner may add members: %w", domain.ErrPermissionDenied)
	}
	return s.teams.AddMember(ctx, teamID, userID)
}

// RemoveMember убирает пользователя из команды. Владелец убирает любого,
// участник может выйти сам.
func (s *TeamService) RemoveMember(ctx context.Context, actorID int64, teamID, userID int64) error {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return err
	}
	if team.OwnerID != actorID && actorID != userID {
		return fmt.Errorf("only the team owner may remove members: %w", domain.ErrPermissionDenied)
	}
	if team.OwnerID == userID {
		return fmt.Errorf("the team owner cannot leave the team: %w", domain.ErrInvalidOperation)
	}
	return s.teams.RemoveMember(ctx, teamID, userID)
}

// TeamsOf возвращает команды пользователя.
func (s *TeamService) TeamsOf(ctx context.Context, userID int64) ([]domain.Team, error) {
	return s.teams.TeamsOf(ctx, userID)
}

// Members возвращает состав команды.
func (s *TeamService) Members(ctx context.Context, teamID int64) ([]domain.User, error) {
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, err
	}
	return s.teams.Members(ctx, teamID)
}

// MemberCount возвращает численность команды.
func (s *TeamService) MemberCount(ctx context.Context, teamID int64) (int, error) {
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return 0, err
	}
	return s.teams.MemberCount(ctx, teamID)
}
