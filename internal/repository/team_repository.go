package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"docspace/internal/domain"
)

// TeamRepository - команды и членство. Разрешение прав потребляет только
// TeamIDsOf; остальное обслуживает управление командами.
type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// Create создаёт команду и членство создателя одной транзакцией.
func (r *TeamRepository) Create(ctx context.Context, team *domain.Team) error {
	if err := requireTx(ctx, "create team"); err != nil {
		return err
	}
	e := ext(ctx, r.db)

	err := e.QueryRowxContext(ctx,
		`INSERT INTO team (owner_id, name, description) VALUES ($1, $2, $3) RETURNING id`,
		team.OwnerID, team.Name, team.Description,
	).Scan(&team.ID)
	if err != nil {
		return wrapErr("create team", err)
	}

	_, err = e.ExecContext(ctx,
		`INSERT INTO team_membership (team_id, user_id) VALUES ($1, $2)`,
		team.ID, team.OwnerID)
	return wrapErr("add team owner membership", err)
}

func (r *TeamRepository) GetByID(ctx context.Context, id int64) (*domain.Team, error) {
	var team domain.Team
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &team,
		`SELECT id, owner_id, name, description FROM team WHERE id = $1`, id)
	if err != nil {
		return nil, wrapErr("get team", err)
	}
	return &team, nil
}

func (r *TeamRepository) Delete(ctx context.Context, id int64) error {
	res, err := ext(ctx, r.db).ExecContext(ctx, `DELETE FROM team WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete team", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("delete team", err)
	}
	if affected == 0 {
		return wrapErr("delete team", errNoRowsAffected)
	}
	return nil
}

// TeamIDsOf возвращает идентификаторы команд, в которых состоит пользователь.
func (r *TeamRepository) TeamIDsOf(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &ids,
		`SELECT team_id FROM team_membership WHERE user_id = $1 ORDER BY team_id`, userID)
	if err != nil {
		return nil, wrapErr("get user teams", err)
	}
	return ids, nil
}

// TeamsOf возвращает команды пользователя полными строками.
func (r *TeamRepository) TeamsOf(ctx context.Context, userID int64) ([]domain.Team, error) {
	var teams []domain.Team
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &teams,
		`SELECT t.id, t.owner_id, t.name, t.description
         FROM team t
         JOIN team_membership tm ON tm.team_id = t.id AND tm.user_id = $1
         ORDER BY t.id`, userID)
	if err != nil {
		return nil, wrapErr("get user teams", err)
	}
	return teams, nil
}

func (r *TeamRepository) AddMember(ctx context.Context, teamID, userID int64) error {
	_, err := ext(ctx, r.db).ExecContext(ctx,
		`INSERT INTO team_membership (team_id, user_id) VALUES ($1, $2)`, teamID, userID)
	return wrapErr("add team member", err)
}

func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID int64) error {
	res, err := ext(ctx, r.db).ExecContext(ctx,
		`DELETE FROM team_membership WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return wrapErr("remove team member", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("remove team member", err)
	}
	if affected == 0 {
		return wrapErr("remove team member", errNoRowsAffected)
	}
	return nil
}

func (r *TeamRepository) Members(ctx context.Context, teamID int64) ([]domain.User, error) {
	var members []domain.User
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &members,
		`SELECT u.id, u.username, u.email
         FROM doc_user u
         JOIN team_membership tm ON tm.team_id = $1 AND tm.user_id = u.id
         ORDER BY u.id`, teamID)
	if err != nil {
		return nil, wrapErr("get team members", err)
	}
	return members, nil
}

func (r *TeamRepository) MemberCount(ctx context.Context, teamID int64) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &count,
		`SELECT count(user_id) FROM team_membership WHERE team_id = $1`, teamID)
	if err != nil {
		return 0, wrapErr("count team members", err)
	}
	return count, nil
}
