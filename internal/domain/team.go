package domain

type Team struct {
	ID          int64  `json:"id" db:"id"`
	OwnerID     int64  `json:"owner_id" db:"owner_id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// TeamMembership - связь многие-ко-многим пользователь-команда.
// Разрешение прав использует её только через список команд пользователя.
type TeamMembership struct {
	ID     int64 `json:"id" db:"id"`
	TeamID int64 `json:"team_id" db:"team_id"`
	UserID int64 `json:"user_id" db:"user_id"`
}
