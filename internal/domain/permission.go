package domain

import "fmt"

// Resource - объект выдачи прав: ровно одно из полей FileID/FolderID заполнено.
type Resource struct {
	FileID   *int64 `json:"file_id,omitempty" db:"file_id"`
	FolderID *int64 `json:"folder_id,omitempty" db:"folder_id"`
}

func FileResource(id int64) Resource {
	return Resource{FileID: &id}
}

func FolderResource(id int64) Resource {
	return Resource{FolderID: &id}
}

func (r Resource) Validate() error {
	if (r.FileID == nil) == (r.FolderID == nil) {
		return fmt.Errorf("resource must reference exactly one of file or folder: %w", ErrInvalidOperation)
	}
	return nil
}

func (r Resource) IsFile() bool {
	return r.FileID != nil
}

func (r Resource) String() string {
	if r.FileID != nil {
		return fmt.Sprintf("file:%d", *r.FileID)
	}
	if r.FolderID != nil {
		return fmt.Sprintf("folder:%d", *r.FolderID)
	}
	return "resource:<empty>"
}

// Principal - субъект выдачи прав: пользователь или команда, ровно одно из двух.
type Principal struct {
	UserID *int64 `json:"user_id,omitempty" db:"user_id"`
	TeamID *int64 `json:"team_id,omitempty" db:"team_id"`
}

func UserPrincipal(id int64) Principal {
	return Principal{UserID: &id}
}

func TeamPrincipal(id int64) Principal {
	return Principal{TeamID: &id}
}

func (p Principal) Validate() error {
	if (p.UserID == nil) == (p.TeamID == nil) {
		return fmt.Errorf("principal must reference exactly one of user or team: %w", ErrInvalidOperation)
	}
	return nil
}

func (p Principal) String() string {
	if p.UserID != nil {
		return fmt.Sprintf("user:%d", *p.UserID)
	}
	if p.TeamID != nil {
		return fmt.Sprintf("team:%d", *p.TeamID)
	}
	return "principal:<empty>"
}

// Permission - выданное право: не более одной строки на пару (ресурс, субъект).
// Право владельца создаётся вместе с ресурсом и не отзывается, пока ресурс жив.
type Permission struct {
	ID       int64   `json:"id" db:"id"`
	FileID   *int64  `json:"file_id,omitempty" db:"file_id"`
	FolderID *int64  `json:"folder_id,omitempty" db:"folder_id"`
	UserID   *int64  `json:"user_id,omitempty" db:"user_id"`
	TeamID   *int64  `json:"team_id,omitempty" db:"team_id"`
	Ability  Ability `json:"ability" db:"ability"`
}

func (p *Permission) Resource() Resource {
	return Resource{FileID: p.FileID, FolderID: p.FolderID}
}

func (p *Permission) Principal() Principal {
	return Principal{UserID: p.UserID, TeamID: p.TeamID}
}
