package domain

import "time"

type Document struct {
	ID         int64     `json:"id" db:"id"`
	OwnerID    int64     `json:"owner_id" db:"owner_id"`
	ParentID   *int64    `json:"parent_folder_id,omitempty" db:"parent_folder_id"`
	CreatedBy  int64     `json:"created_by" db:"created_by"`
	Size       int64     `json:"size" db:"size"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ModifiedAt time.Time `json:"modified_at" db:"modified_at"`
	FileType   string    `json:"file_type" db:"file_type"`
	Name       string    `json:"name" db:"name"`
}
