package domain

import "time"

type Comment struct {
	ID         int64     `json:"id" db:"id"`
	FileID     int64     `json:"file_id" db:"file_id"`
	CreatedBy  int64     `json:"created_by" db:"created_by"`
	Content    string    `json:"content" db:"content"`
	TimePosted time.Time `json:"time_posted" db:"time_posted"`
}
