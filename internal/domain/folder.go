package domain

import "time"

// RootFolderID - корневой элемент дерева. Строки в базе для него нет,
// parent_folder_id IS NULL означает "лежит в корне", путь корня - пустая строка.
const RootFolderID int64 = 0

type Folder struct {
	ID         int64     `json:"id" db:"id"`
	OwnerID    int64     `json:"owner_id" db:"owner_id"`
	ParentID   *int64    `json:"parent_folder_id,omitempty" db:"parent_folder_id"`
	CreatedBy  int64     `json:"created_by" db:"created_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ModifiedAt time.Time `json:"modified_at" db:"modified_at"`
	Name       string    `json:"name" db:"name"`
}

// EntryKind различает файлы и папки в смешанном списке содержимого.
type EntryKind string

const (
	EntryKindFile   EntryKind = "file"
	EntryKindFolder EntryKind = "folder"
)

// FolderEntry - одна строка смешанного списка содержимого папки.
// У папок размер отсутствует (nil), а не нулевой.
type FolderEntry struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Kind       EntryKind `json:"kind" db:"kind"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ModifiedAt time.Time `json:"modified_at" db:"modified_at"`
	Size       *int64    `json:"size,omitempty" db:"size"`
}
