package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"docspace/internal/domain"
)

// NamespaceRepository - примитивы хранения дерева папок и документов вместе
// с кешем материализованных путей. Прав доступа здесь нет: авторизация -
// забота вызывающего слоя.
type NamespaceRepository struct {
	db *sqlx.DB
}

func NewNamespaceRepository(db *sqlx.DB) *NamespaceRepository {
	return &NamespaceRepository{db: db}
}

// CreateFolder вставляет папку, её запись в кеше путей и право EDIT владельца
// одной логической единицей. Должен вызываться внутри транзакции.
func (r *NamespaceRepository) CreateFolder(ctx context.Context, folder *domain.Folder, path string) error {
	if err := requireTx(ctx, "create folder"); err != nil {
		return err
	}
	e := ext(ctx, r.db)

	query := `
        INSERT INTO folder (owner_id, parent_folder_id, created_by, name)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, modified_at`

	err := e.QueryRowxContext(
		ctx,
		query,
		folder.OwnerID,
		folder.ParentID,
		folder.CreatedBy,
		folder.Name,
	).Scan(&folder.ID, &folder.CreatedAt, &folder.ModifiedAt)
	if err != nil {
		return wrapErr("create folder", err)
	}

	_, err = e.ExecContext(ctx,
		`INSERT INTO path_cache (folder_id, path) VALUES ($1, $2)`,
		folder.ID, path,
	)
	if err != nil {
		return wrapErr("create path entry", err)
	}

	_, err = e.ExecContext(ctx,
		`INSERT INTO permission (folder_id, user_id, ability) VALUES ($1, $2, $3)`,
		folder.ID, folder.OwnerID, domain.AbilityEdit,
	)
	if err != nil {
		return wrapErr("create owner permission", err)
	}

	return nil
}

// CreateDocument вставляет документ, право EDIT владельца и начальную версию
// номер 1 с пустым содержимым. Должен вызываться внутри транзакции.
func (r *NamespaceRepository) CreateDocument(ctx context.Context, doc *domain.Document) error {
	if err := requireTx(ctx, "create document"); err != nil {
		return err
	}
	e := ext(ctx, r.db)

	query := `
        INSERT INTO document (owner_id, parent_folder_id, created_by, size, file_type, name)
        VALUES ($1, $2, $3, 0, $4, $5)
        RETURNING id, created_at, modified_at`

	err := e.QueryRowxContext(
		ctx,
		query,
		doc.OwnerID,
		doc.ParentID,
		doc.CreatedBy,
		doc.FileType,
		doc.Name,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.ModifiedAt)
	if err != nil {
		return wrapErr("create document", err)
	}

	_, err = e.ExecContext(ctx,
		`INSERT INTO permission (file_id, user_id, ability) VALUES ($1, $2, $3)`,
		doc.ID, doc.OwnerID, domain.AbilityEdit,
	)
	if err != nil {
		return wrapErr("create owner permission", err)
	}

	_, err = e.ExecContext(ctx,
		`INSERT INTO version (document_id, author_id, version_number, content) VALUES ($1, $2, 1, NULL)`,
		doc.ID, doc.OwnerID,
	)
	if err != nil {
		return wrapErr("create initial version", err)
	}

	return nil
}

func (r *NamespaceRepository) GetFolder(ctx context.Context, id int64) (*domain.Folder, error) {
	var folder domain.Folder
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &folder,
		`SELECT id, owner_id, parent_folder_id, created_by, created_at, modified_at, name
         FROM folder WHERE id = $1`, id)
	if err != nil {
		return nil, wrapErr("get folder", err)
	}
	return &folder, nil
}

// GetFolderForUpdate читает папку с блокировкой строки до конца транзакции.
func (r *NamespaceRepository) GetFolderForUpdate(ctx context.Context, id int64) (*domain.Folder, error) {
	if err := requireTx(ctx, "lock folder"); err != nil {
		return nil, err
	}
	var folder domain.Folder
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &folder,
		`SELECT id, owner_id, parent_folder_id, created_by, created_at, modified_at, name
         FROM folder WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, wrapErr("lock folder", err)
	}
	return &folder, nil
}

func (r *NamespaceRepository) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	var doc domain.Document
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &doc,
		`SELECT id, owner_id, parent_folder_id, created_by, size, created_at, modified_at, file_type, name
         FROM document WHERE id = $1`, id)
	if err != nil {
		return nil, wrapErr("get document", err)
	}
	return &doc, nil
}

// GetPath возвращает кешированный путь папки, пустую строку для корня.
func (r *NamespaceRepository) GetPath(ctx context.Context, folderID int64) (string, error) {
	if folderID == domain.RootFolderID {
		return "", nil
	}
	var path string
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &path,
		`SELECT path FROM path_cache WHERE folder_id = $1`, folderID)
	if err != nil {
		return "", wrapErr("get path", err)
	}
	return path, nil
}

func (r *NamespaceRepository) SetPath(ctx context.Context, folderID int64, path string) error {
	res, err := ext(ctx, r.db).ExecContext(ctx,
		`UPDATE path_cache SET path = $1 WHERE folder_id = $2`, path, folderID)
	if err != nil {
		return wrapErr("set path", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("set path", err)
	}
	if affected == 0 {
		return wrapErr("set path", errNoRowsAffected)
	}
	return nil
}

func (r *NamespaceRepository) UpdateFolderName(ctx context.Context, id int64, name string) error {
	_, err := ext(ctx, r.db).ExecContext(ctx,
		`UPDATE folder SET name = $1, modified_at = CURRENT_TIMESTAMP WHERE id = $2`, name, id)
	return wrapErr("update folder name", err)
}

func (r *NamespaceRepository) UpdateFolderParent(ctx context.Context, id int64, parentID *int64) error {
	_, err := ext(ctx, r.db).ExecContext(ctx,
		`UPDATE folder SET parent_folder_id = $1, modified_at = CURRENT_TIMESTAMP WHERE id = $2`, parentID, id)
	return wrapErr("update folder parent", err)
}

func (r *NamespaceRepository) UpdateDocumentName(ctx context.Context, id int64, name string) error {
	res, err := ext(ctx, r.db).ExecContext(ctx,
		`UPDATE document SET name = $1, modified_at = CURRENT_TIMESTAMP WHERE id = $2`, name, id)
	if err != nil {
		return wrapErr("update document name", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("update document name", err)
	}
	if affected == 0 {
		return wrapErr("update document name", errNoRowsAffected)
	}
	return nil
}

func (r *NamespaceRepository) UpdateDocumentParent(ctx context.Context, id int64, parentID *int64) error {
	res, err := ext(ctx, r.db).ExecContext(ctx,
		`UPDATE document SET parent_folder_id = $1, modified_at = CURRENT_TIMESTAMP WHERE id = $2`, parentID, id)
	if err != nil {
		return wrapErr("update document parent", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("update document parent", err)
	}
	if affected == 0 {
		return wrapErr("update document parent", errNoRowsAffected)
	}
	return nil
}

// GetChildFoldersForUpdate возвращает прямые подпапки, блокируя их строки.
// Рекурсивный обход поддерева при переименовании блокирует строки по мере
// спуска, поэтому конкурирующее переименование предка и потомка не может
// перемешаться и оставить кеш несогласованным.
func (r *NamespaceRepository) GetChildFoldersForUpdate(ctx context.Context, parentID int64) ([]domain.Folder, error) {
	if err := requireTx(ctx, "lock child folders"); err != nil {
		return nil, err
	}
	var folders []domain.Folder
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &folders,
		`SELECT id, owner_id, parent_folder_id, created_by, created_at, modified_at, name
         FROM folder WHERE parent_folder_id = $1 ORDER BY id FOR UPDATE`, parentID)
	if err != nil {
		return nil, wrapErr("lock child folders", err)
	}
	return folders, nil
}

// FolderExists проверяет, есть ли папка с таким именем на том же уровне.
func (r *NamespaceRepository) FolderExists(ctx context.Context, parentID *int64, name string, excludeID int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &exists,
		`SELECT EXISTS(
            SELECT 1 FROM folder
            WHERE parent_folder_id IS NOT DISTINCT FROM $1 AND name = $2 AND id != $3
        )`, parentID, name, excludeID)
	if err != nil {
		return false, wrapErr("check folder existence", err)
	}
	return exists, nil
}

// ListEntries возвращает документы и папки под parentID одним списком,
// отсортированным по имени. У папок размер отсутствует.
func (r *NamespaceRepository) ListEntries(ctx context.Context, parentID *int64) ([]domain.FolderEntry, error) {
	var entries []domain.FolderEntry
	query := `
        SELECT d.id, d.name, 'file' AS kind, d.created_at, d.modified_at, d.size AS size
        FROM document d
        WHERE d.parent_folder_id IS NOT DISTINCT FROM $1
        UNION ALL
        SELECT f.id, f.name, 'folder' AS kind, f.created_at, f.modified_at, NULL AS size
        FROM folder f
        WHERE f.parent_folder_id IS NOT DISTINCT FROM $1
        ORDER BY name ASC`

	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &entries, query, parentID)
	if err != nil {
		return nil, wrapErr("list folder entries", err)
	}
	return entries, nil
}

// DeleteFolder удаляет папку. Без каскада дети, версии и права остаются
// осиротевшими (историческое поведение); с каскадом всё поддерево вместе
// с документами, версиями, комментариями и правами удаляется в одной
// транзакции.
func (r *NamespaceRepository) DeleteFolder(ctx context.Context, id int64, cascade bool) error {
	if !cascade {
		res, err := ext(ctx, r.db).ExecContext(ctx, `DELETE FROM folder WHERE id = $1`, id)
		if err != nil {
			return wrapErr("delete folder", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return wrapErr("delete folder", err)
		}
		if affected == 0 {
			return wrapErr("delete folder", errNoRowsAffected)
		}
		return nil
	}

	if err := requireTx(ctx, "delete folder cascade"); err != nil {
		return err
	}
	e := ext(ctx, r.db)

	// Собираем всё поддерево и чистим зависимые таблицы от листьев к корню
	const subtree = `
        WITH RECURSIVE subtree AS (
            SELECT id FROM folder WHERE id = $1
            UNION ALL
            SELECT f.id FROM folder f INNER JOIN subtree s ON f.parent_folder_id = s.id
        )`

	steps := []string{
		subtree + `
        DELETE FROM doc_comment WHERE file_id IN (
            SELECT id FROM document WHERE parent_folder_id IN (SELECT id FROM subtree))`,
		subtree + `
        DELETE FROM version WHERE document_id IN (
            SELECT id FROM document WHERE parent_folder_id IN (SELECT id FROM subtree))`,
		subtree + `
        DELETE FROM permission WHERE file_id IN (
            SELECT id FROM document WHERE parent_folder_id IN (SELECT id FROM subtree))`,
		subtree + `
        DELETE FROM document WHERE parent_folder_id IN (SELECT id FROM subtree)`,
		subtree + `
        DELETE FROM permission WHERE folder_id IN (SELECT id FROM subtree)`,
		subtree + `
        DELETE FROM path_cache WHERE folder_id IN (SELECT id FROM subtree)`,
		subtree + `
        DELETE FROM folder WHERE id IN (SELECT id FROM subtree)`,
	}

	for _, q := range steps {
		if _, err := e.ExecContext(ctx, q, id); err != nil {
			return wrapErr("delete folder cascade", err)
		}
	}
	return nil
}

// DeleteDocument удаляет документ. Без каскада версии, комментарии и права
// остаются; с каскадом удаляются в той же транзакции.
func (r *NamespaceRepository) DeleteDocument(ctx context.Context, id int64, cascade bool) error {
	if !cascade {
		res, err := ext(ctx, r.db).ExecContext(ctx, `DELETE FROM document WHERE id = $1`, id)
		if err != nil {
			return wrapErr("delete document", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return wrapErr("delete document", err)
		}
		if affected == 0 {
			return wrapErr("delete document", errNoRowsAffected)
		}
		return nil
	}

	if err := requireTx(ctx, "delete document cascade"); err != nil {
		return err
	}
	e := ext(ctx, r.db)

	steps := []string{
		`DELETE FROM doc_comment WHERE file_id = $1`,
		`DELETE FROM version WHERE document_id = $1`,
		`DELETE FROM permission WHERE file_id = $1`,
		`DELETE FROM document WHERE id = $1`,
	}
	for _, q := range steps {
		if _, err := e.ExecContext(ctx, q, id); err != nil {
			return wrapErr("delete document cascade", err)
		}
	}
	return nil
}
