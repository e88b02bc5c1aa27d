package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"docspace/internal/domain"
)

// fakeTxManager сериализует транзакции мьютексом, как это делают блокировки
// строк в настоящей базе.
type fakeTxManager struct {
	mu sync.Mutex
}

func (m *fakeTxManager) ExecTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}

// memStore - хранилище в памяти, реализующее все интерфейсы хранения
// сервисного слоя.
type memStore struct {
	mu sync.Mutex

	folders  map[int64]*domain.Folder
	docs     map[int64]*domain.Document
	paths    map[int64]string
	versions map[int64]*domain.Version
	perms    map[int64]*domain.Permission
	comments map[int64]*domain.Comment
	teams    map[int64]*domain.Team
	members  map[int64][]int64 // teamID -> userIDs

	nextID int64
}

func newMemStore() *memStore {
	return &memStore{
		folders:  make(map[int64]*domain.Folder),
		docs:     make(map[int64]*domain.Document),
		paths:    make(map[int64]string),
		versions: make(map[int64]*domain.Version),
		perms:    make(map[int64]*domain.Permission),
		comments: make(map[int64]*domain.Comment),
		teams:    make(map[int64]*domain.Team),
		members:  make(map[int64][]int64),
	}
}

func (s *memStore) allocID() int64 {
	s.nextID++
	return s.nextID
}

// --- NamespaceStore ---

func (s *memStore) CreateFolder(ctx context.Context, folder *domain.Folder, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder.ID = s.allocID()
	folder.CreatedAt = time.Now()
	folder.ModifiedAt = folder.CreatedAt
	cp := *folder
	s.folders[folder.ID] = &cp
	s.paths[folder.ID] = path

	folderID := folder.ID
	ownerID := folder.OwnerID
	perm := &domain.Permission{
		ID:       s.allocID(),
		FolderID: &folderID,
		UserID:   &ownerID,
		Ability:  domain.AbilityEdit,
	}
	s.perms[perm.ID] = perm
	return nil
}

func (s *memStore) CreateDocument(ctx context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.ID = s.allocID()
	doc.CreatedAt = time.Now()
	doc.ModifiedAt = doc.CreatedAt
	cp := *doc
	s.docs[doc.ID] = &cp

	docID := doc.ID
	ownerID := doc.OwnerID
	perm := &domain.Permission{
		ID:      s.allocID(),
		FileID:  &docID,
		UserID:  &ownerID,
		Ability: domain.AbilityEdit,
	}
	s.perms[perm.ID] = perm

	v := &domain.Version{
		ID:            s.allocID(),
		DocumentID:    doc.ID,
		AuthorID:      doc.CreatedBy,
		VersionNumber: 1,
		CreatedAt:     time.Now(),
	}
	s.versions[v.ID] = v
	return nil
}

func (s *memStore) GetFolder(ctx context.Context, id int64) (*domain.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	cp := *folder
	return &cp, nil
}

func (s *memStore) GetFolderForUpdate(ctx context.Context, id int64) (*domain.Folder, error) {
	return s.GetFolder(ctx, id)
}

func (s *memStore) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	cp := *doc
	return &cp, nil
}

func (s *memStore) GetPath(ctx context.Context, folderID int64) (string, error) {
	if folderID == domain.RootFolderID {
		return "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, ok := s.paths[folderID]
	if !ok {
		return "", fmt.Errorf("path for folder %d: %w", folderID, domain.ErrNotFound)
	}
	return path, nil
}

func (s *memStore) SetPath(ctx context.Context, folderID int64, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.paths[folderID]; !ok {
		return fmt.Errorf("path for folder %d: %w", folderID, domain.ErrNotFound)
	}
	s.paths[folderID] = path
	return nil
}

func (s *memStore) UpdateFolderName(ctx context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folders[id]
	if !ok {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	folder.Name = name
	folder.ModifiedAt = time.Now()
	return nil
}

func (s *memStore) UpdateFolderParent(ctx context.Context, id int64, parentID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folders[id]
	if !ok {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}
	folder.ParentID = parentID
	folder.ModifiedAt = time.Now()
	return nil
}

func (s *memStore) UpdateDocumentName(ctx context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	doc.Name = name
	doc.ModifiedAt = time.Now()
	return nil
}

func (s *memStore) UpdateDocumentParent(ctx context.Context, id int64, parentID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	doc.ParentID = parentID
	doc.ModifiedAt = time.Now()
	return nil
}

func (s *memStore) GetChildFoldersForUpdate(ctx context.Context, parentID int64) ([]domain.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var children []domain.Folder
	for _, folder := range s.folders {
		if folder.ParentID != nil && *folder.ParentID == parentID {
			children = append(children, *folder)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return children, nil
}

func (s *memStore) FolderExists(ctx context.Context, parentID *int64, name string, excludeID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, folder := range s.folders {
		if folder.ID == excludeID || folder.Name != name {
			continue
		}
		if (folder.ParentID == nil) != (parentID == nil) {
			continue
		}
		if parentID == nil || *folder.ParentID == *parentID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ListEntries(ctx context.Context, parentID *int64) ([]domain.FolderEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []domain.FolderEntry
	for _, doc := range s.docs {
		if sameParent(doc.ParentID, parentID) {
			size := doc.Size
			entries = append(entries, domain.FolderEntry{
				ID:   doc.ID,
				Name: doc.Name,
				Kind: domain.EntryKindFile,
				Size: &size,
			})
		}
	}
	for _, folder := range s.folders {
		if sameParent(folder.ParentID, parentID) {
			entries = append(entries, domain.FolderEntry{
				ID:   folder.ID,
				Name: folder.Name,
				Kind: domain.EntryKindFolder,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func sameParent(a, b *int64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func (s *memStore) DeleteFolder(ctx context.Context, id int64, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.folders[id]; !ok {
		return fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
	}

	if !cascade {
		delete(s.folders, id)
		return nil
	}

	subtree := map[int64]bool{id: true}
	for {
		grew := false
		for _, folder := range s.folders {
			if folder.ParentID != nil && subtree[*folder.ParentID] && !subtree[folder.ID] {
				subtree[folder.ID] = true
				grew = true
			}
		}
		if !grew {
			break
		}
	}

	for docID, doc := range s.docs {
		if doc.ParentID != nil && subtree[*doc.ParentID] {
			s.removeDocumentLocked(docID)
		}
	}
	for permID, perm := range s.perms {
		if perm.FolderID != nil && subtree[*perm.FolderID] {
			delete(s.perms, permID)
		}
	}
	for folderID := range subtree {
		delete(s.folders, folderID)
		delete(s.paths, folderID)
	}
	return nil
}

func (s *memStore) DeleteDocument(ctx context.Context, id int64, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	if !cascade {
		delete(s.docs, id)
		return nil
	}
	s.removeDocumentLocked(id)
	return nil
}

func (s *memStore) removeDocumentLocked(id int64) {
	delete(s.docs, id)
	for vID, v := range s.versions {
		if v.DocumentID == id {
			delete(s.versions, vID)
		}
	}
	for permID, perm := range s.perms {
		if perm.FileID != nil && *perm.FileID == id {
			delete(s.perms, permID)
		}
	}
	for cID, c := range s.comments {
		if c.FileID == id {
			delete(s.comments, cID)
		}
	}
}

// --- VersionStore ---

func (s *memStore) LockDocument(ctx context.Context, documentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[documentID]; !ok {
		return fmt.Errorf("document %d: %w", documentID, domain.ErrNotFound)
	}
	return nil
}

func (s *memStore) MaxVersionNumber(ctx context.Context, documentID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	max := 0
	for _, v := range s.versions {
		if v.DocumentID == documentID && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max, nil
}

func (s *memStore) Insert(ctx context.Context, v *domain.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.versions {
		if existing.DocumentID == v.DocumentID && existing.VersionNumber == v.VersionNumber {
			return fmt.Errorf("version %d of document %d: %w", v.VersionNumber, v.DocumentID, domain.ErrConflict)
		}
	}

	v.ID = s.allocID()
	v.CreatedAt = time.Now()
	cp := *v
	s.versions[v.ID] = &cp

	if doc, ok := s.docs[v.DocumentID]; ok {
		doc.Size = int64(len(v.Content))
		doc.ModifiedAt = time.Now()
	}
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id int64) (*domain.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.versions[id]
	if !ok {
		return nil, fmt.Errorf("version %d: %w", id, domain.ErrNotFound)
	}
	cp := *v
	return &cp, nil
}

func (s *memStore) GetByIdempotencyKey(ctx context.Context, documentID int64, key uuid.UUID) (*domain.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.versions {
		if v.DocumentID == documentID && v.IdempotencyKey != nil && *v.IdempotencyKey == key {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetLatest(ctx context.Context, documentID int64) (*domain.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *domain.Version
	for _, v := range s.versions {
		if v.DocumentID != documentID {
			continue
		}
		if latest == nil || v.VersionNumber > latest.VersionNumber {
			latest = v
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("latest version of document %d: %w", documentID, domain.ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

func (s *memStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.versions[id]; !ok {
		return fmt.Errorf("version %d: %w", id, domain.ErrNotFound)
	}
	delete(s.versions, id)
	return nil
}

func (s *memStore) History(ctx context.Context, documentID int64) ([]domain.VersionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []domain.VersionInfo
	for _, v := range s.versions {
		if v.DocumentID == documentID {
			history = append(history, domain.VersionInfo{
				ID:            v.ID,
				VersionNumber: v.VersionNumber,
				AuthorID:      v.AuthorID,
				CreatedAt:     v.CreatedAt,
			})
		}
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].VersionNumber > history[j].VersionNumber
	})
	return history, nil
}

// --- PermissionStore ---

func (s *memStore) Get(ctx context.Context, res domain.Resource, principal domain.Principal) (*domain.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, perm := range s.perms {
		if samePair(perm, res, principal) {
			cp := *perm
			return &cp, nil
		}
	}
	return nil, nil
}

func samePair(perm *domain.Permission, res domain.Resource, principal domain.Principal) bool {
	return sameParent(perm.FileID, res.FileID) &&
		sameParent(perm.FolderID, res.FolderID) &&
		sameParent(perm.UserID, principal.UserID) &&
		sameParent(perm.TeamID, principal.TeamID)
}

func (s *memStore) GetPermissionByID(ctx context.Context, id int64) (*domain.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	perm, ok := s.perms[id]
	if !ok {
		return nil, fmt.Errorf("permission %d: %w", id, domain.ErrNotFound)
	}
	cp := *perm
	return &cp, nil
}

func (s *memStore) Upsert(ctx context.Context, perm *domain.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.perms {
		if samePair(existing, perm.Resource(), perm.Principal()) {
			existing.Ability = perm.Ability
			perm.ID = existing.ID
			return nil
		}
	}

	perm.ID = s.allocID()
	cp := *perm
	s.perms[perm.ID] = &cp
	return nil
}

func (s *memStore) SetAbility(ctx context.Context, id int64, ability domain.Ability) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	perm, ok := s.perms[id]
	if !ok {
		return fmt.Errorf("permission %d: %w", id, domain.ErrNotFound)
	}
	perm.Ability = ability
	return nil
}

func (s *memStore) DeletePermission(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.perms[id]; !ok {
		return fmt.Errorf("permission %d: %w", id, domain.ErrNotFound)
	}
	delete(s.perms, id)
	return nil
}

func (s *memStore) ListByResource(ctx context.Context, res domain.Resource) ([]domain.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Permission
	for _, perm := range s.perms {
		if sameParent(perm.FileID, res.FileID) && sameParent(perm.FolderID, res.FolderID) {
			result = append(result, *perm)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// --- TeamDirectory ---

func (s *memStore) TeamIDsOf(ctx context.Context, userID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for teamID, userIDs := range s.members {
		for _, id := range userIDs {
			if id == userID {
				ids = append(ids, teamID)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// permAdapter подгоняет memStore под PermissionStore: имена GetByID и Delete
// заняты хранилищем версий.
type permAdapter struct {
	s *memStore
}

func (a permAdapter) Get(ctx context.Context, res domain.Resource, principal domain.Principal) (*domain.Permission, error) {
	return a.s.Get(ctx, res, principal)
}

func (a permAdapter) GetByID(ctx context.Context, id int64) (*domain.Permission, error) {
	return a.s.GetPermissionByID(ctx, id)
}

func (a permAdapter) Upsert(ctx context.Context, perm *domain.Permission) error {
	return a.s.Upsert(ctx, perm)
}

func (a permAdapter) SetAbility(ctx context.Context, id int64, ability domain.Ability) error {
	return a.s.SetAbility(ctx, id, ability)
}

func (a permAdapter) Delete(ctx context.Context, id int64) error {
	return a.s.DeletePermission(ctx, id)
}

func (a permAdapter) ListByResource(ctx context.Context, res domain.Resource) ([]domain.Permission, error) {
	return a.s.ListByResource(ctx, res)
}

// commentAdapter подгоняет memStore под CommentStore.
type commentAdapter struct {
	s *memStore
}

func (a commentAdapter) Create(ctx context.Context, c *domain.Comment) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	c.ID = a.s.allocID()
	c.TimePosted = time.Now()
	cp := *c
	a.s.comments[c.ID] = &cp
	return nil
}

func (a commentAdapter) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	c, ok := a.s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %d: %w", id, domain.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (a commentAdapter) ListByDocument(ctx context.Context, documentID int64) ([]domain.Comment, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	var result []domain.Comment
	for _, c := range a.s.comments {
		if c.FileID == documentID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (a commentAdapter) UpdateContent(ctx context.Context, id int64, content string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	c, ok := a.s.comments[id]
	if !ok {
		return fmt.Errorf("comment %d: %w", id, domain.ErrNotFound)
	}
	c.Content = content
	return nil
}

func (a commentAdapter) Delete(ctx context.Context, id int64) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.comments[id]; !ok {
		return fmt.Errorf("comment %d: %w", id, domain.ErrNotFound)
	}
	delete(a.s.comments, id)
	return nil
}

// newServices собирает сервисный слой поверх одного хранилища в памяти.
func newServices(store *memStore, cascade bool) (*PermissionService, *NamespaceService, *VersionService, *CommentService) {
	txm := &fakeTxManager{}
	perms := NewPermissionService(permAdapter{store}, store, store, txm)
	ns := NewNamespaceService(store, perms, txm, cascade)
	versions := NewVersionService(store, store, perms, txm)
	comments := NewCommentService(commentAdapter{store}, store, perms)
	return perms, ns, versions, comments
}

func (s *memStore) addTeam(ownerID int64, memberIDs ...int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	teamID := s.allocID()
	s.teams[teamID] = &domain.Team{ID: teamID, OwnerID: ownerID, Name: fmt.Sprintf("team-%d", teamID)}
	s.members[teamID] = append([]int64{ownerID}, memberIDs...)
	return teamID
}
