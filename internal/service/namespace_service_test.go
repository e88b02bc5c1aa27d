package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docspace/internal/domain"
)

const (
	ownerID    = int64(100)
	strangerID = int64(200)
)

func TestCreateFolderBuildsPath(t *testing.T) {
	store := newMemStore()
	_, ns, _, _ := newServices(store, false)
	ctx := context.Background()

	reports, err := ns.CreateFolder(ctx, ownerID, domain.RootFolderID, "Reports")
	require.NoError(t, err)

	year, err := ns.CreateFolder(ctx, ownerID, reports.ID, "2024")
	require.NoError(t, err)

	path, err := ns.GetPath(ctx, reports.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reports", path)

	path, err = ns.GetPath(ctx, year.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reports/2024", path)
}

func TestCreateFolderGrantsOwnerEdit(t *testing.T) {
	store := newMemStore()
	perms, ns, _, _ := newServices(store, false)
	ctx := context.Background()

	folder, err := ns.CreateFolder(ctx, ownerID, domain.RootFolderID, "Docs")
	require.NoError(t, err)

	ability, err := perms.EffectiveAbility(ctx, domain.FolderResource(folder.ID), domain.UserPrincipal(ownerID))
	require.NoError(t, err)
	require.NotNil(t, ability)
	assert.Equal(t, domain.AbilityEdit, *ability)
}

func TestCreateFolderNameConflict(t *testing.T) {
	store := newMemStore()
	_, ns, _, _ := newServices(store, false)
	ctx := context.Background()

	_, err := ns.CreateFolder(ctx, ownerID, domain.RootFolderID, "Reports")
	require.NoError(t, err)

	_, err = ns.CreateFolder(ctx, ownerID, domain.RootFolderID, "Reports")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRenameFolderRewritesSubtreePaths(t *testing.T) {
	store := newMemStore()
	_, ns, _, _ := newServices(store, false)
	ctx := context.Background()

	reports, err := ns.CreateFolder(ctx, ownerID, domain.RootFolderID, "Reports")
	require.NoError(t, err)
	year, err := ns.CreateFolder(ctx, ownerID, reports.ID, "2024")
	require.NoError(t, err)
	quarter, err := ns.CreateFolder(ctx, ownerID, year.ID, "Q1")
	require.NoError(t, err)

	require.NoError(t, ns.RenameFolder(ctx, ownerID, reports.ID, "Archive"))

	for folderID, want := range map[int64]string{
		reports.ID: "Archive",
		year.ID:    "Archive/2024",
		quarter.ID: "Archive/2024/Q1",
	} {
		path, err := ns.GetPath(ctx, folderID)
		require.NoError(t, err)
		assert.Equal(t, want, path)
	}
}

func TestMoveFolderRewritesSubtreePaths(t *testing.T) {
	store := newMemStore()
	_, ns, _, _ := newServices(store, false)
	ctx := context.Background()

	reports, err := ns.CreateFolder(ctx, ownerID, domain.RootFolderID, "Reports")
	require.NoError(t, err)
	year, err := ns.CreateFolder(ctx, ownerID, reports.ID, "2024")
	require.NoError(t, err)
	archive, err := ns.CreateFolder(ctx, ownerID, domain.RootFolderID, "Archive")
	require.NoError(t, err)

	require.NoError(t, ns.MoveFolder(ctx, ownerID, year.ID, archive.ID))

	path, err := ns.GetPath(ctx, year.ID)
	require.NoError(t, err)
	assert.Equal(t, "Archive/2024", path)

	// Путь исходной папки не изменился
	path, err = ns.GetPath(ctx, reports.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reports", path)
}

func TestMoveFolderIntoItselfRejected(t *testing.T) {
	store := newMemStore()
	_, ns, _, _ := newServices(store, false)
	ctx := context.Background()

	folder, err := ns.CreateFolder(ctx, ownerID, domain.RootFolderID, "Reports")
	require.NoError(t, err)

	err = ns.MoveFolder(ctx, ownerID, folder.ID, folder.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestMoveFolderIntoOwnSubtreeRejected(t *testing.T) {
	store := newMemStore()
	_, ns, _, _ := newServices(store, false)
	ctx := context.Background()

	parent, err := ns.CreateFolder(ctx, ownerID, domain.RootFolderID, "A")
	require.NoError(t, err)
	child, err := ns.CreateFolder(ctx, ownerID, parent.ID, "B")
	require.NoError(t, err)
	grandchild, err := ns.CreateFolder(ctx, ownerID, child.ID, "C")
	require.NoError(t, err)

	err = ns.MoveFolder(ctx, ownerID, parent.ID, grandchild.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	// Дерево не изменилось
	path, err := ns.GetPath(ctx, grandchild.ID)
	require.NoError(t, err)
	assert.Equal(t, "A/B/C", path)
}

func TestMoveFolderToRoot(t *testing.T) {
	store := newMemStore()
	_, ns, _, _ := newServices(store, false)
	ctx := context.Background()

	parent, err := ns.CreateFolder(ctx, ownerID, domain.RootFolderID, "A")
	require.NoError(t, err)
	child, err := ns.CreateFolder(ctx, ownerID, parent.ID, "B")
	require.NoError(t, err)

	require.NoError(t, ns.MoveFolder(ctx, ownerID, child.ID, domain.RootFolderID))

	path, err := ns.GetPath(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", path)
}

func TestListChildrenFiltersByAccess(t *testing.T) {
	store := newMemStore()
	perms, ns, _, _ := newServices(store, false)
	ctx := context.Background()

	parent, err := ns.CreateFolder(ctx, ownerID, domain.RootFolderID, "Shared")
	require.NoError(t, err)
	visibleDoc, err := ns.CreateDocument(ctx, ownerID, parent.ID, "seen.txt", "text/plain")
	require.NoError(t, err)
	_, err = ns.CreateDocument(ctx, ownerID, parent.ID, "hidden.txt", "text/plain")
	require.NoError(t, err)

	_, err = perms.Grant(ctx, ownerID, domain.FileResource(visibleDoc.ID), domain.UserPrincipal(strangerID), domain.AbilityView)
	require.NoError(t, err)

	entries, err := ns.ListChildren(ctx, strangerID, parent.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, visibleDoc.ID, entries[0].ID)
	assert.Equal(t, domain.EntryKindFile, entries[0].Kind)

	// Владелец видит всё
	entries, err = ns.ListChildren(ctx, ownerID, parent.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCreateFolderRequiresEditOnParent(t *testing.T) {
	store := newMemStore()
	perms, ns, _, _ := newServices(store, false)
	ctx := context.Background()

	parent, err := ns.CreateFolder(ctx, ownerID, domain.RootFolderID, "Shared")
	require.NoError(t, err)

	_, err = ns.CreateFolder(ctx, strangerID, parent.ID, "Intruder")
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	// С правом EDIT операция проходит
	_, err = perms.Grant(ctx, ownerID, domain.FolderResource(parent.ID), domain.UserPrincipal(strangerID), domain.AbilityEdit)
	require.NoError(t, err)

	_, err = ns.CreateFolder(ctx, strangerID, parent.ID, "Allowed")
	assert.NoError(t, err)
}

func TestDeleteFolderWithoutCascadeLeavesChildren(t *testing.T) {
	store := newMemStore()
	_, ns, _, _ := newServices(store, false)
	ctx := context.Background()

	parent, err := ns.CreateFolder(ctx, ownerID, domain.RootFolderID, "Parent")
	require.NoError(t, err)
	child, err := ns.CreateFolder(ctx, ownerID, parent.ID, "Child")
	require.NoError(t, err)

	require.NoError(t, ns.DeleteFolder(ctx, ownerID, parent.ID))

	_, err = store.GetFolder(ctx, parent.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetFolder(ctx, child.ID)
	assert.NoError(t, err)
}

func TestDeleteFolderCascadeRemovesSubtree(t *testing.T) {
	store := newMemStore()
	_, ns, versions, _ := newServices(store, true)
	ctx := context.Background()

	parent, err := ns.CreateFolder(ctx, ownerID, domain.RootFolderID, "Parent")
	require.NoError(t, err)
	child, err := ns.CreateFolder(ctx, ownerID, parent.ID, "Child")
	require.NoError(t, err)
	doc, err := ns.CreateDocument(ctx, ownerID, child.ID, "deep.txt", "text/plain")
	require.NoError(t, err)
	_, err = versions.AppendVersion(ctx, ownerID, doc.ID, []byte("payload"), nil)
	require.NoError(t, err)

	require.NoError(t, ns.DeleteFolder(ctx, ownerID, parent.ID))

	_, err = store.GetFolder(ctx, child.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetLatest(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteDocumentCascadeRemovesVersionsAndPermissions(t *testing.T) {
	store := newMemStore()
	perms, ns, _, _ := newServices(store, true)
	ctx := context.Background()

	doc, err := ns.CreateDocument(ctx, ownerID, domain.RootFolderID, "note.txt", "text/plain")
	require.NoError(t, err)
	_, err = perms.Grant(ctx, ownerID, domain.FileResource(doc.ID), domain.UserPrincipal(strangerID), domain.AbilityView)
	require.NoError(t, err)

	require.NoError(t, ns.DeleteDocument(ctx, ownerID, doc.ID))

	_, err = store.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetLatest(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ability, err := perms.EffectiveAbility(ctx, domain.FileResource(doc.ID), domain.UserPrincipal(strangerID))
	require.NoError(t, err)
	assert.Nil(t, ability)
}

func TestDeleteDocumentWithoutCascadeLeavesVersionsAndPermissions(t *testing.T) {
	store := newMemStore()
	perms, ns, _, _ := newServices(store, false)
	ctx := context.Background()

	doc, err := ns.CreateDocument(ctx, ownerID, domain.RootFolderID, "note.txt", "text/plain")
	require.NoError(t, err)
	_, err = perms.Grant(ctx, ownerID, domain.FileResource(doc.ID), domain.UserPrincipal(strangerID), domain.AbilityView)
	require.NoError(t, err)

	require.NoError(t, ns.DeleteDocument(ctx, ownerID, doc.ID))

	_, err = store.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Без каскада версии и права осиротевают, но остаются
	latest, err := store.GetLatest(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, latest.VersionNumber)

	ability, err := perms.EffectiveAbility(ctx, domain.FileResource(doc.ID), domain.UserPrincipal(strangerID))
	require.NoError(t, err)
	require.NotNil(t, ability)
	assert.Equal(t, domain.AbilityView, *ability)
}

func TestRenameMissingFolder(t *testing.T) {
	store := newMemStore()
	_, ns, _, _ := newServices(store, false)

	err := ns.RenameFolder(context.Background(), ownerID, 999, "Ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMoveDocumentIntoMissingFolder(t *testing.T) {
	store := newMemStore()
	_, ns, _, _ := newServices(store, false)
	ctx := context.Background()

	doc, err := ns.CreateDocument(ctx, ownerID, domain.RootFolderID, "note.txt", "text/plain")
	require.NoError(t, err)

	// Несуществующий родитель - это NotFound, а не отказ в доступе
	err = ns.MoveDocument(ctx, ownerID, doc.ID, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
