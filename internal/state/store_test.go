package state

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetsetgo/printdesk/internal/models"
)

func file(id, folderID, folderName string) models.File {
	return models.File{ID: id, Name: id + ".pdf", FolderID: folderID, FolderName: folderName, Size: 2048}
}

// checkInvariant verifies that the flat list and the folder sets agree
func checkInvariant(t *testing.T, s *Store) {
	t.Helper()

	snap := s.Snapshot()

	flat := map[string]int{}
	for _, f := range snap.Files {
		flat[f.ID+"|"+f.FolderID]++
	}

	grouped := map[string]int{}
	for _, folder := range snap.Folders {
		for _, f := range folder.Files {
			require.Equal(t, folder.ID, f.FolderID, "file %s filed under wrong folder", f.ID)
			grouped[f.ID+"|"+f.FolderID]++
		}
	}

	require.Equal(t, flat, grouped)
}

func TestStore_ReplaceAllCounts(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]models.File{
		file("a", "d1", "One"),
		file("b", "d1", "One"),
		file("c", "d2", "Two"),
	})

	folders, files := s.Counts()
	assert.Equal(t, 2, folders)
	assert.Equal(t, 3, files)
	checkInvariant(t, s)

	// A second ReplaceAll discards everything from the first
	s.AddFolder(models.Folder{ID: "empty", Name: "Empty"})
	s.ReplaceAll([]models.File{file("x", "d9", "Nine")})

	folders, files = s.Counts()
	assert.Equal(t, 1, folders)
	assert.Equal(t, 1, files)

	snap := s.Snapshot()
	require.Len(t, snap.Folders, 1)
	assert.Equal(t, "d9", snap.Folders[0].ID)
	assert.Equal(t, "Nine", snap.Folders[0].Name)
}

func TestStore_ReplaceAllEmpty(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(nil)

	folders, files := s.Counts()
	assert.Zero(t, folders)
	assert.Zero(t, files)
}

func TestStore_InitialFetchThenDelete(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]models.File{{ID: "f1", FolderID: "d1", FolderName: "Invoices", Size: 2048}})

	folders, files := s.Counts()
	assert.Equal(t, 1, folders)
	assert.Equal(t, 1, files)

	snap := s.Snapshot()
	require.Len(t, snap.Folders, 1)
	assert.Equal(t, "Invoices", snap.Folders[0].Name)
	assert.Len(t, snap.Folders[0].Files, 1)

	assert.True(t, s.RemoveFile("f1"))

	folders, files = s.Counts()
	assert.Equal(t, 1, folders)
	assert.Equal(t, 0, files)

	snap = s.Snapshot()
	require.Len(t, snap.Folders, 1)
	assert.Empty(t, snap.Folders[0].Files)
}

func TestStore_RemoveUnknownIsNoop(t *testing.T) {
	s := NewStore()
	s.AddFile(file("a", "d1", "One"))

	assert.False(t, s.RemoveFile("missing"))

	_, files := s.Counts()
	assert.Equal(t, 1, files)
	checkInvariant(t, s)
}

func TestStore_AddFolderOnlyOnce(t *testing.T) {
	s := NewStore()

	assert.True(t, s.AddFolder(models.Folder{ID: "d1", Name: "First"}))
	assert.False(t, s.AddFolder(models.Folder{ID: "d1", Name: "Second"}))

	s.AddFile(file("a", "d1", "ignored"))

	snap := s.Snapshot()
	require.Len(t, snap.Folders, 1)
	assert.Equal(t, "First", snap.Folders[0].Name)
	assert.Len(t, snap.Folders[0].Files, 1)
}

func TestStore_DuplicateAddIsKept(t *testing.T) {
	s := NewStore()
	s.AddFile(file("a", "d1", "One"))
	s.AddFile(file("a", "d1", "One"))

	_, files := s.Counts()
	assert.Equal(t, 2, files)
	checkInvariant(t, s)

	s.RemoveFile("a")
	_, files = s.Counts()
	assert.Equal(t, 1, files)
	checkInvariant(t, s)
}

func TestStore_ReplaceFile(t *testing.T) {
	s := NewStore()
	s.AddFile(file("a", "d1", "One"))
	s.AddFile(file("b", "d1", "One"))

	printed := file("a", "d1", "One")
	printed.Processed = true
	require.True(t, s.ReplaceFile(printed))

	got, ok := s.Find("a")
	require.True(t, ok)
	assert.True(t, got.Processed)
	assert.Len(t, s.Printed(), 1)
	checkInvariant(t, s)

	moved := file("b", "d2", "Two")
	require.True(t, s.ReplaceFile(moved))
	checkInvariant(t, s)

	snap := s.Snapshot()
	require.Len(t, snap.Folders, 2)
	assert.Len(t, snap.Folders[0].Files, 1)
	assert.Len(t, snap.Folders[1].Files, 1)

	assert.False(t, s.ReplaceFile(file("zzz", "d1", "One")))
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := NewStore()
	s.AddFile(file("a", "d1", "One"))

	snap := s.Snapshot()
	snap.Files[0].Name = "changed"
	snap.Folders[0].Files[0].Name = "changed"

	got, _ := s.Find("a")
	assert.Equal(t, "a.pdf", got.Name)
	assert.Equal(t, "a.pdf", s.Snapshot().Folders[0].Files[0].Name)
}

func TestStore_RandomSequencesKeepInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewStore()

	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("f%d", rng.Intn(20))
		folder := fmt.Sprintf("d%d", rng.Intn(4))

		switch rng.Intn(4) {
		case 0, 1:
			s.AddFile(file(id, folder, "Folder "+folder))
		case 2:
			s.RemoveFile(id)
		case 3:
			s.AddFolder(models.Folder{ID: folder, Name: "Folder " + folder})
		}

		checkInvariant(t, s)
	}
}
