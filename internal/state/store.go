// Package state holds the client-side view of known files grouped by folder.
//
// The Store is the only place folder membership changes; callers never touch
// folder contents directly, which keeps the flat file list and the per-folder
// sets consistent with each other.
package state

import (
	"sync"

	"github.com/jetsetgo/printdesk/internal/models"
)

// folderEntry is a folder and the files currently known to belong to it
type folderEntry struct {
	id    string
	name  string
	files []models.File
}

// Store is a mutex-guarded in-memory file/folder model
type Store struct {
	mu      sync.RWMutex
	files   []models.File
	folders map[string]*folderEntry
	order   []string // folder ids in first-seen order
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		folders: make(map[string]*folderEntry),
	}
}

// ReplaceAll clears the store and rebuilds the folder grouping from files
func (s *Store) ReplaceAll(files []models.File) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = make([]models.File, 0, len(files))
	s.folders = make(map[string]*folderEntry)
	s.order = s.order[:0]

	for _, f := range files {
		s.addLocked(f)
	}
}

// AddFile inserts f into the flat list and into its folder, creating the
// folder when needed. Adding the same id twice yields two entries.
func (s *Store) AddFile(f models.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(f)
}

func (s *Store) addLocked(f models.File) {
	s.files = append(s.files, f)
	entry := s.ensureFolderLocked(f.FolderID, f.FolderName)
	entry.files = append(entry.files, f)
}

func (s *Store) ensureFolderLocked(id, name string) *folderEntry {
	entry, ok := s.folders[id]
	if !ok {
		entry = &folderEntry{id: id, name: name}
		s.folders[id] = entry
		s.order = append(s.order, id)
	}
	if entry.name == "" {
		entry.name = name
	}
	return entry
}

// RemoveFile drops the first file with the given id. It reports whether a
// file was found; unknown ids are a no-op. The folder itself is kept.
func (s *Store) RemoveFile(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}

	f := s.files[idx]
	s.files = append(s.files[:idx], s.files[idx+1:]...)

	if entry, ok := s.folders[f.FolderID]; ok {
		for i := range entry.files {
			if entry.files[i].ID == id {
				entry.files = append(entry.files[:i], entry.files[i+1:]...)
				break
			}
		}
	}
	return true
}

// AddFolder inserts an empty folder unless one with the same id exists
func (s *Store) AddFolder(folder models.Folder) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.folders[folder.ID]; ok {
		return false
	}
	s.folders[folder.ID] = &folderEntry{id: folder.ID, name: folder.Name}
	s.order = append(s.order, folder.ID)
	return true
}

// ReplaceFile swaps the whole record of an existing file, moving it between
// folders if its folder changed. Returns false for unknown ids.
func (s *Store) ReplaceFile(f models.File) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(f.ID)
	if idx < 0 {
		return false
	}

	old := s.files[idx]
	s.files[idx] = f

	if old.FolderID == f.FolderID {
		entry := s.folders[f.FolderID]
		for i := range entry.files {
			if entry.files[i].ID == f.ID {
				entry.files[i] = f
				break
			}
		}
		return true
	}

	if entry, ok := s.folders[old.FolderID]; ok {
		for i := range entry.files {
			if entry.files[i].ID == f.ID {
				entry.files = append(entry.files[:i], entry.files[i+1:]...)
				break
			}
		}
	}
	entry := s.ensureFolderLocked(f.FolderID, f.FolderName)
	entry.files = append(entry.files, f)
	return true
}

// Find returns the first file with the given id
func (s *Store) Find(id string) (models.File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return models.File{}, false
	}
	return s.files[idx], true
}

// Printed returns the files already marked as processed
func (s *Store) Printed() []models.File {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.File, 0)
	for _, f := range s.files {
		if f.Processed {
			result = append(result, f)
		}
	}
	return result
}

// Counts returns the number of known folders and files
func (s *Store) Counts() (folders, files int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.folders), len(s.files)
}

// Snapshot is an immutable copy of the store contents
type Snapshot struct {
	Folders []models.Folder
	Files   []models.File
}

// Snapshot copies the current contents. Folders keep first-seen order.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Folders: make([]models.Folder, 0, len(s.order)),
		Files:   make([]models.File, len(s.files)),
	}
	copy(snap.Files, s.files)

	for _, id := range s.order {
		entry := s.folders[id]
		files := make([]models.File, len(entry.files))
		copy(files, entry.files)
		snap.Folders = append(snap.Folders, models.Folder{
			ID:    entry.id,
			Name:  entry.name,
			Files: files,
		})
	}
	return snap
}

func (s *Store) indexLocked(id string) int {
	for i := range s.files {
		if s.files[i].ID == id {
			return i
		}
	}
	return -1
}
