package filestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrFileNotFound is returned by Download for an unknown file ID.
var ErrFileNotFound = errors.New("file not found")

// Memory is an in-memory Store used by tests and local development. It
// mirrors the prefix semantics of the minio store.
type Memory struct {
	mu       sync.Mutex
	objects  map[string][]byte
	modified map[string]time.Time
	now      func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		objects:  make(map[string][]byte),
		modified: make(map[string]time.Time),
		now:      time.Now,
	}
}

// PutFile seeds a file under the folder. Test helper.
func (m *Memory) PutFile(folderID, filename string, data []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalizeFolderID(folderID) + filename
	m.objects[key] = data
	m.modified[key] = m.now()

	return key
}

// FindChildFolder returns the child folder when any object lives under its
// prefix.
func (m *Memory) FindChildFolder(_ context.Context, parentID, name string) (*Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := childPrefix(parentID, name)
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			return &Folder{ID: prefix, Name: name}, nil
		}
	}

	return nil, nil
}

// ListChildren lists the direct children of a folder.
func (m *Memory) ListChildren(_ context.Context, folderID string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := normalizeFolderID(folderID)

	var entries []Entry
	for key := range m.objects {
		if !strings.HasPrefix(key, prefix) || key == prefix {
			continue
		}

		rest := strings.TrimPrefix(key, prefix)
		if strings.Contains(rest, "/") {
			child := strings.SplitN(rest, "/", 2)[0]
			entries = appendFolderEntry(entries, prefix+child+"/", child)

			continue
		}

		entries = append(entries, Entry{ID: key, Name: rest, ModifiedTime: m.modified[key]})
	}

	return entries, nil
}

// Download returns the contents of a file.
func (m *Memory) Download(_ context.Context, fileID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[fileID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
	}

	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}

// Upsert writes a file under the folder, overwriting in place.
func (m *Memory) Upsert(_ context.Context, folderID, filename string, data []byte) (*UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalizeFolderID(folderID) + filename

	mode := UpsertCreated
	if _, exists := m.objects[key]; exists {
		mode = UpsertUpdated
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[key] = stored
	m.modified[key] = m.now()

	return &UpsertResult{Mode: mode, ID: key, ModifiedTime: m.modified[key]}, nil
}

// EnsureFolder creates the folder marker when absent.
func (m *Memory) EnsureFolder(_ context.Context, parentID, name string) (*Folder, error) {
	prefix := childPrefix(parentID, name)

	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			return &Folder{ID: prefix, Name: name}, nil
		}
	}

	m.objects[prefix] = nil
	m.modified[prefix] = m.now()

	return &Folder{ID: prefix, Name: name}, nil
}

// File returns the stored bytes for a key. Test helper.
func (m *Memory) File(folderID, filename string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[normalizeFolderID(folderID)+filename]

	return data, ok
}

var _ Store = (*Memory)(nil)
