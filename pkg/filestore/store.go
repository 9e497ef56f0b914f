// Package filestore abstracts the cloud file store holding the daily input
// folders, the spreadsheet template, and the month-bucketed outputs.
package filestore

import (
	"context"
	"time"
)

// UpsertMode reports whether an upsert created or overwrote the file.
type UpsertMode string

// Upsert modes.
const (
	UpsertCreated UpsertMode = "created"
	UpsertUpdated UpsertMode = "updated"
)

// Folder is a directory-like container in the store.
type Folder struct {
	ID   string
	Name string
}

// Entry is one child of a folder.
type Entry struct {
	ID           string
	Name         string
	IsFolder     bool
	ModifiedTime time.Time
}

// UpsertResult describes the outcome of an upsert.
type UpsertResult struct {
	Mode         UpsertMode
	ID           string
	ModifiedTime time.Time
}

// Store is the file-store collaborator contract. FindChildFolder returns
// nil (not an error) when no folder of that name exists.
type Store interface {
	FindChildFolder(ctx context.Context, parentID, name string) (*Folder, error)
	ListChildren(ctx context.Context, folderID string) ([]Entry, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
	Upsert(ctx context.Context, folderID, filename string, data []byte) (*UpsertResult, error)
	EnsureFolder(ctx context.Context, parentID, name string) (*Folder, error)
}
