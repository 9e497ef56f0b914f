package filestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFindChildFolder(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	t.Run("absent folder is nil not an error", func(t *testing.T) {
		folder, err := store.FindChildFolder(ctx, "inputs", "2026-08-25")
		require.NoError(t, err)
		assert.Nil(t, folder)
	})

	t.Run("folder exists once an object lives under it", func(t *testing.T) {
		store.PutFile("inputs/2026-08-25", "CPD.xlsx", []byte("data"))

		folder, err := store.FindChildFolder(ctx, "inputs", "2026-08-25")
		require.NoError(t, err)
		require.NotNil(t, folder)
		assert.Equal(t, "inputs/2026-08-25/", folder.ID)
		assert.Equal(t, "2026-08-25", folder.Name)
	})
}

func TestMemoryListChildren(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	store.PutFile("inputs/2026-08-25", "CPD.xlsx", []byte("a"))
	store.PutFile("inputs/2026-08-25", "CPH.xlsx", []byte("b"))
	store.PutFile("inputs/2026-08-25/nested", "deep.xlsx", []byte("c"))

	entries, err := store.ListChildren(ctx, "inputs/2026-08-25")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	names := make(map[string]bool)
	folders := 0
	for _, e := range entries {
		names[e.Name] = true
		if e.IsFolder {
			folders++
		}
	}

	assert.True(t, names["CPD.xlsx"])
	assert.True(t, names["CPH.xlsx"])
	assert.True(t, names["nested"])
	assert.Equal(t, 1, folders, "nested prefix surfaces as one folder entry")
}

func TestMemoryDownload(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	id := store.PutFile("templates", "template.xlsx", []byte("workbook"))

	t.Run("round trip", func(t *testing.T) {
		data, err := store.Download(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []byte("workbook"), data)
	})

	t.Run("returned bytes are a copy", func(t *testing.T) {
		data, err := store.Download(ctx, id)
		require.NoError(t, err)
		data[0] = 'X'

		again, err := store.Download(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []byte("workbook"), again)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.Download(ctx, "nope")
		assert.ErrorIs(t, err, ErrFileNotFound)
	})
}

func TestMemoryUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	res, err := store.Upsert(ctx, "outputs/2026-08", "2026-08_confirmed-actuals.xlsx", []byte("v1"))
	require.NoError(t, err)
	assert.Equal(t, UpsertCreated, res.Mode)

	res, err = store.Upsert(ctx, "outputs/2026-08", "2026-08_confirmed-actuals.xlsx", []byte("v2"))
	require.NoError(t, err)
	assert.Equal(t, UpsertUpdated, res.Mode)

	data, ok := store.File("outputs/2026-08", "2026-08_confirmed-actuals.xlsx")
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), data, "overwrite in place, no versioned copies")
}

func TestMemoryEnsureFolder(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	folder, err := store.EnsureFolder(ctx, "outputs", "2026-08")
	require.NoError(t, err)
	assert.Equal(t, "outputs/2026-08/", folder.ID)

	// Idempotent: a second ensure returns the same folder.
	again, err := store.EnsureFolder(ctx, "outputs", "2026-08")
	require.NoError(t, err)
	assert.Equal(t, folder.ID, again.ID)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected error
	}{
		{
			name:     "missing endpoint",
			cfg:      Config{AccessKey: "k", SecretKey: "s"},
			expected: ErrEndpointRequired,
		},
		{
			name:     "missing credentials",
			cfg:      Config{Endpoint: "minio:9000"},
			expected: ErrCredentialsRequired,
		},
		{
			name: "valid",
			cfg:  Config{Endpoint: "minio:9000", AccessKey: "k", SecretKey: "s", Bucket: "dailyclose"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expected)
			}
		})
	}
}
