package file

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"vipsscaler/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestDownloadFile(t *testing.T) {
	tests := []struct {
		name       string
		inputBytes []byte
		status     int
		wantErr    bool
	}{
		{
			name:       "success",
			inputBytes: []byte("test\n"),
			status:     http.StatusOK,
			wantErr:    false,
		},
		{
			name:       "not found",
			inputBytes: []byte("not found"),
			status:     http.StatusNotFound,
			wantErr:    true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, err := w.Write(tc.inputBytes)
				assert.NoError(t, err)
			}))
			defer srv.Close()

			res, err := DownloadFile(t.Context(), srv.URL)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.inputBytes, res)
			}
		})
	}
}

func TestTempStoreAllocate(t *testing.T) {
	tests := []struct {
		name      string
		extension string
		wantExt   string
	}{
		{
			name:      "dotted extension",
			extension: ".jpg",
			wantExt:   ".jpg",
		},
		{
			name:      "bare extension",
			extension: "png",
			wantExt:   ".png",
		},
		{
			name:      "no extension",
			extension: "",
			wantExt:   "",
		},
	}

	store, err := NewTempStore(t.TempDir(), "vips_")
	require.NoError(t, err)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path, err := store.Allocate(tc.extension)
			require.NoError(t, err)
			defer store.Remove(path)

			assert.Equal(t, store.Dir(), filepath.Dir(path))
			assert.True(t, strings.HasPrefix(filepath.Base(path), "vips_"))
			assert.Equal(t, tc.wantExt, filepath.Ext(path))

			size, err := store.Size(path)
			require.NoError(t, err)
			assert.Equal(t, int64(0), size)
		})
	}
}

func TestTempStoreAllocateConcurrent(t *testing.T) {
	store, err := NewTempStore(t.TempDir(), "vips_")
	require.NoError(t, err)

	const callers = 64

	var mu sync.Mutex
	seen := make(map[string]bool, callers)

	var g errgroup.Group
	for range callers {
		g.Go(func() error {
			path, err := store.Allocate(".jpg")
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			seen[path] = true
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, seen, callers)
}

func TestTempStoreUnavailable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := NewTempStore(filepath.Join(blocker, "sub"), "vips_")
	require.ErrorIs(t, err, domain.ErrResourceUnavailable)

	dir := filepath.Join(t.TempDir(), "gone")
	store, err := NewTempStore(dir, "vips_")
	require.NoError(t, err)
	require.NoError(t, os.Remove(dir))

	_, err = store.Allocate(".jpg")
	require.ErrorIs(t, err, domain.ErrResourceUnavailable)
}

func TestTempStoreRemove(t *testing.T) {
	store, err := NewTempStore(t.TempDir(), "vips_")
	require.NoError(t, err)

	path, err := store.Allocate(".jpg")
	require.NoError(t, err)

	store.Remove(path)
	assert.NoFileExists(t, path)

	store.Remove(path)

	_, err = store.Size(path)
	require.Error(t, err)
}

func TestTempStoreFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, err := w.Write([]byte("jpeg bytes"))
		assert.NoError(t, err)
	}))
	defer srv.Close()

	store, err := NewTempStore(t.TempDir(), "vips_")
	require.NoError(t, err)

	path, err := store.Fetch(t.Context(), srv.URL+"/photo.jpg", ".jpg")
	require.NoError(t, err)
	defer store.Remove(path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))
	assert.Equal(t, ".jpg", filepath.Ext(path))
}

func TestTempStoreFetchFailureAllocatesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	store, err := NewTempStore(dir, "vips_")
	require.NoError(t, err)

	_, err = store.Fetch(t.Context(), srv.URL, ".jpg")
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
