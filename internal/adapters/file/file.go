package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"vipsscaler/internal/core/domain"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
)

const allocateAttempts = 5

// DownloadFile returns the byte content of a file on a provided URL.
func DownloadFile(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		err = fmt.Errorf("error creating request %w", err)
		log.Error().Err(err).Str("path", path).Send()
		return nil, err
	}

	client := &http.Client{}
	res, err := client.Do(req)
	if err != nil {
		err = fmt.Errorf("error executing request %w", err)
		log.Error().Err(err).Str("path", path).Send()
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected status code on download: %d", res.StatusCode)
		log.Error().Err(err).Str("path", path).Send()
		return nil, err
	}

	buf, err := io.ReadAll(res.Body)
	if err != nil {
		err = fmt.Errorf("error reading response %w", err)
		log.Error().Err(err).Str("path", path).Send()
		return nil, err
	}

	return buf, nil
}

// TempStore hands out uniquely named files in a temp directory. Names are reserved with
// O_EXCL, so concurrent callers in this or another process never share a path.
type TempStore struct {
	dir    string
	prefix string
}

// NewTempStore creates a store rooted at dir, or os.TempDir() when dir is empty.
func NewTempStore(dir, prefix string) (*TempStore, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: temp dir %s: %w", domain.ErrResourceUnavailable, dir, err)
	}

	return &TempStore{dir: dir, prefix: prefix}, nil
}

func (s *TempStore) Dir() string {
	return s.dir
}

// Allocate creates an empty file named <prefix><uuid><extension> and returns its path.
func (s *TempStore) Allocate(extension string) (string, error) {
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}

	for range allocateAttempts {
		id, err := uuid.NewV4()
		if err != nil {
			return "", fmt.Errorf("%w: generating temp name: %w", domain.ErrResourceUnavailable, err)
		}

		path := filepath.Join(s.dir, s.prefix+id.String()+extension)

		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			log.Debug().Str("path", path).Msg("temp name taken, retrying")
			continue
		}
		if err != nil {
			err = fmt.Errorf("%w: creating temp file: %w", domain.ErrResourceUnavailable, err)
			log.Error().Err(err).Send()
			return "", err
		}

		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("%w: closing temp file: %w", domain.ErrResourceUnavailable, err)
		}

		log.Debug().Str("path", path).Msg("allocated temp file")

		return path, nil
	}

	return "", fmt.Errorf("%w: no free temp name after %d attempts", domain.ErrResourceUnavailable, allocateAttempts)
}

func (s *TempStore) Size(path string) (int64, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	return stat.Size(), nil
}

// Remove deletes the file at path and logs success or failure. A missing file is not an error.
func (s *TempStore) Remove(path string) {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msg("could not clean up temp file")
		return
	}
	log.Debug().Str("path", path).Msg("cleaned up temp file")
}

// Fetch downloads url into a freshly allocated temp file.
func (s *TempStore) Fetch(ctx context.Context, url, extension string) (string, error) {
	data, err := DownloadFile(ctx, url)
	if err != nil {
		return "", err
	}

	path, err := s.Allocate(extension)
	if err != nil {
		return "", err
	}

	log.Debug().Int("bytes", len(data)).Str("path", path).Msg("writing downloaded file")

	if err := os.WriteFile(path, data, 0o600); err != nil {
		s.Remove(path)
		return "", fmt.Errorf("%w: writing temp file: %w", domain.ErrResourceUnavailable, err)
	}

	return path, nil
}
