package executor

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog/log"
)

var ErrBinaryNotFound = errors.New("binary not available")

// ResolveBinary returns the absolute path of the first candidate found on PATH. Candidates
// containing a path separator are checked as given.
func ResolveBinary(candidates ...string) (string, error) {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}

		path, err := exec.LookPath(candidate)
		if err != nil {
			log.Debug().Str("binary", candidate).Err(err).Msg("binary not found")
			continue
		}

		log.Debug().Str("binary", candidate).Str("path", path).Msg("binary found")
		return path, nil
	}

	return "", fmt.Errorf("%w: tried %v", ErrBinaryNotFound, candidates)
}
