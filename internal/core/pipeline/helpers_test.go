package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"vipsscaler/internal/core/domain"
)

type dirStore struct {
	dir string
	n   int
}

func newDirStore(t *testing.T) *dirStore {
	t.Helper()
	return &dirStore{dir: t.TempDir()}
}

func (s *dirStore) Allocate(extension string) (string, error) {
	s.n++
	path := filepath.Join(s.dir, fmt.Sprintf("vips_%d%s", s.n, extension))
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func (s *dirStore) Size(path string) (int64, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

func (s *dirStore) Remove(path string) {
	_ = os.Remove(path)
}

func (s *dirStore) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// MockRunner writes content to the path following "-o" and reports the next exit code.
type MockRunner struct {
	calls     [][]string
	exitCodes []int
	content   []byte
	output    string
	err       error
}

func (m *MockRunner) Run(_ context.Context, inv domain.Invocation) (domain.ExecutionResult, error) {
	m.calls = append(m.calls, inv.Tokens)

	code := 0
	if len(m.exitCodes) >= len(m.calls) {
		code = m.exitCodes[len(m.calls)-1]
	}

	if m.err != nil {
		return domain.ExecutionResult{ExitCode: -1}, m.err
	}

	out := outputPath(inv.Tokens)
	data := m.content
	if code != 0 {
		data = []byte("partial")
	}
	if data != nil {
		if err := os.WriteFile(out, data, 0o600); err != nil {
			return domain.ExecutionResult{}, err
		}
	}

	return domain.ExecutionResult{ExitCode: code, CombinedOutput: m.output}, nil
}

func outputPath(tokens []string) string {
	for i, tok := range tokens {
		if tok == "-o" && i+1 < len(tokens) {
			out := tokens[i+1]
			if idx := strings.Index(out, "["); idx >= 0 {
				out = out[:idx]
			}
			return out
		}
	}
	return ""
}
