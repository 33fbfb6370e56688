package cmd

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir string, width, height int) string {
	t.Helper()

	path := filepath.Join(dir, "src.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, width, height))))

	return path
}

func TestParseSize(t *testing.T) {
	testCases := []struct {
		description string
		size        string
		wantWidth   int
		wantHeight  int
		wantErr     bool
	}{
		{description: "plain", size: "1200x800", wantWidth: 1200, wantHeight: 800},
		{description: "upper case separator", size: "640X480", wantWidth: 640, wantHeight: 480},
		{description: "missing separator", size: "1200", wantErr: true},
		{description: "non numeric", size: "axb", wantErr: true},
		{description: "zero height", size: "10x0", wantErr: true},
		{description: "negative width", size: "-1x10", wantErr: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			w, h, err := parseSize(testCase.size)
			if testCase.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, testCase.wantWidth, w)
			assert.Equal(t, testCase.wantHeight, h)
		})
	}
}

func TestProbeSource(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, 120, 80)

	info, err := probeSource(path, "")
	require.NoError(t, err)
	assert.Equal(t, sourceInfo{width: 120, height: 80, mimeType: "image/png"}, info)
}

func TestProbeSourceExplicitSize(t *testing.T) {
	info, err := probeSource("/nonexistent/photo.webp", "300x200")
	require.NoError(t, err)
	assert.Equal(t, 300, info.width)
	assert.Equal(t, 200, info.height)
	assert.Equal(t, "image/webp", info.mimeType)
}

func TestProbeSourceUndecodable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.webp")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o600))

	_, err := probeSource(path, "")
	require.ErrorContains(t, err, "--source-size")
}
