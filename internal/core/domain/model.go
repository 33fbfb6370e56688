package domain

import (
	"fmt"
	"time"
)

type Message struct {
	ID          int
	ChatID      int64
	Username    string
	ImageURL    string
	ImageWidth  int
	ImageHeight int
	Text        string
}

type Action string

const (
	Typing       Action = "typing"
	SendingPhoto Action = "sending_photo"
)

// ScalerParameters is the normalized description of a single transform. Fields are
// filled in by the caller; the scaler only checks that the required ones are present.
type ScalerParameters struct {
	PhysicalWidth  int
	PhysicalHeight int
	ClientWidth    int
	ClientHeight   int
	SrcWidth       int
	SrcHeight      int
	SrcPath        string
	// DstPath is optional. When empty the scaler allocates a temporary destination.
	DstPath   string
	MimeType  string
	Comment   string
	Interlace bool
}

// PhysicalDimensions renders the target size the way vipsthumbnail expects it.
func (p ScalerParameters) PhysicalDimensions() string {
	return fmt.Sprintf("%dx%d", p.PhysicalWidth, p.PhysicalHeight)
}

// Format holds the tool options configured for one MIME type.
type Format struct {
	Arguments     []Arg
	OutputOptions []string
	// Intermediate is the extension of a temporary file written by a first shrink
	// stage. Empty means the transform runs as a single stage.
	Intermediate string
}

// Arg is a single flag passed to the external tool. An empty Value yields a bare switch.
type Arg struct {
	Name  string
	Value string
}

type Limits struct {
	// MaxFileSize is the largest file the child may write, in bytes. Zero disables the limit.
	MaxFileSize int64
	// WatchPath is polled while the child runs and must not grow past MaxFileSize.
	WatchPath    string
	PollInterval time.Duration
}

type Invocation struct {
	Tokens []string
	Env    map[string]string
	Limits Limits
}

type ExecutionResult struct {
	ExitCode       int
	CombinedOutput string
}

func (r ExecutionResult) Succeeded() bool {
	return r.ExitCode == 0
}

var extensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/tiff":    ".tif",
	"image/heif":    ".heic",
}

// ExtensionForMime returns the file extension used for scaled output of the given type.
func ExtensionForMime(mimeType string) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}

	return ".jpg"
}
