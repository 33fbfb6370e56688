package port

import "context"

type FileStore interface {
	// Allocate reserves a new, uniquely named temporary file with the given extension and returns its path.
	Allocate(extension string) (string, error)
	// Size returns the size in bytes of the file at path.
	Size(path string) (int64, error)
	// Remove deletes the file at path. Missing files are ignored.
	Remove(path string)
}

type Fetcher interface {
	// Fetch downloads url into a newly allocated temporary file and returns its path.
	Fetch(ctx context.Context, url, extension string) (string, error)
}
