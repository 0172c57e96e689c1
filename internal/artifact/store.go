// Package artifact moves model files between remote stores and the local disk.
package artifact

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	// ErrNotFound is returned when an object or prefix does not exist.
	ErrNotFound = errors.New("artifact not found")
	// ErrReadOnly is returned by stores that do not accept uploads.
	ErrReadOnly = errors.New("artifact store is read-only")
)

// Entry is one object in a store listing. Names use forward slashes and
// include the listed prefix.
type Entry struct {
	Name string
	Size int64
}

// IsDir reports whether the entry is a directory marker.
func (e Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

// Store is a flat object store addressed by slash-separated names.
type Store interface {
	List(ctx context.Context, prefix string) ([]Entry, error)
	Download(ctx context.Context, name string, w io.Writer) error
	Upload(ctx context.Context, name string, r io.Reader) error
}
