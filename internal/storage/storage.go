package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/tendant/weapon-detection-client/pkg/detection"
)

// ErrNotFound is returned when no file exists at a key
var ErrNotFound = errors.New("file not found")

// Reader provides read access to stored images
type Reader interface {
	// GetReader returns a reader for the content at the given key
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if content exists at the given key
	Exists(ctx context.Context, key string) (bool, error)
}

// Metadata describes a stored image before it is read
type Metadata struct {
	Size        int64
	ContentType string
}

// ReaderWithMetadata provides read access with metadata
type ReaderWithMetadata interface {
	Reader

	// GetMetadata returns metadata for content at the given key
	GetMetadata(ctx context.Context, key string) (*Metadata, error)
}

// ResultWriter stores annotated detection results
type ResultWriter interface {
	SaveResult(ctx context.Context, name string, result *detection.Result) (string, error)
}

// File is a stored image exposed as an intake.RawFile. Its contents are read through
// the source it was opened from, so key checks apply to every read.
type File struct {
	src         Reader
	key         string
	contentType string
	size        int64
}

// OpenFile looks up key in src and returns it ready for selection
func OpenFile(ctx context.Context, src ReaderWithMetadata, key string) (*File, error) {
	ok, err := src.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	meta, err := src.GetMetadata(ctx, key)
	if err != nil {
		return nil, err
	}

	return &File{
		src:         src,
		key:         key,
		contentType: meta.ContentType,
		size:        meta.Size,
	}, nil
}

// A nil *File reports no name, no type and fails to open, so intake rejects it.

func (f *File) Name() string {
	if f == nil {
		return ""
	}
	return path.Base(f.key)
}

func (f *File) ContentType() string {
	if f == nil {
		return ""
	}
	return f.contentType
}

func (f *File) Size() int64 {
	if f == nil {
		return 0
	}
	return f.size
}

func (f *File) Open() (io.ReadCloser, error) {
	if f == nil || f.src == nil {
		return nil, errors.New("no file")
	}
	return f.src.GetReader(context.Background(), f.key)
}
