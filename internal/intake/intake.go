package intake

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/weapon-detection-client/pkg/detection"
)

// RawFile is a user-chosen file before validation
type RawFile interface {
	// Name is the file name reported to the backend
	Name() string

	// ContentType is the declared media type, e.g. "image/png"
	ContentType() string

	// Size is the declared size in bytes
	Size() int64

	// Open returns a reader over the file contents
	Open() (io.ReadCloser, error)
}

// SelectedFile is a validated image ready for submission
type SelectedFile struct {
	ID          uuid.UUID
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// Select validates raw and loads its contents. The media type is checked before the size.
// RawFile implementations must tolerate a nil receiver by reporting an empty media type,
// which Select rejects as an invalid file.
func Select(raw RawFile) (*SelectedFile, error) {
	if raw == nil || !strings.HasPrefix(strings.ToLower(raw.ContentType()), "image/") {
		return nil, detection.NewError(detection.KindInvalidFile, detection.MsgInvalidFile, nil)
	}

	if raw.Size() > detection.MaxUploadBytes {
		return nil, detection.NewError(detection.KindFileTooLarge, detection.MsgFileTooLarge, nil)
	}

	rc, err := raw.Open()
	if err != nil {
		return nil, detection.NewError(detection.KindInvalidFile, detection.MsgInvalidFile,
			fmt.Errorf("failed to open %s: %w", raw.Name(), err))
	}
	defer rc.Close()

	// Read one byte past the limit so an understated size is still caught
	data, err := io.ReadAll(io.LimitReader(rc, detection.MaxUploadBytes+1))
	if err != nil {
		return nil, detection.NewError(detection.KindInvalidFile, detection.MsgInvalidFile,
			fmt.Errorf("failed to read %s: %w", raw.Name(), err))
	}
	if len(data) > detection.MaxUploadBytes {
		return nil, detection.NewError(detection.KindFileTooLarge, detection.MsgFileTooLarge, nil)
	}

	return &SelectedFile{
		ID:          uuid.New(),
		Name:        raw.Name(),
		ContentType: raw.ContentType(),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

// MemoryFile is a RawFile backed by a byte slice
type MemoryFile struct {
	FileName     string
	DeclaredType string
	Data         []byte

	// DeclaredSize overrides len(Data) when non-zero
	DeclaredSize int64
}

func (f *MemoryFile) Name() string {
	if f == nil {
		return ""
	}
	return f.FileName
}

func (f *MemoryFile) ContentType() string {
	if f == nil {
		return ""
	}
	return f.DeclaredType
}

func (f *MemoryFile) Size() int64 {
	if f == nil {
		return 0
	}
	if f.DeclaredSize != 0 {
		return f.DeclaredSize
	}
	return int64(len(f.Data))
}

func (f *MemoryFile) Open() (io.ReadCloser, error) {
	if f == nil {
		return nil, errors.New("no file")
	}
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}
