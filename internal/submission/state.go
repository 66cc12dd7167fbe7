package submission

import (
	"github.com/tendant/weapon-detection-client/internal/intake"
	"github.com/tendant/weapon-detection-client/pkg/detection"
)

// State selects which section of the view is visible
type State int

const (
	Idle State = iota
	PreviewReady
	Submitting
	ResultReady
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case PreviewReady:
		return "PreviewReady"
	case Submitting:
		return "Submitting"
	case ResultReady:
		return "ResultReady"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// FileInfo describes the selected file without its payload
type FileInfo struct {
	Name        string
	ContentType string
	Size        int64
}

// View is an immutable snapshot handed to the renderer
type View struct {
	State State
	File  *FileInfo

	// Preview is a data URI, empty until the asynchronous decode completes
	Preview string

	Result *detection.Result
	Error  string
}

func fileInfo(f *intake.SelectedFile) *FileInfo {
	if f == nil {
		return nil
	}
	return &FileInfo{Name: f.Name, ContentType: f.ContentType, Size: f.Size}
}
