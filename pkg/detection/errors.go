package detection

import "errors"

// Kind classifies a failure surfaced to the user
type Kind string

const (
	KindInvalidFile     Kind = "InvalidFile"
	KindFileTooLarge    Kind = "FileTooLarge"
	KindNoFileSelected  Kind = "NoFileSelected"
	KindNetworkError    Kind = "NetworkError"
	KindDetectionFailed Kind = "DetectionFailed"
)

var (
	// ErrInvalidFile is returned when the file does not declare an image/* media type
	ErrInvalidFile = errors.New("invalid file")

	// ErrFileTooLarge is returned when the file exceeds MaxUploadBytes
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoFileSelected is returned when submitting without a selected file
	ErrNoFileSelected = errors.New("no file selected")

	// ErrNetwork is returned when the backend cannot be reached or its response is malformed
	ErrNetwork = errors.New("network error")

	// ErrDetectionFailed is returned when the backend reports success=false
	ErrDetectionFailed = errors.New("detection failed")
)

// User-facing fallback messages
const (
	MsgInvalidFile     = "Please select a valid image file."
	MsgFileTooLarge    = "File size too large. Please select an image smaller than 16MB."
	MsgNoFileSelected  = "Please select an image first."
	MsgNetworkError    = "Network error. Please check your connection and try again."
	MsgDetectionFailed = "Detection failed. Please try again."
)

var sentinels = map[Kind]error{
	KindInvalidFile:     ErrInvalidFile,
	KindFileTooLarge:    ErrFileTooLarge,
	KindNoFileSelected:  ErrNoFileSelected,
	KindNetworkError:    ErrNetwork,
	KindDetectionFailed: ErrDetectionFailed,
}

// Error carries a failure kind, the message shown to the user and an optional cause
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// NewError creates an Error of the given kind
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf returns the kind of err, or "" if err is not an *Error
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// MessageOf returns the user-facing message carried by err
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
