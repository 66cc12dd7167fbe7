// Package render turns controller views into text sections.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tendant/weapon-detection-client/internal/submission"
	"github.com/tendant/weapon-detection-client/pkg/detection"
)

// Section names
const (
	SectionPreview = "preview"
	SectionLoading = "loading"
	SectionResult  = "result"
	SectionError   = "error"
)

// NoDetectionsMessage is shown for a successful result without detections
const NoDetectionsMessage = "No weapons detected in the image."

var sectionOrder = []string{SectionPreview, SectionLoading, SectionResult, SectionError}

type section struct {
	visible bool
	lines   []string
}

// Screen keeps one text block per section and shows exactly the one matching the view's
// state. Every Render replaces all section content.
type Screen struct {
	mu       sync.Mutex
	sections map[string]*section
	out      io.Writer
}

// NewScreen creates a screen; when out is non-nil the visible section is written to it
// after every render.
func NewScreen(out io.Writer) *Screen {
	s := &Screen{sections: make(map[string]*section), out: out}
	for _, name := range sectionOrder {
		s.sections[name] = &section{}
	}
	return s
}

// Render implements submission.Renderer
func (s *Screen) Render(v submission.View) {
	s.mu.Lock()
	for _, sec := range s.sections {
		sec.visible = false
	}

	// Content is rebuilt from the view alone so repeated renders never accumulate
	s.sections[SectionPreview].lines = previewLines(v)
	s.sections[SectionLoading].lines = loadingLines(v)
	s.sections[SectionResult].lines = ResultLines(v.Result)
	s.sections[SectionError].lines = errorLines(v)

	if name := sectionFor(v.State); name != "" {
		s.sections[name].visible = true
	}
	text := s.textLocked()
	s.mu.Unlock()

	if s.out != nil {
		fmt.Fprint(s.out, text)
	}
}

// Visible returns the name of the visible section, or "" when none is shown
func (s *Screen) Visible() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range sectionOrder {
		if s.sections[name].visible {
			return name
		}
	}
	return ""
}

// Lines returns the content of a section, visible or not
func (s *Screen) Lines(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, ok := s.sections[name]
	if !ok {
		return nil
	}
	return append([]string(nil), sec.lines...)
}

// String returns the visible section as text
func (s *Screen) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textLocked()
}

func (s *Screen) textLocked() string {
	var b strings.Builder
	for _, name := range sectionOrder {
		sec := s.sections[name]
		if !sec.visible {
			continue
		}
		for _, line := range sec.lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sectionFor(state submission.State) string {
	switch state {
	case submission.PreviewReady:
		return SectionPreview
	case submission.Submitting:
		return SectionLoading
	case submission.ResultReady:
		return SectionResult
	case submission.Failed:
		return SectionError
	default:
		return ""
	}
}

func previewLines(v submission.View) []string {
	if v.File == nil {
		return nil
	}
	lines := []string{fmt.Sprintf("Selected: %s (%s, %s)", v.File.Name, v.File.ContentType, humanSize(v.File.Size))}
	if v.Preview == "" {
		lines = append(lines, "Preview: loading")
	} else {
		lines = append(lines, fmt.Sprintf("Preview: ready (%d chars)", len(v.Preview)))
	}
	return lines
}

func loadingLines(v submission.View) []string {
	if v.File == nil {
		return []string{"Detecting..."}
	}
	return []string{fmt.Sprintf("Detecting weapons in %s...", v.File.Name)}
}

func errorLines(v submission.View) []string {
	if v.Error == "" {
		return nil
	}
	return []string{"Error: " + v.Error}
}

// ResultLines formats a detection result: count, one line per detection, annotated image size
func ResultLines(r *detection.Result) []string {
	if r == nil {
		return nil
	}
	lines := []string{fmt.Sprintf("Detections: %d", r.TotalDetections)}
	if len(r.Detections) == 0 {
		lines = append(lines, NoDetectionsMessage)
	} else {
		lines = append(lines, "Detection Details:")
		for _, d := range r.Detections {
			lines = append(lines, fmt.Sprintf("  %s %s", d.Class, detection.FormatConfidence(d.Confidence)))
		}
	}
	lines = append(lines, fmt.Sprintf("Annotated image: %s", humanSize(int64(len(r.AnnotatedImage)))))
	return lines
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
