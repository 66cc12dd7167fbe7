// Package submission drives the select, preview, submit and render cycle for one image
// at a time.
package submission

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/weapon-detection-client/internal/intake"
	"github.com/tendant/weapon-detection-client/internal/metrics"
	"github.com/tendant/weapon-detection-client/internal/notify"
	"github.com/tendant/weapon-detection-client/pkg/detection"
)

// ErrSuperseded is returned to the waiter of a submission whose response arrived after a
// newer selection or submission took over. The view is left untouched.
var ErrSuperseded = errors.New("submission superseded")

// API is the part of the backend the controller talks to
type API interface {
	Predict(ctx context.Context, fileName, contentType string, data []byte) (*detection.PredictResponse, error)
	Health(ctx context.Context) (*detection.HealthStatus, error)
}

// Renderer draws a view
type Renderer interface {
	Render(v View)
}

// Notifier shows transient messages
type Notifier interface {
	Notify(message, severity string, ttl time.Duration) *notify.Handle
}

// Options wires optional collaborators; nil fields are skipped
type Options struct {
	Renderer Renderer
	Notifier Notifier
	Metrics  *metrics.Metrics
}

// Controller owns the client state for a single image slot
type Controller struct {
	api      API
	renderer Renderer
	notifier Notifier
	metrics  *metrics.Metrics

	mu       sync.Mutex
	state    State
	file     *intake.SelectedFile
	preview  string
	result   *detection.Result
	errMsg   string
	token    uuid.UUID // authoritative submission; uuid.Nil when none
	inflight *Submission

	seq         uint64 // bumped for every view handed to the renderer
	renderMu    sync.Mutex
	renderedSeq uint64
}

// New creates a controller in the Idle state
func New(api API, opts Options) *Controller {
	return &Controller{
		api:      api,
		renderer: opts.Renderer,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		state:    Idle,
	}
}

// View returns the current snapshot
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SelectFile validates raw and makes it the selected file. On a validation error nothing
// changes; the message is only shown as a notification.
func (c *Controller) SelectFile(raw intake.RawFile) (*intake.SelectedFile, error) {
	f, err := intake.Select(raw)
	if err != nil {
		c.metrics.ObserveSelection(string(detection.KindOf(err)))
		log.Printf("File rejected: %v", err)
		c.notify(detection.MessageOf(err), detection.SeverityError, notify.ErrorTTL)
		return nil, err
	}
	c.metrics.ObserveSelection("accepted")

	c.mu.Lock()
	c.file = f
	c.preview = ""
	c.result = nil
	c.errMsg = ""
	c.token = uuid.Nil
	c.inflight = nil
	c.state = PreviewReady
	v, seq := c.snapshotLocked()
	c.mu.Unlock()

	log.Printf("[%s] Selected %s (%s, %d bytes)", f.ID, f.Name, f.ContentType, f.Size)
	c.render(v, seq)

	go c.decodePreview(f)
	return f, nil
}

func (c *Controller) decodePreview(f *intake.SelectedFile) {
	uri, err := intake.DecodePreview(f.Data)
	if err != nil {
		log.Printf("[%s] Preview decode failed: %v", f.ID, err)
		return
	}

	c.mu.Lock()
	if c.file == nil || c.file.ID != f.ID {
		c.mu.Unlock()
		return
	}
	c.preview = uri
	show := c.state == PreviewReady
	v, seq := c.snapshotLocked()
	c.mu.Unlock()

	if show {
		c.render(v, seq)
	}
}

// Reset clears the selection, any result or error, and revokes the in-flight submission
func (c *Controller) Reset() {
	c.mu.Lock()
	c.file = nil
	c.preview = ""
	c.result = nil
	c.errMsg = ""
	c.token = uuid.Nil
	c.inflight = nil
	c.state = Idle
	v, seq := c.snapshotLocked()
	c.mu.Unlock()

	c.render(v, seq)
}

// Submit sends the selected file to the backend. While a submission is in flight it
// returns that submission and does nothing else. Without a selected file it fails with
// NoFileSelected and issues no request.
func (c *Controller) Submit(ctx context.Context) (*Submission, error) {
	c.mu.Lock()
	if c.state == Submitting && c.inflight != nil {
		s := c.inflight
		c.mu.Unlock()
		return s, nil
	}

	if c.file == nil {
		err := detection.NewError(detection.KindNoFileSelected, detection.MsgNoFileSelected, nil)
		c.result = nil
		c.errMsg = err.Message
		c.state = Failed
		v, seq := c.snapshotLocked()
		c.mu.Unlock()

		c.metrics.ObserveSubmission(metrics.OutcomeNoFile, 0)
		c.render(v, seq)
		c.notify(err.Message, detection.SeverityError, notify.ErrorTTL)
		return nil, err
	}

	s := newSubmission(uuid.New())
	f := c.file
	c.token = s.Token
	c.inflight = s
	c.result = nil
	c.errMsg = ""
	c.state = Submitting
	v, seq := c.snapshotLocked()
	c.mu.Unlock()

	log.Printf("[%s] Submitting %s (%d bytes)", s.Token, f.Name, f.Size)
	c.render(v, seq)

	go c.run(ctx, s, f)
	return s, nil
}

func (c *Controller) run(ctx context.Context, s *Submission, f *intake.SelectedFile) {
	start := time.Now()
	resp, err := c.api.Predict(ctx, f.Name, f.ContentType, f.Data)
	result, err := decodeResponse(resp, err)
	c.finish(s, result, err, time.Since(start))
}

// decodeResponse maps a backend reply onto a result or a classified error
func decodeResponse(resp *detection.PredictResponse, err error) (*detection.Result, error) {
	if err != nil {
		return nil, detection.NewError(detection.KindNetworkError, detection.MsgNetworkError, err)
	}
	if resp == nil {
		return nil, detection.NewError(detection.KindNetworkError, detection.MsgNetworkError, errors.New("empty response"))
	}

	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = detection.MsgDetectionFailed
		}
		return nil, detection.NewError(detection.KindDetectionFailed, msg, nil)
	}

	if resp.TotalDetections < 0 {
		return nil, detection.NewError(detection.KindNetworkError, detection.MsgNetworkError,
			fmt.Errorf("negative total_detections %d", resp.TotalDetections))
	}
	if resp.TotalDetections != len(resp.Detections) {
		return nil, detection.NewError(detection.KindNetworkError, detection.MsgNetworkError,
			fmt.Errorf("total_detections %d does not match %d detections", resp.TotalDetections, len(resp.Detections)))
	}
	for i, d := range resp.Detections {
		if d.Confidence < 0 || d.Confidence > 1 {
			return nil, detection.NewError(detection.KindNetworkError, detection.MsgNetworkError,
				fmt.Errorf("detection %d: confidence %v outside [0,1]", i, d.Confidence))
		}
	}

	annotated, err := base64.StdEncoding.DecodeString(resp.AnnotatedImage)
	if err != nil {
		return nil, detection.NewError(detection.KindNetworkError, detection.MsgNetworkError,
			fmt.Errorf("failed to decode annotated image: %w", err))
	}

	detections := make([]detection.Detection, len(resp.Detections))
	copy(detections, resp.Detections)

	return &detection.Result{
		TotalDetections: resp.TotalDetections,
		Detections:      detections,
		AnnotatedImage:  annotated,
		Alerts:          resp.Alerts,
		DetectionID:     resp.DetectionID,
	}, nil
}

func (c *Controller) finish(s *Submission, result *detection.Result, err error, elapsed time.Duration) {
	c.mu.Lock()
	if c.token != s.Token {
		c.mu.Unlock()
		log.Printf("[%s] Discarding stale response", s.Token)
		c.metrics.ObserveSubmission(metrics.OutcomeStale, elapsed)
		s.complete(nil, ErrSuperseded)
		return
	}

	c.inflight = nil
	if err != nil {
		c.result = nil
		c.errMsg = detection.MessageOf(err)
		c.state = Failed
	} else {
		c.result = result
		c.errMsg = ""
		c.state = ResultReady
	}
	v, seq := c.snapshotLocked()
	c.mu.Unlock()

	c.render(v, seq)

	if err != nil {
		log.Printf("[%s] Detection failed after %v: %v", s.Token, elapsed, err)
		if detection.KindOf(err) == detection.KindDetectionFailed {
			c.metrics.ObserveSubmission(metrics.OutcomeDetectionFailed, elapsed)
		} else {
			c.metrics.ObserveSubmission(metrics.OutcomeNetworkError, elapsed)
		}
		c.notify(v.Error, detection.SeverityError, notify.ErrorTTL)
	} else {
		log.Printf("[%s] Detection completed in %v: %d object(s)", s.Token, elapsed, result.TotalDetections)
		c.metrics.ObserveSubmission(metrics.OutcomeSuccess, elapsed)
		for _, a := range result.Alerts {
			c.notify(a.Message, a.Severity, notify.AlertTTL)
		}
	}

	s.complete(result, err)
}

// CheckModelStatus queries /health and logs when the model is not ready. It never
// changes the view.
func (c *Controller) CheckModelStatus(ctx context.Context) (*detection.HealthStatus, error) {
	status, err := c.api.Health(ctx)
	if err != nil {
		log.Printf("Health check failed: %v", err)
		return nil, err
	}
	if !status.ModelLoaded {
		log.Printf("Model not loaded yet. Detection may fail.")
	}
	return status, nil
}

func (c *Controller) viewLocked() View {
	return View{
		State:   c.state,
		File:    fileInfo(c.file),
		Preview: c.preview,
		Result:  c.result,
		Error:   c.errMsg,
	}
}

func (c *Controller) snapshotLocked() (View, uint64) {
	c.seq++
	return c.viewLocked(), c.seq
}

// render draws v unless a newer view has already been drawn
func (c *Controller) render(v View, seq uint64) {
	if c.renderer == nil {
		return
	}
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	if seq <= c.renderedSeq {
		return
	}
	c.renderedSeq = seq
	c.renderer.Render(v)
}

func (c *Controller) notify(message, severity string, ttl time.Duration) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(message, severity, ttl)
	c.metrics.IncNotifications(severity)
}
