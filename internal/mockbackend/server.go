// Package mockbackend is a stand-in for the weapon detection backend. It serves the
// same endpoints as the real service with a deterministic detector so the client can be
// exercised without a model.
package mockbackend

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"log"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tendant/weapon-detection-client/pkg/detection"
)

// HighConfidence is the threshold above which a detection raises a critical alert
const HighConfidence = 0.8

// DetectFunc produces detections for a decoded image
type DetectFunc func(img image.Image) []detection.Detection

// Options configures the mock backend
type Options struct {
	// ModelLoaded is reported by /health; when false /predict fails
	ModelLoaded bool

	// Detect overrides the built-in detector
	Detect DetectFunc
}

type storedAlert struct {
	alert        detection.Alert
	acknowledged bool
}

// Server implements the backend endpoints
type Server struct {
	mu          sync.Mutex
	modelLoaded bool
	detect      DetectFunc
	alerts      []*storedAlert
	nextAlertID int64
	nextDetID   int64
}

// New creates a mock backend
func New(opts Options) *Server {
	detect := opts.Detect
	if detect == nil {
		detect = CenterKnife
	}
	return &Server{
		modelLoaded: opts.ModelLoaded,
		detect:      detect,
		nextAlertID: 1,
		nextDetID:   1,
	}
}

// CenterKnife reports a single knife over the central quarter of the image
func CenterKnife(img image.Image) []detection.Detection {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	return []detection.Detection{{
		Class:      "knife",
		Confidence: 0.932,
		BBox:       []int{b.Min.X + w/4, b.Min.Y + h/4, b.Min.X + 3*w/4, b.Min.Y + 3*h/4},
	}}
}

// SetModelLoaded toggles the reported model state
func (s *Server) SetModelLoaded(loaded bool) {
	s.mu.Lock()
	s.modelLoaded = loaded
	s.mu.Unlock()
}

// Router returns the HTTP handler serving all endpoints
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post(detection.PathPredict, s.HandlePredict)
	r.Get(detection.PathHealth, s.HandleHealth)
	r.Get(detection.PathAlerts, s.HandleAlerts)
	r.Post(detection.PathAcknowledgeAlert+"{alertID}", s.HandleAcknowledge)

	return r
}

// HandlePredict handles POST /predict
func (s *Server) HandlePredict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(detection.MaxUploadBytes + 1<<20); err != nil {
		respondJSON(w, map[string]string{"error": "Failed to parse form"}, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile(detection.ImageField)
	if err != nil {
		respondJSON(w, map[string]string{"error": "No image file provided"}, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		respondJSON(w, map[string]string{"error": "No image selected"}, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	loaded := s.modelLoaded
	s.mu.Unlock()
	if !loaded {
		respondJSON(w, map[string]string{"error": "Failed to load model"}, http.StatusInternalServerError)
		return
	}

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		respondJSON(w, map[string]string{"error": fmt.Sprintf("Prediction failed: %v", err)}, http.StatusInternalServerError)
		return
	}

	detections := s.detect(img)
	annotated := annotate(img, detections)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, annotated, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		respondJSON(w, map[string]string{"error": fmt.Sprintf("Prediction failed: %v", err)}, http.StatusInternalServerError)
		return
	}

	detID, alerts := s.recordDetection(detections)
	log.Printf("[mock] /predict %s: %d detection(s), detection_id=%d", header.Filename, len(detections), detID)

	respondJSON(w, detection.PredictResponse{
		Success:         true,
		TotalDetections: len(detections),
		Detections:      detections,
		AnnotatedImage:  base64.StdEncoding.EncodeToString(buf.Bytes()),
		Alerts:          alerts,
		DetectionID:     detID,
	}, http.StatusOK)
}

// recordDetection stores the alerts raised by a detection and returns the ones to echo back
func (s *Server) recordDetection(detections []detection.Detection) (int64, []detection.PredictionAlert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	detID := s.nextDetID
	s.nextDetID++

	if len(detections) == 0 {
		return detID, nil
	}

	now := time.Now().UTC().Format("2006-01-02T15:04:05.000000")
	created := []detection.PredictionAlert{{
		Type:     "weapon_detected",
		Message:  fmt.Sprintf("🚨 WEAPON DETECTED! %d object(s) found", len(detections)),
		Severity: detection.SeverityHigh,
	}}
	s.addAlert("weapon_detected", fmt.Sprintf("Weapon detected with %d object(s) found", len(detections)), now)

	high := 0
	for _, d := range detections {
		if d.Confidence > HighConfidence {
			high++
		}
	}
	if high > 0 {
		created = append(created, detection.PredictionAlert{
			Type:     "high_confidence",
			Message:  fmt.Sprintf("⚠️ HIGH CONFIDENCE: %d weapon(s) detected with >80%% confidence", high),
			Severity: detection.SeverityCritical,
		})
		s.addAlert("high_confidence", fmt.Sprintf("High confidence weapon detection: %d object(s) with >80%% confidence", high), now)
	}

	return detID, created
}

func (s *Server) addAlert(alertType, message, timestamp string) {
	severity := detection.SeverityCritical
	if alertType == "weapon_detected" {
		severity = detection.SeverityHigh
	}
	s.alerts = append(s.alerts, &storedAlert{alert: detection.Alert{
		ID:        s.nextAlertID,
		Type:      alertType,
		Message:   message,
		Timestamp: timestamp,
		Severity:  severity,
	}})
	s.nextAlertID++
}

// HandleHealth handles GET /health
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	loaded := s.modelLoaded
	s.mu.Unlock()

	respondJSON(w, detection.HealthStatus{Status: "healthy", ModelLoaded: loaded}, http.StatusOK)
}

// HandleAlerts handles GET /api/alerts - newest ten unacknowledged alerts
func (s *Server) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	pending := make([]detection.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if !a.acknowledged {
			pending = append(pending, a.alert)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(pending, func(i, j int) bool { return pending[i].ID > pending[j].ID })
	if len(pending) > 10 {
		pending = pending[:10]
	}

	respondJSON(w, pending, http.StatusOK)
}

// HandleAcknowledge handles POST /api/acknowledge_alert/{alertID}
func (s *Server) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	alertID, err := strconv.ParseInt(chi.URLParam(r, "alertID"), 10, 64)
	if err != nil {
		respondJSON(w, detection.AckResponse{Error: "Invalid alert id"}, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.alert.ID == alertID {
			a.acknowledged = true
			respondJSON(w, detection.AckResponse{Success: true}, http.StatusOK)
			return
		}
	}

	respondJSON(w, detection.AckResponse{Error: "Alert not found"}, http.StatusNotFound)
}

// annotate outlines each detection box in red
func annotate(img image.Image, detections []detection.Detection) *image.NRGBA {
	out := imaging.Clone(img)
	red := color.NRGBA{R: 255, A: 255}
	b := out.Bounds()

	for _, d := range detections {
		if len(d.BBox) != 4 {
			continue
		}
		x1, y1, x2, y2 := d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3]
		for t := 0; t < 2; t++ {
			for x := x1; x <= x2; x++ {
				setIn(out, b, x, y1+t, red)
				setIn(out, b, x, y2-t, red)
			}
			for y := y1; y <= y2; y++ {
				setIn(out, b, x1+t, y, red)
				setIn(out, b, x2-t, y, red)
			}
		}
	}
	return out
}

func setIn(img *image.NRGBA, b image.Rectangle, x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(b) {
		img.SetNRGBA(x, y, c)
	}
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
