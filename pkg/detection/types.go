package detection

import "fmt"

// MaxUploadBytes is the largest image accepted for submission (16 MiB)
const MaxUploadBytes = 16 * 1024 * 1024

// ImageField is the multipart field name the backend reads the upload from
const ImageField = "image"

// Endpoint paths exposed by the detection backend
const (
	PathPredict          = "/predict"
	PathHealth           = "/health"
	PathAlerts           = "/api/alerts"
	PathAcknowledgeAlert = "/api/acknowledge_alert/"
)

// Severity constants used by backend alerts and local notifications
const (
	SeverityInfo     = "info"
	SeverityError    = "error"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Detection is one predicted object instance
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	BBox       []int   `json:"bbox,omitempty"` // x1, y1, x2, y2
}

// PredictionAlert is an alert raised by the backend for a single prediction
type PredictionAlert struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// PredictResponse is the body returned by POST /predict
type PredictResponse struct {
	Success         bool              `json:"success"`
	TotalDetections int               `json:"total_detections,omitempty"`
	Detections      []Detection       `json:"detections,omitempty"`
	AnnotatedImage  string            `json:"annotated_image,omitempty"` // base64 JPEG
	Alerts          []PredictionAlert `json:"alerts,omitempty"`
	DetectionID     int64             `json:"detection_id,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// HealthStatus is the body returned by GET /health
type HealthStatus struct {
	Status      string `json:"status,omitempty"`
	ModelLoaded bool   `json:"model_loaded"`
}

// Alert is one entry of GET /api/alerts
type Alert struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Severity  string `json:"severity"`
}

// AckResponse is the body returned by POST /api/acknowledge_alert/{id}
type AckResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Result is a decoded, successful detection
type Result struct {
	TotalDetections int
	Detections      []Detection
	AnnotatedImage  []byte
	Alerts          []PredictionAlert
	DetectionID     int64
}

// FormatConfidence renders a confidence in [0,1] as a one-decimal percentage, e.g. "93.2%"
func FormatConfidence(confidence float64) string {
	return fmt.Sprintf("%.1f%%", confidence*100)
}
