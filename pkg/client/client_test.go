package client_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tendant/weapon-detection-client/internal/mockbackend"
	"github.com/tendant/weapon-detection-client/pkg/client"
	"github.com/tendant/weapon-detection-client/pkg/detection"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		for y := 0; y < 48; y++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newBackend(t *testing.T, opts mockbackend.Options) (*mockbackend.Server, *client.Client) {
	t.Helper()
	backend := mockbackend.New(opts)
	srv := httptest.NewServer(backend.Router())
	t.Cleanup(srv.Close)
	return backend, client.New(srv.URL + "/")
}

func TestPredict_Success(t *testing.T) {
	_, c := newBackend(t, mockbackend.Options{ModelLoaded: true})

	resp, err := c.Predict(context.Background(), "scene.png", "image/png", testPNG(t))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got error %q", resp.Error)
	}
	if resp.TotalDetections != 1 || len(resp.Detections) != 1 {
		t.Fatalf("expected 1 detection, got %d (%d)", resp.TotalDetections, len(resp.Detections))
	}
	if resp.Detections[0].Class != "knife" {
		t.Fatalf("expected knife, got %q", resp.Detections[0].Class)
	}
	if len(resp.Alerts) != 2 {
		t.Fatalf("expected weapon and high-confidence alerts, got %d", len(resp.Alerts))
	}

	raw, err := base64.StdEncoding.DecodeString(resp.AnnotatedImage)
	if err != nil {
		t.Fatalf("annotated image is not base64: %v", err)
	}
	if _, format, err := image.Decode(bytes.NewReader(raw)); err != nil || format != "jpeg" {
		t.Fatalf("annotated image should be jpeg, got %q (%v)", format, err)
	}
}

func TestPredict_SendsImageFieldWithDeclaredType(t *testing.T) {
	var gotType, gotName string
	var gotSize int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != detection.PathPredict {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile(detection.ImageField)
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotType = header.Header.Get("Content-Type")
		gotName = header.Filename
		gotSize = len(data)
		w.Write([]byte(`{"success":false,"error":"model unavailable"}`))
	}))
	defer srv.Close()

	c := client.NewWithHTTPClient(srv.URL, srv.Client())
	resp, err := c.Predict(context.Background(), "cam \"1\".webp", "image/webp", []byte("webpdata"))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if resp.Success || resp.Error != "model unavailable" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if gotType != "image/webp" {
		t.Fatalf("expected declared content type, got %q", gotType)
	}
	if gotName != `cam "1".webp` {
		t.Fatalf("unexpected filename %q", gotName)
	}
	if gotSize != len("webpdata") {
		t.Fatalf("unexpected payload size %d", gotSize)
	}
}

func TestPredict_ApplicationFailureStatus(t *testing.T) {
	_, c := newBackend(t, mockbackend.Options{ModelLoaded: false})

	resp, err := c.Predict(context.Background(), "scene.png", "image/png", testPNG(t))
	if err != nil {
		t.Fatalf("expected parsed failure body, got %v", err)
	}
	if resp.Success {
		t.Fatalf("expected success=false")
	}
	if resp.Error != "Failed to load model" {
		t.Fatalf("unexpected error message %q", resp.Error)
	}
}

func TestPredict_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	if _, err := c.Predict(context.Background(), "a.png", "image/png", []byte("x")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPredict_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := client.New(url)
	if _, err := c.Predict(context.Background(), "a.png", "image/png", []byte("x")); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestHealth(t *testing.T) {
	backend, c := newBackend(t, mockbackend.Options{ModelLoaded: true})

	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !status.ModelLoaded {
		t.Fatalf("expected model_loaded=true")
	}

	backend.SetModelLoaded(false)
	status, err = c.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if status.ModelLoaded {
		t.Fatalf("expected model_loaded=false")
	}
}

func TestAlertsAndAcknowledge(t *testing.T) {
	_, c := newBackend(t, mockbackend.Options{ModelLoaded: true})
	ctx := context.Background()

	alerts, err := c.Alerts(ctx)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %d", len(alerts))
	}

	if _, err := c.Predict(ctx, "scene.png", "image/png", testPNG(t)); err != nil {
		t.Fatalf("predict: %v", err)
	}

	alerts, err = c.Alerts(ctx)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].Severity != detection.SeverityCritical || alerts[1].Severity != detection.SeverityHigh {
		t.Fatalf("unexpected severities %q, %q", alerts[0].Severity, alerts[1].Severity)
	}

	ack, err := c.AcknowledgeAlert(ctx, alerts[0].ID)
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if !ack.Success {
		t.Fatalf("expected acknowledge success, got %q", ack.Error)
	}

	alerts, err = c.Alerts(ctx)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert after acknowledge, got %d", len(alerts))
	}

	ack, err = c.AcknowledgeAlert(ctx, 9999)
	if err != nil {
		t.Fatalf("acknowledge missing: %v", err)
	}
	if ack.Success || ack.Error == "" {
		t.Fatalf("expected failure for unknown alert, got %+v", ack)
	}
}
