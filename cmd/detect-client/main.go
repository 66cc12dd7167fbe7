package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/weapon-detection-client/internal/alerts"
	"github.com/tendant/weapon-detection-client/internal/config"
	"github.com/tendant/weapon-detection-client/internal/metrics"
	"github.com/tendant/weapon-detection-client/internal/notify"
	"github.com/tendant/weapon-detection-client/internal/render"
	"github.com/tendant/weapon-detection-client/internal/storage"
	"github.com/tendant/weapon-detection-client/internal/submission"
	"github.com/tendant/weapon-detection-client/pkg/client"
)

// Weapon detection client
//
//	detect-client <image> [<image>...]   submit images and save annotated results
//	detect-client ack <alert-id>         acknowledge an alert
//	detect-client                        watch alerts until interrupted
func main() {
	cfg := config.Load()

	log.Printf("Weapon Detection Client")
	log.Printf("  Output directory: %s", cfg.OutputDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, reg)
	}

	api := client.NewWithHTTPClient(cfg.APIURL, &http.Client{Timeout: cfg.RequestTimeout})
	log.Printf("  Backend: %s", api.BaseURL())

	banner := &bannerLog{shown: make(map[string]bool)}
	notifier := notify.New(banner.update)
	defer notifier.Close()

	screen := render.NewScreen(os.Stdout)
	ctrl := submission.New(api, submission.Options{
		Renderer: screen,
		Notifier: notifier,
		Metrics:  m,
	})
	log.Printf("✓ Client initialized")

	if _, err := ctrl.CheckModelStatus(ctx); err == nil {
		log.Printf("✓ Backend reachable")
	}

	poller := alerts.NewPoller(api, cfg.AlertPollInterval, notifier, m)

	args := os.Args[1:]
	switch {
	case len(args) == 2 && args[0] == "ack":
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			log.Fatalf("Invalid alert id %q: %v", args[1], err)
		}
		if err := poller.Refresh(ctx); err != nil {
			log.Fatalf("Failed to load alerts: %v", err)
		}
		if err := poller.Acknowledge(ctx, id); err != nil {
			log.Fatalf("Failed to acknowledge alert: %v", err)
		}
		log.Printf("✓ Alert %d acknowledged (%d remaining)", id, poller.Badge())

	case len(args) > 0:
		go poller.Run(ctx)

		out, err := storage.NewFilesystemStorage(cfg.OutputDir)
		if err != nil {
			log.Fatalf("Failed to open output directory: %v", err)
		}

		failed := 0
		for _, path := range args {
			if err := detect(ctx, ctrl, out, path, len(args) > 1); err != nil {
				log.Printf("%s: %v", path, err)
				failed++
			}
		}
		log.Printf("Unacknowledged alerts: %d", poller.Badge())
		if failed > 0 {
			os.Exit(1)
		}

	default:
		log.Printf("Watching alerts every %v (Ctrl+C to stop)", cfg.AlertPollInterval)
		poller.Run(ctx)
		log.Println("Stopped")
	}
}

// detect selects and submits one image and saves the annotated result
func detect(ctx context.Context, ctrl *submission.Controller, out storage.ResultWriter, path string, many bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	in, err := storage.NewFilesystemStorage(filepath.Dir(abs))
	if err != nil {
		return err
	}
	raw, err := storage.OpenFile(ctx, in, filepath.Base(abs))
	if err != nil {
		return err
	}

	if _, err := ctrl.SelectFile(raw); err != nil {
		return err
	}
	sub, err := ctrl.Submit(ctx)
	if err != nil {
		return err
	}
	result, err := sub.Wait(ctx)
	if err != nil {
		return err
	}

	name := storage.DefaultResultName
	if many {
		name = fmt.Sprintf("%s_%s", trimExt(filepath.Base(abs)), storage.DefaultResultName)
	}
	saved, err := out.SaveResult(ctx, name, result)
	if err != nil {
		return err
	}
	log.Printf("✓ Annotated image saved to %s", saved)
	return nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

// bannerLog prints each notification once when it first appears
type bannerLog struct {
	mu    sync.Mutex
	shown map[string]bool
}

func (b *bannerLog) update(active []notify.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	live := make(map[string]bool, len(active))
	for _, n := range active {
		live[n.ID] = true
		if !b.shown[n.ID] {
			log.Printf("[%s] %s", n.Severity, n.Message)
		}
	}
	b.shown = live
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Printf("✓ Metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Printf("Metrics server failed: %v", err)
	}
}
