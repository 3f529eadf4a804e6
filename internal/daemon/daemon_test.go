package daemon_test

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"videoflix/internal/app"
	"videoflix/internal/daemon"
	"videoflix/internal/library"
	"videoflix/internal/logging"
	"videoflix/internal/store"
	"videoflix/internal/testsupport"
)

func TestDaemonProcessesCreatedAsset(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubEncoder())
	cfg.Metrics.Enabled = true

	ctx := context.Background()
	a, err := app.Open(ctx, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("app.Open: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	incoming := filepath.Join(testsupport.BaseDir(cfg), "incoming")
	src := filepath.Join(incoming, "final.mp4")
	thumb := filepath.Join(incoming, "final_sports.jpg")
	testsupport.WriteFile(t, src, 64)
	testsupport.WriteFile(t, thumb, 8)
	created, err := a.Library.Create(ctx, library.CreateInput{SourcePath: src, ThumbnailPath: thumb})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Job == nil {
		t.Fatal("expected dispatched job")
	}

	d, err := daemon.New(cfg, a.Backend, logging.NewNop(), a.NewManager("test"))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	asset := waitForAsset(t, a.Store, created.Asset.ID, store.AssetDone)
	if asset.Category != "sports" {
		t.Fatalf("category = %q, want sports", asset.Category)
	}
	if asset.Renditions.Count() != len(cfg.Profiles) {
		t.Fatalf("renditions = %+v", asset.Renditions)
	}
	if asset.OriginalPath != "" {
		t.Fatalf("original should be cleared, got %q", asset.OriginalPath)
	}

	waitForJob(t, a.Store, created.Job.ID, store.JobSucceeded)
	status := d.Status(ctx)
	if !status.Running || status.MetricsAddr == "" {
		t.Fatalf("status = %+v", status)
	}
	if len(status.Workflow.Workers) == 0 || !strings.HasPrefix(status.Workflow.Workers[0], "test-") {
		t.Fatalf("workers = %v", status.Workflow.Workers)
	}

	resp, err := http.Get("http://" + d.MetricsAddr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "videoflix_jobs_total") {
		t.Fatalf("metrics output missing job counter:\n%s", body)
	}
}

func TestDaemonRejectsSecondInstanceWithSameName(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubEncoder())
	ctx := context.Background()
	a, err := app.Open(ctx, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("app.Open: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	first, err := daemon.New(cfg, a.Backend, logging.NewNop(), a.NewManager("dup"))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(first.Stop)

	second, err := daemon.New(cfg, a.Backend, logging.NewNop(), a.NewManager("dup"))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected lock contention error")
	}

	other, err := daemon.New(cfg, a.Backend, logging.NewNop(), a.NewManager("other"))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := other.Start(ctx); err != nil {
		t.Fatalf("differently named worker should start: %v", err)
	}
	other.Stop()
}

func TestDaemonPreflightBlocksStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Encoder.Binary = filepath.Join(t.TempDir(), "missing-ffmpeg")
	ctx := context.Background()
	a, err := app.Open(ctx, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("app.Open: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	d, err := daemon.New(cfg, a.Backend, logging.NewNop(), a.NewManager("pf"))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	err = d.Start(ctx)
	if err == nil {
		d.Stop()
		t.Fatal("expected preflight failure")
	}
	if !strings.Contains(err.Error(), "Encoder") {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status(ctx).Running {
		t.Fatal("daemon should not be running")
	}
}

func waitForAsset(t *testing.T, st *store.Store, id int64, want store.AssetStatus) *store.Asset {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	var asset *store.Asset
	for time.Now().Before(deadline) {
		var err error
		asset, err = st.GetAsset(context.Background(), id)
		if err != nil {
			t.Fatalf("GetAsset: %v", err)
		}
		if asset.Status == want {
			return asset
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("asset %d status = %q, want %q (error %q)", id, asset.Status, want, asset.ErrorMessage)
	return nil
}

func waitForJob(t *testing.T, st *store.Store, id int64, want store.JobStatus) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := st.GetJob(context.Background(), id)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if job.Status == want {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("job %d never reached %q", id, want)
}
