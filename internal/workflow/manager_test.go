package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"videoflix/internal/config"
	"videoflix/internal/logging"
	"videoflix/internal/services"
	"videoflix/internal/store"
	"videoflix/internal/testsupport"
	"videoflix/internal/transcode"
	"videoflix/internal/workflow"
)

type runnerFunc func(ctx context.Context, req transcode.Request) transcode.Result

func (f runnerFunc) Run(ctx context.Context, req transcode.Request) transcode.Result {
	return f(ctx, req)
}

func setup(t *testing.T) (*config.Config, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 1
	return cfg, testsupport.MustOpenStore(t, cfg)
}

func enqueue(t *testing.T, st *store.Store, name string) *store.Job {
	t.Helper()
	asset := testsupport.NewAsset(t, st, name, "originals/"+name+".mp4", "")
	job, err := st.Enqueue(context.Background(), asset.ID, asset.OriginalPath)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return job
}

func waitForJob(t *testing.T, st *store.Store, id int64, want store.JobStatus) *store.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := st.GetJob(context.Background(), id)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if job.Status == want {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	job, _ := st.GetJob(context.Background(), id)
	t.Fatalf("job %d status = %q, want %q", id, job.Status, want)
	return nil
}

func startManager(t *testing.T, cfg *config.Config, st *store.Store, runner workflow.JobRunner) *workflow.Manager {
	t.Helper()
	mgr := workflow.NewManager(cfg, st, runner, logging.NewNop(), workflow.WithPollInterval(10*time.Millisecond))
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(mgr.Stop)
	return mgr
}

func TestManagerCompletesSuccessfulJob(t *testing.T) {
	cfg, st := setup(t)
	job := enqueue(t, st, "match")

	var mu sync.Mutex
	var seen []transcode.Request
	runner := runnerFunc(func(ctx context.Context, req transcode.Request) transcode.Result {
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()
		if id, ok := services.JobIDFromContext(ctx); !ok || id != req.JobID {
			t.Errorf("job id in context = %d, %v", id, ok)
		}
		if worker, _ := services.WorkerFromContext(ctx); worker != "worker-1" {
			t.Errorf("worker in context = %q", worker)
		}
		return transcode.Result{State: transcode.StateDone, AssetStatus: store.AssetDone}
	})
	mgr := startManager(t, cfg, st, runner)

	done := waitForJob(t, st, job.ID, store.JobSucceeded)
	if done.Worker != "worker-1" {
		t.Fatalf("worker = %q", done.Worker)
	}
	mu.Lock()
	if len(seen) != 1 || seen[0].AssetID != job.AssetID || seen[0].OriginalPath != job.OriginalPath {
		t.Fatalf("runner requests = %+v", seen)
	}
	mu.Unlock()

	mgr.Stop()
	status := mgr.Status(context.Background())
	if status.Running {
		t.Fatal("expected stopped manager")
	}
	if status.Processed != 1 || status.Failed != 0 {
		t.Fatalf("processed=%d failed=%d", status.Processed, status.Failed)
	}
	if status.LastJob == nil || status.LastJob.ID != job.ID {
		t.Fatalf("last job = %+v", status.LastJob)
	}
	if status.JobStats[store.JobSucceeded] != 1 {
		t.Fatalf("job stats = %v", status.JobStats)
	}
}

func TestManagerRecordsFailureMessage(t *testing.T) {
	cfg, st := setup(t)
	job := enqueue(t, st, "broken")

	cause := services.Wrap(services.ErrExternalTool, "encoding", "encode 720p", "ffmpeg exited with status 1", errors.New("boom"))
	runner := runnerFunc(func(context.Context, transcode.Request) transcode.Result {
		return transcode.Result{State: transcode.StateFailed, FailedProfile: "720p", AssetStatus: store.AssetPartial, Err: cause}
	})
	mgr := startManager(t, cfg, st, runner)

	failed := waitForJob(t, st, job.ID, store.JobFailed)
	if failed.ErrorMessage != "ffmpeg exited with status 1: boom" {
		t.Fatalf("error message = %q", failed.ErrorMessage)
	}
	if failed.FinishedAt == nil {
		t.Fatal("expected finished timestamp")
	}
	mgr.Stop()
	if status := mgr.Status(context.Background()); status.Failed != 1 || status.LastError == "" {
		t.Fatalf("status = %+v", status)
	}
}

func TestManagerRequeuesOwnAbandonedJobsOnStart(t *testing.T) {
	cfg, st := setup(t)
	job := enqueue(t, st, "abandoned")
	if _, err := st.Claim(context.Background(), "worker-1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	runner := runnerFunc(func(context.Context, transcode.Request) transcode.Result {
		return transcode.Result{State: transcode.StateDone}
	})
	startManager(t, cfg, st, runner)

	done := waitForJob(t, st, job.ID, store.JobSucceeded)
	if done.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", done.Attempts)
	}
}

func TestManagerLeavesInterruptedJobRunning(t *testing.T) {
	cfg, st := setup(t)
	job := enqueue(t, st, "long")

	started := make(chan struct{})
	runner := runnerFunc(func(ctx context.Context, req transcode.Request) transcode.Result {
		close(started)
		<-ctx.Done()
		return transcode.Result{State: transcode.StateFailed, Err: ctx.Err()}
	})
	mgr := workflow.NewManager(cfg, st, runner, logging.NewNop(), workflow.WithPollInterval(10*time.Millisecond))
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}
	mgr.Stop()

	got, err := st.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != store.JobRunning {
		t.Fatalf("status = %q, want running", got.Status)
	}
}

func TestManagerStartTwice(t *testing.T) {
	cfg, st := setup(t)
	runner := runnerFunc(func(context.Context, transcode.Request) transcode.Result {
		return transcode.Result{State: transcode.StateDone}
	})
	mgr := startManager(t, cfg, st, runner)
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected error starting twice")
	}
}

func TestWorkerNames(t *testing.T) {
	cfg, st := setup(t)
	cfg.Workflow.Workers = 3
	mgr := workflow.NewManager(cfg, st, nil, logging.NewNop(), workflow.WithWorkerName("host"))
	names := mgr.WorkerNames()
	want := []string{"host-1", "host-2", "host-3"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestStageRecorderWritesStage(t *testing.T) {
	_, st := setup(t)
	job := enqueue(t, st, "staged")
	if _, err := st.Claim(context.Background(), "worker-1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	record := workflow.StageRecorder(st, logging.NewNop())
	record(context.Background(), transcode.StateTagging, "")
	ctx := services.WithJobID(context.Background(), job.ID)
	record(ctx, transcode.StateEncoding, "720p")

	got, err := st.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Stage != "encoding:720p" {
		t.Fatalf("stage = %q", got.Stage)
	}
}
