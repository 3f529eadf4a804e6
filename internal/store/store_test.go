package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"videoflix/internal/store"
	"videoflix/internal/testsupport"
)

func TestCreateAndGetAsset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	asset, err := st.CreateAsset(ctx, store.NewAsset{
		Title:        "  Match Day ",
		Description:  "highlights",
		OriginalPath: "originals/match.mp4",
		Thumbnail:    "thumbnails/sports_match.jpg",
	})
	if err != nil {
		t.Fatalf("CreateAsset failed: %v", err)
	}
	if asset.ID == 0 {
		t.Fatal("expected asset ID to be assigned")
	}
	if asset.Title != "Match Day" {
		t.Fatalf("expected trimmed title, got %q", asset.Title)
	}
	if asset.Status != store.AssetPending {
		t.Fatalf("expected pending status, got %q", asset.Status)
	}
	if asset.Renditions.Count() != 0 || asset.Category != "" {
		t.Fatalf("expected empty renditions and category, got %#v", asset)
	}

	fetched, err := st.GetAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if fetched.Thumbnail != "thumbnails/sports_match.jpg" || fetched.OriginalPath != "originals/match.mp4" {
		t.Fatalf("unexpected fetched asset: %#v", fetched)
	}
}

func TestCreateAssetRequiresTitleAndOriginal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := st.CreateAsset(ctx, store.NewAsset{OriginalPath: "originals/a.mp4"}); err == nil {
		t.Fatal("expected error when title missing")
	}
	if _, err := st.CreateAsset(ctx, store.NewAsset{Title: "A"}); err == nil {
		t.Fatal("expected error when original missing")
	}
}

func TestGetAssetMissingReturnsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	_, err := st.GetAsset(context.Background(), 404)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateAssetPersistsRenditions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	asset := testsupport.NewAsset(t, st, "Clip", "originals/clip.mp4", "")
	if err := asset.Renditions.Set("720p", "720p/clip_720p.mp4"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	asset.Status = store.AssetPartial
	asset.Category = "crime"
	asset.ProcessingToken = "token"
	if err := st.UpdateAsset(ctx, asset); err != nil {
		t.Fatalf("UpdateAsset failed: %v", err)
	}

	fetched, err := st.GetAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if fetched.Renditions.P720 != "720p/clip_720p.mp4" || fetched.Renditions.P480 != "" {
		t.Fatalf("unexpected renditions: %#v", fetched.Renditions)
	}
	if fetched.Status != store.AssetPartial || fetched.Category != "crime" || fetched.ProcessingToken != "token" {
		t.Fatalf("unexpected asset state: %#v", fetched)
	}
}

func TestUpdateAssetMissingReturnsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	err := st.UpdateAsset(context.Background(), &store.Asset{ID: 77, Title: "ghost", Status: store.AssetDone})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMetadataLeavesPipelineState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	asset := testsupport.NewAsset(t, st, "Old", "originals/old.mp4", "")
	asset.Status = store.AssetDone
	asset.Renditions.P480 = "480p/old_480p.mp4"
	if err := st.UpdateAsset(ctx, asset); err != nil {
		t.Fatalf("UpdateAsset failed: %v", err)
	}

	updated, err := st.UpdateMetadata(ctx, asset.ID, "New", "desc")
	if err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}
	if updated.Title != "New" || updated.Description != "desc" {
		t.Fatalf("metadata not updated: %#v", updated)
	}
	if updated.Status != store.AssetDone || updated.Renditions.P480 != "480p/old_480p.mp4" {
		t.Fatalf("pipeline state changed: %#v", updated)
	}
}

func TestDeleteAssetReturnsSnapshotAndCascadesJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	asset := testsupport.NewAsset(t, st, "Gone", "originals/gone.mp4", "thumbnails/gone.jpg")
	if _, err := st.Enqueue(ctx, asset.ID, asset.OriginalPath); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	snapshot, err := st.DeleteAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("DeleteAsset failed: %v", err)
	}
	if snapshot.Thumbnail != "thumbnails/gone.jpg" {
		t.Fatalf("unexpected snapshot: %#v", snapshot)
	}
	if _, err := st.GetAsset(ctx, asset.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected asset removed, got %v", err)
	}
	jobs, err := st.JobsForAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("JobsForAsset failed: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected jobs to cascade, got %d", len(jobs))
	}

	if _, err := st.DeleteAsset(ctx, asset.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListAssetsFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewAsset(t, st, "One", "originals/one.mp4", "")
	second := testsupport.NewAsset(t, st, "Two", "originals/two.mp4", "")
	second.Status = store.AssetDone
	second.Category = "sports"
	if err := st.UpdateAsset(ctx, second); err != nil {
		t.Fatalf("UpdateAsset failed: %v", err)
	}

	all, err := st.ListAssets(ctx, store.AssetFilter{})
	if err != nil {
		t.Fatalf("ListAssets failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != first.ID {
		t.Fatalf("unexpected list: %#v", all)
	}

	done, err := st.ListAssets(ctx, store.AssetFilter{Statuses: []store.AssetStatus{store.AssetDone}})
	if err != nil {
		t.Fatalf("ListAssets failed: %v", err)
	}
	if len(done) != 1 || done[0].ID != second.ID {
		t.Fatalf("unexpected done list: %#v", done)
	}

	sports, err := st.ListAssets(ctx, store.AssetFilter{Category: "SPORTS"})
	if err != nil {
		t.Fatalf("ListAssets failed: %v", err)
	}
	if len(sports) != 1 || sports[0].ID != second.ID {
		t.Fatalf("unexpected category list: %#v", sports)
	}

	stats, err := st.AssetStats(ctx)
	if err != nil {
		t.Fatalf("AssetStats failed: %v", err)
	}
	if stats[store.AssetPending] != 1 || stats[store.AssetDone] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestClaimOrdersAndAssigns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	asset := testsupport.NewAsset(t, st, "Queue", "originals/q.mp4", "")
	first, err := st.Enqueue(ctx, asset.ID, asset.OriginalPath)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	second, err := st.Enqueue(ctx, asset.ID, asset.OriginalPath)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	claimed, err := st.Claim(ctx, "w1")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("expected first job claimed, got %#v", claimed)
	}
	if claimed.Status != store.JobRunning || claimed.Worker != "w1" || claimed.Attempts != 1 {
		t.Fatalf("unexpected claimed job: %#v", claimed)
	}
	if claimed.StartedAt == nil || claimed.LastHeartbeat == nil {
		t.Fatal("expected start and heartbeat timestamps")
	}

	next, err := st.Claim(ctx, "w2")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if next == nil || next.ID != second.ID {
		t.Fatalf("expected second job claimed, got %#v", next)
	}

	none, err := st.Claim(ctx, "w3")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected empty queue, got %#v", none)
	}
}

func TestJobLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	asset := testsupport.NewAsset(t, st, "Life", "originals/life.mp4", "")
	job, err := st.Enqueue(ctx, asset.ID, asset.OriginalPath)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := st.Claim(ctx, "w1"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := st.SetJobStage(ctx, job.ID, "encoding:480p"); err != nil {
		t.Fatalf("SetJobStage failed: %v", err)
	}
	if err := st.UpdateHeartbeat(ctx, job.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}
	if err := st.FailJob(ctx, job.ID, "encoder exploded"); err != nil {
		t.Fatalf("FailJob failed: %v", err)
	}

	failed, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if failed.Status != store.JobFailed || failed.ErrorMessage != "encoder exploded" || failed.FinishedAt == nil {
		t.Fatalf("unexpected failed job: %#v", failed)
	}
	if err := st.UpdateHeartbeat(ctx, job.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected heartbeat on finished job to fail, got %v", err)
	}

	retried, err := st.RetryFailedJobs(ctx, job.ID)
	if err != nil {
		t.Fatalf("RetryFailedJobs failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected 1 retried job, got %d", retried)
	}
	again, err := st.Claim(ctx, "w1")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if again == nil || again.Attempts != 2 || again.ErrorMessage != "" {
		t.Fatalf("unexpected reclaimed job: %#v", again)
	}
	if err := st.CompleteJob(ctx, job.ID); err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}

	health, err := st.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 1 || health.Succeeded != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}
}

func TestReclaimStaleJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	asset := testsupport.NewAsset(t, st, "Stale", "originals/stale.mp4", "")
	job, err := st.Enqueue(ctx, asset.ID, asset.OriginalPath)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := st.Claim(ctx, "w1"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	n, err := st.ReclaimStaleJobs(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStaleJobs failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected fresh job to stay running, reclaimed %d", n)
	}

	n, err = st.ReclaimStaleJobs(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleJobs failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reclaimed job, got %d", n)
	}
	reclaimed, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if reclaimed.Status != store.JobQueued || reclaimed.Worker != "" {
		t.Fatalf("unexpected reclaimed job: %#v", reclaimed)
	}
}

func TestReclaimWorkerJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	asset := testsupport.NewAsset(t, st, "Crash", "originals/crash.mp4", "")
	if _, err := st.Enqueue(ctx, asset.ID, asset.OriginalPath); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := st.Claim(ctx, "w1"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	n, err := st.ReclaimWorkerJobs(ctx, "other")
	if err != nil || n != 0 {
		t.Fatalf("expected no jobs for other worker, got %d (%v)", n, err)
	}
	n, err = st.ReclaimWorkerJobs(ctx, "w1")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 job reclaimed, got %d (%v)", n, err)
	}
	queued, err := st.ListJobs(ctx, store.JobQueued)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(queued) != 1 {
		t.Fatalf("expected 1 queued job, got %d", len(queued))
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	testsupport.NewAsset(t, st, "Persist", "originals/p.mp4", "")
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	health, err := reopened.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || health.SchemaVersion != 1 || health.Assets != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}
}

func TestParseStatuses(t *testing.T) {
	if s, err := store.ParseAssetStatus(" DONE "); err != nil || s != store.AssetDone {
		t.Fatalf("ParseAssetStatus = %q, %v", s, err)
	}
	if _, err := store.ParseAssetStatus("archived"); err == nil {
		t.Fatal("expected error for unknown asset status")
	}
	if s, err := store.ParseJobStatus("failed"); err != nil || s != store.JobFailed {
		t.Fatalf("ParseJobStatus = %q, %v", s, err)
	}
}

func TestRenditionsSlots(t *testing.T) {
	var r store.Renditions
	if err := r.Set("2160p", "x"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
	_ = r.Set("1080p", "1080p/a_1080p.mp4")
	_ = r.Set("480p", "480p/a_480p.mp4")
	keys := r.Keys()
	if len(keys) != 2 || keys[0] != "480p/a_480p.mp4" || keys[1] != "1080p/a_1080p.mp4" {
		t.Fatalf("unexpected keys: %v", keys)
	}
	if r.Get("720p") != "" || r.Get("1080p") == "" {
		t.Fatalf("unexpected Get results: %#v", r)
	}
}
