package syncer_test

import (
	"context"
	"testing"

	"bindery/internal/book"
	"bindery/internal/config"
	"bindery/internal/logging"
	"bindery/internal/planner"
	"bindery/internal/syncer"
	"bindery/internal/testsupport"
)

type fixture struct {
	store   *book.Store
	gateway *testsupport.FakeGateway
	remote  *testsupport.FakeRemote
	syncer  *syncer.Syncer
	cfg     *config.Config
}

// newFixture seeds three 9000-byte items that the fake gateway compresses to
// 3000 bytes each. With a 57000-byte ceiling the plan comes out as two
// chunks: {a, b} and {c}.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithMaxChunkSize(57_000),
		testsupport.WithSafetyMargin(0),
	)
	cfg.Workflow.UploadAttempts = 1
	store := testsupport.MustOpenStore(t, cfg)
	gateway := testsupport.NewFakeGateway()
	remote := testsupport.NewFakeRemote()

	testsupport.AddItem(t, store, "/in/a.jpg", book.KindImage, 9_000)
	testsupport.AddItem(t, store, "/in/b.jpg", book.KindImage, 9_000)
	testsupport.AddItem(t, store, "/in/c.jpg", book.KindImage, 9_000)

	return &fixture{
		store:   store,
		gateway: gateway,
		remote:  remote,
		syncer:  syncer.New(store, gateway, remote, cfg, logging.NewNop()),
		cfg:     cfg,
	}
}

func (f *fixture) plan(t *testing.T) (*book.Snapshot, []book.Chunk) {
	t.Helper()
	ctx := context.Background()
	snap, err := f.store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	chunks, err := planner.Plan(ctx, snap.Items, snap.Title, snap.Settings, f.gateway)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	return snap, chunks
}

// syncAll ticks until the plan is fully reconciled.
func (f *fixture) syncAll(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		snap, chunks := f.plan(t)
		worked, err := f.syncer.Tick(ctx, snap, chunks)
		if err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if !worked {
			return
		}
	}
	t.Fatal("sync did not settle")
}

func TestSyncUploadsLowestPartFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snap, chunks := f.plan(t)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	worked, err := f.syncer.Tick(ctx, snap, chunks)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !worked {
		t.Fatal("expected an upload on the first tick")
	}

	uploads := f.remote.Uploads()
	if len(uploads) != 1 {
		t.Fatalf("expected one upload, got %d", len(uploads))
	}
	if uploads[0].Filename != "Test Book - part 001.pdf" {
		t.Errorf("filename = %q", uploads[0].Filename)
	}

	record, err := f.store.SyncRecordByPart(ctx, 1)
	if err != nil {
		t.Fatalf("SyncRecordByPart: %v", err)
	}
	if record == nil || record.Status != book.SyncSynced {
		t.Fatalf("part 1 record = %+v", record)
	}
	if record.LastSyncedFingerprint != chunks[0].Fingerprint {
		t.Error("synced fingerprint does not match the chunk")
	}
	if record.RemoteObjectID == "" {
		t.Error("remote object id was not recorded")
	}
}

func TestSyncMinimality(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.syncAll(t)
	before := len(f.remote.Uploads())

	snap, chunks := f.plan(t)
	worked, err := f.syncer.Tick(ctx, snap, chunks)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if worked {
		t.Fatal("tick performed work although no fingerprint changed")
	}
	if got := len(f.remote.Uploads()); got != before {
		t.Fatalf("uploads grew from %d to %d without changes", before, got)
	}
}

func TestReorderResyncsOnlyAffectedChunk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.syncAll(t)
	part2Before, err := f.store.SyncRecordByPart(ctx, 2)
	if err != nil {
		t.Fatalf("SyncRecordByPart: %v", err)
	}

	// Swap the two items inside chunk 1; chunk 2's fingerprint is unchanged.
	items, err := f.store.Items(ctx)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if err := f.store.MoveItem(ctx, items[1].ID, 1); err != nil {
		t.Fatalf("MoveItem: %v", err)
	}

	uploadsBefore := len(f.remote.Uploads())
	snap, chunks := f.plan(t)
	worked, err := f.syncer.Tick(ctx, snap, chunks)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !worked {
		t.Fatal("expected chunk 1 to be re-uploaded after reorder")
	}
	uploads := f.remote.Uploads()
	if len(uploads) != uploadsBefore+1 {
		t.Fatalf("expected exactly one new upload, got %d", len(uploads)-uploadsBefore)
	}
	if uploads[len(uploads)-1].Filename != "Test Book - part 001.pdf" {
		t.Errorf("re-upload hit %q, want part 001", uploads[len(uploads)-1].Filename)
	}

	part2After, err := f.store.SyncRecordByPart(ctx, 2)
	if err != nil {
		t.Fatalf("SyncRecordByPart: %v", err)
	}
	if part2After.LastSyncedFingerprint != part2Before.LastSyncedFingerprint ||
		part2After.Status != book.SyncSynced {
		t.Error("chunk 2's record changed although its fingerprint did not")
	}
}

func TestFailedUploadMarksDirtyAndRetries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.remote.FailNext(1)
	snap, chunks := f.plan(t)
	if _, err := f.syncer.Tick(ctx, snap, chunks); err == nil {
		t.Fatal("expected error from failing upload")
	}

	record, err := f.store.SyncRecordByPart(ctx, 1)
	if err != nil {
		t.Fatalf("SyncRecordByPart: %v", err)
	}
	if record == nil || record.Status != book.SyncDirty {
		t.Fatalf("part 1 record after failure = %+v", record)
	}
	if record.LastSyncedFingerprint != "" {
		t.Error("failed upload must not advance the synced fingerprint")
	}
	if record.LastError == "" {
		t.Error("failure reason was not recorded")
	}

	// Next tick retries the same slot and succeeds.
	worked, err := f.syncer.Tick(ctx, snap, chunks)
	if err != nil {
		t.Fatalf("retry Tick: %v", err)
	}
	if !worked {
		t.Fatal("dirty slot was not retried")
	}
	record, err = f.store.SyncRecordByPart(ctx, 1)
	if err != nil {
		t.Fatalf("SyncRecordByPart: %v", err)
	}
	if record.Status != book.SyncSynced {
		t.Fatalf("part 1 status after retry = %s", record.Status)
	}
}

func TestStuckUploadingSlotIsReclaimed(t *testing.T) {
	// Ticks run one at a time, so a record still marked uploading at the
	// start of a tick is the residue of a failed status write. It must be
	// picked up again instead of stalling the lane until a restart.
	f := newFixture(t)
	ctx := context.Background()

	snap, chunks := f.plan(t)
	if err := f.store.PutSyncRecord(ctx, book.SyncRecord{
		PartNumber: 1,
		Status:     book.SyncUploading,
	}); err != nil {
		t.Fatalf("PutSyncRecord: %v", err)
	}

	worked, err := f.syncer.Tick(ctx, snap, chunks)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !worked {
		t.Fatal("stuck uploading slot was not reclaimed")
	}
	if len(f.remote.Uploads()) != 1 {
		t.Fatalf("expected one upload, got %d", len(f.remote.Uploads()))
	}

	record, err := f.store.SyncRecordByPart(ctx, 1)
	if err != nil {
		t.Fatalf("SyncRecordByPart: %v", err)
	}
	if record == nil || record.Status != book.SyncSynced {
		t.Fatalf("part 1 record after reclaim = %+v", record)
	}
	if record.LastSyncedFingerprint != chunks[0].Fingerprint {
		t.Error("reclaimed slot did not record the chunk fingerprint")
	}
}

func TestShrinkingPlanPrunesRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.syncAll(t)

	// Remove the last item; the plan collapses to a single chunk.
	items, err := f.store.Items(ctx)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if _, err := f.store.RemoveItem(ctx, items[2].ID); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}

	part2, err := f.store.SyncRecordByPart(ctx, 2)
	if err != nil {
		t.Fatalf("SyncRecordByPart: %v", err)
	}
	if part2 == nil || part2.RemoteObjectID == "" {
		t.Fatalf("part 2 record before shrink = %+v", part2)
	}

	snap, chunks := f.plan(t)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk after removal, got %d", len(chunks))
	}
	if _, err := f.syncer.Tick(ctx, snap, chunks); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	record, err := f.store.SyncRecordByPart(ctx, 2)
	if err != nil {
		t.Fatalf("SyncRecordByPart: %v", err)
	}
	if record != nil {
		t.Fatalf("phantom record for pruned part 2: %+v", record)
	}

	removals := f.remote.Removals()
	if len(removals) != 1 || removals[0] != part2.RemoteObjectID {
		t.Fatalf("expected part 2's bundle %q removed from the remote, got %v",
			part2.RemoteObjectID, removals)
	}
}

func TestFailedRemoteCleanupKeepsRecordForRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.syncAll(t)
	items, err := f.store.Items(ctx)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if _, err := f.store.RemoveItem(ctx, items[2].ID); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}

	f.remote.FailNextRemovals(1)
	snap, chunks := f.plan(t)
	if _, err := f.syncer.Tick(ctx, snap, chunks); err == nil {
		t.Fatal("expected error from failing removal")
	}

	// The ledger row survives the failed removal, so the cleanup is retried.
	record, err := f.store.SyncRecordByPart(ctx, 2)
	if err != nil {
		t.Fatalf("SyncRecordByPart: %v", err)
	}
	if record == nil {
		t.Fatal("record pruned although the remote bundle was not removed")
	}

	if _, err := f.syncer.Tick(ctx, snap, chunks); err != nil {
		t.Fatalf("retry Tick: %v", err)
	}
	record, err = f.store.SyncRecordByPart(ctx, 2)
	if err != nil {
		t.Fatalf("SyncRecordByPart: %v", err)
	}
	if record != nil {
		t.Fatalf("phantom record after retried cleanup: %+v", record)
	}
	if got := len(f.remote.Removals()); got != 1 {
		t.Fatalf("removals = %d, want 1", got)
	}
}

func TestOversizedChunkIsSkipped(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithMaxChunkSize(52_000),
		testsupport.WithSafetyMargin(0),
	)
	cfg.Workflow.UploadAttempts = 1
	store := testsupport.MustOpenStore(t, cfg)
	gateway := testsupport.NewFakeGateway()
	remote := testsupport.NewFakeRemote()
	s := syncer.New(store, gateway, remote, cfg, logging.NewNop())
	ctx := context.Background()

	// One item whose bundle (50000 overhead + 3000) exceeds the ceiling.
	testsupport.AddItem(t, store, "/in/huge.jpg", book.KindImage, 9_000)

	snap, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	chunks, err := planner.Plan(ctx, snap.Items, snap.Title, snap.Settings, gateway)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(chunks) != 1 || !chunks[0].Oversized {
		t.Fatalf("expected one oversized chunk, got %+v", chunks)
	}

	worked, err := s.Tick(ctx, snap, chunks)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if worked || len(remote.Uploads()) != 0 {
		t.Fatal("oversized chunk must not be uploaded")
	}
}
