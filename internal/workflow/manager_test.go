package workflow

import (
	"context"
	"testing"
	"time"

	"bindery/internal/book"
	"bindery/internal/config"
	"bindery/internal/logging"
	"bindery/internal/services/pdfengine"
	"bindery/internal/testsupport"
)

type testEngine struct {
	cfg     *config.Config
	store   *book.Store
	gateway *testsupport.FakeGateway
	remote  *testsupport.FakeRemote
	manager *Manager
}

func newTestEngine(t *testing.T, opts ...testsupport.ConfigOption) *testEngine {
	t.Helper()
	base := []testsupport.ConfigOption{
		testsupport.WithMaxChunkSize(57_000),
		testsupport.WithSafetyMargin(0),
	}
	cfg := testsupport.NewConfig(t, append(base, opts...)...)
	cfg.Workflow.OptimizerTickMS = 5
	cfg.Workflow.PlannerTickMS = 10
	cfg.Workflow.SyncTickMS = 10
	cfg.Workflow.UploadAttempts = 1

	store := testsupport.MustOpenStore(t, cfg)
	blobs := testsupport.MustOpenBlobs(t, cfg)
	gateway := testsupport.NewFakeGateway()
	remote := testsupport.NewFakeRemote()

	return &testEngine{
		cfg:     cfg,
		store:   store,
		gateway: gateway,
		remote:  remote,
		manager: NewManager(cfg, store, blobs, gateway, remote, logging.NewNop()),
	}
}

func (e *testEngine) seedItems(t *testing.T, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		testsupport.AddItem(t, e.store, "/in/item.jpg", book.KindImage, 9_000)
	}
}

func TestPlanPassPublishesPlan(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.seedItems(t, 3)

	worked, err := e.manager.planPass(ctx)
	if err != nil {
		t.Fatalf("planPass: %v", err)
	}
	if !worked {
		t.Fatal("expected planning work")
	}

	chunks, current := e.manager.CurrentPlan(ctx)
	if !current {
		t.Fatal("freshly published plan should be current")
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	// Unchanged book: the next pass is a no-op.
	worked, err = e.manager.planPass(ctx)
	if err != nil {
		t.Fatalf("second planPass: %v", err)
	}
	if worked {
		t.Fatal("plan was recomputed although nothing changed")
	}
}

func TestPlanPassDiscardsStaleResult(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.seedItems(t, 2)

	mutating := &mutateDuringEncode{inner: e.gateway, store: e.store, t: t}
	e.manager.gateway = mutating

	worked, err := e.manager.planPass(ctx)
	if err != nil {
		t.Fatalf("planPass: %v", err)
	}
	if !worked {
		t.Fatal("the pass ran the planner, so it performed work")
	}
	if _, current := e.manager.CurrentPlan(ctx); current {
		t.Fatal("a plan computed from superseded state must not be published as current")
	}

	// Next pass sees the post-edit revision and publishes.
	e.manager.gateway = e.gateway
	if _, err := e.manager.planPass(ctx); err != nil {
		t.Fatalf("replan: %v", err)
	}
	chunks, current := e.manager.CurrentPlan(ctx)
	if !current {
		t.Fatal("replanned result should be current")
	}
	var total int
	for _, c := range chunks {
		total += len(c.ItemIDs)
	}
	if total != 3 {
		t.Fatalf("plan covers %d items, want 3", total)
	}
}

func TestSyncPassWaitsForCurrentPlan(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.seedItems(t, 2)

	worked, err := e.manager.syncPass(ctx)
	if err != nil {
		t.Fatalf("syncPass without plan: %v", err)
	}
	if worked {
		t.Fatal("nothing to sync before any plan exists")
	}

	if _, err := e.manager.planPass(ctx); err != nil {
		t.Fatalf("planPass: %v", err)
	}

	// A mid-flight edit invalidates the published plan.
	testsupport.AddItem(t, e.store, "/in/late.jpg", book.KindImage, 9_000)
	worked, err = e.manager.syncPass(ctx)
	if err != nil {
		t.Fatalf("syncPass with stale plan: %v", err)
	}
	if worked || len(e.remote.Uploads()) != 0 {
		t.Fatal("stale plans must not be synced")
	}

	if _, err := e.manager.planPass(ctx); err != nil {
		t.Fatalf("replan: %v", err)
	}
	worked, err = e.manager.syncPass(ctx)
	if err != nil {
		t.Fatalf("syncPass: %v", err)
	}
	if !worked || len(e.remote.Uploads()) != 1 {
		t.Fatal("current plan should sync its first chunk")
	}
}

func TestHigherCompressionNeverIncreasesChunkCount(t *testing.T) {
	e := newTestEngine(t, testsupport.WithCompressionLevel("low"))
	ctx := context.Background()
	e.seedItems(t, 6)

	// Refresh every item at the low level, then plan.
	for {
		worked, err := e.manager.optimizer.Tick(ctx)
		if err != nil {
			t.Fatalf("optimizer Tick: %v", err)
		}
		if !worked {
			break
		}
	}
	if _, err := e.manager.planPass(ctx); err != nil {
		t.Fatalf("planPass: %v", err)
	}
	lowPlan, _ := e.manager.CurrentPlan(ctx)

	settings, err := e.store.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	settings.CompressionLevel = book.CompressionHigh
	if err := e.store.UpdateSettings(ctx, settings); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	// The settings change invalidates the plan immediately.
	if _, current := e.manager.CurrentPlan(ctx); current {
		t.Fatal("plan should be stale after a compression change")
	}
	items, err := e.store.Items(ctx)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	for _, item := range items {
		if !item.NeedsProcessing(settings) {
			t.Fatal("every item should need reprocessing at the new level")
		}
	}

	if _, err := e.manager.planPass(ctx); err != nil {
		t.Fatalf("replan: %v", err)
	}
	highPlan, current := e.manager.CurrentPlan(ctx)
	if !current {
		t.Fatal("replanned result should be current")
	}
	if len(highPlan) > len(lowPlan) {
		t.Fatalf("higher compression grew the plan: %d -> %d chunks", len(lowPlan), len(highPlan))
	}
}

func TestEngineEndToEnd(t *testing.T) {
	e := newTestEngine(t)
	e.seedItems(t, 3)

	ctx := context.Background()
	if err := e.manager.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.manager.Stop()

	deadline := time.Now().Add(10 * time.Second)
	for {
		status := e.manager.Status(ctx)
		if synced(status) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("engine did not settle: %+v", status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	status := e.manager.Status(ctx)
	if !status.Running {
		t.Error("status should report running")
	}
	if status.Progress != 1.0 {
		t.Errorf("progress = %v, want 1.0", status.Progress)
	}
	if len(status.Chunks) == 0 {
		t.Fatal("no chunks in status")
	}
	for _, chunk := range status.Chunks {
		if chunk.SyncStatus != string(book.SyncSynced) {
			t.Errorf("part %d status = %s", chunk.PartNumber, chunk.SyncStatus)
		}
	}
	if len(e.remote.Uploads()) != len(status.Chunks) {
		t.Errorf("uploads = %d, chunks = %d", len(e.remote.Uploads()), len(status.Chunks))
	}
}

func synced(status StatusSummary) bool {
	if !status.Planned || !status.PlanCurrent || len(status.Chunks) == 0 {
		return false
	}
	for _, chunk := range status.Chunks {
		if chunk.SyncStatus != string(book.SyncSynced) {
			return false
		}
	}
	return true
}

// mutateDuringEncode appends an item to the book while the planner is
// verifying a batch, so the pass finishes against a moved revision.
type mutateDuringEncode struct {
	inner   *testsupport.FakeGateway
	store   *book.Store
	t       *testing.T
	mutated bool
}

func (m *mutateDuringEncode) EncodedSize(ctx context.Context, items []book.Item, title string, level book.CompressionLevel) (int64, error) {
	if !m.mutated {
		m.mutated = true
		if _, err := m.store.AddItem(ctx, "/in/surprise.jpg", book.KindImage, 9_000); err != nil {
			m.t.Fatalf("AddItem during encode: %v", err)
		}
	}
	return m.inner.EncodedSize(ctx, items, title, level)
}

func (m *mutateDuringEncode) Encode(ctx context.Context, items []book.Item, title string, level book.CompressionLevel) ([]byte, error) {
	return m.inner.Encode(ctx, items, title, level)
}

func (m *mutateDuringEncode) Compress(ctx context.Context, item book.Item, level book.CompressionLevel) (pdfengine.CompressResult, error) {
	return m.inner.Compress(ctx, item, level)
}

func (m *mutateDuringEncode) PageCount(ctx context.Context, data []byte) (int, error) {
	return m.inner.PageCount(ctx, data)
}
