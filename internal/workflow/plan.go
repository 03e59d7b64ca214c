package workflow

import (
	"context"

	"bindery/internal/book"
	"bindery/internal/logging"
	"bindery/internal/planner"
)

// planPass recomputes the chunk partition when the book has changed since
// the last published plan. The pass snapshots the book, runs the planner,
// and re-reads the revision before publishing: if an edit or a cache commit
// landed while the encoder was verifying batches, the result is discarded
// and the next tick replans from fresh state.
func (m *Manager) planPass(ctx context.Context) (bool, error) {
	snap, err := m.store.Snapshot(ctx)
	if err != nil {
		return false, err
	}

	m.planMu.RLock()
	current := m.planRevision
	m.planMu.RUnlock()
	if current == snap.Revision {
		return false, nil
	}

	chunks, err := planner.Plan(ctx, snap.Items, snap.Title, snap.Settings, m.gateway)
	if err != nil {
		return false, err
	}

	revision, err := m.store.Revision(ctx)
	if err != nil {
		return false, err
	}
	if revision != snap.Revision {
		m.logger.Debug("planning pass superseded, result discarded",
			logging.Int64("planned_revision", snap.Revision),
			logging.Int64("current_revision", revision),
		)
		return true, nil
	}

	m.planMu.Lock()
	m.planChunks = chunks
	m.planSnap = snap
	m.planRevision = snap.Revision
	m.planMu.Unlock()

	for _, chunk := range chunks {
		if chunk.Oversized {
			m.logger.Warn("plan contains oversized chunk",
				logging.Int(logging.FieldPart, chunk.PartNumber),
				logging.Int64("verified_size", chunk.VerifiedSizeBytes),
				logging.String(logging.FieldErrorHint, "raise the compression level or remove the item"),
			)
		}
	}
	m.logger.Info("plan updated",
		logging.Int("chunks", len(chunks)),
		logging.Int64("revision", snap.Revision),
	)
	return true, nil
}

// syncPass reconciles the published plan against remote state. A plan whose
// revision trails the store is stale; syncing it would upload boundaries
// the next planning pass is about to replace, so the pass waits instead.
func (m *Manager) syncPass(ctx context.Context) (bool, error) {
	m.planMu.RLock()
	chunks := m.planChunks
	snap := m.planSnap
	planRevision := m.planRevision
	m.planMu.RUnlock()

	if snap == nil {
		return false, nil
	}
	revision, err := m.store.Revision(ctx)
	if err != nil {
		return false, err
	}
	if revision != planRevision {
		return false, nil
	}
	return m.syncer.Tick(ctx, snap, chunks)
}

// CurrentPlan returns the most recently published chunk plan and whether it
// is current with the book's revision.
func (m *Manager) CurrentPlan(ctx context.Context) ([]book.Chunk, bool) {
	m.planMu.RLock()
	chunks := m.planChunks
	planRevision := m.planRevision
	m.planMu.RUnlock()

	if planRevision < 0 {
		return nil, false
	}
	revision, err := m.store.Revision(ctx)
	if err != nil {
		return chunks, false
	}
	return chunks, revision == planRevision
}
