package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"bindery/internal/logging"
)

type lane struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) (bool, error)
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	// An upload interrupted by a crash never completed; return the slot to
	// waiting so reconciliation picks it up again.
	if reset, err := m.store.ResetUploading(runCtx); err != nil {
		m.logger.Warn("failed to reset interrupted uploads", logging.Error(err))
	} else if reset > 0 {
		m.logger.Info("reset interrupted uploads", logging.Int64("count", reset))
	}

	lanes := []lane{
		{
			name:     "optimizer",
			interval: m.tickInterval(m.cfg.Workflow.OptimizerTickMS, 150*time.Millisecond),
			run:      m.optimizer.Tick,
		},
		{
			name:     "planner",
			interval: m.tickInterval(m.cfg.Workflow.PlannerTickMS, 500*time.Millisecond),
			run:      m.planPass,
		},
		{
			name:     "syncer",
			interval: m.tickInterval(m.cfg.Workflow.SyncTickMS, 1500*time.Millisecond),
			run:      m.syncPass,
		},
	}

	m.wg.Add(len(lanes))
	for _, ln := range lanes {
		go m.runLane(runCtx, ln)
	}
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLane(ctx context.Context, ln lane) {
	defer m.wg.Done()
	logger := logging.NewComponentLogger(m.logger, ln.name)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, err := ln.run(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.setLastError(err)
			m.sleepForError(ctx, logger, err)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(ln.interval):
		}
	}
}

func (m *Manager) sleepForError(ctx context.Context, logger *slog.Logger, err error) {
	logger.Warn("lane pass failed, backing off",
		logging.Error(err),
		logging.String(logging.FieldEventType, "lane_pass_failed"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.errorRetryInterval()):
	}
}
