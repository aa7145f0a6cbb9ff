package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"scholar-rag/internal/domain"
)

const (
	rebuildTimeout = 60 * time.Second
	initialBackoff = 10 * time.Second
	maxBackoff     = 5 * time.Minute
)

// IndexRebuilder periodically reloads the corpus snapshot and swaps a fresh
// lexical index into the holder. In-flight searches keep the index they
// loaded; the swap is atomic.
type IndexRebuilder struct {
	repo     domain.DocumentRepository
	holder   *domain.IndexHolder
	interval time.Duration
	logger   *slog.Logger
	stopChan chan struct{}
	backoff  time.Duration
}

// NewIndexRebuilder creates a rebuilder. interval <= 0 disables the periodic
// loop; Rebuild stays available for on-demand reloads.
func NewIndexRebuilder(
	repo domain.DocumentRepository,
	holder *domain.IndexHolder,
	interval time.Duration,
	logger *slog.Logger,
) *IndexRebuilder {
	return &IndexRebuilder{
		repo:     repo,
		holder:   holder,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Rebuild loads the current corpus snapshot, builds a fresh index and swaps
// it in.
func (w *IndexRebuilder) Rebuild(ctx context.Context) error {
	start := time.Now()

	chunks, err := w.repo.SnapshotChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load corpus snapshot: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("corpus snapshot is empty")
	}

	index := domain.NewLexicalIndex(chunks)
	w.holder.Swap(index)

	w.logger.Info("lexical_index_rebuilt",
		slog.Int("chunk_count", len(chunks)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// Start launches the periodic rebuild loop. No-op when the interval is zero.
func (w *IndexRebuilder) Start() {
	if w.interval <= 0 {
		w.logger.Info("index_rebuilder_disabled")
		return
	}
	w.logger.Info("index_rebuilder_started", slog.Duration("interval", w.interval))
	go w.run()
}

// Stop terminates the periodic loop.
func (w *IndexRebuilder) Stop() {
	w.logger.Info("index_rebuilder_stopping")
	close(w.stopChan)
}

func (w *IndexRebuilder) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.rebuildOnce()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(w.interval)
			}
		}
	}
}

func (w *IndexRebuilder) rebuildOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
	defer cancel()

	if err := w.Rebuild(ctx); err != nil {
		w.backoff = w.nextBackoff(w.backoff)
		w.logger.Warn("index_rebuild_failed",
			slog.String("error", err.Error()),
			slog.Duration("backoff", w.backoff))
		return
	}
	w.backoff = 0
}

func (w *IndexRebuilder) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
