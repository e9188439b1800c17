package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
	"github.com/kirillkom/backlog-assistant/internal/core/ports"
)

// Snapshot is an immutable view of the corpus: the full item set plus the
// lexical model built from exactly that set. Readers never see a partially
// rebuilt snapshot; the holder swaps complete snapshots atomically.
type Snapshot struct {
	items   []domain.Item
	byID    map[string]domain.Item
	lexical *lexicalModel
	builtAt time.Time
}

func NewSnapshot(items []domain.Item) *Snapshot {
	byID := make(map[string]domain.Item, len(items))
	lexical := newLexicalModel()
	for _, item := range items {
		byID[item.ID] = item
		lexical.add(item.ID, item.Text)
	}
	lexical.finalize()
	return &Snapshot{
		items:   items,
		byID:    byID,
		lexical: lexical,
		builtAt: time.Now().UTC(),
	}
}

func (s *Snapshot) Empty() bool { return s == nil || len(s.items) == 0 }

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

func (s *Snapshot) Items() []domain.Item { return s.items }

func (s *Snapshot) ItemByID(id string) (domain.Item, bool) {
	item, ok := s.byID[id]
	return item, ok
}

// Filtered returns the complete subset matching the filter, in corpus order.
func (s *Snapshot) Filtered(filter domain.Filter) []domain.Item {
	if s == nil {
		return nil
	}
	out := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		if filter.Matches(item) {
			out = append(out, item)
		}
	}
	return out
}

// SnapshotHolder owns the current corpus snapshot and the single swap point
// used on rebuild. Drift against the item index is checked at most once per
// checkInterval.
type SnapshotHolder struct {
	index         ports.ItemIndex
	logger        *slog.Logger
	checkInterval time.Duration

	current   atomic.Pointer[Snapshot]
	lastCheck atomic.Int64
	rebuildMu sync.Mutex
}

func NewSnapshotHolder(index ports.ItemIndex, logger *slog.Logger, checkInterval time.Duration) *SnapshotHolder {
	if checkInterval <= 0 {
		checkInterval = 30 * time.Second
	}
	return &SnapshotHolder{
		index:         index,
		logger:        logger,
		checkInterval: checkInterval,
	}
}

func (h *SnapshotHolder) Current() *Snapshot { return h.current.Load() }

// Rebuild loads the full item set from the index, builds the lexical model
// and swaps the snapshot in one step.
func (h *SnapshotHolder) Rebuild(ctx context.Context) error {
	h.rebuildMu.Lock()
	defer h.rebuildMu.Unlock()

	items, err := h.index.GetByFilter(ctx, domain.Filter{}, 0)
	if err != nil {
		return fmt.Errorf("load corpus items: %w", err)
	}

	snapshot := NewSnapshot(items)
	h.current.Store(snapshot)
	h.lastCheck.Store(time.Now().UnixNano())
	h.logger.Info("snapshot_rebuilt", "items", len(items))
	return nil
}

// Refresh implements ports.SnapshotRefresher.
func (h *SnapshotHolder) Refresh(ctx context.Context) error {
	return h.Rebuild(ctx)
}

// EnsureFresh returns the current snapshot, rebuilding first when none exists
// or when the index item count has drifted since the last check. A failed
// drift probe keeps the old snapshot rather than failing the request.
func (h *SnapshotHolder) EnsureFresh(ctx context.Context) (*Snapshot, error) {
	snapshot := h.current.Load()
	if snapshot == nil {
		if err := h.Rebuild(ctx); err != nil {
			return nil, err
		}
		return h.current.Load(), nil
	}

	last := h.lastCheck.Load()
	now := time.Now().UnixNano()
	if now-last < h.checkInterval.Nanoseconds() {
		return snapshot, nil
	}
	if !h.lastCheck.CompareAndSwap(last, now) {
		return snapshot, nil
	}

	count, err := h.index.Count(ctx)
	if err != nil {
		h.logger.Warn("snapshot_drift_check_failed", "error", err)
		return snapshot, nil
	}
	if count == snapshot.Len() {
		return snapshot, nil
	}

	h.logger.Info("snapshot_drift_detected", "indexed", count, "cached", snapshot.Len())
	if err := h.Rebuild(ctx); err != nil {
		h.logger.Warn("snapshot_rebuild_failed", "error", err)
		return snapshot, nil
	}
	return h.current.Load(), nil
}
