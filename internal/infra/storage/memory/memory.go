package memory

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// MemoryStorage keeps everything in process. Used when no database is configured
// and in tests.
type MemoryStorage struct {
	blocks  map[uint64]*domain.BlockRecord
	txs     map[string]*domain.TransactionRecord
	state   *domain.SyncState
	labels  map[string]*domain.AddressLabel
	corrupt []domain.CorruptEntry
	mu      sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		blocks: make(map[uint64]*domain.BlockRecord),
		txs:    make(map[string]*domain.TransactionRecord),
		labels: make(map[string]*domain.AddressLabel),
	}
}

// -----------------------------------------------------------------------------
// Block Repository
// -----------------------------------------------------------------------------

type BlockRepo struct {
	store *MemoryStorage
}

func NewBlockRepo(store *MemoryStorage) *BlockRepo {
	return &BlockRepo{store: store}
}

func (r *BlockRepo) Upsert(ctx context.Context, block *domain.BlockRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *block
	r.store.blocks[block.BlockNumber] = &cp
	return nil
}

func (r *BlockRepo) GetByNumber(ctx context.Context, num uint64) (*domain.BlockRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	b, ok := r.store.blocks[num]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *BlockRepo) Lowest(ctx context.Context) (uint64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if len(r.store.blocks) == 0 {
		return 0, domain.ErrNotFound
	}
	lowest := uint64(math.MaxUint64)
	for n := range r.store.blocks {
		lowest = min(lowest, n)
	}
	return lowest, nil
}

func (r *BlockRepo) MissingInRange(ctx context.Context, from, to uint64, limit int) ([]uint64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var missing []uint64
	for n := from; n < to && len(missing) < limit; n++ {
		if _, ok := r.store.blocks[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing, nil
}

// -----------------------------------------------------------------------------
// Transaction Repository
// -----------------------------------------------------------------------------

type TxRepo struct {
	store *MemoryStorage
}

func NewTxRepo(store *MemoryStorage) *TxRepo {
	return &TxRepo{store: store}
}

func (r *TxRepo) BulkUpsert(ctx context.Context, txs []*domain.TransactionRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, tx := range txs {
		cp := *tx
		r.store.txs[tx.TxID] = &cp
	}
	return nil
}

func (r *TxRepo) GetByID(ctx context.Context, txID string) (*domain.TransactionRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	tx, ok := r.store.txs[txID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

// Count returns the number of stored transactions.
func (r *TxRepo) Count() int {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.txs)
}

// -----------------------------------------------------------------------------
// Sync State Repository
// -----------------------------------------------------------------------------

type SyncStateRepo struct {
	store *MemoryStorage
}

func NewSyncStateRepo(store *MemoryStorage) *SyncStateRepo {
	return &SyncStateRepo{store: store}
}

func (r *SyncStateRepo) Get(ctx context.Context) (*domain.SyncState, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if r.store.state == nil {
		return nil, domain.ErrNotFound
	}
	return cloneState(r.store.state), nil
}

func (r *SyncStateRepo) Create(ctx context.Context, cursor, height uint64) (*domain.SyncState, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.state == nil {
		r.store.state = &domain.SyncState{
			CursorBlock:       cursor,
			LastNetworkHeight: height,
			UpdatedAt:         time.Now(),
		}
	}
	return cloneState(r.store.state), nil
}

func (r *SyncStateRepo) AdvanceCursor(ctx context.Context, block uint64) error {
	return r.update(func(s *domain.SyncState) {
		s.CursorBlock = max(s.CursorBlock, block)
		s.Backfill = without(s.Backfill, block)
	})
}

func (r *SyncStateRepo) AddBackfill(ctx context.Context, blocks []uint64) error {
	if len(blocks) == 0 {
		return nil
	}
	return r.update(func(s *domain.SyncState) {
		s.Backfill = union(s.Backfill, blocks)
	})
}

func (r *SyncStateRepo) RemoveBackfill(ctx context.Context, blocks []uint64) error {
	if len(blocks) == 0 {
		return nil
	}
	return r.update(func(s *domain.SyncState) {
		s.Backfill = without(s.Backfill, blocks...)
	})
}

func (r *SyncStateRepo) TrimBackfill(ctx context.Context, maxHeight uint64) error {
	return r.update(func(s *domain.SyncState) {
		s.Backfill = slices.DeleteFunc(s.Backfill, func(b uint64) bool {
			return b == 0 || b > maxHeight
		})
	})
}

func (r *SyncStateRepo) RecordFailure(ctx context.Context, block uint64, syncErr domain.SyncError) error {
	return r.update(func(s *domain.SyncState) {
		s.Backfill = union(s.Backfill, []uint64{block})
		syncErr.Block = block
		s.LastError = &syncErr
	})
}

func (r *SyncStateRepo) SetNetworkHeight(ctx context.Context, height uint64) error {
	return r.update(func(s *domain.SyncState) {
		s.LastNetworkHeight = height
	})
}

func (r *SyncStateRepo) SetParityTarget(ctx context.Context, target *uint64) error {
	return r.update(func(s *domain.SyncState) {
		if target == nil {
			s.ParityTarget = nil
			return
		}
		t := *target
		s.ParityTarget = &t
	})
}

func (r *SyncStateRepo) update(fn func(s *domain.SyncState)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.state == nil {
		return domain.ErrNotFound
	}
	fn(r.store.state)
	r.store.state.UpdatedAt = time.Now()
	return nil
}

func cloneState(s *domain.SyncState) *domain.SyncState {
	cp := *s
	cp.Backfill = slices.Clone(s.Backfill)
	if s.ParityTarget != nil {
		t := *s.ParityTarget
		cp.ParityTarget = &t
	}
	if s.LastError != nil {
		e := *s.LastError
		cp.LastError = &e
	}
	return &cp
}

// union returns the sorted distinct union of a and b.
func union(a, b []uint64) []uint64 {
	out := slices.Concat(a, b)
	slices.Sort(out)
	return slices.Compact(out)
}

func without(set []uint64, drop ...uint64) []uint64 {
	return slices.DeleteFunc(set, func(b uint64) bool {
		return slices.Contains(drop, b)
	})
}

// -----------------------------------------------------------------------------
// Corrupt sink and address labels
// -----------------------------------------------------------------------------

type CorruptRepo struct {
	store *MemoryStorage
}

func NewCorruptRepo(store *MemoryStorage) *CorruptRepo {
	return &CorruptRepo{store: store}
}

func (r *CorruptRepo) RecordBlock(ctx context.Context, entry domain.CorruptEntry) error {
	return r.append(entry)
}

func (r *CorruptRepo) RecordTransaction(ctx context.Context, entry domain.CorruptEntry) error {
	return r.append(entry)
}

func (r *CorruptRepo) append(entry domain.CorruptEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.corrupt = append(r.store.corrupt, entry)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (r *CorruptRepo) Entries() []domain.CorruptEntry {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return slices.Clone(r.store.corrupt)
}

type LabelRepo struct {
	store *MemoryStorage
}

func NewLabelRepo(store *MemoryStorage) *LabelRepo {
	return &LabelRepo{store: store}
}

func (r *LabelRepo) Get(ctx context.Context, address string) (*domain.AddressLabel, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	l, ok := r.store.labels[address]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *LabelRepo) Upsert(ctx context.Context, label *domain.AddressLabel) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *label
	r.store.labels[label.Address] = &cp
	return nil
}
