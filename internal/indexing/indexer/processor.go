package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/indexing/emitter"
	"github.com/vietddude/tronwatch/internal/indexing/metrics"
	"github.com/vietddude/tronwatch/internal/indexing/normalizer"
)

// Processor processes one block per call. It is safe for concurrent use, but
// blocks are expected to arrive one at a time from the job queue.
type Processor struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewProcessor(cfg Config) *Processor {
	return &Processor{
		cfg:    cfg,
		logger: slog.Default().With("component", "processor"),
		now:    time.Now,
	}
}

// ProcessBlock runs the pipeline for blockNumber. Any failure is recorded
// (cooldown, backfill, lastError) before it is returned; nothing is retried here.
func (p *Processor) ProcessBlock(ctx context.Context, blockNumber uint64) error {
	start := p.now()
	if err := p.process(ctx, blockNumber, start); err != nil {
		p.cfg.Recovery.HandleFailure(ctx, blockNumber, err)
		return fmt.Errorf("block %d: %w", blockNumber, err)
	}
	return nil
}

func (p *Processor) process(ctx context.Context, blockNumber uint64, start time.Time) error {
	raw, err := p.cfg.Fetcher.GetBlockByNumber(ctx, blockNumber)
	if err != nil {
		return fmt.Errorf("failed to fetch block: %w", err)
	}

	ts, err := NormalizeTimestamp(raw.Timestamp)
	if err != nil {
		p.recordCorruptBlock(ctx, blockNumber, raw, err)
		return err
	}

	if p.cfg.Throttle != nil {
		if _, err := p.cfg.Throttle.Wait(ctx, blockNumber); err != nil {
			return err
		}
	}

	records, skipped, corrupt := p.normalize(ctx, blockNumber, raw, ts)
	p.enrich(ctx, records)

	if len(records) > 0 {
		if err := p.cfg.Transactions.BulkUpsert(ctx, records); err != nil {
			return fmt.Errorf("failed to save transactions: %w", err)
		}
	}

	stats := computeStats(records, skipped, corrupt)
	block := &domain.BlockRecord{
		BlockNumber:      blockNumber,
		BlockID:          raw.BlockID,
		ParentHash:       raw.ParentHash,
		WitnessAddress:   raw.WitnessAddress,
		Timestamp:        ts,
		TransactionCount: len(raw.Transactions),
		Size:             raw.Size,
		Stats:            stats,
		ProcessedAt:      p.now().UTC(),
	}
	if err := p.cfg.Blocks.Upsert(ctx, block); err != nil {
		return fmt.Errorf("failed to save block: %w", err)
	}

	if err := p.cfg.Cursor.Advance(ctx, blockNumber); err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}

	elapsed := p.now().Sub(start)
	metrics.BlocksProcessed.Inc()
	metrics.BlockDuration.Observe(elapsed.Seconds())

	p.finalize(ctx, block, records, elapsed)
	return nil
}

// normalize converts every raw transaction in block order. Transactions that
// fail are written to the corrupt sink and skipped.
func (p *Processor) normalize(
	ctx context.Context,
	blockNumber uint64,
	raw *domain.RawBlock,
	ts time.Time,
) (records []*domain.TransactionRecord, skipped, corrupt int) {
	bc := normalizer.BlockContext{Number: blockNumber, Timestamp: ts}
	if p.cfg.Prices != nil && len(raw.Transactions) > 0 {
		if price, ok := p.cfg.Prices.SpotPrice(ctx); ok {
			bc.SpotPrice = &price
		}
	}

	scope := p.cfg.Normalizer.NewScope()
	records = make([]*domain.TransactionRecord, 0, len(raw.Transactions))
	for _, tx := range raw.Transactions {
		rec, err := p.normalizeOne(bc, tx, scope)
		switch {
		case err != nil:
			corrupt++
			metrics.TransactionsTotal.WithLabelValues("corrupt").Inc()
			p.logger.Warn("Skipping malformed transaction", "block", bc.Number, "tx", tx.TxID, "error", err)
			p.recordCorruptTx(ctx, bc.Number, tx, err)
		case rec == nil:
			skipped++
			metrics.TransactionsTotal.WithLabelValues("skipped").Inc()
		default:
			metrics.TransactionsTotal.WithLabelValues("normalized").Inc()
			records = append(records, rec)
		}
	}
	scope.Finalize(records)
	return records, skipped, corrupt
}

func (p *Processor) normalizeOne(
	bc normalizer.BlockContext,
	tx domain.RawTransaction,
	scope *normalizer.Scope,
) (rec *domain.TransactionRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("normalizer panic: %v", r)
		}
	}()
	return p.cfg.Normalizer.Normalize(bc, tx, scope)
}

// enrich fills party labels. Each distinct address is looked up once.
func (p *Processor) enrich(ctx context.Context, records []*domain.TransactionRecord) {
	if p.cfg.Labels == nil || len(records) == 0 {
		return
	}
	var addrs []string
	for _, rec := range records {
		addrs = append(addrs, rec.Addresses()...)
	}
	labels := p.cfg.Labels.LookupAll(ctx, addrs)
	for _, rec := range records {
		applyLabel(&rec.From, labels)
		applyLabel(&rec.To, labels)
	}
}

func applyLabel(party *domain.Party, labels map[string]domain.AddressInfo) {
	info, ok := labels[party.Address]
	if !ok {
		return
	}
	if info.Type != "" {
		party.Type = info.Type
	}
	if info.Name != "" {
		party.Name = info.Name
	}
}

// finalize publishes the block event and dispatches records to observers.
// Nothing here fails the block.
func (p *Processor) finalize(
	ctx context.Context,
	block *domain.BlockRecord,
	records []*domain.TransactionRecord,
	elapsed time.Duration,
) {
	if p.cfg.Broadcaster != nil {
		event := &emitter.BlockProcessed{
			BlockNumber:      block.BlockNumber,
			BlockID:          block.BlockID,
			Timestamp:        block.Timestamp,
			TransactionCount: block.TransactionCount,
			Stats:            block.Stats,
			DurationMs:       elapsed.Milliseconds(),
		}
		if err := p.cfg.Broadcaster.Publish(ctx, emitter.EventBlockProcessed, event); err != nil {
			p.logger.Warn("Failed to broadcast block", "block", block.BlockNumber, "error", err)
		}
	}

	if p.cfg.Observers != nil {
		for _, rec := range records {
			p.cfg.Observers.Dispatch(rec)
		}
	}

	p.logger.Debug("Block processed",
		"block", block.BlockNumber,
		"txs", block.Stats.Transactions,
		"skipped", block.Stats.Skipped,
		"corrupt", block.Stats.Corrupt,
		"duration", elapsed,
	)
}

func (p *Processor) recordCorruptBlock(ctx context.Context, blockNumber uint64, raw *domain.RawBlock, err error) {
	if p.cfg.Corrupt == nil {
		return
	}
	entry := domain.CorruptEntry{
		Timestamp:   p.now().UTC(),
		BlockNumber: blockNumber,
		Error:       err.Error(),
		Raw:         raw.Raw,
	}
	if serr := p.cfg.Corrupt.RecordBlock(ctx, entry); serr != nil {
		p.logger.Error("Failed to record corrupt block", "block", blockNumber, "error", serr)
	}
}

func (p *Processor) recordCorruptTx(ctx context.Context, blockNumber uint64, tx domain.RawTransaction, err error) {
	if p.cfg.Corrupt == nil {
		return
	}
	entry := domain.CorruptEntry{
		Timestamp:   p.now().UTC(),
		BlockNumber: blockNumber,
		TxID:        tx.TxID,
		Error:       err.Error(),
		Raw:         tx.Raw,
	}
	if serr := p.cfg.Corrupt.RecordTransaction(ctx, entry); serr != nil {
		p.logger.Error("Failed to record corrupt transaction", "block", blockNumber, "tx", tx.TxID, "error", serr)
	}
}
