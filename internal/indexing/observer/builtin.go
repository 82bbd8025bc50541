package observer

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/indexing/emitter"
	"github.com/vietddude/tronwatch/internal/indexing/filter"
)

// BroadcastObserver publishes every transaction.
type BroadcastObserver struct {
	broadcaster emitter.Broadcaster
}

func NewBroadcastObserver(b emitter.Broadcaster) *BroadcastObserver {
	return &BroadcastObserver{broadcaster: b}
}

func (o *BroadcastObserver) Name() string { return "broadcast" }

func (o *BroadcastObserver) Handle(ctx context.Context, batch Batch) error {
	var errs []error
	for _, rec := range batch {
		if err := o.broadcaster.Publish(ctx, emitter.EventTransaction, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WhaleObserver publishes TRX transfers at or above a threshold in TRX.
type WhaleObserver struct {
	broadcaster emitter.Broadcaster
	threshold   decimal.Decimal
}

func NewWhaleObserver(b emitter.Broadcaster, threshold float64) *WhaleObserver {
	return &WhaleObserver{broadcaster: b, threshold: decimal.NewFromFloat(threshold)}
}

func (o *WhaleObserver) Name() string { return "whale" }

func (o *WhaleObserver) Handle(ctx context.Context, batch Batch) error {
	var errs []error
	for _, rec := range batch {
		if !o.matches(rec) {
			continue
		}
		whale := &emitter.Whale{
			TxID:            rec.TxID,
			BlockNumber:     rec.BlockNumber,
			From:            rec.From.Address,
			To:              rec.To.Address,
			AmountMajorUnit: rec.AmountMajorUnit,
			AmountQuote:     rec.AmountQuote,
		}
		if err := o.broadcaster.Publish(ctx, emitter.EventWhale, whale); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *WhaleObserver) matches(rec *domain.TransactionRecord) bool {
	return rec.Type == domain.ContractTransfer && rec.AmountMajorUnit.GreaterThanOrEqual(o.threshold)
}

// WatchObserver publishes transactions touching a tracked address.
type WatchObserver struct {
	broadcaster emitter.Broadcaster
	filter      filter.Filter
}

func NewWatchObserver(b emitter.Broadcaster, f filter.Filter) *WatchObserver {
	return &WatchObserver{broadcaster: b, filter: f}
}

func (o *WatchObserver) Name() string { return "watch" }

func (o *WatchObserver) Handle(ctx context.Context, batch Batch) error {
	var errs []error
	for _, rec := range batch {
		var hits []string
		for _, addr := range rec.Addresses() {
			if o.filter.Contains(addr) {
				hits = append(hits, addr)
			}
		}
		if len(hits) == 0 {
			continue
		}
		event := &emitter.Watched{Addresses: hits, Transaction: rec}
		if err := o.broadcaster.Publish(ctx, emitter.EventWatched, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
