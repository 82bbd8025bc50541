package normalizer

import (
	"slices"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// MaxRelated caps related transaction and address lists per record.
const MaxRelated = 25

// PatternShuffle marks a transfer whose recipient sends again within the same block.
const PatternShuffle = "shuffle"

// Scope is the per-block address index. Allocate one per block and drop it after persistence.
type Scope struct {
	byAddress map[string][]string
	senders   map[string][]string
	cluster   ClusterResolver
}

func (n *Normalizer) NewScope() *Scope {
	return &Scope{
		byAddress: make(map[string][]string),
		senders:   make(map[string][]string),
		cluster:   n.cluster,
	}
}

func (s *Scope) track(rec *domain.TransactionRecord) {
	for _, addr := range rec.Addresses() {
		s.byAddress[addr] = append(s.byAddress[addr], rec.TxID)
	}
	if rec.From.Address != "" {
		s.senders[rec.From.Address] = append(s.senders[rec.From.Address], rec.TxID)
	}
}

// Finalize fills the analysis section of every record normalized in this scope.
// Records sharing an address are cross-linked in block order.
func (s *Scope) Finalize(records []*domain.TransactionRecord) {
	byID := make(map[string]*domain.TransactionRecord, len(records))
	for _, rec := range records {
		byID[rec.TxID] = rec
	}

	for _, rec := range records {
		own := rec.Addresses()
		related := make([]string, 0)
		addresses := make([]string, 0)

		for _, addr := range own {
			for _, id := range s.byAddress[addr] {
				if id == rec.TxID || slices.Contains(related, id) {
					continue
				}
				if len(related) < MaxRelated {
					related = append(related, id)
				}
				other, ok := byID[id]
				if !ok {
					continue
				}
				for _, a := range other.Addresses() {
					if len(addresses) < MaxRelated && !slices.Contains(own, a) && !slices.Contains(addresses, a) {
						addresses = append(addresses, a)
					}
				}
			}
		}

		rec.Analysis.RelatedTransactions = related
		rec.Analysis.RelatedAddresses = addresses
		if s.forwards(rec) {
			rec.Analysis.Patterns = append(rec.Analysis.Patterns, PatternShuffle)
		}
		rec.Analysis.ClusterID = s.cluster.Resolve(rec, rec.Analysis.ClusterID)
	}
}

// forwards reports whether the recipient of rec sends again later in the block.
func (s *Scope) forwards(rec *domain.TransactionRecord) bool {
	to := rec.To.Address
	if to == "" || to == rec.From.Address || rec.Amount == 0 {
		return false
	}
	sent := s.senders[to]
	pos := slices.Index(s.byAddress[to], rec.TxID)
	for _, id := range sent {
		if slices.Index(s.byAddress[to], id) > pos {
			return true
		}
	}
	return false
}
