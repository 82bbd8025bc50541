package normalizer

import "github.com/vietddude/tronwatch/internal/core/domain"

// ClusterResolver derives an entity cluster for a record.
type ClusterResolver interface {
	Resolve(rec *domain.TransactionRecord, current *string) *string
}

// NoopCluster keeps whatever cluster id the record already has.
type NoopCluster struct{}

func (NoopCluster) Resolve(_ *domain.TransactionRecord, current *string) *string {
	return current
}
