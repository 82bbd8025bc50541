package indexer

import "github.com/vietddude/tronwatch/internal/core/domain"

// computeStats aggregates the normalized records of one block. skipped and
// corrupt count transactions that produced no record.
func computeStats(records []*domain.TransactionRecord, skipped, corrupt int) domain.BlockStats {
	stats := domain.BlockStats{
		Transactions: len(records),
		Skipped:      skipped,
		Corrupt:      corrupt,
	}
	for _, rec := range records {
		switch {
		case rec.Type.IsTransfer():
			stats.Transfers++
		case rec.Type.IsContractCall():
			stats.ContractCalls++
		case rec.Type.IsDelegation():
			stats.Delegations++
		case rec.Type.IsStake():
			stats.Stakes++
		case rec.Type.IsTokenCreation():
			stats.TokenCreations++
		}
		stats.InternalTransactions += len(rec.InternalTransactions)
		if rec.Energy != nil {
			stats.EnergyUsed += rec.Energy.Consumed
			stats.EnergyCost += rec.Energy.TotalCost
		}
		if rec.Bandwidth != nil {
			stats.BandwidthUsed += rec.Bandwidth.Consumed
			stats.BandwidthCost += rec.Bandwidth.TotalCost
		}
	}
	return stats
}
