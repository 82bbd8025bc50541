package normalizer

import (
	"github.com/shopspring/decimal"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

func energy(info *domain.RawTxInfo) *domain.Resource {
	consumed := info.EnergyUsageTotal
	if consumed == 0 {
		consumed = info.EnergyUsage
	}
	return newResource(consumed, info.EnergyFee)
}

func bandwidth(info *domain.RawTxInfo) *domain.Resource {
	return newResource(info.NetUsage, info.NetFee)
}

// newResource returns nil when nothing was consumed or paid. Price is SUN per unit.
func newResource(consumed, cost int64) *domain.Resource {
	if consumed == 0 && cost == 0 {
		return nil
	}
	r := &domain.Resource{Consumed: consumed, TotalCost: cost, Price: decimal.Zero}
	if consumed > 0 {
		r.Price = decimal.NewFromInt(cost).DivRound(decimal.NewFromInt(consumed), 4)
	}
	return r
}
