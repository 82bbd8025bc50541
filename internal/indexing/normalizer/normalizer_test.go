package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/tronwatch/internal/core/domain"
	"github.com/vietddude/tronwatch/internal/infra/chain/tron"
)

func hexAddr(c string) string {
	return "41" + strings.Repeat(c, 40)
}

func b58(t *testing.T, h string) string {
	t.Helper()
	addr, ok := tron.EncodeAddress(h)
	require.True(t, ok)
	return addr
}

func newNormalizer() *Normalizer {
	return New(tron.NewClient(nil), nil)
}

var testBlock = BlockContext{Number: 100, Timestamp: time.UnixMilli(1_700_000_000_000)}

func rawTx(id, typ string, value map[string]any) domain.RawTransaction {
	return domain.RawTransaction{
		TxID:      id,
		Contracts: []domain.RawContract{{Type: typ, Value: value}},
	}
}

func TestNormalize_Transfer(t *testing.T) {
	n := newNormalizer()
	rec, err := n.Normalize(testBlock, rawTx("tx1", "TransferContract", map[string]any{
		"owner_address": hexAddr("a"),
		"to_address":    hexAddr("b"),
		"amount":        "2000000",
	}), nil)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, domain.ContractTransfer, rec.Type)
	assert.Equal(t, int64(2000000), rec.Amount)
	assert.True(t, rec.AmountMajorUnit.Equal(decimal.NewFromFloat(2.0)), rec.AmountMajorUnit.String())
	assert.Equal(t, b58(t, hexAddr("a")), rec.From.Address)
	assert.Equal(t, b58(t, hexAddr("b")), rec.To.Address)
	assert.Equal(t, domain.AddressTypeAccount, rec.To.Type)
	assert.Equal(t, "transfer", rec.ContractDescription.Method)
	assert.Nil(t, rec.AmountQuote)
	assert.Nil(t, rec.Energy)
	assert.Nil(t, rec.Bandwidth)
	assert.Equal(t, uint64(100), rec.BlockNumber)
}

func TestNormalize_NoContractIsSkipped(t *testing.T) {
	n := newNormalizer()
	rec, err := n.Normalize(testBlock, domain.RawTransaction{TxID: "tx"}, nil)
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestNormalize_UnknownContract(t *testing.T) {
	n := newNormalizer()
	rec, err := n.Normalize(testBlock, rawTx("tx", "ExchangeCreateContract", map[string]any{
		"owner_address":        hexAddr("a"),
		"first_token_balance":  float64(10),
		"second_token_balance": float64(20),
	}), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.ContractUnknown, rec.Type)
	assert.Equal(t, "ExchangeCreateContract", rec.ContractDescription.Method)
	assert.Equal(t, float64(10), rec.ContractDescription.Parameters["first_token_balance"])
	assert.Empty(t, rec.To.Address)
}

func TestNormalize_TypeSpecificRecipients(t *testing.T) {
	owner, receiver := hexAddr("a"), hexAddr("c")

	tests := []struct {
		name       string
		typ        string
		value      map[string]any
		wantType   domain.ContractType
		wantTo     string
		wantAmount int64
	}{
		{
			name:       "delegation uses receiver",
			typ:        "DelegateResourceContract",
			value:      map[string]any{"owner_address": owner, "receiver_address": receiver, "balance": float64(5_000_000), "resource": "ENERGY"},
			wantType:   domain.ContractDelegateResource,
			wantTo:     receiver,
			wantAmount: 5_000_000,
		},
		{
			name:       "undelegation uses receiver",
			typ:        "UnDelegateResourceContract",
			value:      map[string]any{"owner_address": owner, "receiver_address": receiver, "balance": float64(1)},
			wantType:   domain.ContractUnDelegateResource,
			wantTo:     receiver,
			wantAmount: 1,
		},
		{
			name:       "stake v2 defaults to owner",
			typ:        "FreezeBalanceV2Contract",
			value:      map[string]any{"owner_address": owner, "frozen_balance": float64(7_000_000)},
			wantType:   domain.ContractFreezeBalanceV2,
			wantTo:     owner,
			wantAmount: 7_000_000,
		},
		{
			name:       "stake v1 with receiver",
			typ:        "FreezeBalanceContract",
			value:      map[string]any{"owner_address": owner, "receiver_address": receiver, "frozen_balance": float64(3)},
			wantType:   domain.ContractFreezeBalance,
			wantTo:     receiver,
			wantAmount: 3,
		},
		{
			name:       "unstake v2",
			typ:        "UnfreezeBalanceV2Contract",
			value:      map[string]any{"owner_address": owner, "unfreeze_balance": float64(9)},
			wantType:   domain.ContractUnfreezeBalanceV2,
			wantTo:     owner,
			wantAmount: 9,
		},
		{
			name:     "account create",
			typ:      "AccountCreateContract",
			value:    map[string]any{"owner_address": owner, "account_address": receiver},
			wantType: domain.ContractAccountCreate,
			wantTo:   receiver,
		},
		{
			name:     "withdraw",
			typ:      "WithdrawBalanceContract",
			value:    map[string]any{"owner_address": owner},
			wantType: domain.ContractWithdrawBalance,
			wantTo:   owner,
		},
	}

	n := newNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := n.Normalize(testBlock, rawTx("tx", tt.typ, tt.value), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, rec.Type)
			assert.Equal(t, b58(t, tt.wantTo), rec.To.Address)
			assert.Equal(t, tt.wantAmount, rec.Amount)
		})
	}
}

func TestNormalize_TRC20Transfer(t *testing.T) {
	recipient := strings.Repeat("d", 40)
	data := selectorTransfer +
		strings.Repeat("0", 24) + recipient +
		fmt.Sprintf("%064x", 1_500_000)

	n := newNormalizer()
	rec, err := n.Normalize(testBlock, rawTx("tx", "TriggerSmartContract", map[string]any{
		"owner_address":    hexAddr("a"),
		"contract_address": hexAddr("e"),
		"data":             data,
	}), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.ContractTriggerSmart, rec.Type)
	assert.Equal(t, SubTypeTRC20Transfer, rec.SubType)
	assert.Equal(t, domain.AddressTypeContract, rec.To.Type)
	assert.Equal(t, b58(t, hexAddr("e")), rec.ContractDescription.Address)
	assert.Equal(t, "transfer", rec.ContractDescription.Method)
	assert.Equal(t, b58(t, "41"+recipient), rec.ContractDescription.Parameters["to"])
	assert.Equal(t, "1500000", rec.ContractDescription.Parameters["value"])
	assert.Equal(t, int64(0), rec.Amount)
}

func TestNormalize_QuoteMemoAndResources(t *testing.T) {
	price := decimal.RequireFromString("0.123456")
	block := testBlock
	block.SpotPrice = &price

	raw := rawTx("tx", "TransferContract", map[string]any{
		"owner_address": hexAddr("a"),
		"to_address":    hexAddr("b"),
		"amount":        float64(2_000_000),
	})
	raw.Data = "68656c6c6f"
	raw.Info = &domain.RawTxInfo{
		EnergyUsageTotal: 0,
		NetUsage:         268,
		Internal: []domain.RawInternalTx{
			{Hash: "itx", Caller: hexAddr("a"), TransferTo: hexAddr("b"), CallValue: 5},
		},
	}

	rec, err := newNormalizer().Normalize(block, raw, nil)
	require.NoError(t, err)

	require.NotNil(t, rec.AmountQuote)
	assert.Equal(t, "0.25", rec.AmountQuote.String())
	assert.Equal(t, "hello", rec.Memo)
	assert.Nil(t, rec.Energy, "zero energy is omitted")
	require.NotNil(t, rec.Bandwidth)
	assert.Equal(t, int64(268), rec.Bandwidth.Consumed)
	require.Len(t, rec.InternalTransactions, 1)
	assert.Equal(t, int64(5), rec.InternalTransactions[0].Amount)
}

func TestNormalize_EnergyPrice(t *testing.T) {
	raw := rawTx("tx", "TriggerSmartContract", map[string]any{
		"owner_address":    hexAddr("a"),
		"contract_address": hexAddr("e"),
	})
	raw.Info = &domain.RawTxInfo{EnergyUsageTotal: 1000, EnergyFee: 420000}

	rec, err := newNormalizer().Normalize(testBlock, raw, nil)
	require.NoError(t, err)
	require.NotNil(t, rec.Energy)
	assert.Equal(t, int64(1000), rec.Energy.Consumed)
	assert.Equal(t, int64(420000), rec.Energy.TotalCost)
	assert.Equal(t, "420", rec.Energy.Price.String())
}

func TestNormalize_MalformedAddress(t *testing.T) {
	_, err := newNormalizer().Normalize(testBlock, rawTx("tx", "TransferContract", map[string]any{
		"owner_address": "not-hex",
		"to_address":    hexAddr("b"),
	}), nil)
	assert.Error(t, err)
}

func TestScope_RelatedTransactions(t *testing.T) {
	n := newNormalizer()
	scope := n.NewScope()

	transfer := func(id, from, to string) *domain.TransactionRecord {
		rec, err := n.Normalize(testBlock, rawTx(id, "TransferContract", map[string]any{
			"owner_address": hexAddr(from),
			"to_address":    hexAddr(to),
			"amount":        float64(1),
		}), scope)
		require.NoError(t, err)
		return rec
	}

	r1 := transfer("t1", "a", "b")
	r2 := transfer("t2", "b", "c")
	r3 := transfer("t3", "d", "e")
	records := []*domain.TransactionRecord{r1, r2, r3}
	scope.Finalize(records)

	assert.Equal(t, []string{"t2"}, r1.Analysis.RelatedTransactions)
	assert.Equal(t, []string{"t1"}, r2.Analysis.RelatedTransactions)
	assert.Empty(t, r3.Analysis.RelatedTransactions)

	assert.Equal(t, []string{b58(t, hexAddr("c"))}, r1.Analysis.RelatedAddresses)
	assert.Contains(t, r1.Analysis.Patterns, PatternShuffle, "b received and sent again")
	assert.NotContains(t, r2.Analysis.Patterns, PatternShuffle)
	assert.Nil(t, r1.Analysis.ClusterID)
}

func TestScope_RelatedCap(t *testing.T) {
	n := newNormalizer()
	scope := n.NewScope()

	records := make([]*domain.TransactionRecord, 0, 40)
	for i := 0; i < 40; i++ {
		rec, err := n.Normalize(testBlock, rawTx(fmt.Sprintf("t%d", i), "TransferContract", map[string]any{
			"owner_address": hexAddr("a"),
			"to_address":    "41" + fmt.Sprintf("%040x", i+1),
			"amount":        float64(1),
		}), scope)
		require.NoError(t, err)
		records = append(records, rec)
	}
	scope.Finalize(records)

	for _, rec := range records {
		assert.Len(t, rec.Analysis.RelatedTransactions, MaxRelated)
		assert.NotContains(t, rec.Analysis.RelatedTransactions, rec.TxID)
		assert.LessOrEqual(t, len(rec.Analysis.RelatedAddresses), MaxRelated)
	}
}

type fixedCluster struct{ id string }

func (f fixedCluster) Resolve(_ *domain.TransactionRecord, _ *string) *string { return &f.id }

func TestScope_ClusterResolverHook(t *testing.T) {
	n := New(tron.NewClient(nil), fixedCluster{id: "c1"})
	scope := n.NewScope()
	rec, err := n.Normalize(testBlock, rawTx("t", "TransferContract", map[string]any{
		"owner_address": hexAddr("a"), "to_address": hexAddr("b"),
	}), scope)
	require.NoError(t, err)
	scope.Finalize([]*domain.TransactionRecord{rec})
	require.NotNil(t, rec.Analysis.ClusterID)
	assert.Equal(t, "c1", *rec.Analysis.ClusterID)
}

func TestToMajorAndQuote(t *testing.T) {
	assert.Equal(t, "2", ToMajor(2_000_000).String())
	assert.Equal(t, "0.000001", ToMajor(1).String())
	assert.Equal(t, "1.24", Quote(decimal.RequireFromString("10"), decimal.RequireFromString("0.1235")).String())
}

func TestNum_ClampsOutOfRange(t *testing.T) {
	tests := []struct {
		in   any
		want int64
	}{
		{json.Number("2000000"), 2_000_000},
		{json.Number("1e30"), math.MaxInt64},
		{json.Number("-1e30"), math.MinInt64},
		{1e30, math.MaxInt64},
		{-1e30, math.MinInt64},
		{math.NaN(), 0},
		{"-42", -42},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, num(map[string]any{"amount": tt.in}, "amount"), "input %v", tt.in)
	}
}
