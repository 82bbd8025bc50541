package normalizer

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// decodeContract turns the loosely typed contract parameter into its union variant.
// Addresses stay in hex here; encoding happens when the record is built.
func decodeContract(raw domain.RawContract) domain.Contract {
	v := raw.Value
	owner := str(v, "owner_address")

	switch domain.ParseContractType(raw.Type) {
	case domain.ContractTransfer:
		return &domain.TransferContract{
			Owner:  owner,
			To:     str(v, "to_address"),
			Amount: num(v, "amount"),
		}
	case domain.ContractTransferAsset:
		return &domain.TransferAssetContract{
			Owner:     owner,
			To:        str(v, "to_address"),
			AssetName: str(v, "asset_name"),
			Amount:    num(v, "amount"),
		}
	case domain.ContractTriggerSmart:
		return &domain.TriggerSmartContract{
			Owner:           owner,
			ContractAddress: str(v, "contract_address"),
			CallValue:       num(v, "call_value"),
			Data:            str(v, "data"),
		}
	case domain.ContractCreateSmart:
		nc, _ := v["new_contract"].(map[string]any)
		return &domain.CreateSmartContract{
			Owner:     owner,
			Name:      str(nc, "name"),
			CallValue: num(nc, "call_value"),
		}
	case domain.ContractFreezeBalance:
		return &domain.FreezeContract{
			Owner:    owner,
			Receiver: str(v, "receiver_address"),
			Amount:   num(v, "frozen_balance"),
			Resource: resource(v),
			Duration: num(v, "frozen_duration"),
		}
	case domain.ContractFreezeBalanceV2:
		return &domain.FreezeContract{
			Owner:    owner,
			Amount:   num(v, "frozen_balance"),
			Resource: resource(v),
			V2:       true,
		}
	case domain.ContractUnfreezeBalance:
		return &domain.UnfreezeContract{
			Owner:    owner,
			Receiver: str(v, "receiver_address"),
			Resource: resource(v),
		}
	case domain.ContractUnfreezeBalanceV2:
		return &domain.UnfreezeContract{
			Owner:    owner,
			Amount:   num(v, "unfreeze_balance"),
			Resource: resource(v),
			V2:       true,
		}
	case domain.ContractDelegateResource, domain.ContractUnDelegateResource:
		lock, _ := v["lock"].(bool)
		return &domain.DelegateContract{
			Owner:      owner,
			Receiver:   str(v, "receiver_address"),
			Balance:    num(v, "balance"),
			Resource:   resource(v),
			Lock:       lock,
			Undelegate: raw.Type == string(domain.ContractUnDelegateResource),
		}
	case domain.ContractVoteWitness:
		c := &domain.VoteWitnessContract{Owner: owner}
		votes, _ := v["votes"].([]any)
		for _, item := range votes {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			c.Votes = append(c.Votes, domain.Vote{
				Address: str(m, "vote_address"),
				Count:   num(m, "vote_count"),
			})
		}
		return c
	case domain.ContractAccountCreate:
		return &domain.AccountCreateContract{
			Owner:   owner,
			Account: str(v, "account_address"),
		}
	case domain.ContractAssetIssue:
		return &domain.AssetIssueContract{
			Owner:       owner,
			Name:        str(v, "name"),
			Abbr:        str(v, "abbr"),
			TotalSupply: num(v, "total_supply"),
			Precision:   num(v, "precision"),
		}
	case domain.ContractWithdrawBalance:
		return &domain.WithdrawContract{Owner: owner}
	case domain.ContractWithdrawExpireUnfreeze:
		return &domain.WithdrawContract{Owner: owner, Expire: true}
	}

	return &domain.UnknownContract{Owner: owner, TypeName: raw.Type, Value: v}
}

func resource(v map[string]any) string {
	if r := str(v, "resource"); r != "" {
		return r
	}
	return "BANDWIDTH"
}

func str(v map[string]any, key string) string {
	if v == nil {
		return ""
	}
	s, _ := v[key].(string)
	return s
}

// num reads an integer field that may arrive as json.Number, float64 or a decimal string.
func num(v map[string]any, key string) int64 {
	if v == nil {
		return 0
	}
	switch n := v[key].(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return clampFloat(f)
		}
	case float64:
		return clampFloat(n)
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i
		}
	}
	return 0
}

func clampFloat(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}
