package normalizer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// Well known TRC20 selectors.
const (
	selectorTransfer     = "a9059cbb"
	selectorTransferFrom = "23b872dd"
	selectorApprove      = "095ea7b3"

	SubTypeTRC20Transfer     = "trc20_transfer"
	SubTypeTRC20TransferFrom = "trc20_transfer_from"
	SubTypeTRC20Approve      = "trc20_approve"
)

// shape is the type dependent part of a record.
type shape struct {
	to          domain.Party
	amount      int64
	subType     string
	description domain.ContractDescription
}

func (n *Normalizer) account(hexAddr string) (domain.Party, error) {
	addr, err := n.address(hexAddr)
	if err != nil {
		return domain.Party{}, err
	}
	return domain.Party{Address: addr, Type: domain.AddressTypeAccount}, nil
}

// describe resolves recipient, amount and contract description per contract variant.
func (n *Normalizer) describe(contract domain.Contract) (shape, error) {
	owner, err := n.account(contract.OwnerAddress())
	if err != nil {
		return shape{}, err
	}

	switch c := contract.(type) {
	case *domain.TransferContract:
		to, err := n.account(c.To)
		if err != nil {
			return shape{}, fmt.Errorf("to address: %w", err)
		}
		return shape{
			to:     to,
			amount: c.Amount,
			description: domain.ContractDescription{
				Address:    owner.Address,
				Method:     "transfer",
				Parameters: map[string]any{"to": to.Address, "amount": c.Amount},
			},
		}, nil

	case *domain.TransferAssetContract:
		to, err := n.account(c.To)
		if err != nil {
			return shape{}, fmt.Errorf("to address: %w", err)
		}
		asset := c.AssetName
		if decoded, ok := n.codec.MemoDecode(c.AssetName); ok {
			asset = decoded
		}
		return shape{
			to:     to,
			amount: c.Amount,
			description: domain.ContractDescription{
				Address:    owner.Address,
				Method:     "transferAsset",
				Parameters: map[string]any{"to": to.Address, "amount": c.Amount, "asset": asset},
			},
		}, nil

	case *domain.TriggerSmartContract:
		addr, err := n.address(c.ContractAddress)
		if err != nil {
			return shape{}, fmt.Errorf("contract address: %w", err)
		}
		s := shape{
			to:     domain.Party{Address: addr, Type: domain.AddressTypeContract},
			amount: c.CallValue,
			description: domain.ContractDescription{
				Address:    addr,
				Parameters: map[string]any{"callValue": c.CallValue},
			},
		}
		n.describeCall(c.Data, &s)
		return s, nil

	case *domain.CreateSmartContract:
		return shape{
			amount: c.CallValue,
			description: domain.ContractDescription{
				Address:    owner.Address,
				Method:     "createContract",
				Parameters: map[string]any{"name": c.Name, "callValue": c.CallValue},
			},
		}, nil

	case *domain.FreezeContract:
		to, err := n.receiverOrOwner(c.Receiver, owner)
		if err != nil {
			return shape{}, err
		}
		method := "freezeBalance"
		if c.V2 {
			method = "freezeBalanceV2"
		}
		params := map[string]any{"resource": c.Resource, "amount": c.Amount}
		if c.Duration > 0 {
			params["duration"] = c.Duration
		}
		return shape{
			to:          to,
			amount:      c.Amount,
			description: domain.ContractDescription{Address: owner.Address, Method: method, Parameters: params},
		}, nil

	case *domain.UnfreezeContract:
		to, err := n.receiverOrOwner(c.Receiver, owner)
		if err != nil {
			return shape{}, err
		}
		method := "unfreezeBalance"
		if c.V2 {
			method = "unfreezeBalanceV2"
		}
		return shape{
			to:     to,
			amount: c.Amount,
			description: domain.ContractDescription{
				Address:    owner.Address,
				Method:     method,
				Parameters: map[string]any{"resource": c.Resource, "amount": c.Amount},
			},
		}, nil

	case *domain.DelegateContract:
		to, err := n.receiverOrOwner(c.Receiver, owner)
		if err != nil {
			return shape{}, err
		}
		method := "delegateResource"
		if c.Undelegate {
			method = "undelegateResource"
		}
		return shape{
			to:     to,
			amount: c.Balance,
			description: domain.ContractDescription{
				Address: owner.Address,
				Method:  method,
				Parameters: map[string]any{
					"receiver": to.Address,
					"resource": c.Resource,
					"balance":  c.Balance,
					"lock":     c.Lock,
				},
			},
		}, nil

	case *domain.VoteWitnessContract:
		votes := make([]domain.Vote, 0, len(c.Votes))
		var to domain.Party
		for i, v := range c.Votes {
			addr, err := n.address(v.Address)
			if err != nil {
				return shape{}, fmt.Errorf("vote address: %w", err)
			}
			if i == 0 {
				to = domain.Party{Address: addr, Type: domain.AddressTypeAccount}
			}
			votes = append(votes, domain.Vote{Address: addr, Count: v.Count})
		}
		return shape{
			to: to,
			description: domain.ContractDescription{
				Address:    owner.Address,
				Method:     "voteWitness",
				Parameters: map[string]any{"votes": votes},
			},
		}, nil

	case *domain.AccountCreateContract:
		to, err := n.account(c.Account)
		if err != nil {
			return shape{}, fmt.Errorf("account address: %w", err)
		}
		return shape{
			to: to,
			description: domain.ContractDescription{
				Address:    owner.Address,
				Method:     "createAccount",
				Parameters: map[string]any{"account": to.Address},
			},
		}, nil

	case *domain.AssetIssueContract:
		name, abbr := c.Name, c.Abbr
		if decoded, ok := n.codec.MemoDecode(name); ok {
			name = decoded
		}
		if decoded, ok := n.codec.MemoDecode(abbr); ok {
			abbr = decoded
		}
		return shape{
			to: owner,
			description: domain.ContractDescription{
				Address: owner.Address,
				Method:  "assetIssue",
				Parameters: map[string]any{
					"name":        name,
					"abbr":        abbr,
					"totalSupply": c.TotalSupply,
					"precision":   c.Precision,
				},
			},
		}, nil

	case *domain.WithdrawContract:
		method := "withdrawBalance"
		if c.Expire {
			method = "withdrawExpireUnfreeze"
		}
		return shape{
			to: owner,
			description: domain.ContractDescription{
				Address:    owner.Address,
				Method:     method,
				Parameters: map[string]any{},
			},
		}, nil

	case *domain.UnknownContract:
		return n.describeUnknown(c, owner)
	}

	return shape{}, fmt.Errorf("unhandled contract variant %T", contract)
}

// receiverOrOwner falls back to the owner when no distinct receiver is set.
func (n *Normalizer) receiverOrOwner(receiver string, owner domain.Party) (domain.Party, error) {
	if receiver == "" {
		return owner, nil
	}
	to, err := n.account(receiver)
	if err != nil {
		return domain.Party{}, fmt.Errorf("receiver address: %w", err)
	}
	return to, nil
}

// describeUnknown keeps the raw parameters and picks recipient and amount from common field names.
func (n *Normalizer) describeUnknown(c *domain.UnknownContract, owner domain.Party) (shape, error) {
	s := shape{
		description: domain.ContractDescription{
			Address:    owner.Address,
			Method:     c.TypeName,
			Parameters: c.Value,
		},
	}
	for _, key := range []string{"to_address", "receiver_address", "contract_address", "account_address"} {
		if hexAddr := str(c.Value, key); hexAddr != "" {
			if addr, ok := n.codec.AddressEncode(hexAddr); ok {
				s.to = domain.Party{Address: addr, Type: domain.AddressTypeAccount}
				break
			}
		}
	}
	for _, key := range []string{"amount", "call_value", "balance", "frozen_balance", "unfreeze_balance"} {
		if v := num(c.Value, key); v != 0 {
			s.amount = v
			break
		}
	}
	return s, nil
}

// describeCall decodes well known TRC20 calls from ABI data.
func (n *Normalizer) describeCall(data string, s *shape) {
	data = strings.TrimPrefix(strings.ToLower(data), "0x")
	if len(data) < 8 {
		return
	}
	selector, args := data[:8], data[8:]
	s.description.Parameters["selector"] = selector

	switch selector {
	case selectorTransfer:
		s.description.Method = "transfer"
		if to, value, ok := n.addressAndValue(args, 0); ok {
			s.subType = SubTypeTRC20Transfer
			s.description.Parameters["to"] = to
			s.description.Parameters["value"] = value
		}
	case selectorTransferFrom:
		s.description.Method = "transferFrom"
		from, ok := n.abiAddress(args, 0)
		if !ok {
			return
		}
		if to, value, ok := n.addressAndValue(args, 1); ok {
			s.subType = SubTypeTRC20TransferFrom
			s.description.Parameters["from"] = from
			s.description.Parameters["to"] = to
			s.description.Parameters["value"] = value
		}
	case selectorApprove:
		s.description.Method = "approve"
		if spender, value, ok := n.addressAndValue(args, 0); ok {
			s.subType = SubTypeTRC20Approve
			s.description.Parameters["spender"] = spender
			s.description.Parameters["value"] = value
		}
	}
}

func (n *Normalizer) addressAndValue(args string, word int) (string, string, bool) {
	addr, ok := n.abiAddress(args, word)
	if !ok {
		return "", "", false
	}
	value, ok := abiUint(args, word+1)
	if !ok {
		return "", "", false
	}
	return addr, value, true
}

func abiWord(args string, i int) (string, bool) {
	start, end := i*64, (i+1)*64
	if len(args) < end {
		return "", false
	}
	return args[start:end], true
}

func (n *Normalizer) abiAddress(args string, i int) (string, bool) {
	w, ok := abiWord(args, i)
	if !ok {
		return "", false
	}
	return n.codec.AddressEncode(w[24:])
}

func abiUint(args string, i int) (string, bool) {
	w, ok := abiWord(args, i)
	if !ok {
		return "", false
	}
	v, ok := new(big.Int).SetString(w, 16)
	if !ok {
		return "", false
	}
	return v.String(), true
}
