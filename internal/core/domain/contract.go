package domain

// ContractType is the closed set of TRON contract types the normalizer understands.
type ContractType string

const (
	ContractTransfer               ContractType = "TransferContract"
	ContractTransferAsset          ContractType = "TransferAssetContract"
	ContractTriggerSmart           ContractType = "TriggerSmartContract"
	ContractCreateSmart            ContractType = "CreateSmartContract"
	ContractFreezeBalance          ContractType = "FreezeBalanceContract"
	ContractFreezeBalanceV2        ContractType = "FreezeBalanceV2Contract"
	ContractUnfreezeBalance        ContractType = "UnfreezeBalanceContract"
	ContractUnfreezeBalanceV2      ContractType = "UnfreezeBalanceV2Contract"
	ContractDelegateResource       ContractType = "DelegateResourceContract"
	ContractUnDelegateResource     ContractType = "UnDelegateResourceContract"
	ContractVoteWitness            ContractType = "VoteWitnessContract"
	ContractAccountCreate          ContractType = "AccountCreateContract"
	ContractAssetIssue             ContractType = "AssetIssueContract"
	ContractWithdrawBalance        ContractType = "WithdrawBalanceContract"
	ContractWithdrawExpireUnfreeze ContractType = "WithdrawExpireUnfreezeContract"
	ContractUnknown                ContractType = "Unknown"
)

var knownContracts = map[ContractType]struct{}{
	ContractTransfer:               {},
	ContractTransferAsset:          {},
	ContractTriggerSmart:           {},
	ContractCreateSmart:            {},
	ContractFreezeBalance:          {},
	ContractFreezeBalanceV2:        {},
	ContractUnfreezeBalance:        {},
	ContractUnfreezeBalanceV2:      {},
	ContractDelegateResource:       {},
	ContractUnDelegateResource:     {},
	ContractVoteWitness:            {},
	ContractAccountCreate:          {},
	ContractAssetIssue:             {},
	ContractWithdrawBalance:        {},
	ContractWithdrawExpireUnfreeze: {},
}

// ParseContractType maps an upstream type name onto the enumeration, Unknown if unrecognized.
func ParseContractType(s string) ContractType {
	t := ContractType(s)
	if _, ok := knownContracts[t]; ok {
		return t
	}
	return ContractUnknown
}

func (t ContractType) IsTransfer() bool {
	return t == ContractTransfer || t == ContractTransferAsset
}

func (t ContractType) IsContractCall() bool {
	return t == ContractTriggerSmart
}

func (t ContractType) IsDelegation() bool {
	return t == ContractDelegateResource || t == ContractUnDelegateResource
}

func (t ContractType) IsStake() bool {
	switch t {
	case ContractFreezeBalance, ContractFreezeBalanceV2,
		ContractUnfreezeBalance, ContractUnfreezeBalanceV2:
		return true
	}
	return false
}

func (t ContractType) IsTokenCreation() bool {
	return t == ContractAssetIssue || t == ContractCreateSmart
}

// Contract is the tagged union over decoded contract payloads. Every variant
// reports its type and owner; Unknown carries the raw parameter map.
type Contract interface {
	ContractType() ContractType
	OwnerAddress() string
}

type TransferContract struct {
	Owner  string
	To     string
	Amount int64
}

type TransferAssetContract struct {
	Owner     string
	To        string
	AssetName string
	Amount    int64
}

type TriggerSmartContract struct {
	Owner           string
	ContractAddress string
	CallValue       int64
	Data            string
}

type CreateSmartContract struct {
	Owner     string
	Name      string
	CallValue int64
}

// FreezeContract covers both freeze generations; V2 has no receiver.
type FreezeContract struct {
	Owner    string
	Receiver string
	Amount   int64
	Resource string
	Duration int64
	V2       bool
}

type UnfreezeContract struct {
	Owner    string
	Receiver string
	Amount   int64
	Resource string
	V2       bool
}

type DelegateContract struct {
	Owner      string
	Receiver   string
	Balance    int64
	Resource   string
	Lock       bool
	Undelegate bool
}

type Vote struct {
	Address string `json:"address"`
	Count   int64  `json:"count"`
}

type VoteWitnessContract struct {
	Owner string
	Votes []Vote
}

type AccountCreateContract struct {
	Owner   string
	Account string
}

type AssetIssueContract struct {
	Owner       string
	Name        string
	Abbr        string
	TotalSupply int64
	Precision   int64
}

type WithdrawContract struct {
	Owner  string
	Expire bool
}

type UnknownContract struct {
	Owner    string
	TypeName string
	Value    map[string]any
}

func (c *TransferContract) ContractType() ContractType      { return ContractTransfer }
func (c *TransferAssetContract) ContractType() ContractType { return ContractTransferAsset }
func (c *TriggerSmartContract) ContractType() ContractType  { return ContractTriggerSmart }
func (c *CreateSmartContract) ContractType() ContractType   { return ContractCreateSmart }
func (c *AccountCreateContract) ContractType() ContractType { return ContractAccountCreate }
func (c *AssetIssueContract) ContractType() ContractType    { return ContractAssetIssue }
func (c *VoteWitnessContract) ContractType() ContractType   { return ContractVoteWitness }
func (c *UnknownContract) ContractType() ContractType       { return ContractUnknown }

func (c *FreezeContract) ContractType() ContractType {
	if c.V2 {
		return ContractFreezeBalanceV2
	}
	return ContractFreezeBalance
}

func (c *UnfreezeContract) ContractType() ContractType {
	if c.V2 {
		return ContractUnfreezeBalanceV2
	}
	return ContractUnfreezeBalance
}

func (c *DelegateContract) ContractType() ContractType {
	if c.Undelegate {
		return ContractUnDelegateResource
	}
	return ContractDelegateResource
}

func (c *WithdrawContract) ContractType() ContractType {
	if c.Expire {
		return ContractWithdrawExpireUnfreeze
	}
	return ContractWithdrawBalance
}

func (c *TransferContract) OwnerAddress() string      { return c.Owner }
func (c *TransferAssetContract) OwnerAddress() string { return c.Owner }
func (c *TriggerSmartContract) OwnerAddress() string  { return c.Owner }
func (c *CreateSmartContract) OwnerAddress() string   { return c.Owner }
func (c *FreezeContract) OwnerAddress() string        { return c.Owner }
func (c *UnfreezeContract) OwnerAddress() string      { return c.Owner }
func (c *DelegateContract) OwnerAddress() string      { return c.Owner }
func (c *VoteWitnessContract) OwnerAddress() string   { return c.Owner }
func (c *AccountCreateContract) OwnerAddress() string { return c.Owner }
func (c *AssetIssueContract) OwnerAddress() string    { return c.Owner }
func (c *WithdrawContract) OwnerAddress() string      { return c.Owner }
func (c *UnknownContract) OwnerAddress() string       { return c.Owner }
