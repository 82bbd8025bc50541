package tron

import "encoding/json"

// Wire shapes of the TRON HTTP API (visible=false, addresses are 41-prefixed hex).

type blockResponse struct {
	BlockID     string            `json:"blockID"`
	BlockHeader *blockHeader      `json:"block_header"`
	Txs         []json.RawMessage `json:"transactions"`
}

type blockHeader struct {
	RawData struct {
		Number         uint64 `json:"number"`
		ParentHash     string `json:"parentHash"`
		WitnessAddress string `json:"witness_address"`
		Timestamp      int64  `json:"timestamp"`
	} `json:"raw_data"`
}

type txResponse struct {
	TxID string `json:"txID"`
	Ret  []struct {
		ContractRet string `json:"contractRet"`
	} `json:"ret"`
	RawData struct {
		Contract []struct {
			Type      string `json:"type"`
			Parameter struct {
				Value map[string]any `json:"value"`
			} `json:"parameter"`
		} `json:"contract"`
		Data string `json:"data"`
	} `json:"raw_data"`
}

type txInfoResponse struct {
	ID      string `json:"id"`
	Fee     int64  `json:"fee"`
	Receipt struct {
		EnergyUsage      int64 `json:"energy_usage"`
		EnergyUsageTotal int64 `json:"energy_usage_total"`
		EnergyFee        int64 `json:"energy_fee"`
		NetUsage         int64 `json:"net_usage"`
		NetFee           int64 `json:"net_fee"`
	} `json:"receipt"`
	InternalTransactions []struct {
		Hash          string `json:"hash"`
		CallerAddress string `json:"caller_address"`
		TransferTo    string `json:"transferTo_address"`
		CallValueInfo []struct {
			CallValue int64 `json:"callValue"`
		} `json:"callValueInfo"`
		Note     string `json:"note"`
		Rejected bool   `json:"rejected"`
	} `json:"internal_transactions"`
}
