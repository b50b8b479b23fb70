package domain

// Shapes exchanged with the blockchain-node collaborators (source -> decoder -> extractor)

// Opaque raw transaction as returned by the node, decoded only by a Decoder
type RawTx struct {
	Signature string
	Payload   any
}

type TxPage struct {
	Transactions []RawTx
	Signatures   []string
	HasMore      bool
	NextCursor   string
}

type SolBalance struct {
	PreLamports  uint64  `json:"preLamports"`
	PostLamports uint64  `json:"postLamports"`
	UIChange     float64 `json:"uiChange"`
}

// Token balance owned by an account before and after the transaction
type TokenBalance struct {
	Mint      string  `json:"mint"`
	Owner     string  `json:"owner"`
	Decimals  uint8   `json:"decimals"`
	RawBefore string  `json:"rawBefore"`
	RawAfter  string  `json:"rawAfter"`
	UIBefore  float64 `json:"uiBefore"`
	UIAfter   float64 `json:"uiAfter"`
}

type Balances struct {
	SignerAddress       string         `json:"signerAddress"`
	SignerSolBalance    SolBalance     `json:"solBalance"`
	SignerTokenBalances []TokenBalance `json:"tokenBalances"`
}

type DecodedTx struct {
	Signature string        `json:"signature"`
	BlockTime int64         `json:"blockTime"`
	Fee       uint64        `json:"fee"`
	Status    StatusOutcome `json:"status"`
	Accounts  []string      `json:"accounts"`
	Balances  Balances      `json:"balances"`
}
