package domain

// One price sample of a token history, ordered by time ascending
type PricePoint struct {
	Timestamp int64   `json:"unixTime"`
	Value     float64 `json:"value"`
}

// Derived from a full price history starting at the purchase time; read-only once computed
type PriceAnalysis struct {
	PurchasePrice float64      `json:"purchasePrice"`
	CurrentPrice  float64      `json:"currentPrice"`
	AthPrice      float64      `json:"athPrice"`
	AthTimestamp  int64        `json:"athTimestamp"`
	PriceHistory  []PricePoint `json:"priceHistory"`
}

type ChangeType string

const (
	ChangeIncrease ChangeType = "increase"
	ChangeDecrease ChangeType = "decrease"
	ChangeNone     ChangeType = "no_change"
)

// ChangeTypeOf keeps changeType consistent with the sign of uiChange
func ChangeTypeOf(uiChange float64) ChangeType {
	switch {
	case uiChange > 0:
		return ChangeIncrease
	case uiChange < 0:
		return ChangeDecrease
	default:
		return ChangeNone
	}
}

// Signer token delta inside one transaction
type TokenTrade struct {
	Mint             string     `json:"mint"`
	ChangeType       ChangeType `json:"changeType"`
	UIChange         float64    `json:"uiChange"`
	RawBalanceBefore string     `json:"rawBalanceBefore"`
	RawBalanceAfter  string     `json:"rawBalanceAfter"`
	Decimals         uint8      `json:"decimals"`
}

// One per TokenTrade per transaction; PriceAnalysis is nil when uiChange == 0 or the lookup yielded no data
type TradeRecord struct {
	Mint          string         `json:"mint"`
	TokenBalance  TokenTrade     `json:"tokenBalance"`
	TradeType     ChangeType     `json:"tradeType"`
	PriceAnalysis *PriceAnalysis `json:"-"`
}

type StatusOutcome string

const (
	StatusSuccess StatusOutcome = "SUCCESS"
	StatusFailure StatusOutcome = "FAILURE"
)

type ParsedTransaction struct {
	Signature              string        `json:"signature"`
	BlockTime              int64         `json:"blockTime"`
	Fee                    uint64        `json:"fee"`
	Status                 StatusOutcome `json:"status"`
	SignerAddress          string        `json:"signerAddress"`
	SignerSolBalanceChange float64       `json:"signerSolBalanceChange"`
	Accounts               []string      `json:"accounts,omitempty"`
	Trades                 []TradeRecord `json:"trades"`
}
