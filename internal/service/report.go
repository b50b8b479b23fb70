package service

import (
	"walletpnl/internal/aggregate"
	"walletpnl/internal/domain"
	"walletpnl/internal/scheduler"
)

type Report struct {
	Address      string                   `json:"address"`
	Transactions []TransactionView        `json:"transactions"`
	Summary      *aggregate.GlobalSummary `json:"summary"`
	Pagination   Pagination               `json:"pagination"`
	Limiters     []scheduler.Stats        `json:"limiters"`
}

type Pagination struct {
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}

type TransactionView struct {
	Signature string               `json:"signature"`
	BlockTime int64                `json:"blockTime"`
	Fee       uint64               `json:"fee"`
	Status    domain.StatusOutcome `json:"status"`
	Accounts  []string             `json:"accounts"`
	Balances  domain.Balances      `json:"balances"`
	Trades    []TradeView          `json:"trades"`
}

type TradeView struct {
	Mint          string             `json:"mint"`
	TokenBalance  domain.TokenTrade  `json:"tokenBalance"`
	TradeType     domain.ChangeType  `json:"tradeType"`
	PriceAnalysis *PriceAnalysisView `json:"priceAnalysis"`
}

// history itself is not echoed, only its size
type PriceAnalysisView struct {
	PurchasePrice      float64 `json:"purchasePrice"`
	CurrentPrice       float64 `json:"currentPrice"`
	AthPrice           float64 `json:"athPrice"`
	AthTimestamp       int64   `json:"athTimestamp"`
	PriceHistoryPoints int     `json:"priceHistoryPoints"`
}

func newTransactionView(tx *domain.DecodedTx, ptx domain.ParsedTransaction) TransactionView {
	v := TransactionView{
		Signature: ptx.Signature,
		BlockTime: ptx.BlockTime,
		Fee:       ptx.Fee,
		Status:    ptx.Status,
		Accounts:  ptx.Accounts,
		Balances:  tx.Balances,
		Trades:    make([]TradeView, 0, len(ptx.Trades)),
	}

	for _, tr := range ptx.Trades {
		tv := TradeView{
			Mint:         tr.Mint,
			TokenBalance: tr.TokenBalance,
			TradeType:    tr.TradeType,
		}
		if pa := tr.PriceAnalysis; pa != nil {
			tv.PriceAnalysis = &PriceAnalysisView{
				PurchasePrice:      pa.PurchasePrice,
				CurrentPrice:       pa.CurrentPrice,
				AthPrice:           pa.AthPrice,
				AthTimestamp:       pa.AthTimestamp,
				PriceHistoryPoints: len(pa.PriceHistory),
			}
		}
		v.Trades = append(v.Trades, tv)
	}

	return v
}
