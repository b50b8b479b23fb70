package solana

import (
	"walletpnl/internal/domain"

	"github.com/shopspring/decimal"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract turns the signer's token balances into trades, one per mint, including unchanged balances
func (e *Extractor) Extract(b domain.Balances) []domain.TokenTrade {
	trades := make([]domain.TokenTrade, 0, len(b.SignerTokenBalances))
	for _, tb := range b.SignerTokenBalances {
		change := uiChange(tb)
		trades = append(trades, domain.TokenTrade{
			Mint:             tb.Mint,
			ChangeType:       domain.ChangeTypeOf(change),
			UIChange:         change,
			RawBalanceBefore: tb.RawBefore,
			RawBalanceAfter:  tb.RawAfter,
			Decimals:         tb.Decimals,
		})
	}
	return trades
}

// exact on raw amounts when they parse, float difference otherwise
func uiChange(tb domain.TokenBalance) float64 {
	before, errBefore := decimal.NewFromString(tb.RawBefore)
	after, errAfter := decimal.NewFromString(tb.RawAfter)
	if errBefore != nil || errAfter != nil {
		return tb.UIAfter - tb.UIBefore
	}
	return after.Sub(before).Shift(-int32(tb.Decimals)).InexactFloat64()
}
