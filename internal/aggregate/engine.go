package aggregate

import (
	"math"
	"sort"
	"walletpnl/internal/config"
	"walletpnl/internal/domain"
)

const DefaultSOLPriceUSD = 150

// Engine folds parsed transactions into a GlobalSummary. Stateless, no I/O.
type Engine struct {
	solPriceUSD float64
}

func New(cfg *config.AggregateConfig) *Engine {
	price := float64(DefaultSOLPriceUSD)
	if cfg != nil && cfg.SOLPriceUSD > 0 {
		price = cfg.SOLPriceUSD
	}
	return &Engine{solPriceUSD: price}
}

type tradeOutcome struct {
	mint        string
	gainLoss    float64
	gainLossUSD float64
	gainLossSOL float64
	signature   string
	blockTime   int64
}

type totals struct {
	trades, profitable, losing int
	purchases, sales, noChange int
	tokensTraded, volumeUSD    float64
	volumeSOL                  float64
	gainLoss, missedATH        float64
	best, worst                *tradeOutcome
	unique                     map[string]struct{}
	tokens                     map[string]*TokenStats
	tokenOrder                 []string
}

// Summarize iterates transactions then trades in the given order; best/worst ties keep the first trade seen.
func (e *Engine) Summarize(txs []domain.ParsedTransaction) *GlobalSummary {
	t := totals{
		unique: make(map[string]struct{}),
		tokens: make(map[string]*TokenStats),
	}

	for i := range txs {
		tx := &txs[i]
		t.volumeSOL += math.Abs(tx.SignerSolBalanceChange)

		for j := range tx.Trades {
			e.addTrade(&t, tx, &tx.Trades[j])
		}
	}

	return t.summary(len(txs))
}

func (e *Engine) addTrade(t *totals, tx *domain.ParsedTransaction, tr *domain.TradeRecord) {
	switch tr.TradeType {
	case domain.ChangeIncrease:
		t.purchases++
	case domain.ChangeDecrease:
		t.sales++
	case domain.ChangeNone:
		t.noChange++
	}

	// counted by type only
	if math.Abs(tr.TokenBalance.UIChange) == 0 {
		return
	}

	t.trades++
	t.unique[tr.Mint] = struct{}{}

	pa := tr.PriceAnalysis
	if pa == nil || pa.PurchasePrice <= 0 {
		return
	}

	gainLoss := (pa.CurrentPrice - pa.PurchasePrice) / pa.PurchasePrice * 100
	missedATH := (pa.AthPrice - pa.CurrentPrice) / pa.AthPrice * 100
	amount := math.Abs(tr.TokenBalance.UIChange)
	volumeUSD := amount * pa.PurchasePrice
	gainLossUSD := (pa.CurrentPrice - pa.PurchasePrice) * amount

	t.tokensTraded += amount
	t.volumeUSD += volumeUSD
	t.gainLoss += gainLoss
	t.missedATH += missedATH

	if gainLoss > 0 {
		t.profitable++
	} else {
		t.losing++
	}

	outcome := func() *tradeOutcome {
		return &tradeOutcome{
			mint:        tr.Mint,
			gainLoss:    gainLoss,
			gainLossUSD: gainLossUSD,
			gainLossSOL: gainLossUSD / e.solPriceUSD,
			signature:   tx.Signature,
			blockTime:   tx.BlockTime,
		}
	}
	if t.best == nil || gainLoss > t.best.gainLoss {
		t.best = outcome()
	}
	if t.worst == nil || gainLoss < t.worst.gainLoss {
		t.worst = outcome()
	}

	ts, ok := t.tokens[tr.Mint]
	if !ok {
		// best and worst start at 0: best is never below 0, worst never above
		ts = &TokenStats{Mint: tr.Mint}
		t.tokens[tr.Mint] = ts
		t.tokenOrder = append(t.tokenOrder, tr.Mint)
	}
	ts.Trades++
	ts.TotalTokensTraded += amount
	ts.TotalVolumeUSD += volumeUSD
	ts.TotalGainLoss += gainLoss
	ts.TotalMissedATH += missedATH
	ts.TotalPurchasePrice += pa.PurchasePrice
	ts.TotalAthPrice += pa.AthPrice
	ts.BestGainLoss = math.Max(ts.BestGainLoss, gainLoss)
	ts.WorstGainLoss = math.Min(ts.WorstGainLoss, gainLoss)
}

func (t *totals) summary(totalTransactions int) *GlobalSummary {
	var avgGainLoss, avgMissedATH float64
	winRate := "0%"
	avgTradeSize := "$0.00"
	if t.trades > 0 {
		n := float64(t.trades)
		avgGainLoss = t.gainLoss / n
		avgMissedATH = t.missedATH / n
		winRate = fixed(float64(t.profitable)/n*100, 2) + "%"
		avgTradeSize = "$" + grouped(t.volumeUSD/n, 2)
	}

	tokens := make([]TokenStats, 0, len(t.tokenOrder))
	for _, mint := range t.tokenOrder {
		ts := *t.tokens[mint]
		n := float64(ts.Trades)
		ts.AverageGainLoss = ts.TotalGainLoss / n
		ts.AverageMissedATH = ts.TotalMissedATH / n
		ts.AverageVolumeUSD = ts.TotalVolumeUSD / n
		ts.AveragePurchasePrice = ts.TotalPurchasePrice / n
		ts.AverageAthPrice = ts.TotalAthPrice / n
		tokens = append(tokens, ts)
	}
	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].TotalVolumeUSD > tokens[j].TotalVolumeUSD
	})

	return &GlobalSummary{
		Overview: Overview{
			TotalTransactions: totalTransactions,
			TotalTrades:       t.trades,
			UniqueTokens:      len(t.unique),
			ProfitableTrades:  t.profitable,
			LosingTrades:      t.losing,
			WinRate:           winRate,
			Purchases:         t.purchases,
			Sales:             t.sales,
			NoChange:          t.noChange,
		},
		Volume: Volume{
			TotalTokensTraded:   grouped(t.tokensTraded, 0),
			TotalVolumeUSD:      "$" + grouped(t.volumeUSD, 2),
			TotalVolumeSOL:      fixed(t.volumeSOL, 4) + " SOL",
			AverageTradeSizeUSD: avgTradeSize,
		},
		Performance: Performance{
			TotalGainLoss:    fixed(t.gainLoss, 2) + "%",
			AverageGainLoss:  fixed(avgGainLoss, 2) + "%",
			TotalMissedATH:   fixed(t.missedATH, 2) + "%",
			AverageMissedATH: fixed(avgMissedATH, 2) + "%",
		},
		BestTrade:  t.best.result(),
		WorstTrade: t.worst.result(),
		Tokens:     tokens,
	}
}

func (o *tradeOutcome) result() *TradeResult {
	if o == nil {
		return nil
	}
	return &TradeResult{
		Mint:        o.mint,
		GainLoss:    fixed(o.gainLoss, 2) + "%",
		GainLossUSD: "$" + fixed(o.gainLossUSD, 2),
		GainLossSOL: fixed(o.gainLossSOL, 4) + " SOL",
		Signature:   o.signature,
		BlockTime:   o.blockTime,
	}
}
