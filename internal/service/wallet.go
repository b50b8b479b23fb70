package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"walletpnl/internal/aggregate"
	"walletpnl/internal/config"
	"walletpnl/internal/domain"
	"walletpnl/internal/priceanalysis"
	"walletpnl/internal/pubsub"
	"walletpnl/internal/scheduler"

	"github.com/google/uuid"
	"gitlab.com/nevasik7/alerting/logger"
)

type TransactionSource interface {
	Fetch(ctx context.Context, address string, limit int, before string) (*domain.TxPage, error)
}

type Decoder interface {
	Decode(raw domain.RawTx) (*domain.DecodedTx, error)
}

type Extractor interface {
	Extract(b domain.Balances) []domain.TokenTrade
}

type PriceAnalyzer interface {
	Analyze(ctx context.Context, lookups []priceanalysis.Lookup) map[string]*domain.PriceAnalysis
}

type Summarizer interface {
	Summarize(txs []domain.ParsedTransaction) *aggregate.GlobalSummary
}

type LimiterStats interface {
	Stats() scheduler.Stats
}

type Deps struct {
	Source      TransactionSource
	Decoder     Decoder
	Extractor   Extractor
	Analyzer    PriceAnalyzer
	Summarizer  Summarizer
	Broadcaster pubsub.Broadcaster // optional
	Limiters    []LimiterStats
}

// Encapsulates the wallet analysis use case;
// It the only point orchestration: fetch → decode → extract → price analysis → aggregate → broadcast;
// Called from HTTP, could be from a consumer or CLI as well
type WalletService struct {
	log           logger.Logger
	deps          Deps
	defaultLimit  int
	maxLimit      int
	subjectPrefix string
	now           func() time.Time
}

func NewWalletService(log logger.Logger, cfg *config.Config, deps Deps) (*WalletService, error) {
	if cfg == nil {
		return nil, errors.New("config is required to the wallet service")
	}

	var missing []string
	if deps.Source == nil {
		missing = append(missing, "source")
	}
	if deps.Decoder == nil {
		missing = append(missing, "decoder")
	}
	if deps.Extractor == nil {
		missing = append(missing, "extractor")
	}
	if deps.Analyzer == nil {
		missing = append(missing, "analyzer")
	}
	if deps.Summarizer == nil {
		missing = append(missing, "summarizer")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("wallet service dependencies are missing: %s", strings.Join(missing, ", "))
	}

	if deps.Broadcaster == nil {
		deps.Broadcaster = pubsub.Nop{}
	}

	defaultLimit := cfg.Solana.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	maxLimit := cfg.Solana.MaxLimit
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}

	prefix := cfg.PubSub.NATS.SubjectPrefix
	if prefix == "" {
		prefix = "walletpnl.summary"
	}

	return &WalletService{
		log:           log,
		deps:          deps,
		defaultLimit:  defaultLimit,
		maxLimit:      maxLimit,
		subjectPrefix: prefix,
		now:           time.Now,
	}, nil
}

// AnalyzeWallet builds the report of the latest limit transactions of address older than before
func (s *WalletService) AnalyzeWallet(ctx context.Context, address string, limit int, before string) (*Report, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, domain.ErrEmptyAddress
	}
	limit = s.clampLimit(limit)

	started := s.now()

	page, err := s.deps.Source.Fetch(ctx, address, limit, before)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions of %s: %w", address, err)
	}

	candidates := s.candidates(s.decodeAll(page.Transactions))

	var lookups []priceanalysis.Lookup
	for _, c := range candidates {
		for _, tr := range c.trades {
			if tr.UIChange != 0 {
				lookups = append(lookups, priceanalysis.Lookup{Mint: tr.Mint, Timestamp: c.tx.BlockTime})
			}
		}
	}
	analyses := s.deps.Analyzer.Analyze(ctx, lookups)

	parsed := make([]domain.ParsedTransaction, 0, len(candidates))
	views := make([]TransactionView, 0, len(candidates))
	for _, c := range candidates {
		ptx := parse(c, analyses)
		parsed = append(parsed, ptx)
		views = append(views, newTransactionView(c.tx, ptx))
	}

	summary := s.deps.Summarizer.Summarize(parsed)

	report := &Report{
		Address:      address,
		Transactions: views,
		Summary:      summary,
		Pagination: Pagination{
			Limit:      limit,
			HasMore:    page.HasMore,
			NextCursor: page.NextCursor,
		},
		Limiters: s.limiterStats(),
	}

	s.publish(ctx, address, summary)

	s.log.Infof("Analyzed wallet=%s: %d fetched, %d with trades, %d price lookups, took=%s",
		address, len(page.Transactions), len(parsed), len(lookups), s.now().Sub(started))
	return report, nil
}

// Limiters returns the monitoring snapshot of every outbound scheduler
func (s *WalletService) Limiters() []scheduler.Stats {
	return s.limiterStats()
}

func (s *WalletService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	return min(limit, s.maxLimit)
}

type candidate struct {
	tx     *domain.DecodedTx
	trades []domain.TokenTrade
}

// decodes concurrently, result i belongs to raws[i]; failed decodes are nil
func (s *WalletService) decodeAll(raws []domain.RawTx) []*domain.DecodedTx {
	out := make([]*domain.DecodedTx, len(raws))

	var wg sync.WaitGroup
	wg.Add(len(raws))
	for i := range raws {
		go func(i int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Errorf("Decoder panicked on %s: %v", raws[i].Signature, r)
				}
			}()

			tx, err := s.deps.Decoder.Decode(raws[i])
			if err != nil {
				s.log.Warnf("Failed to decode transaction %s, skipped, error=%v", raws[i].Signature, err)
				return
			}
			out[i] = tx
		}(i)
	}
	wg.Wait()

	return out
}

// keeps successful transactions with at least one signer trade, in source order
func (s *WalletService) candidates(decoded []*domain.DecodedTx) []candidate {
	out := make([]candidate, 0, len(decoded))
	for _, tx := range decoded {
		if tx == nil || tx.Status != domain.StatusSuccess {
			continue
		}
		trades := s.deps.Extractor.Extract(tx.Balances)
		if len(trades) == 0 {
			continue
		}
		out = append(out, candidate{tx: tx, trades: trades})
	}
	return out
}

// the key is recomputed from each trade's own (mint, blockTime)
func parse(c candidate, analyses map[string]*domain.PriceAnalysis) domain.ParsedTransaction {
	ptx := domain.ParsedTransaction{
		Signature:              c.tx.Signature,
		BlockTime:              c.tx.BlockTime,
		Fee:                    c.tx.Fee,
		Status:                 c.tx.Status,
		SignerAddress:          c.tx.Balances.SignerAddress,
		SignerSolBalanceChange: c.tx.Balances.SignerSolBalance.UIChange,
		Accounts:               c.tx.Accounts,
		Trades:                 make([]domain.TradeRecord, 0, len(c.trades)),
	}

	for _, tr := range c.trades {
		rec := domain.TradeRecord{
			Mint:         tr.Mint,
			TokenBalance: tr,
			TradeType:    tr.ChangeType,
		}
		if tr.UIChange != 0 {
			rec.PriceAnalysis = analyses[domain.AnalysisKey(tr.Mint, c.tx.BlockTime)]
		}
		ptx.Trades = append(ptx.Trades, rec)
	}

	return ptx
}

func (s *WalletService) limiterStats() []scheduler.Stats {
	out := make([]scheduler.Stats, 0, len(s.deps.Limiters))
	for _, l := range s.deps.Limiters {
		out = append(out, l.Stats())
	}
	return out
}

// broadcast is not critical, clients get the report in the response anyway
func (s *WalletService) publish(ctx context.Context, address string, summary *aggregate.GlobalSummary) {
	ev := pubsub.WalletSummaryEvent{
		ID:          uuid.NewString(),
		Address:     address,
		GeneratedAt: s.now().UTC(),
		Summary:     summary,
	}

	subject := pubsub.SummarySubject(s.subjectPrefix, address)
	if err := s.deps.Broadcaster.Publish(ctx, subject, ev); err != nil {
		s.log.Errorf("Failed to broadcast summary for %s: %v", address, err)
	}
}
