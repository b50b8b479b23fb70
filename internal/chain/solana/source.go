package solana

import (
	"context"
	"errors"
	"fmt"
	"walletpnl/internal/domain"
	"walletpnl/internal/scheduler"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"gitlab.com/nevasik7/alerting/logger"
)

// RPC is the subset of *rpc.Client the source needs
type RPC interface {
	GetSignaturesForAddressWithOpts(ctx context.Context, account solanago.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error)
	GetTransaction(ctx context.Context, txSig solanago.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

// Source pages through the signatures of an address and loads each transaction, every call paced by the chain limiter
type Source struct {
	log     logger.Logger
	rpc     RPC
	limiter *scheduler.Scheduler
}

func NewSource(log logger.Logger, client RPC, limiter *scheduler.Scheduler) (*Source, error) {
	if client == nil {
		return nil, errors.New("rpc client is required to the solana source")
	}
	if limiter == nil {
		return nil, errors.New("scheduler is required to the solana source")
	}

	return &Source{
		log:     log,
		rpc:     client,
		limiter: limiter,
	}, nil
}

// Fetch returns up to limit most recent transactions of address older than before (optional signature).
// HasMore is true exactly when limit signatures came back; NextCursor is then the oldest signature of the page.
func (s *Source) Fetch(ctx context.Context, address string, limit int, before string) (*domain.TxPage, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	account, err := solanago.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", domain.ErrInvalidAddress, address, err)
	}

	opts := &rpc.GetSignaturesForAddressOpts{Limit: &limit}
	if before != "" {
		cursor, err := solanago.SignatureFromBase58(before)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", domain.ErrInvalidCursor, before, err)
		}
		opts.Before = cursor
	}

	sigs, err := scheduler.Do(ctx, s.limiter, func(ctx context.Context) ([]*rpc.TransactionSignature, error) {
		out, err := s.rpc.GetSignaturesForAddressWithOpts(ctx, account, opts)
		return out, classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get signatures for %s: %w", address, err)
	}

	page := &domain.TxPage{
		Signatures: make([]string, 0, len(sigs)),
		HasMore:    len(sigs) == limit,
	}

	maxVersion := uint64(0)
	futures := make([]*scheduler.Future[*rpc.GetTransactionResult], 0, len(sigs))
	for _, sig := range sigs {
		if sig == nil {
			continue
		}
		txSig := sig.Signature
		page.Signatures = append(page.Signatures, txSig.String())

		futures = append(futures, scheduler.Submit(ctx, s.limiter, func(ctx context.Context) (*rpc.GetTransactionResult, error) {
			out, err := s.rpc.GetTransaction(ctx, txSig, &rpc.GetTransactionOpts{
				Encoding:                       solanago.EncodingBase64,
				MaxSupportedTransactionVersion: &maxVersion,
			})
			return out, classify(err)
		}))
	}

	// source order is kept
	for i, f := range futures {
		res, err := f.Wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warnf("Failed to load transaction %s, skipped, error=%v", page.Signatures[i], err)
			continue
		}
		if res == nil {
			continue
		}
		page.Transactions = append(page.Transactions, domain.RawTx{Signature: page.Signatures[i], Payload: res})
	}

	if page.HasMore && len(page.Signatures) > 0 {
		page.NextCursor = page.Signatures[len(page.Signatures)-1]
	}

	s.log.Debugf("Fetched %d/%d transactions for %s, hasMore=%t", len(page.Transactions), len(page.Signatures), address, page.HasMore)
	return page, nil
}

// Helius answers throttled JSON-RPC calls with code 429 (or -32429)
func classify(err error) error {
	if err == nil {
		return nil
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) && (rpcErr.Code == 429 || rpcErr.Code == -32429) {
		return fmt.Errorf("%w: %v", scheduler.ErrRateLimited, err)
	}
	return err
}
