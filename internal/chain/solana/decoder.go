package solana

import (
	"errors"
	"fmt"
	"walletpnl/internal/domain"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

const lamportsPerSOL = 1_000_000_000

var ErrUnsupportedPayload = errors.New("unsupported raw transaction payload")

// Decoder normalizes a getTransaction result into signer balances. The signer is the first account key.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Decode(raw domain.RawTx) (*domain.DecodedTx, error) {
	res, ok := raw.Payload.(*rpc.GetTransactionResult)
	if !ok || res == nil {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPayload, raw.Payload)
	}
	if res.Meta == nil {
		return nil, fmt.Errorf("transaction %s has no meta", raw.Signature)
	}
	if res.Transaction == nil {
		return nil, fmt.Errorf("transaction %s has no body", raw.Signature)
	}

	tx, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction %s: %w", raw.Signature, err)
	}

	meta := res.Meta
	keys := accountKeys(tx, meta)
	if len(keys) == 0 {
		return nil, fmt.Errorf("transaction %s has no account keys", raw.Signature)
	}

	out := &domain.DecodedTx{
		Signature: raw.Signature,
		Fee:       meta.Fee,
		Status:    domain.StatusSuccess,
		Accounts:  make([]string, len(keys)),
	}
	if out.Signature == "" && len(tx.Signatures) > 0 {
		out.Signature = tx.Signatures[0].String()
	}
	if res.BlockTime != nil {
		out.BlockTime = int64(*res.BlockTime)
	}
	if meta.Err != nil {
		out.Status = domain.StatusFailure
	}
	for i, k := range keys {
		out.Accounts[i] = k.String()
	}

	signer := keys[0]
	out.Balances = domain.Balances{
		SignerAddress:       signer.String(),
		SignerSolBalance:    solBalance(meta),
		SignerTokenBalances: signerTokenBalances(signer, meta),
	}

	return out, nil
}

// static keys, then v0 lookup-table writable and readonly addresses
func accountKeys(tx *solanago.Transaction, meta *rpc.TransactionMeta) solanago.PublicKeySlice {
	keys := make(solanago.PublicKeySlice, 0, len(tx.Message.AccountKeys)+len(meta.LoadedAddresses.Writable)+len(meta.LoadedAddresses.ReadOnly))
	keys = append(keys, tx.Message.AccountKeys...)
	keys = append(keys, meta.LoadedAddresses.Writable...)
	keys = append(keys, meta.LoadedAddresses.ReadOnly...)
	return keys
}

func solBalance(meta *rpc.TransactionMeta) domain.SolBalance {
	var b domain.SolBalance
	if len(meta.PreBalances) > 0 {
		b.PreLamports = meta.PreBalances[0]
	}
	if len(meta.PostBalances) > 0 {
		b.PostLamports = meta.PostBalances[0]
	}
	b.UIChange = float64(int64(b.PostLamports)-int64(b.PreLamports)) / lamportsPerSOL
	return b
}

type tokenAccum struct {
	mint     string
	owner    string
	decimals uint8
	before   decimal.Decimal
	after    decimal.Decimal
}

// Sums the signer-owned token accounts per mint, mints ordered by first appearance (pre, then post)
func signerTokenBalances(signer solanago.PublicKey, meta *rpc.TransactionMeta) []domain.TokenBalance {
	byMint := make(map[string]*tokenAccum)
	var order []string

	add := func(tb rpc.TokenBalance, post bool) {
		if tb.Owner == nil || !tb.Owner.Equals(signer) || tb.UiTokenAmount == nil {
			return
		}

		mint := tb.Mint.String()
		acc, ok := byMint[mint]
		if !ok {
			acc = &tokenAccum{mint: mint, owner: signer.String(), decimals: tb.UiTokenAmount.Decimals}
			byMint[mint] = acc
			order = append(order, mint)
		}

		amount, err := decimal.NewFromString(tb.UiTokenAmount.Amount)
		if err != nil {
			return
		}
		if post {
			acc.after = acc.after.Add(amount)
		} else {
			acc.before = acc.before.Add(amount)
		}
	}

	for _, tb := range meta.PreTokenBalances {
		add(tb, false)
	}
	for _, tb := range meta.PostTokenBalances {
		add(tb, true)
	}

	out := make([]domain.TokenBalance, 0, len(order))
	for _, mint := range order {
		acc := byMint[mint]
		shift := -int32(acc.decimals)
		out = append(out, domain.TokenBalance{
			Mint:      acc.mint,
			Owner:     acc.owner,
			Decimals:  acc.decimals,
			RawBefore: acc.before.String(),
			RawAfter:  acc.after.String(),
			UIBefore:  acc.before.Shift(shift).InexactFloat64(),
			UIAfter:   acc.after.Shift(shift).InexactFloat64(),
		})
	}
	return out
}
