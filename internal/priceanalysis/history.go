package priceanalysis

import (
	"context"
	"walletpnl/internal/domain"
	"walletpnl/internal/scheduler"
)

// HistorySource returns one chunk of the price series of mint in [from, to], ascending by time
type HistorySource interface {
	HistoryChunk(ctx context.Context, mint string, from, to int64) ([]domain.PricePoint, error)
}

// Each chunk is its own scheduled task so the limiter paces every outbound call.
// Stops on an empty chunk or when the last timestamp does not move past the current start.
func fullHistory(ctx context.Context, limiter *scheduler.Scheduler, src HistorySource, mint string, from, to int64) ([]domain.PricePoint, int, error) {
	var (
		all    []domain.PricePoint
		calls  int
		cursor = from
	)

	for cursor < to {
		start := cursor
		chunk, err := scheduler.Do(ctx, limiter, func(ctx context.Context) ([]domain.PricePoint, error) {
			return src.HistoryChunk(ctx, mint, start, to)
		})
		calls++
		if err != nil {
			return nil, calls, err
		}
		if len(chunk) == 0 {
			break
		}

		all = append(all, chunk...)

		last := chunk[len(chunk)-1].Timestamp
		if last <= cursor {
			break
		}
		cursor = last + 1
	}

	return dedupeByTimestamp(all), calls, nil
}

// keeps the first occurrence
func dedupeByTimestamp(points []domain.PricePoint) []domain.PricePoint {
	if len(points) == 0 {
		return points
	}

	seen := make(map[int64]struct{}, len(points))
	out := points[:0:0]
	for _, p := range points {
		if _, ok := seen[p.Timestamp]; ok {
			continue
		}
		seen[p.Timestamp] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Compute derives the analysis of a history that starts at the purchase time.
// Returns nil for an empty history or a non-positive purchase price, both meaning "no data".
func Compute(history []domain.PricePoint) *domain.PriceAnalysis {
	if len(history) == 0 {
		return nil
	}

	first := history[0]
	if first.Value <= 0 {
		return nil
	}

	a := &domain.PriceAnalysis{
		PurchasePrice: first.Value,
		CurrentPrice:  history[len(history)-1].Value,
		AthPrice:      first.Value,
		AthTimestamp:  first.Timestamp,
		PriceHistory:  history,
	}

	// strictly greater: ties keep the earliest point
	for _, p := range history[1:] {
		if p.Value > a.AthPrice {
			a.AthPrice = p.Value
			a.AthTimestamp = p.Timestamp
		}
	}

	return a
}
