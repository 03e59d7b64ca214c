package planner

import (
	"context"
	"fmt"

	"bindery/internal/book"
	"bindery/internal/services"
)

// Estimate constants. Bundle containers carry cross-reference tables and
// shared object metadata that grow with item count, so the accumulator is
// seeded with a fixed per-bundle allowance and charged a small fee per item.
// These are deliberately conservative; exact verification is what actually
// enforces the ceiling.
const (
	bundleOverheadBytes = int64(48 * 1024)
	itemOverheadBytes   = int64(2 * 1024)

	// verifyThresholdPercent is the fraction of the effective limit at which
	// the running estimate triggers an exact verification. Verifying before
	// certainty keeps the number of encoder calls close to one per emitted
	// chunk instead of one per item.
	verifyThresholdPercent = 85
)

// Sizer produces the exact encoded size of an ordered batch of items. The
// encoding gateway satisfies this.
type Sizer interface {
	EncodedSize(ctx context.Context, items []book.Item, title string, level book.CompressionLevel) (int64, error)
}

// Plan partitions the item sequence into ordered chunks whose verified
// encoded sizes stay under the effective limit. It is a pure function of its
// inputs: the same items, settings, and title always yield the same chunk
// boundaries and fingerprints. A single item that cannot fit under the limit
// on its own becomes a one-item chunk flagged Oversized.
//
// Any encoder failure aborts the whole pass; the caller retries later.
func Plan(ctx context.Context, items []book.Item, title string, settings book.Settings, sizer Sizer) ([]book.Chunk, error) {
	if len(items) == 0 {
		return nil, nil
	}

	limit := settings.EffectiveLimit()
	threshold := limit * verifyThresholdPercent / 100
	level := settings.CompressionLevel

	var chunks []book.Chunk
	batch := newBatch()

	for idx := 0; idx < len(items); {
		batch.append(items[idx])
		idx++

		if batch.estimate < threshold && idx < len(items) {
			continue
		}

		if err := batch.verify(ctx, sizer, title, level); err != nil {
			return nil, err
		}
		if batch.verified < limit {
			continue
		}

		// Over the limit. Pop items until the batch fits again; once past
		// the threshold every append is followed by a verification, so the
		// first pop restores an already-verified batch and further pops are
		// only needed when estimates were badly stale.
		for batch.verified >= limit && len(batch.items) > 1 {
			batch.pop()
			idx--
			if batch.verified == 0 {
				if err := batch.verify(ctx, sizer, title, level); err != nil {
					return nil, err
				}
			}
		}
		chunks = append(chunks, batch.finalize(len(chunks)+1, title, limit))
		batch = newBatch()
	}

	if len(batch.items) > 0 {
		if batch.verified == 0 {
			if err := batch.verify(ctx, sizer, title, level); err != nil {
				return nil, err
			}
		}
		chunks = append(chunks, batch.finalize(len(chunks)+1, title, limit))
	}

	return chunks, nil
}

type batchState struct {
	items    []book.Item
	estimate int64
	// verified is the exact encoded size of the current items, 0 when the
	// batch changed since the last verification.
	verified int64
	// prevVerified remembers the verified size the batch had before the most
	// recent append, so a pop can restore it without a second encoder call.
	prevVerified int64
}

func newBatch() *batchState {
	return &batchState{estimate: bundleOverheadBytes}
}

func (b *batchState) append(item book.Item) {
	b.items = append(b.items, item)
	b.estimate += item.BestKnownSize() + itemOverheadBytes
	b.prevVerified = b.verified
	b.verified = 0
}

func (b *batchState) pop() book.Item {
	last := b.items[len(b.items)-1]
	b.items = b.items[:len(b.items)-1]
	b.estimate -= last.BestKnownSize() + itemOverheadBytes
	b.verified = b.prevVerified
	b.prevVerified = 0
	return last
}

func (b *batchState) verify(ctx context.Context, sizer Sizer, title string, level book.CompressionLevel) error {
	size, err := sizer.EncodedSize(ctx, b.items, title, level)
	if err != nil {
		return services.Wrap(services.ErrTransient, "planner", "plan", "verify batch", err)
	}
	b.verified = size
	return nil
}

func (b *batchState) finalize(partNumber int, bookTitle string, limit int64) book.Chunk {
	ids := make([]string, len(b.items))
	for i, item := range b.items {
		ids[i] = item.ID
	}
	chunk := book.Chunk{
		PartNumber:         partNumber,
		ItemIDs:            ids,
		Title:              ChunkTitle(bookTitle, partNumber),
		EstimatedSizeBytes: b.estimate,
		VerifiedSizeBytes:  b.verified,
		Oversized:          b.verified >= limit,
	}
	chunk.Fingerprint = Fingerprint(b.items, chunk.Title)
	return chunk
}

// ChunkTitle derives the display title of one chunk from the book title and
// its 1-based part number.
func ChunkTitle(bookTitle string, partNumber int) string {
	return fmt.Sprintf("%s (part %d)", bookTitle, partNumber)
}
