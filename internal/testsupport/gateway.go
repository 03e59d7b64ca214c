package testsupport

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"bindery/internal/book"
	"bindery/internal/services/pdfengine"
)

// FakeGateway is a deterministic in-memory encoding gateway. Per-item
// compressed sizes derive from the raw size and compression level, bundle
// sizes add a flat container cost, and both can be overridden per batch so
// tests can model the non-linear overhead of a real encoder.
type FakeGateway struct {
	mu sync.Mutex

	// BatchSizes overrides the encoded size for a specific batch, keyed by
	// the comma-joined item IDs.
	BatchSizes map[string]int64

	// CompressErr and EncodeErr, when set, fail the corresponding call.
	CompressErr error
	EncodeErr   error

	compressCalls int
	encodeCalls   int
}

var levelDivisor = map[book.CompressionLevel]int64{
	book.CompressionLow:    2,
	book.CompressionMedium: 3,
	book.CompressionHigh:   4,
}

// NewFakeGateway returns a gateway with no overrides installed.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{BatchSizes: make(map[string]int64)}
}

// ItemSize reports the deterministic compressed size the fake produces for
// the given raw size and level.
func ItemSize(rawSize int64, level book.CompressionLevel) int64 {
	div := levelDivisor[level]
	if div == 0 {
		div = 3
	}
	size := rawSize / div
	if size < 1 {
		size = 1
	}
	return size
}

func (g *FakeGateway) Compress(_ context.Context, item book.Item, level book.CompressionLevel) (pdfengine.CompressResult, error) {
	g.mu.Lock()
	g.compressCalls++
	err := g.CompressErr
	g.mu.Unlock()
	if err != nil {
		return pdfengine.CompressResult{}, err
	}

	size := ItemSize(item.RawSize, level)
	return pdfengine.CompressResult{Bytes: fakePDF(size), Size: size}, nil
}

func (g *FakeGateway) Encode(ctx context.Context, items []book.Item, title string, level book.CompressionLevel) ([]byte, error) {
	size, err := g.EncodedSize(ctx, items, title, level)
	if err != nil {
		return nil, err
	}
	return fakePDF(size), nil
}

func (g *FakeGateway) EncodedSize(_ context.Context, items []book.Item, _ string, level book.CompressionLevel) (int64, error) {
	g.mu.Lock()
	g.encodeCalls++
	err := g.EncodeErr
	override, hasOverride := g.BatchSizes[batchKey(items)]
	g.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if hasOverride {
		return override, nil
	}

	total := int64(50_000)
	for _, item := range items {
		if item.Cached != nil && item.Cached.Level == level {
			total += item.Cached.Size
		} else {
			total += ItemSize(item.RawSize, level)
		}
	}
	return total, nil
}

func (g *FakeGateway) PageCount(_ context.Context, data []byte) (int, error) {
	return int(int64(len(data))/10_000) + 1, nil
}

// CompressCalls reports how many Compress invocations the fake has seen.
func (g *FakeGateway) CompressCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.compressCalls
}

// EncodeCalls reports how many Encode or EncodedSize invocations the fake
// has seen.
func (g *FakeGateway) EncodeCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.encodeCalls
}

// SetBatchSize installs an exact-size override for the batch with the given
// comma-joined item IDs.
func (g *FakeGateway) SetBatchSize(joinedIDs string, size int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.BatchSizes[joinedIDs] = size
}

func batchKey(items []book.Item) string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return strings.Join(ids, ",")
}

func fakePDF(size int64) []byte {
	return bytes.Repeat([]byte{'b'}, int(size))
}

var _ pdfengine.Gateway = (*FakeGateway)(nil)
