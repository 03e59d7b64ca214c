package pdfengine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"bindery/internal/blobcache"
	"bindery/internal/book"
	"bindery/internal/logging"
	"bindery/internal/services"
)

// Engine is the production Gateway backed by pdfcpu. Images are imported
// into single-page PDFs scaled per compression level, PDFs are optimized,
// and bundles are produced by merging per-item PDFs in book order. Cached
// representations from the blob store are reused when their level matches,
// so bundle encoding does not recompress items the optimizer already
// processed.
type Engine struct {
	blobs  *blobcache.Store
	logger *slog.Logger
}

// NewEngine constructs the pdfcpu-backed gateway.
func NewEngine(blobs *blobcache.Store, logger *slog.Logger) *Engine {
	return &Engine{
		blobs:  blobs,
		logger: logging.NewComponentLogger(logger, "pdfengine"),
	}
}

func (e *Engine) Compress(ctx context.Context, item book.Item, level book.CompressionLevel) (CompressResult, error) {
	if err := ctx.Err(); err != nil {
		return CompressResult{}, err
	}

	workDir, err := os.MkdirTemp("", "bindery-compress-*")
	if err != nil {
		return CompressResult{}, services.Wrap(services.ErrTransient, "pdfengine", "compress", "create temp dir", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	outPath := filepath.Join(workDir, "item.pdf")
	switch item.Kind {
	case book.KindImage:
		if err := e.importImage(item.SourcePath, outPath, level); err != nil {
			return CompressResult{}, services.Wrap(services.ErrTransient, "pdfengine", "compress", "import image", err)
		}
	case book.KindPDF:
		if err := api.OptimizeFile(item.SourcePath, outPath, e.configuration()); err != nil {
			return CompressResult{}, services.Wrap(services.ErrTransient, "pdfengine", "compress", "optimize pdf", err)
		}
	default:
		return CompressResult{}, services.Wrap(services.ErrValidation, "pdfengine", "compress",
			fmt.Sprintf("kind %q is not encodable by this engine", item.Kind), nil)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return CompressResult{}, services.Wrap(services.ErrTransient, "pdfengine", "compress", "read output", err)
	}
	return CompressResult{Bytes: data, Size: int64(len(data))}, nil
}

func (e *Engine) Encode(ctx context.Context, items []book.Item, title string, level book.CompressionLevel) ([]byte, error) {
	if len(items) == 0 {
		return nil, services.Wrap(services.ErrValidation, "pdfengine", "encode", "empty bundle", nil)
	}

	workDir, err := os.MkdirTemp("", "bindery-encode-*")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pdfengine", "encode", "create temp dir", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	parts := make([]string, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		partPath := filepath.Join(workDir, fmt.Sprintf("part-%04d.pdf", i))
		if err := e.materialize(ctx, item, level, partPath); err != nil {
			return nil, err
		}
		parts = append(parts, partPath)
	}

	bundlePath := filepath.Join(workDir, "bundle.pdf")
	if len(parts) == 1 {
		bundlePath = parts[0]
	} else if err := api.MergeCreateFile(parts, bundlePath, false, e.configuration()); err != nil {
		return nil, services.Wrap(services.ErrTransient, "pdfengine", "encode", "merge bundle", err)
	}

	data, err := os.ReadFile(bundlePath)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pdfengine", "encode", "read bundle", err)
	}
	e.logger.Debug("bundle encoded",
		logging.String("title", title),
		logging.Int("items", len(items)),
		logging.Int64("size", int64(len(data))),
	)
	return data, nil
}

func (e *Engine) EncodedSize(ctx context.Context, items []book.Item, title string, level book.CompressionLevel) (int64, error) {
	data, err := e.Encode(ctx, items, title, level)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (e *Engine) PageCount(ctx context.Context, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count, err := api.PageCount(bytes.NewReader(data), e.configuration())
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "pdfengine", "page count", "", err)
	}
	return count, nil
}

// materialize writes the item's per-item PDF to destPath, reusing the cached
// representation when its level matches and falling back to a fresh compress
// otherwise.
func (e *Engine) materialize(ctx context.Context, item book.Item, level book.CompressionLevel, destPath string) error {
	if item.Cached != nil && item.Cached.Level == level && item.Cached.Path != "" && e.blobs != nil {
		data, err := e.blobs.Get(item.Cached.Path)
		if err == nil {
			if writeErr := os.WriteFile(destPath, data, 0o644); writeErr == nil {
				return nil
			}
		}
		// Fall through to a fresh compress when the blob is unreadable.
		e.logger.Warn("cached representation unreadable, recompressing",
			logging.String(logging.FieldItemID, item.ID),
			logging.Error(err),
		)
	}
	result, err := e.Compress(ctx, item, level)
	if err != nil {
		return err
	}
	if err := os.WriteFile(destPath, result.Bytes, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "pdfengine", "encode", "write part", err)
	}
	return nil
}

func (e *Engine) importImage(srcPath, destPath string, level book.CompressionLevel) error {
	imp, err := api.Import(importDescription(level), types.POINTS)
	if err != nil {
		return err
	}
	return api.ImportImagesFile([]string{srcPath}, destPath, imp, e.configuration())
}

// importDescription maps the compression level to an image scale factor.
// Smaller page renderings compress harder at the cost of resolution.
func importDescription(level book.CompressionLevel) string {
	scale := 1.0
	switch level {
	case book.CompressionMedium:
		scale = 0.85
	case book.CompressionHigh:
		scale = 0.7
	}
	return fmt.Sprintf("form:A4, pos:c, s:%.2f", scale)
}

func (e *Engine) configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
