package assets

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/AaronLay10/lorecrafter/internal/pixelart"
)

// DefaultSize is the exported edge length in pixels.
const DefaultSize = 512

// URLPrefix is the root-relative prefix of every returned asset path.
const URLPrefix = "assets"

// ExportError reports a failed write of one slot's image.
type ExportError struct {
	Slot string
	Name string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s (%s): %v", e.Slot, e.Name, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Exporter upscales pixel buffers and writes them as PNG files.
type Exporter struct {
	store Store
	size  int
	// suffix is replaceable in tests
	suffix func() string
}

func NewExporter(store Store, size int) *Exporter {
	if size <= 0 {
		size = DefaultSize
	}
	return &Exporter{store: store, size: size, suffix: randomSuffix}
}

// Size returns the exported edge length.
func (e *Exporter) Size() int { return e.size }

// Export writes buf under a fresh "<slot>_<suffix>.png" name and returns its
// root-relative path. Identical inputs still produce distinct names.
func (e *Exporter) Export(ctx context.Context, slot string, buf *pixelart.PixelBuffer) (string, error) {
	return e.ExportAs(ctx, slot, fmt.Sprintf("%s_%s.png", slot, e.suffix()), buf)
}

// ExportAs writes buf under a fixed name.
func (e *Exporter) ExportAs(ctx context.Context, slot, name string, buf *pixelart.PixelBuffer) (string, error) {
	content, err := e.Encode(buf)
	if err != nil {
		return "", &ExportError{Slot: slot, Name: name, Err: err}
	}
	if err := e.store.Put(ctx, name, content, "image/png"); err != nil {
		return "", &ExportError{Slot: slot, Name: name, Err: err}
	}
	return Path(name), nil
}

// Encode upscales buf to the exporter size and returns the PNG bytes.
func (e *Exporter) Encode(buf *pixelart.PixelBuffer) ([]byte, error) {
	scaled, err := pixelart.Upscale(buf, e.size)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&out, scaled.Image()); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return out.Bytes(), nil
}

// Exists reports whether the asset at a root-relative path is stored.
func (e *Exporter) Exists(ctx context.Context, assetPath string) (bool, error) {
	name, ok := Name(assetPath)
	if !ok {
		return false, nil
	}
	return e.store.Exists(ctx, name)
}

// Path returns the root-relative path of a stored asset name.
func Path(name string) string {
	return path.Join(URLPrefix, name)
}

// Name strips the asset prefix from a root-relative path.
func Name(assetPath string) (string, bool) {
	assetPath = strings.TrimPrefix(strings.TrimSpace(assetPath), "/")
	name, ok := strings.CutPrefix(assetPath, URLPrefix+"/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

func randomSuffix() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:12]
}
