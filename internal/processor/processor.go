package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/aliskhannn/icon-generator/internal/model"
)

// Fit modes.
const (
	FitStretch = "stretch"
	FitContain = "contain"
)

var (
	// ErrInvalidSize is returned for entries with a zero or negative size.
	ErrInvalidSize = errors.New("icon size must be positive")
	// ErrInvalidName is returned for empty names and names containing a path.
	ErrInvalidName = errors.New("icon name must be a plain file name")
)

var filters = map[string]imaging.ResampleFilter{
	"lanczos":           imaging.Lanczos,
	"catmullrom":        imaging.CatmullRom,
	"mitchellnetravali": imaging.MitchellNetravali,
}

var compressionLevels = map[string]png.CompressionLevel{
	"best":    png.BestCompression,
	"default": png.DefaultCompression,
	"speed":   png.BestSpeed,
	"none":    png.NoCompression,
}

// fileStorage defines the interface for file storage.
// It allows saving files to a backend (local FS, S3, MinIO).
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
}

// Options configures how icons are rendered.
type Options struct {
	Filter      string // resampling filter name, see Filter
	Fit         string // FitStretch or FitContain
	Background  string // hex colour behind contained icons, empty for transparent
	Compression string // PNG compression level name
}

// Processor renders icons from a decoded source image and saves them as PNG.
type Processor struct {
	fileStorage fileStorage
	filter      imaging.ResampleFilter
	fit         string
	background  string
	compression png.CompressionLevel
}

// New creates a new Processor with the given file storage backend.
func New(fs fileStorage, opts Options) (*Processor, error) {
	filter, err := Filter(opts.Filter)
	if err != nil {
		return nil, err
	}

	level, err := Compression(opts.Compression)
	if err != nil {
		return nil, err
	}

	fit := opts.Fit
	if fit == "" {
		fit = FitStretch
	}
	if fit != FitStretch && fit != FitContain {
		return nil, fmt.Errorf("unknown fit mode: %s", fit)
	}

	return &Processor{
		fileStorage: fs,
		filter:      filter,
		fit:         fit,
		background:  opts.Background,
		compression: level,
	}, nil
}

// Filter resolves a resampling filter by name. An empty name selects Lanczos.
// Only smooth interpolating filters are accepted.
func Filter(name string) (imaging.ResampleFilter, error) {
	if name == "" {
		return imaging.Lanczos, nil
	}

	f, ok := filters[strings.ToLower(name)]
	if !ok {
		return imaging.ResampleFilter{}, fmt.Errorf("unsupported resampling filter: %s", name)
	}

	return f, nil
}

// Compression resolves a PNG compression level by name. An empty name selects
// the best compression.
func Compression(name string) (png.CompressionLevel, error) {
	if name == "" {
		return png.BestCompression, nil
	}

	level, ok := compressionLevels[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unsupported png compression: %s", name)
	}

	return level, nil
}

// Process renders src at entry.Size x entry.Size, encodes it as PNG and saves
// it under entry.Name. src is only read. Returns the saved path.
func (p *Processor) Process(ctx context.Context, src image.Image, entry model.SizeEntry) (string, error) {
	if err := validate(entry); err != nil {
		return "", err
	}

	icon := p.Render(src, entry.Size)

	// Encode into buffer for storage.
	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, icon, imaging.PNG, imaging.PNGCompressionLevel(p.compression)); err != nil {
		return "", fmt.Errorf("failed to encode icon: %w", err)
	}

	dst, err := p.fileStorage.Save(ctx, "", entry.Name, buf)
	if err != nil {
		return "", fmt.Errorf("failed to save icon: %w", err)
	}

	return dst, nil
}

// Render returns a size x size copy of src according to the fit mode.
func (p *Processor) Render(src image.Image, size int) image.Image {
	if p.fit == FitContain {
		return p.contain(src, size)
	}

	return imaging.Resize(src, size, size, p.filter)
}

// contain scales src to fit inside the square keeping its aspect ratio and
// centres it on the background colour.
func (p *Processor) contain(src image.Image, size int) image.Image {
	w, h := fitInside(src.Bounds().Dx(), src.Bounds().Dy(), size)
	scaled := imaging.Resize(src, w, h, p.filter)

	dc := gg.NewContext(size, size)
	if p.background != "" {
		dc.SetHexColor(p.background)
		dc.Clear()
	}
	dc.DrawImageAnchored(scaled, size/2, size/2, 0.5, 0.5)

	return dc.Image()
}

// fitInside returns the largest dimensions with the aspect ratio of w x h
// that fit into a size x size square. Neither side drops below one pixel.
func fitInside(w, h, size int) (int, int) {
	if w <= 0 || h <= 0 {
		return size, size
	}

	if w >= h {
		return size, max(1, (h*size+w/2)/w)
	}

	return max(1, (w*size+h/2)/h), size
}

func validate(entry model.SizeEntry) error {
	if entry.Size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, entry.Size)
	}

	if entry.Name == "" || entry.Name == "." || entry.Name == ".." || strings.ContainsAny(entry.Name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, entry.Name)
	}

	return nil
}
