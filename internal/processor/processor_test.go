package processor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/icon-generator/internal/model"
	"github.com/aliskhannn/icon-generator/internal/storage/file"
)

type failingStorage struct{}

func (failingStorage) Save(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

func source(w, h int) image.Image {
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 0.5, 0)
	dc.Clear()
	dc.SetRGB(0, 0, 1)
	dc.DrawCircle(float64(w)/2, float64(h)/2, float64(min(w, h))/3)
	dc.Fill()

	return dc.Image()
}

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestProcessWritesSquarePNG(t *testing.T) {
	dir := t.TempDir()
	p, err := New(file.NewStorage(dir), Options{})
	require.NoError(t, err)

	src := source(512, 512)
	for _, entry := range []model.SizeEntry{{Name: "A.png", Size: 40}, {Name: "B.png", Size: 1024}} {
		path, err := p.Process(context.Background(), src, entry)
		require.NoError(t, err)

		f, err := os.Open(path)
		require.NoError(t, err)
		cfg, format, err := image.DecodeConfig(f)
		f.Close()
		require.NoError(t, err)

		assert.Equal(t, "png", format)
		assert.Equal(t, entry.Size, cfg.Width)
		assert.Equal(t, entry.Size, cfg.Height)
	}
}

func TestProcessStretchIgnoresAspectRatio(t *testing.T) {
	p, err := New(file.NewStorage(t.TempDir()), Options{Fit: FitStretch})
	require.NoError(t, err)

	icon := p.Render(source(300, 100), 64)
	assert.Equal(t, image.Rect(0, 0, 64, 64), icon.Bounds())
	// The orange background reaches the corners when stretched.
	assert.Equal(t, uint8(255), nrgbaAt(icon, 0, 0).A)
}

func TestProcessContainPadsWithBackground(t *testing.T) {
	p, err := New(file.NewStorage(t.TempDir()), Options{Fit: FitContain, Background: "#0a0a0a"})
	require.NoError(t, err)

	icon := p.Render(source(400, 200), 40)
	require.Equal(t, 40, icon.Bounds().Dx())
	require.Equal(t, 40, icon.Bounds().Dy())

	assert.Equal(t, color.NRGBA{R: 10, G: 10, B: 10, A: 255}, nrgbaAt(icon, 0, 0))
	assert.Equal(t, color.NRGBA{R: 10, G: 10, B: 10, A: 255}, nrgbaAt(icon, 39, 39))

	// Left edge of the scaled source, vertically centred, is orange.
	mid := nrgbaAt(icon, 1, 20)
	assert.Greater(t, mid.R, uint8(200))
}

func TestProcessContainTransparentBackground(t *testing.T) {
	p, err := New(file.NewStorage(t.TempDir()), Options{Fit: FitContain})
	require.NoError(t, err)

	icon := p.Render(source(100, 400), 80)
	assert.Equal(t, uint8(0), nrgbaAt(icon, 0, 0).A)
	assert.Equal(t, uint8(255), nrgbaAt(icon, 40, 40).A)
}

func TestProcessRejectsInvalidEntries(t *testing.T) {
	dir := t.TempDir()
	p, err := New(file.NewStorage(dir), Options{})
	require.NoError(t, err)

	src := source(32, 32)

	_, err = p.Process(context.Background(), src, model.SizeEntry{Name: "zero.png", Size: 0})
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = p.Process(context.Background(), src, model.SizeEntry{Name: "neg.png", Size: -5})
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = p.Process(context.Background(), src, model.SizeEntry{Name: "../escape.png", Size: 16})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = p.Process(context.Background(), src, model.SizeEntry{Name: "", Size: 16})
	assert.ErrorIs(t, err, ErrInvalidName)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessStorageFailure(t *testing.T) {
	p, err := New(failingStorage{}, Options{})
	require.NoError(t, err)

	_, err = p.Process(context.Background(), source(16, 16), model.SizeEntry{Name: "a.png", Size: 8})
	assert.ErrorContains(t, err, "disk full")
}

func TestProcessAlwaysEncodesPNG(t *testing.T) {
	dir := t.TempDir()
	p, err := New(file.NewStorage(dir), Options{})
	require.NoError(t, err)

	path, err := p.Process(context.Background(), source(16, 16), model.SizeEntry{Name: "icon.jpg", Size: 8})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	_, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestFilter(t *testing.T) {
	f, err := Filter("")
	require.NoError(t, err)
	assert.Equal(t, imaging.Lanczos.Support, f.Support)

	_, err = Filter("CatmullRom")
	assert.NoError(t, err)

	for _, name := range []string{"nearest", "box", "linear", "bogus"} {
		_, err := Filter(name)
		assert.Error(t, err, name)
	}
}

func TestNewRejectsUnknownOptions(t *testing.T) {
	s := file.NewStorage(t.TempDir())

	_, err := New(s, Options{Fit: "cover"})
	assert.Error(t, err)

	_, err = New(s, Options{Compression: "max"})
	assert.Error(t, err)
}

func TestFitInside(t *testing.T) {
	tests := []struct {
		w, h, size   int
		wantW, wantH int
	}{
		{512, 512, 40, 40, 40},
		{400, 200, 40, 40, 20},
		{100, 400, 80, 20, 80},
		{1000, 1, 10, 10, 1},
		{0, 0, 10, 10, 10},
	}

	for _, tt := range tests {
		w, h := fitInside(tt.w, tt.h, tt.size)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}
