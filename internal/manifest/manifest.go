package manifest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/aliskhannn/icon-generator/internal/model"
)

// FileName is the asset catalog manifest name expected by Xcode.
const FileName = "Contents.json"

const (
	defaultIdiom = "universal"
	defaultScale = "1x"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fileStorage defines the interface for writing the manifest next to the icons.
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
}

// Contents is the asset catalog manifest of an app icon set.
type Contents struct {
	Images []Image `json:"images"`
	Info   Info    `json:"info"`
}

// Image is a single icon entry of the manifest.
type Image struct {
	Size     string `json:"size"`
	Idiom    string `json:"idiom"`
	Filename string `json:"filename"`
	Scale    string `json:"scale"`
}

// Info identifies the manifest format.
type Info struct {
	Version int    `json:"version"`
	Author  string `json:"author"`
}

// Build creates the manifest for the given written icons.
// table supplies idiom and scale metadata; icons missing from it use the defaults.
func Build(table model.SizeTable, written []model.EntryResult) (Contents, error) {
	meta := make(map[string]model.SizeEntry, len(table))
	for _, e := range table {
		if _, ok := meta[e.Name]; !ok {
			meta[e.Name] = e
		}
	}

	c := Contents{
		Images: make([]Image, 0, len(written)),
		Info:   Info{Version: 1, Author: "xcode"},
	}

	for _, w := range written {
		e := meta[w.Name]

		idiom := e.Idiom
		if idiom == "" {
			idiom = defaultIdiom
		}

		scale := e.Scale
		if scale == "" {
			scale = defaultScale
		}

		points, err := pointSize(w.Size, scale)
		if err != nil {
			return Contents{}, fmt.Errorf("icon %s: %w", w.Name, err)
		}

		c.Images = append(c.Images, Image{
			Size:     points + "x" + points,
			Idiom:    idiom,
			Filename: w.Name,
			Scale:    scale,
		})
	}

	return c, nil
}

// Write builds the manifest and saves it as Contents.json. Returns the saved path.
func Write(ctx context.Context, fs fileStorage, table model.SizeTable, written []model.EntryResult) (string, error) {
	c, err := Build(table, written)
	if err != nil {
		return "", fmt.Errorf("failed to build manifest: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}

	path, err := fs.Save(ctx, "", FileName, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to save manifest: %w", err)
	}

	return path, nil
}

// pointSize converts a pixel size and a scale such as "2x" into the point
// size string used by the manifest, e.g. 167 at 2x is "83.5".
func pointSize(pixels int, scale string) (string, error) {
	factor, err := strconv.ParseFloat(strings.TrimSuffix(scale, "x"), 64)
	if err != nil || factor <= 0 {
		return "", fmt.Errorf("invalid scale %q", scale)
	}

	return strconv.FormatFloat(float64(pixels)/factor, 'f', -1, 64), nil
}
