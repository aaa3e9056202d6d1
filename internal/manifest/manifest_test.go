package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/icon-generator/internal/model"
	"github.com/aliskhannn/icon-generator/internal/storage/file"
)

var table = model.SizeTable{
	{Name: "AppIcon-20x20@2x.png", Size: 40, Idiom: "iphone", Scale: "2x"},
	{Name: "AppIcon-83.5x83.5@2x.png", Size: 167, Idiom: "ipad", Scale: "2x"},
	{Name: "AppIcon-1024x1024@1x.png", Size: 1024, Idiom: "ios-marketing", Scale: "1x"},
	{Name: "plain.png", Size: 64},
}

func TestBuild(t *testing.T) {
	written := []model.EntryResult{
		{Name: "AppIcon-20x20@2x.png", Size: 40},
		{Name: "AppIcon-83.5x83.5@2x.png", Size: 167},
		{Name: "plain.png", Size: 64},
	}

	c, err := Build(table, written)
	require.NoError(t, err)

	assert.Equal(t, Info{Version: 1, Author: "xcode"}, c.Info)
	assert.Equal(t, []Image{
		{Size: "20x20", Idiom: "iphone", Filename: "AppIcon-20x20@2x.png", Scale: "2x"},
		{Size: "83.5x83.5", Idiom: "ipad", Filename: "AppIcon-83.5x83.5@2x.png", Scale: "2x"},
		{Size: "64x64", Idiom: "universal", Filename: "plain.png", Scale: "1x"},
	}, c.Images)
}

func TestBuildInvalidScale(t *testing.T) {
	_, err := Build(model.SizeTable{{Name: "a.png", Size: 10, Scale: "big"}}, []model.EntryResult{{Name: "a.png", Size: 10}})
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()

	path, err := Write(context.Background(), file.NewStorage(dir), table, []model.EntryResult{
		{Name: "AppIcon-1024x1024@1x.png", Size: 1024},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var c Contents
	require.NoError(t, json.Unmarshal(data, &c))
	require.Len(t, c.Images, 1)
	assert.Equal(t, "1024x1024", c.Images[0].Size)
	assert.Equal(t, "ios-marketing", c.Images[0].Idiom)
}
