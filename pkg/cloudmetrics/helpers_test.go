package cloudmetrics_test

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/askiada/go-cloudmetrics/pkg/field"
	"github.com/askiada/go-cloudmetrics/pkg/masks"
	"github.com/askiada/go-cloudmetrics/pkg/scene"
)

// writeGrey writes a greyscale PNG named name in dir. Every row of cells is a
// row of the image.
func writeGrey(t *testing.T, dir, name string, cells [][]uint8) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, len(cells[0]), len(cells)))
	for y, row := range cells {
		for x, v := range row {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))

	return path
}

// sceneDir holds two scenes: a is 3/4 cloudy with the default threshold, b is
// clear.
func sceneDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	writeGrey(t, dir, "a.png", [][]uint8{
		{0, 128},
		{255, 255},
	})
	writeGrey(t, dir, "b.png", [][]uint8{
		{0, 0},
		{0, 0},
	})

	return dir
}

// countingMask wraps the greyscale mask and counts its calls.
type countingMask struct {
	calls atomic.Int64
}

func (m *countingMask) fn(ctx context.Context, f *field.Field, params masks.Params) (*field.Field, error) {
	m.calls.Add(1)

	return masks.GreyscaleThreshold(ctx, f, params)
}

type cacheKey struct {
	sceneID, stageKey string
}

type cacheEntry struct {
	source string
	cacheKey
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[cacheEntry]*field.Field
	hits    int
	cleaned int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[cacheEntry]*field.Field)}
}

func (c *memoryCache) Get(_ context.Context, source, sceneID, stageKey string) (*field.Field, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.entries[cacheEntry{source, cacheKey{sceneID, stageKey}}]
	if ok {
		c.hits++
	}

	return f, ok, nil
}

func (c *memoryCache) Put(_ context.Context, source, sceneID, stageKey string, f *field.Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheEntry{source, cacheKey{sceneID, stageKey}}] = f

	return nil
}

func (c *memoryCache) Clean(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[cacheEntry]*field.Field)
	c.cleaned++

	return nil
}

func (c *memoryCache) keys() []cacheKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := make([]cacheKey, 0, len(c.entries))
	for k := range c.entries {
		res = append(res, k.cacheKey)
	}

	return res
}

func (c *memoryCache) sources() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := make(map[string]int)
	for k := range c.entries {
		res[k.source]++
	}

	return res
}

// timeDataset is a netCDF dataset identified by its time coordinate.
type timeDataset struct {
	times  []time.Time
	fields []*field.Field
}

func (d *timeDataset) Has(variable string) bool {
	return variable == scene.VarTime
}

func (d *timeDataset) Strings(string) ([]string, error) {
	return nil, nil
}

func (d *timeDataset) Times(string) ([]time.Time, error) {
	return d.times, nil
}

func (d *timeDataset) Field(index int) (*field.Field, error) {
	return d.fields[index].Clone(), nil
}

func (d *timeDataset) Close() error {
	return nil
}
