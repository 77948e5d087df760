package scene_test

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-cloudmetrics/pkg/field"
	"github.com/askiada/go-cloudmetrics/pkg/scene"
)

type fakeDataset struct {
	sceneIDs []string
	times    []time.Time
	fields   []*field.Field
}

func (d *fakeDataset) Has(variable string) bool {
	switch variable {
	case scene.VarSceneID:
		return d.sceneIDs != nil
	case scene.VarTime:
		return d.times != nil
	default:
		return false
	}
}

func (d *fakeDataset) Strings(string) ([]string, error) {
	return d.sceneIDs, nil
}

func (d *fakeDataset) Times(string) ([]time.Time, error) {
	return d.times, nil
}

func (d *fakeDataset) Field(index int) (*field.Field, error) {
	if index >= len(d.fields) {
		return nil, scene.ErrSceneIndex
	}

	return d.fields[index], nil
}

func (d *fakeDataset) Close() error {
	return nil
}

func opener(datasets map[string]*fakeDataset) scene.Opener {
	return func(path string) (scene.Dataset, error) {
		ds, ok := datasets[filepath.Base(path)]
		if !ok {
			return nil, errors.Errorf("no dataset %s", path)
		}

		return ds, nil
	}
}

// touch creates empty files in dir; discovery never reads them.
func touch(t *testing.T, dir string, names ...string) {
	t.Helper()

	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestIDsFromDataset(t *testing.T) {
	t.Parallel()

	paris := time.FixedZone("CET", 3600)

	tcs := map[string]struct {
		dataset     *fakeDataset
		expected    []string
		expectedErr error
	}{
		"scene id verbatim": {
			dataset:  &fakeDataset{sceneIDs: []string{"goes16_20200202_1200", "b"}},
			expected: []string{"goes16_20200202_1200", "b"},
		},
		"scene id wins over time": {
			dataset:  &fakeDataset{sceneIDs: []string{"a"}, times: []time.Time{time.Date(2020, 1, 2, 3, 4, 0, 0, time.UTC)}},
			expected: []string{"a"},
		},
		"time": {
			dataset: &fakeDataset{times: []time.Time{
				time.Date(2020, 1, 2, 3, 4, 59, 0, time.UTC),
				time.Date(2020, 12, 31, 23, 0, 0, 0, time.UTC),
			}},
			expected: []string{"202001020304", "202012312300"},
		},
		"time in utc": {
			dataset:  &fakeDataset{times: []time.Time{time.Date(2020, 2, 2, 1, 30, 0, 0, paris)}},
			expected: []string{"202002020030"},
		},
		"no identifier": {
			dataset:     &fakeDataset{},
			expectedErr: scene.ErrMissingIdentifier,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := scene.IDsFromDataset(tc.dataset)
			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestIDFromImage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "rico_20200202", scene.IDFromImage("data/rico_20200202.png"))
	assert.Equal(t, "scene.v2", scene.IDFromImage("/tmp/scene.v2.JPG"))
}

func TestFind(t *testing.T) {
	t.Parallel()

	datasets := map[string]*fakeDataset{
		"ids.nc":     {sceneIDs: []string{"s1", "s2"}},
		"times.nc":   {times: []time.Time{time.Date(2021, 5, 6, 7, 8, 0, 0, time.UTC)}},
		"nothing.nc": {},
		"dup.nc":     {sceneIDs: []string{"b"}},
		"noids.nc":   {sceneIDs: []string{}},
		"notimes.nc": {times: []time.Time{}},
	}

	tcs := map[string]struct {
		files       []string
		sources     func(dir string) []string
		opener      scene.Opener
		expected    []scene.Scene
		expectedErr error
	}{
		"images by glob": {
			files:   []string{"b.png", "a.jpeg", "c.txt"},
			sources: func(dir string) []string { return []string{filepath.Join(dir, "*.png"), filepath.Join(dir, "*.jpeg")} },
			expected: []scene.Scene{
				{ID: "b", Path: "b.png", Kind: scene.KindImage},
				{ID: "a", Path: "a.jpeg", Kind: scene.KindImage},
			},
		},
		"netcdf ids and times": {
			files:   []string{"ids.nc", "times.nc"},
			sources: func(dir string) []string { return []string{filepath.Join(dir, "*.nc")} },
			opener:  opener(datasets),
			expected: []scene.Scene{
				{ID: "s1", Path: "ids.nc", Kind: scene.KindNetCDF, Index: 0},
				{ID: "s2", Path: "ids.nc", Kind: scene.KindNetCDF, Index: 1},
				{ID: "202105060708", Path: "times.nc", Kind: scene.KindNetCDF, Index: 0},
			},
		},
		"netcdf without identifier": {
			files:       []string{"nothing.nc"},
			sources:     func(dir string) []string { return []string{filepath.Join(dir, "nothing.nc")} },
			opener:      opener(datasets),
			expectedErr: scene.ErrMissingIdentifier,
		},
		"netcdf with empty scene ids": {
			files:       []string{"a.png", "noids.nc"},
			sources:     func(dir string) []string { return []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "noids.nc")} },
			opener:      opener(datasets),
			expectedErr: scene.ErrMissingIdentifier,
		},
		"netcdf with empty time coordinate": {
			files:       []string{"a.png", "notimes.nc"},
			sources:     func(dir string) []string { return []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "notimes.nc")} },
			opener:      opener(datasets),
			expectedErr: scene.ErrMissingIdentifier,
		},
		"file name with glob metacharacter": {
			files:    []string{"scene[1].png", "scene1.png"},
			sources:  func(dir string) []string { return []string{filepath.Join(dir, "scene[1].png")} },
			expected: []scene.Scene{{ID: "scene[1]", Path: "scene[1].png", Kind: scene.KindImage}},
		},
		"netcdf without opener": {
			files:       []string{"ids.nc"},
			sources:     func(dir string) []string { return []string{filepath.Join(dir, "ids.nc")} },
			expectedErr: scene.ErrNoOpener,
		},
		"duplicate image stem": {
			files:       []string{"a.png", "a.jpg"},
			sources:     func(dir string) []string { return []string{filepath.Join(dir, "a.*")} },
			expectedErr: scene.ErrDuplicateScene,
		},
		"duplicate across kinds": {
			files:       []string{"b.png", "dup.nc"},
			sources:     func(dir string) []string { return []string{filepath.Join(dir, "b.png"), filepath.Join(dir, "dup.nc")} },
			opener:      opener(datasets),
			expectedErr: scene.ErrDuplicateScene,
		},
		"unsupported format": {
			files:       []string{"notes.txt"},
			sources:     func(dir string) []string { return []string{filepath.Join(dir, "notes.txt")} },
			expectedErr: scene.ErrUnsupportedFormat,
		},
		"empty glob": {
			sources:     func(dir string) []string { return []string{filepath.Join(dir, "*.png")} },
			expectedErr: scene.ErrNoScenes,
		},
		"no source": {
			sources:     func(string) []string { return nil },
			expectedErr: scene.ErrNoScenes,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			touch(t, dir, tc.files...)

			cat, err := scene.Find(t.Context(), scene.Options{NetCDF: tc.opener}, tc.sources(dir)...)
			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)

				return
			}
			require.NoError(t, err)

			got := cat.Scenes()
			for i := range got {
				got[i].Path = filepath.Base(got[i].Path)
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestSceneSource(t *testing.T) {
	t.Parallel()

	first, second := t.TempDir(), t.TempDir()
	touch(t, first, "s.png")
	require.NoError(t, os.WriteFile(filepath.Join(second, "s.png"), []byte{1}, 0o600))

	a := scene.Scene{ID: "s", Path: filepath.Join(first, "s.png"), Kind: scene.KindImage}
	src, err := a.Source()
	require.NoError(t, err)
	again, err := a.Source()
	require.NoError(t, err)
	assert.Equal(t, src, again)

	b := scene.Scene{ID: "s", Path: filepath.Join(second, "s.png"), Kind: scene.KindImage}
	other, err := b.Source()
	require.NoError(t, err)
	assert.NotEqual(t, src, other)

	a.Index = 1
	indexed, err := a.Source()
	require.NoError(t, err)
	assert.NotEqual(t, src, indexed)

	_, err = scene.Scene{ID: "x", Path: filepath.Join(first, "missing.png")}.Source()
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCatalogLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.White)
	img.Set(2, 1, color.RGBA{R: 255, A: 255})
	writePNG(t, filepath.Join(dir, "rico.png"), img)
	touch(t, dir, "model.nc")

	ncField, err := field.New("cloud_water", mat.NewDense(2, 2, []float64{0, 1, 1, 0}))
	require.NoError(t, err)
	opts := scene.Options{NetCDF: opener(map[string]*fakeDataset{
		"model.nc": {sceneIDs: []string{"m0"}, fields: []*field.Field{ncField}},
	})}

	cat, err := scene.Find(t.Context(), opts, filepath.Join(dir, "rico.png"), filepath.Join(dir, "model.nc"))
	require.NoError(t, err)
	require.Equal(t, 2, cat.Len())

	s, ok := cat.Get("rico")
	require.True(t, ok)
	f, err := cat.Load(t.Context(), s)
	require.NoError(t, err)
	require.Len(t, f.Bands, 3)
	rows, cols := f.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
	assert.InDelta(t, 1, f.Bands[0].At(0, 0), 1e-9)
	assert.InDelta(t, 1, f.Bands[2].At(0, 0), 1e-9)
	assert.InDelta(t, 1, f.Bands[0].At(1, 2), 1e-9)
	assert.InDelta(t, 0, f.Bands[1].At(1, 2), 1e-9)
	assert.Equal(t, "rico", f.Attrs[field.AttrSceneID])

	s, ok = cat.Get("m0")
	require.True(t, ok)
	f, err = cat.Load(t.Context(), s)
	require.NoError(t, err)
	assert.True(t, f.IsMask())
	assert.Equal(t, "m0", f.Attrs[field.AttrSceneID])

	_, ok = cat.Get("unknown")
	assert.False(t, ok)
}

func TestCatalogSaveLoad(t *testing.T) {
	t.Parallel()

	cat := scene.NewCatalog(scene.Options{})
	require.NoError(t, cat.Add(scene.Scene{ID: "b", Path: "data/b.png", Kind: scene.KindImage}))
	require.NoError(t, cat.Add(scene.Scene{ID: "a", Path: "data/file.nc", Kind: scene.KindNetCDF, Index: 3}))
	require.ErrorIs(t, cat.Add(scene.Scene{ID: "a", Path: "other.png"}), scene.ErrDuplicateScene)
	require.ErrorIs(t, cat.Add(scene.Scene{Path: "other.png"}), scene.ErrEmptySceneID)

	path := filepath.Join(t.TempDir(), "db", scene.DBFileName)
	require.NoError(t, cat.Save(path))

	loaded, err := scene.LoadCatalog(path, scene.Options{})
	require.NoError(t, err)
	assert.Equal(t, []scene.Scene{
		{ID: "a", Path: "data/file.nc", Kind: scene.KindNetCDF, Index: 3},
		{ID: "b", Path: "data/b.png", Kind: scene.KindImage},
	}, loaded.Scenes())
}
