package cloudmetrics

import (
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-cloudmetrics/pkg/field"
	"github.com/askiada/go-cloudmetrics/pkg/scene"
)

// Record is the value of one metric on one scene, or on one window of a scene
// when the pipeline is tiled.
type Record struct {
	SceneID string
	Tiled   bool
	TileX   int
	TileY   int
	Metric  string
	Value   float64
}

// Result is the output of an execution. Records is filled when the pipeline
// computes metrics, Fields otherwise. Fields is keyed by scene id, followed by
// the window position for tiled pipelines.
type Result struct {
	ID string
	// Scenes lists the identifiers of the processed scenes in discovery order.
	Scenes  []string
	Records []Record
	Fields  map[string]*field.Field
}

func newResult(id string, cat *scene.Catalog) *Result {
	scenes := make([]string, 0, cat.Len())
	for _, s := range cat.Scenes() {
		scenes = append(scenes, s.ID)
	}

	return &Result{ID: id, Scenes: scenes, Records: []Record{}, Fields: map[string]*field.Field{}}
}

func (r *Result) sort() {
	sort.Slice(r.Records, func(i, j int) bool {
		a, b := r.Records[i], r.Records[j]
		switch {
		case a.SceneID != b.SceneID:
			return a.SceneID < b.SceneID
		case a.TileX != b.TileX:
			return a.TileX < b.TileX
		case a.TileY != b.TileY:
			return a.TileY < b.TileY
		default:
			return a.Metric < b.Metric
		}
	})
}

// Metrics returns the names of the computed metrics in alphabetical order.
func (r *Result) Metrics() []string {
	seen := map[string]bool{}
	names := []string{}
	for _, rec := range r.Records {
		if !seen[rec.Metric] {
			seen[rec.Metric] = true
			names = append(names, rec.Metric)
		}
	}
	sort.Strings(names)

	return names
}

// ByMetric returns the records of the metric name.
func (r *Result) ByMetric(name string) []Record {
	res := []Record{}
	for _, rec := range r.Records {
		if rec.Metric == name {
			res = append(res, rec)
		}
	}

	return res
}

// Value returns the value of metric on the untiled scene sceneID.
func (r *Result) Value(sceneID, metric string) (float64, bool) {
	for _, rec := range r.Records {
		if rec.SceneID == sceneID && rec.Metric == metric && !rec.Tiled {
			return rec.Value, true
		}
	}

	return 0, false
}

var csvHeader = []string{"scene_id", "tile_x", "tile_y", "metric", "value"}

// WriteCSV writes the records as CSV with a header line. Tile positions are
// left empty for untiled scenes.
func (r *Result) WriteCSV(w io.Writer) error {
	wrt := csv.NewWriter(w)
	err := wrt.Write(csvHeader)
	if err != nil {
		return errors.Wrap(err, "unable to write csv header")
	}

	for _, rec := range r.Records {
		x, y := "", ""
		if rec.Tiled {
			x, y = strconv.Itoa(rec.TileX), strconv.Itoa(rec.TileY)
		}
		err := wrt.Write([]string{rec.SceneID, x, y, rec.Metric, strconv.FormatFloat(rec.Value, 'g', -1, 64)})
		if err != nil {
			return errors.Wrapf(err, "unable to write record of %s", rec.SceneID)
		}
	}
	wrt.Flush()

	return errors.Wrap(wrt.Error(), "unable to flush csv")
}

func taskHash(tasks []string) string {
	sorted := append([]string(nil), tasks...)
	sort.Strings(sorted)
	sum := md5.Sum([]byte(strings.Join(sorted, "\n")))

	return hex.EncodeToString(sum[:])
}
