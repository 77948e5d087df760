package cloudmetrics

import (
	"sort"
	"strings"

	"github.com/askiada/go-cloudmetrics/pkg/field"
	"github.com/askiada/go-cloudmetrics/pkg/masks"
)

// Kind is the type of a pipeline stage.
type Kind string

const (
	KindMask    Kind = "mask"
	KindTile    Kind = "tile"
	KindMetrics Kind = "metrics"
	// KindMetric identifies the computation of a single metric of a metrics stage.
	KindMetric Kind = "metric"
)

// Stage is one step of a pipeline: the function it applies and the parameters
// bound to it. Stages are never modified once created.
type Stage struct {
	kind    Kind
	fnName  string
	params  map[string]string
	mask    masks.Func
	tile    field.TileOptions
	metrics []string
}

func (s Stage) Kind() Kind {
	return s.kind
}

// FnName is the name of the user supplied function, if any.
func (s Stage) FnName() string {
	return s.fnName
}

// Params returns a copy of the parameters bound to the stage.
func (s Stage) Params() map[string]string {
	return copyParams(s.params)
}

// Metrics returns the metric names of a metrics stage.
func (s Stage) Metrics() []string {
	return append([]string(nil), s.metrics...)
}

// Identifier names the stage from its kind, parameters and function, for
// example mask__greyscale_threshold=0.2__rgb_greyscale_mask. Two stages with the
// same identifier produce the same output.
func (s Stage) Identifier() string {
	if s.kind == KindMetrics {
		return string(KindMetrics) + "__" + strings.Join(s.metrics, ",")
	}

	return identifier(s.kind, s.params, s.fnName)
}

func identifier(kind Kind, params map[string]string, fnName string) string {
	parts := []string{string(kind)}

	// keep metric__iorg rather than metric__metric=iorg
	rest := copyParams(params)
	if v, ok := rest[string(kind)]; ok {
		parts = append(parts, v)
		delete(rest, string(kind))
	}

	if len(rest) > 0 {
		keys := make([]string, 0, len(rest))
		for k := range rest {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kv := make([]string, len(keys))
		for i, k := range keys {
			kv[i] = k + "=" + rest[k]
		}
		parts = append(parts, strings.Join(kv, "__"))
	}

	if fnName != "" {
		parts = append(parts, fnName)
	}

	return strings.Join(parts, "__")
}

func metricIdentifier(name string) string {
	return identifier(KindMetric, map[string]string{string(KindMetric): name}, "")
}

func copyParams(params map[string]string) map[string]string {
	res := make(map[string]string, len(params))
	for k, v := range params {
		res[k] = v
	}

	return res
}
