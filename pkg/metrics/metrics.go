// Package metrics keeps the named functions that reduce a cloud mask to a single
// value. Only cloud_fraction ships with the package; organisation indices such
// as iorg are registered by the caller.
package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/go-cloudmetrics/pkg/field"
)

var (
	ErrUnknownMetric  = errors.New("metric isn't implemented")
	ErrMetricExists   = errors.New("metric already registered")
	ErrNotAMask       = errors.New("field is not a mask, maybe you forgot to apply a mask method?")
	ErrEmptyMask      = errors.New("mask is empty")
	ErrInvalidMetricN = errors.New("metric name must not be empty")
)

const CloudFraction = "cloud_fraction"

// Func computes a metric on a mask made of 0 and 1 values.
type Func func(mask mat.Matrix) (float64, error)

// Registry maps metric names to their implementation. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Default returns a registry holding the built-in metrics.
func Default() *Registry {
	reg := NewRegistry()
	_ = reg.Register(CloudFraction, cloudFraction)

	return reg
}

func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return ErrInvalidMetricN
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[name]; ok {
		return errors.Wrap(ErrMetricExists, name)
	}
	r.funcs[name] = fn

	return nil
}

func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]

	return fn, ok
}

// Names returns the registered metric names in alphabetical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Check returns an error naming every metric of names that is not registered.
func (r *Registry) Check(names ...string) error {
	missing := []string{}
	for _, name := range names {
		if _, ok := r.Lookup(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	return errors.Wrapf(ErrUnknownMetric, "%s (available metrics: %s)",
		strings.Join(missing, ", "), strings.Join(r.Names(), ", "))
}

// Compute runs the metric name on f, which must be a mask.
func (r *Registry) Compute(name string, f *field.Field) (float64, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return 0, errors.Wrap(ErrUnknownMetric, name)
	}
	if !f.IsMask() {
		return 0, errors.Wrapf(ErrNotAMask, "%s has %d bands", f.Name, len(f.Bands))
	}

	v, err := fn(f.Bands[0])
	if err != nil {
		return 0, errors.Wrapf(err, "unable to compute %s", name)
	}

	return v, nil
}

func cloudFraction(mask mat.Matrix) (float64, error) {
	rows, cols := mask.Dims()
	if rows*cols == 0 {
		return 0, ErrEmptyMask
	}

	return mat.Sum(mask) / float64(rows*cols), nil
}
