package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

var (
	// ErrMissingParameter is returned when a required key is absent from the
	// parameter file.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrInvalidParameter is returned when a key holds a value of the wrong
	// type or outside its valid range.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Parameter is one entry of the vehicle parameter file.
type Parameter struct {
	Value       any    `json:"value" mapstructure:"value"`
	Default     any    `json:"default" mapstructure:"default"`
	Type        string `json:"type" mapstructure:"type"`
	Unit        string `json:"unit" mapstructure:"unit"`
	Options     any    `json:"options,omitempty" mapstructure:"options"`
	Description string `json:"description" mapstructure:"description"`
}

// ParamStore is a read-only view over a parameter file. Keys are the
// upper-case names used in the file (DYN_MASS, ACT0_SPIN, ...).
type ParamStore struct {
	v    *viper.Viper
	path string
}

// LoadParamFile reads a JSON parameter file.
func LoadParamFile(path string) (*ParamStore, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading parameter file: %w", err)
	}
	return &ParamStore{v: v, path: path}, nil
}

// ReadParams parses a JSON parameter document from r.
func ReadParams(r io.Reader) (*ParamStore, error) {
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error parsing parameters: %w", err)
	}
	return &ParamStore{v: v}, nil
}

// Path returns the file the store was loaded from, if any.
func (s *ParamStore) Path() string {
	return s.path
}

// Lookup returns the full parameter entry for key.
func (s *ParamStore) Lookup(key string) (Parameter, error) {
	k := strings.ToLower(key)
	if !s.v.IsSet(k + ".value") {
		return Parameter{}, fmt.Errorf("%w: %s", ErrMissingParameter, key)
	}
	var p Parameter
	if err := s.v.UnmarshalKey(k, &p); err != nil {
		return Parameter{}, fmt.Errorf("%w: %s: %v", ErrInvalidParameter, key, err)
	}
	return p, nil
}

// Float returns the numeric value of key.
func (s *ParamStore) Float(key string) (float64, error) {
	p, err := s.Lookup(key)
	if err != nil {
		return 0, err
	}
	if _, isBool := p.Value.(bool); isBool {
		return 0, fmt.Errorf("%w: %s: expected number, got bool", ErrInvalidParameter, key)
	}
	f, err := cast.ToFloat64E(p.Value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidParameter, key, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s: not finite", ErrInvalidParameter, key)
	}
	return f, nil
}

// Int returns the integral value of key. Fractional numbers are rejected.
func (s *ParamStore) Int(key string) (int, error) {
	f, err := s.Float(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s: expected integer, got %v", ErrInvalidParameter, key, f)
	}
	return int(f), nil
}

// Bool returns the boolean value of key.
func (s *ParamStore) Bool(key string) (bool, error) {
	p, err := s.Lookup(key)
	if err != nil {
		return false, err
	}
	b, err := cast.ToBoolE(p.Value)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrInvalidParameter, key, err)
	}
	return b, nil
}

// Keys returns all parameter names in sorted order.
func (s *ParamStore) Keys() []string {
	settings := s.v.AllSettings()
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, strings.ToUpper(k))
	}
	sort.Strings(keys)
	return keys
}

// All returns every parameter entry that decodes cleanly.
func (s *ParamStore) All() map[string]Parameter {
	out := make(map[string]Parameter)
	for _, k := range s.Keys() {
		p, err := s.Lookup(k)
		if err != nil {
			continue
		}
		out[k] = p
	}
	return out
}

// paramReader accumulates the first lookup error so subsystem loaders can
// read many keys in sequence and check once.
type paramReader struct {
	s   *ParamStore
	err error
}

func (r *paramReader) float(key string) float64 {
	if r.err != nil {
		return 0
	}
	v, err := r.s.Float(key)
	if err != nil {
		r.err = err
	}
	return v
}

func (r *paramReader) int(key string) int {
	if r.err != nil {
		return 0
	}
	v, err := r.s.Int(key)
	if err != nil {
		r.err = err
	}
	return v
}

func (r *paramReader) bool(key string) bool {
	if r.err != nil {
		return false
	}
	v, err := r.s.Bool(key)
	if err != nil {
		r.err = err
	}
	return v
}

// vec reads prefix+suffix for each of the three suffixes.
func (r *paramReader) vec(prefix string, x, y, z string) [3]float64 {
	return [3]float64{r.float(prefix + x), r.float(prefix + y), r.float(prefix + z)}
}

func (r *paramReader) poly(prefix string, n int) []float64 {
	c := make([]float64, n)
	for i := range c {
		c[i] = r.float(fmt.Sprintf("%s_%d", prefix, i))
	}
	return c
}

// check records a range violation when cond is false.
func (r *paramReader) check(cond bool, key, msg string) {
	if r.err == nil && !cond {
		r.err = fmt.Errorf("%w: %s: %s", ErrInvalidParameter, key, msg)
	}
}
