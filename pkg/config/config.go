// Package config provides the read-only, dotted-path typed parameter
// lookup the calculation core pulls its defaults from. Values come from
// built-in defaults, optionally overridden by an Hjson config file
// (comments and unquoted keys allowed) and by Set calls.
//
// The Manager is the one lock-guarded structure in the module; the
// calculation core itself is single-threaded.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	hjson "github.com/hjson/hjson-go/v4"
)

// Defaults for every key the core consumes. Callers always receive a
// safe value even with no config file present.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"forecasting.default_method":                "simple",
		"forecasting.default_periods":               5,
		"forecasting.default_growth_rate":           0.0,
		"forecasting.min_historical_periods":        2,
		"forecasting.allow_negative_forecasts":      false,
		"forecasting.default_bad_forecast_value":    0.0,
		"forecasting.continue_on_error":             true,
		"forecasting.historical_growth_aggregation": "mean",
		"forecasting.random_seed":                   0,
		"forecasting.base_period_strategy":          "preferred_then_most_recent",
		"forecasting.add_missing_periods":           true,
	}
}

// Manager is a dotted-path key/value store with typed accessors.
type Manager struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// New creates a manager holding only the built-in defaults.
func New() *Manager {
	return &Manager{values: defaults()}
}

// LoadFile creates a manager with defaults overridden by an Hjson
// document. Nested objects flatten into dotted paths.
func LoadFile(path string) (*Manager, error) {
	m := New()
	if err := m.MergeFile(path); err != nil {
		return nil, err
	}
	return m, nil
}

// MergeFile merges an Hjson document over the current values.
func (m *Manager) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return m.MergeHjson(data)
}

// MergeHjson merges raw Hjson content over the current values.
func (m *Manager) MergeHjson(data []byte) error {
	var doc map[string]interface{}
	if err := hjson.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	flat := make(map[string]interface{})
	flatten("", doc, flat)
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range flat {
		m.values[k] = v
	}
	return nil
}

func flatten(prefix string, doc map[string]interface{}, out map[string]interface{}) {
	for k, v := range doc {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// Set assigns a value at a dotted path.
func (m *Manager) Set(path string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[path] = value
}

// Get returns the raw value at a dotted path, or the fallback.
func (m *Manager) Get(path string, fallback interface{}) interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.values[path]; ok {
		return v
	}
	return fallback
}

// Has reports whether a path is set.
func (m *Manager) Has(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[path]
	return ok
}

// Float returns a numeric value, falling back when missing or non-numeric.
func (m *Manager) Float(path string, fallback float64) float64 {
	switch v := m.Get(path, nil).(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

// Int returns an integer value, truncating floats (Hjson numbers decode
// as float64).
func (m *Manager) Int(path string, fallback int) int {
	switch v := m.Get(path, nil).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// Bool returns a boolean value, accepting "true"/"false" strings.
func (m *Manager) Bool(path string, fallback bool) bool {
	switch v := m.Get(path, nil).(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(v) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	}
	return fallback
}

// String returns a string value.
func (m *Manager) String(path, fallback string) string {
	if v, ok := m.Get(path, nil).(string); ok {
		return v
	}
	return fallback
}
