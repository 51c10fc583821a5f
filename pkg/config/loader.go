package config

/*
Merges configuration maps produced by config strategies and provides them to the rest of the application
*/

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"strings"

	"github.com/ivanehh/datapipe"
	"gopkg.in/yaml.v3"
)

var ErrConfiguration = errors.New("failed to load configuration")

type Loader struct {
	strategies []datapipe.ConfigStrategy
	config     map[string]any
}

func NewLoader(strategies ...datapipe.ConfigStrategy) *Loader {
	return &Loader{
		strategies: strategies,
		config:     make(map[string]any),
	}
}

// FromFiles builds a loader with one strategy per file, picked by the file's suffix
func FromFiles(paths ...string) (*Loader, error) {
	strategies := make([]datapipe.ConfigStrategy, 0, len(paths))
	for _, p := range paths {
		s, err := StrategyFor(p)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}
	return NewLoader(strategies...), nil
}

func StrategyFor(path string) (datapipe.ConfigStrategy, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "json":
		return NewJSONStrategy(path), nil
	case "yaml", "yml":
		return NewYAMLStrategy(path), nil
	case "toml":
		return NewTOMLStrategy(path), nil
	case "csv":
		return NewCSVStrategy(path), nil
	default:
		return nil, fmt.Errorf("%w: no config strategy for %s", ErrConfiguration, path)
	}
}

/*
Load runs every strategy in order and merges its output; later strategies overwrite earlier keys.

The first failing strategy aborts the load; whatever was merged before it stays in the loader.
*/
func (l *Loader) Load() error {
	for idx, s := range l.strategies {
		m, err := s.ReadConfig()
		if err != nil {
			return fmt.Errorf("%w: strategy %d (%T): %w", ErrConfiguration, idx, s, err)
		}
		l.AddMap(m)
	}
	return nil
}

// AddMap merges m into the configuration with the same precedence as a strategy loaded last
func (l *Loader) AddMap(m map[string]any) {
	maps.Copy(l.config, m)
}

// Map returns a shallow copy of the merged configuration
func (l *Loader) Map() map[string]any {
	return maps.Clone(l.config)
}

func (l *Loader) Get(key string, def any) any {
	if v, ok := l.config[key]; ok {
		return v
	}
	return def
}

/* DecodeAs converts the merged configuration into T through its yaml tags */
func DecodeAs[T any](l *Loader) (T, error) {
	var target T
	yamlData, err := yaml.Marshal(l.config)
	if err != nil {
		return target, fmt.Errorf("%w: encoding merged config: %w", ErrConfiguration, err)
	}
	if err := yaml.Unmarshal(yamlData, &target); err != nil {
		return target, fmt.Errorf("%w: decoding into %T: %w", ErrConfiguration, target, err)
	}
	return target, nil
}
