package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk edge set, for example:
//
//	extends: linear
//	transitions:
//	  review: [in_progress]
//	  pending_approval: [refinement]
type fileConfig struct {
	Extends     string              `yaml:"extends"`
	Transitions map[string][]string `yaml:"transitions"`
}

// ParseConfig builds a Graph from YAML. With "extends: linear" the listed
// transitions are added to the linear default; otherwise they replace it.
func ParseConfig(data []byte) (*Graph, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config: %w", err)
	}

	edges := map[Status][]Status{}
	switch cfg.Extends {
	case "":
	case "linear":
		edges = Linear().Edges()
	default:
		return nil, fmt.Errorf("unknown base edge set %q", cfg.Extends)
	}
	for from, tos := range cfg.Transitions {
		for _, to := range tos {
			edges[Status(from)] = append(edges[Status(from)], Status(to))
		}
	}
	g, err := NewGraph(edges)
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return g, nil
}

func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline config %s: %w", path, err)
	}
	return ParseConfig(data)
}
