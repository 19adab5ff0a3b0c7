package automl

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

//go:embed default_models.yaml
var defaultModelsYAML []byte

// Candidate describes one configured model: its registry key, the factory
// type, the scalar defaults and the search grid in file order.
type Candidate struct {
	Name     string
	Type     string
	Defaults model.Params
	Grid     model.Grid
}

// ModelConfig is the parsed model configuration. Candidates keep the order
// of the file.
type ModelConfig struct {
	Candidates []Candidate
}

// Names returns candidate names in configuration order.
func (c *ModelConfig) Names() []string {
	names := make([]string, len(c.Candidates))
	for i, cand := range c.Candidates {
		names[i] = cand.Name
	}
	return names
}

// DefaultModelConfig returns the configuration embedded in the binary.
func DefaultModelConfig() (*ModelConfig, error) {
	return ParseModelConfig(defaultModelsYAML)
}

// LoadModelConfig reads a model configuration file. An empty path selects the
// embedded default.
func LoadModelConfig(path string) (*ModelConfig, error) {
	if path == "" {
		return DefaultModelConfig()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewPersistenceError("read model config", path, err)
	}
	cfg, err := ParseModelConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return cfg, nil
}

// ParseModelConfig parses a document keyed by "models". Each entry has a
// "type" and optional "params"; a sequence value becomes a grid dimension and
// a scalar value a fixed default.
func ParseModelConfig(data []byte) (*ModelConfig, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewConfigurationError("models", nil, "invalid YAML: "+err.Error())
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.NewConfigurationError("models", nil, "configuration is empty")
	}

	models := mappingValue(doc.Content[0], "models")
	if models == nil || models.Kind != yaml.MappingNode {
		return nil, errors.NewConfigurationError("models", nil, "a mapping keyed by \"models\" is required")
	}

	cfg := &ModelConfig{}
	seen := make(map[string]bool)
	for i := 0; i+1 < len(models.Content); i += 2 {
		name := models.Content[i].Value
		if seen[name] {
			return nil, errors.NewConfigurationError("models", name, "duplicate candidate name")
		}
		seen[name] = true

		cand, err := parseCandidate(name, models.Content[i+1])
		if err != nil {
			return nil, err
		}
		cfg.Candidates = append(cfg.Candidates, cand)
	}
	if len(cfg.Candidates) == 0 {
		return nil, errors.NewConfigurationError("models", nil, "no candidates configured")
	}
	return cfg, nil
}

func parseCandidate(name string, node *yaml.Node) (Candidate, error) {
	cand := Candidate{Name: name, Defaults: model.Params{}}
	if node.Kind != yaml.MappingNode {
		return cand, errors.NewConfigurationError("models."+name, nil, "entry must be a mapping with type and params")
	}

	typ := mappingValue(node, "type")
	if typ == nil || typ.Kind != yaml.ScalarNode || typ.Value == "" {
		return cand, errors.NewConfigurationError("models."+name+".type", nil, "type is required", SupportedTypes()...)
	}
	cand.Type = typ.Value

	params := mappingValue(node, "params")
	if params == nil || params.Tag == "!!null" {
		return cand, nil
	}
	if params.Kind != yaml.MappingNode {
		return cand, errors.NewConfigurationError("models."+name+".params", nil, "params must be a mapping")
	}

	for i := 0; i+1 < len(params.Content); i += 2 {
		key, value := params.Content[i].Value, params.Content[i+1]
		switch value.Kind {
		case yaml.SequenceNode:
			dim := model.Dimension{Name: key}
			for _, item := range value.Content {
				v, err := decodeScalar(name, key, item)
				if err != nil {
					return cand, err
				}
				dim.Values = append(dim.Values, v)
			}
			if len(dim.Values) == 0 {
				return cand, errors.NewConfigurationError(
					fmt.Sprintf("models.%s.params.%s", name, key), nil, "grid dimension has no values")
			}
			cand.Grid = append(cand.Grid, dim)
		default:
			v, err := decodeScalar(name, key, value)
			if err != nil {
				return cand, err
			}
			cand.Defaults[key] = v
		}
	}
	return cand, nil
}

func decodeScalar(candidate, key string, node *yaml.Node) (interface{}, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("models.%s.params.%s", candidate, key), nil, "values must be scalars")
	}
	var v interface{}
	if err := node.Decode(&v); err != nil {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("models.%s.params.%s", candidate, key), node.Value, err.Error())
	}
	return v, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
