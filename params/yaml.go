package params

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a parameter mapping from YAML, preserving the document
// order of the keys. A plain map decode would randomize the fit-key
// ordering, which has to stay stable across the whole fit.
func ParseYAML(data []byte) ([]Assignment, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "Could not PARSE parameter YAML")
	}

	if len(doc.Content) < 1 {
		return nil, nil // empty document
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.Errorf("Parameter YAML must be a mapping, found %v", root.Tag)
	}

	// Mapping nodes alternate key, value
	assigns := make([]Assignment, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode := root.Content[i]
		valNode := root.Content[i+1]

		var value interface{}
		if err := valNode.Decode(&value); err != nil {
			return nil, errors.Wrapf(err, "Could not decode value for parameter %s", keyNode.Value)
		}

		assigns = append(assigns, Assignment{Name: keyNode.Value, Value: value})
	}

	return assigns, nil
}
