package planner

import (
	"fmt"

	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/shared"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Manifest is an externally supplied desired order.
//
// Entries are lesson ids or exact lesson titles. Both YAML forms are accepted:
//
//	order:
//	  - 101
//	  - "02 Greetings"
//
// or a top-level sequence with the same entries.
type Manifest struct {
	Order []any `yaml:"order"`
}

// LoadManifest reads a YAML manifest from path on fs.
func LoadManifest(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes manifest YAML in either the mapping or the sequence form.
func ParseManifest(data []byte) (*Manifest, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", shared.ErrInvalidInput, err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: manifest is empty", shared.ErrInvalidInput)
	}

	var m Manifest
	switch doc := root.Content[0]; doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&m.Order); err != nil {
			return nil, fmt.Errorf("%w: manifest: %v", shared.ErrInvalidInput, err)
		}
	case yaml.MappingNode:
		if err := doc.Decode(&m); err != nil {
			return nil, fmt.Errorf("%w: manifest: %v", shared.ErrInvalidInput, err)
		}
	default:
		return nil, fmt.Errorf("%w: manifest must be a list or contain an order list", shared.ErrInvalidInput)
	}
	return &m, nil
}

// Resolve maps manifest entries to ids of the snapshot.
//
// A title must identify exactly one item. The resulting set is not checked against the
// snapshot here; [Plan] rejects mismatches.
func (m *Manifest) Resolve(snapshot *models.CollectionSnapshot) ([]int, error) {
	byTitle := make(map[string][]int, len(snapshot.Items))
	for _, item := range snapshot.Items {
		byTitle[item.Title] = append(byTitle[item.Title], item.ID)
	}

	ids := make([]int, 0, len(m.Order))
	for i, entry := range m.Order {
		switch v := entry.(type) {
		case int:
			ids = append(ids, v)
		case string:
			matches := byTitle[v]
			switch len(matches) {
			case 0:
				return nil, fmt.Errorf("%w: manifest entry %d: no lesson titled %q", shared.ErrSetMismatch, i+1, v)
			case 1:
				ids = append(ids, matches[0])
			default:
				return nil, fmt.Errorf("%w: manifest entry %d: title %q is ambiguous, use an id", shared.ErrInvalidInput, i+1, v)
			}
		default:
			return nil, fmt.Errorf("%w: manifest entry %d has unsupported value %v", shared.ErrInvalidInput, i+1, entry)
		}
	}
	return ids, nil
}
