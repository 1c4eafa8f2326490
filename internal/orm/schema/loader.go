package schema

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// schemaFile is the document shape of a schema file:
//
//	entities:
//	  User:
//	    labels: [User]
//	    attributes:
//	      email: {type: email, required: true}
//	      name: string
//	    relationships:
//	      role: {target: Role, labels: [HAS_ROLE], with: true}
//
// Mappings are kept as nodes so declaration order survives decoding.
type schemaFile struct {
	Entities yaml.Node `yaml:"entities"`
}

type entityDoc struct {
	Labels        []string  `yaml:"labels"`
	Attributes    yaml.Node `yaml:"attributes"`
	Relationships yaml.Node `yaml:"relationships"`
}

type fieldDoc struct {
	Type      string        `yaml:"type"`
	Required  bool          `yaml:"required"`
	MinLength *int          `yaml:"min_length"`
	MaxLength *int          `yaml:"max_length"`
	Min       *float64      `yaml:"min"`
	Max       *float64      `yaml:"max"`
	Pattern   string        `yaml:"pattern"`
	OneOf     []interface{} `yaml:"one_of"`
	Default   interface{}   `yaml:"default"`
}

type relationshipDoc struct {
	Target     string                 `yaml:"target"`
	Labels     []string               `yaml:"labels"`
	Many       bool                   `yaml:"many"`
	Direction  string                 `yaml:"direction"`
	With       bool                   `yaml:"with"`
	Attributes yaml.Node              `yaml:"attributes"`
	Filter     map[string]interface{} `yaml:"filter"`
}

// LoadFile reads a schema file into a resolved registry
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load decodes a schema document into a resolved registry
func Load(r io.Reader) (*Registry, error) {
	var doc schemaFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}

	registry := NewRegistry()
	err := eachPair(&doc.Entities, func(name string, node *yaml.Node) error {
		entity, err := decodeEntity(name, node)
		if err != nil {
			return err
		}
		return registry.Register(entity)
	})
	if err != nil {
		return nil, err
	}

	if err := registry.Resolve(); err != nil {
		return nil, err
	}
	return registry, nil
}

func decodeEntity(name string, node *yaml.Node) (*EntitySchema, error) {
	var ed entityDoc
	if err := node.Decode(&ed); err != nil {
		return nil, fmt.Errorf("entity %s: %w", name, err)
	}

	entity := NewEntitySchema(name, ed.Labels...)

	err := eachPair(&ed.Attributes, func(attr string, n *yaml.Node) error {
		field, err := decodeField(n)
		if err != nil {
			return fmt.Errorf("entity %s attribute %s: %w", name, attr, err)
		}
		return entity.AddField(attr, field)
	})
	if err != nil {
		return nil, err
	}

	err = eachPair(&ed.Relationships, func(attr string, n *yaml.Node) error {
		rel, err := decodeRelationship(n)
		if err != nil {
			return fmt.Errorf("entity %s relationship %s: %w", name, attr, err)
		}
		return entity.AddRelationship(attr, rel)
	})
	if err != nil {
		return nil, err
	}

	return entity, nil
}

func decodeField(node *yaml.Node) (*Field, error) {
	var fd fieldDoc
	if node.Kind == yaml.ScalarNode {
		fd.Type = node.Value
	} else if err := node.Decode(&fd); err != nil {
		return nil, err
	}

	t, err := ParseFieldType(fd.Type)
	if err != nil {
		return nil, err
	}

	var opts []FieldOption
	if fd.Required {
		opts = append(opts, Required())
	}
	if fd.MinLength != nil {
		opts = append(opts, MinLength(*fd.MinLength))
	}
	if fd.MaxLength != nil {
		opts = append(opts, MaxLength(*fd.MaxLength))
	}
	if fd.Min != nil {
		opts = append(opts, Min(*fd.Min))
	}
	if fd.Max != nil {
		opts = append(opts, Max(*fd.Max))
	}
	if fd.Pattern != "" {
		re, err := regexp.Compile(fd.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		opts = append(opts, Pattern(re))
	}
	if len(fd.OneOf) > 0 {
		opts = append(opts, OneOf(fd.OneOf...))
	}
	if fd.Default != nil {
		def := fd.Default
		opts = append(opts, Default(func() interface{} { return def }))
	}

	return NewField(t, opts...), nil
}

func decodeRelationship(node *yaml.Node) (*Relationship, error) {
	var rd relationshipDoc
	if err := node.Decode(&rd); err != nil {
		return nil, err
	}
	if rd.Target == "" {
		return nil, fmt.Errorf("target is required")
	}

	dir, err := ParseDirection(rd.Direction)
	if err != nil {
		return nil, err
	}

	rel := &Relationship{
		TargetName:  rd.Target,
		Labels:      rd.Labels,
		Cardinality: One,
		Direction:   dir,
		With:        rd.With,
	}
	if rd.Many {
		rel.Cardinality = Many
	}
	if len(rd.Filter) > 0 {
		rel.Filter = StaticFilter(rd.Filter)
	}

	err = eachPair(&rd.Attributes, func(name string, n *yaml.Node) error {
		field, err := decodeField(n)
		if err != nil {
			return fmt.Errorf("edge attribute %s: %w", name, err)
		}
		rel.Attributes = append(rel.Attributes, &Attribute{Name: name, Field: field})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rel, nil
}

// eachPair visits the key/value pairs of a mapping node in document order.
// A zero node is treated as an empty mapping.
func eachPair(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := fn(node.Content[i].Value, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}
