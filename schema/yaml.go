package schema

import (
	"fmt"
	"os"

	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"
)

type yamlGraph struct {
	Models []yamlModel `yaml:"models"`
}

type yamlModel struct {
	Name      string         `yaml:"name"`
	Table     string         `yaml:"table"`
	Fields    []yamlField    `yaml:"fields"`
	Relations []yamlRelation `yaml:"relations"`
	Indexes   []yamlIndex    `yaml:"indexes"`
}

type yamlField struct {
	Name     string `yaml:"name"`
	Column   string `yaml:"column"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
	Array    bool   `yaml:"array"`
	Unique   bool   `yaml:"unique"`
	ID       bool   `yaml:"id"`
}

type yamlRelation struct {
	Name         string `yaml:"name"`
	Kind         string `yaml:"kind"`
	Target       string `yaml:"target"`
	LocalKey     string `yaml:"localKey"`
	ForeignKey   string `yaml:"foreignKey"`
	PivotTable   string `yaml:"pivotTable"`
	PivotLocal   string `yaml:"pivotLocal"`
	PivotForeign string `yaml:"pivotForeign"`
}

type yamlIndex struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
}

var yamlKinds = map[string]Kind{
	"string": KindString,
	"int":    KindInt,
	"int64":  KindInt64,
	"float":  KindFloat,
	"bool":   KindBool,
	"time":   KindTime,
	"uuid":   KindUUID,
	"bytes":  KindBytes,
	"json":   KindJSON,
	"enum":   KindEnum,
}

var yamlRelationKinds = map[string]RelationKind{
	"one-to-one":   O2O,
	"many-to-one":  M2O,
	"one-to-many":  O2M,
	"many-to-many": M2M,
}

// LoadYAML reads a model graph from the YAML file at the given path.
func LoadYAML(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: reading %s: %w", path, err)
	}
	return ParseYAML(data)
}

// ParseYAML builds a model graph from a YAML document:
//
//	models:
//	  - name: User
//	    fields:
//	      - {name: id, type: uuid, id: true}
//	      - {name: email, type: string, unique: true}
//	    relations:
//	      - {name: posts, kind: one-to-many, target: Post, localKey: id, foreignKey: author_id}
//
// When a model omits its table name, it defaults to the underscored,
// pluralized model name (User -> users, OrderItem -> order_items).
func ParseYAML(data []byte) (*Graph, error) {
	var yg yamlGraph
	if err := yaml.Unmarshal(data, &yg); err != nil {
		return nil, fmt.Errorf("schema: unmarshalling yaml: %w", err)
	}
	models := make([]*Model, 0, len(yg.Models))
	for _, ym := range yg.Models {
		if ym.Name == "" {
			return nil, fmt.Errorf("schema: model without a name")
		}
		m := &Model{
			Name:  ym.Name,
			Table: ym.Table,
		}
		if m.Table == "" {
			m.Table = inflect.Pluralize(inflect.Underscore(ym.Name))
		}
		for _, yf := range ym.Fields {
			kind, ok := yamlKinds[yf.Type]
			if !ok {
				return nil, fmt.Errorf("schema: model %q: field %q has unknown type %q", ym.Name, yf.Name, yf.Type)
			}
			m.Fields = append(m.Fields, &Field{
				Name:     yf.Name,
				Column:   yf.Column,
				Kind:     kind,
				Nullable: yf.Nullable,
				Array:    yf.Array,
				Unique:   yf.Unique,
				ID:       yf.ID,
			})
		}
		for _, yr := range ym.Relations {
			kind, ok := yamlRelationKinds[yr.Kind]
			if !ok {
				return nil, fmt.Errorf("schema: model %q: relation %q has unknown kind %q", ym.Name, yr.Name, yr.Kind)
			}
			m.Relations = append(m.Relations, &Relation{
				Name:               yr.Name,
				Kind:               kind,
				Target:             yr.Target,
				LocalKey:           yr.LocalKey,
				ForeignKey:         yr.ForeignKey,
				PivotTable:         yr.PivotTable,
				PivotLocalColumn:   yr.PivotLocal,
				PivotForeignColumn: yr.PivotForeign,
			})
		}
		for _, yi := range ym.Indexes {
			m.Indexes = append(m.Indexes, &Index{
				Name:    yi.Name,
				Columns: append([]string(nil), yi.Columns...),
				Unique:  yi.Unique,
			})
		}
		models = append(models, m)
	}
	return NewGraph(models...)
}
