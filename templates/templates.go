// Package templates holds the static catalog of product templates.
package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"product-customizer/geometry"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var ErrTemplateNotFound = errors.New("template not found")

// Template describes the printable canvas of a physical product.
type Template struct {
	ID           string         `json:"id" yaml:"id"`
	Name         string         `json:"name" yaml:"name"`
	Width        int            `json:"width" yaml:"width"`
	Height       int            `json:"height" yaml:"height"`
	PreviewImage string         `json:"previewImage" yaml:"previewImage"`
	Shape        geometry.Shape `json:"shape" yaml:"-"`
}

// Clip returns the region of the template in which content is visible.
func (t Template) Clip() geometry.Clip {
	return geometry.Clip{Shape: t.Shape, Width: float64(t.Width), Height: float64(t.Height)}
}

// ShapeOf classifies a template from its id.
func ShapeOf(id string) geometry.Shape {
	id = strings.ToLower(id)
	if strings.Contains(id, "round") || strings.Contains(id, "redondo") {
		return geometry.ShapeRound
	}
	return geometry.ShapeRectangular
}

type catalogFile struct {
	Templates []Template `yaml:"templates"`
}

// Catalog is an immutable, ordered list of templates.
type Catalog struct {
	templates []Template
	byID      map[string]int
}

// Parse parses a YAML catalog. Shapes are derived here, once.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse template catalog: %w", err)
	}
	if len(f.Templates) == 0 {
		return nil, errors.New("template catalog is empty")
	}

	c := &Catalog{byID: make(map[string]int, len(f.Templates))}
	for _, t := range f.Templates {
		if t.ID == "" {
			return nil, errors.New("template without id")
		}
		if t.Width <= 0 || t.Height <= 0 {
			return nil, fmt.Errorf("template %s: width and height must be positive", t.ID)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("template %s is declared twice", t.ID)
		}
		t.Shape = ShapeOf(t.ID)
		c.byID[t.ID] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return c, nil
}

// LoadFile reads a catalog from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// All returns the templates in catalog order.
func (c *Catalog) All() []Template {
	out := make([]Template, len(c.templates))
	copy(out, c.templates)
	return out
}

// Find returns the template with the given id.
func (c *Catalog) Find(id string) (Template, error) {
	i, ok := c.byID[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return c.templates[i], nil
}
