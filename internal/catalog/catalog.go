package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var ErrGarmentNotFound = errors.New("garment not found")

type Product struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Price   string `yaml:"price" json:"price"`
	Image   string `yaml:"image" json:"image"`
	Garment string `yaml:"garment,omitempty" json:"garment_id,omitempty"`
}

type Section struct {
	Name     string    `yaml:"name" json:"name"`
	Products []Product `yaml:"products" json:"products"`
}

// Garment is a library item that can fill the try-on garment slot.
type Garment struct {
	ID    string `yaml:"id" json:"id"`
	Image string `yaml:"image" json:"image"`
}

type Catalog struct {
	Shop    []Section `yaml:"shop" json:"shop"`
	Library []Garment `yaml:"library" json:"library"`
}

// Load reads the catalog at path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool, len(c.Library))
	for _, g := range c.Library {
		if g.ID == "" || g.Image == "" {
			return fmt.Errorf("library garment needs an id and an image: %+v", g)
		}
		if seen[g.ID] {
			return fmt.Errorf("duplicate library garment %q", g.ID)
		}
		seen[g.ID] = true
	}
	for _, s := range c.Shop {
		for _, p := range s.Products {
			if p.Garment != "" && !seen[p.Garment] {
				return fmt.Errorf("product %q references unknown garment %q", p.ID, p.Garment)
			}
		}
	}
	return nil
}

func (c *Catalog) Garment(id string) (Garment, error) {
	for _, g := range c.Library {
		if g.ID == id {
			return g, nil
		}
	}
	return Garment{}, fmt.Errorf("%w: %s", ErrGarmentNotFound, id)
}

// ImageURL resolves a garment image against baseURL when it is relative.
func (g Garment) ImageURL(baseURL string) (string, error) {
	ref, err := url.Parse(g.Image)
	if err != nil {
		return "", fmt.Errorf("invalid garment image %q: %w", g.Image, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil || !base.IsAbs() {
		return "", fmt.Errorf("cannot resolve %q without an absolute base URL", g.Image)
	}
	return base.ResolveReference(&url.URL{Path: strings.TrimPrefix(ref.Path, "/")}).String(), nil
}
