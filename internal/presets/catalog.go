package presets

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"shortgen/internal/domain"
	"shortgen/internal/domain/jsoncfg"
)

//go:embed default_presets.yaml
var defaultCatalog []byte

type file struct {
	Styles   []domain.Style   `yaml:"styles"`
	Climates []domain.Climate `yaml:"climates"`
}

// Catalog is an immutable set of Style and Climate presets.
type Catalog struct {
	styles   map[string]domain.Style
	climates map[string]domain.Climate
}

// Load reads a YAML catalog from path, or the built-in catalog when path is
// empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	c := &Catalog{
		styles:   make(map[string]domain.Style, len(f.Styles)),
		climates: make(map[string]domain.Climate, len(f.Climates)),
	}
	for _, s := range f.Styles {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: style without id", domain.ErrValidation)
		}
		if _, dup := c.styles[id]; dup {
			return nil, fmt.Errorf("%w: duplicate style %q", domain.ErrValidation, id)
		}
		if err := jsoncfg.ValidateStruct("style["+id+"]", s); err != nil {
			return nil, err
		}
		s.ID = id
		c.styles[id] = s
	}
	for _, cl := range f.Climates {
		id := strings.TrimSpace(cl.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: climate without id", domain.ErrValidation)
		}
		if _, dup := c.climates[id]; dup {
			return nil, fmt.Errorf("%w: duplicate climate %q", domain.ErrValidation, id)
		}
		if err := jsoncfg.ValidateStruct("climate["+id+"]", cl); err != nil {
			return nil, err
		}
		cl.ID = id
		c.climates[id] = cl
	}
	return c, nil
}

func (c *Catalog) Style(_ context.Context, id string) (*domain.Style, error) {
	s, ok := c.styles[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("style %q: %w", id, domain.ErrNotFound)
	}
	s.HookExamples = append([]string(nil), s.HookExamples...)
	s.CTAExamples = append([]string(nil), s.CTAExamples...)
	return &s, nil
}

func (c *Catalog) Climate(_ context.Context, id string) (*domain.Climate, error) {
	cl, ok := c.climates[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("climate %q: %w", id, domain.ErrNotFound)
	}
	return &cl, nil
}

// Styles lists every style ordered by id.
func (c *Catalog) Styles() []domain.Style {
	out := make([]domain.Style, 0, len(c.styles))
	for _, s := range c.styles {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Climates lists every climate ordered by id.
func (c *Catalog) Climates() []domain.Climate {
	out := make([]domain.Climate, 0, len(c.climates))
	for _, cl := range c.climates {
		out = append(out, cl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var _ domain.PresetRepository = (*Catalog)(nil)
