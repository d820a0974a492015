package palette

import (
	"fmt"
	"hash/fnv"
	"os"

	"gopkg.in/yaml.v3"
)

// Default team colors shown on the results board.
var Default = map[string]string{
	"VILADRAU": "rgba(247, 250, 61, 0.8)",
	"VIC":      "rgba(0, 123, 255, 0.8)",
	"NARBONA":  "rgba(61, 250, 102, 0.8)",
	"SALLENT":  "rgba(250, 61, 140, 0.8)",
}

// Fallback colors for names missing from the table. Picked by hash so a name
// keeps its color across redraws and restarts.
var Fallback = []string{
	"rgba(255, 159, 64, 0.8)",
	"rgba(153, 102, 255, 0.8)",
	"rgba(75, 192, 192, 0.8)",
	"rgba(201, 203, 207, 0.8)",
	"rgba(255, 99, 132, 0.8)",
	"rgba(54, 162, 235, 0.8)",
	"rgba(139, 69, 19, 0.8)",
	"rgba(0, 128, 128, 0.8)",
}

type Palette struct {
	colors   map[string]string
	fallback []string
}

func New(colors map[string]string) *Palette {
	p := &Palette{
		colors:   make(map[string]string, len(colors)),
		fallback: Fallback,
	}
	for name, c := range colors {
		p.colors[name] = c
	}
	return p
}

func NewDefault() *Palette { return New(Default) }

// Color returns the configured color for name, or its fallback color.
func (p *Palette) Color(name string) string {
	if c, ok := p.colors[name]; ok {
		return c
	}
	return p.FallbackFor(name)
}

// Known reports whether name has an explicit entry.
func (p *Palette) Known(name string) bool {
	_, ok := p.colors[name]
	return ok
}

func (p *Palette) FallbackFor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return p.fallback[h.Sum32()%uint32(len(p.fallback))]
}

type fileFormat struct {
	Colors   map[string]string `yaml:"colors"`
	Fallback []string          `yaml:"fallback"`
}

// LoadFile reads a YAML palette and layers it over the default table:
//
//	colors:
//	  VIC: "rgba(0, 123, 255, 0.8)"
//	fallback:
//	  - "rgba(10, 10, 10, 0.8)"
func LoadFile(path string) (*Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read palette file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Palette, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse palette: %w", err)
	}

	p := NewDefault()
	for name, c := range f.Colors {
		if c == "" {
			return nil, fmt.Errorf("palette: empty color for %q", name)
		}
		p.colors[name] = c
	}
	if len(f.Fallback) > 0 {
		p.fallback = f.Fallback
	}
	return p, nil
}
