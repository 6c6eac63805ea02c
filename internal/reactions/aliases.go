// Package reactions maps emoji reaction names onto vote polarities.
package reactions

import (
	"fmt"
	"os"
	"strings"

	"github.com/bwise1/skipvote_bot/internal/model"
	"gopkg.in/yaml.v3"
)

var (
	DefaultUp   = []string{"+1", "thumbsup", "thumbs_up", "arrow_up", "heavy_plus_sign", "white_check_mark"}
	DefaultDown = []string{"-1", "thumbsdown", "thumbs_down", "arrow_down", "heavy_minus_sign", "x"}
)

// Aliases is a recognized set of emoji names per polarity. The zero value
// recognizes nothing.
type Aliases struct {
	byName map[string]model.Polarity
}

type aliasFile struct {
	Up   []string `yaml:"up"`
	Down []string `yaml:"down"`
}

func New(up, down []string) (*Aliases, error) {
	a := &Aliases{byName: make(map[string]model.Polarity, len(up)+len(down))}
	for _, name := range up {
		if err := a.add(name, model.Up); err != nil {
			return nil, err
		}
	}
	for _, name := range down {
		if err := a.add(name, model.Down); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func Default() *Aliases {
	a, err := New(DefaultUp, DefaultDown)
	if err != nil {
		panic(err)
	}
	return a
}

// Load reads an alias file of the form
//
//	up: [thumbsup, "+1"]
//	down: [thumbsdown, "-1"]
//
// An empty path returns the default set.
func Load(path string) (*Aliases, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reaction aliases: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Aliases, error) {
	var f aliasFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing reaction aliases: %w", err)
	}
	if len(f.Up) == 0 || len(f.Down) == 0 {
		return nil, fmt.Errorf("reaction aliases need at least one up and one down name")
	}
	return New(f.Up, f.Down)
}

func (a *Aliases) add(name string, p model.Polarity) error {
	name = normalize(name)
	if name == "" {
		return fmt.Errorf("empty reaction alias")
	}
	if prev, ok := a.byName[name]; ok && prev != p {
		return fmt.Errorf("reaction %q is mapped to both %s and %s", name, prev, p)
	}
	a.byName[name] = p
	return nil
}

// Polarity reports which direction a reaction counts for. Skin tone variants
// ("thumbsup::skin-tone-3") count the same as the base emoji.
func (a *Aliases) Polarity(reaction string) (model.Polarity, bool) {
	if a == nil {
		return "", false
	}
	p, ok := a.byName[normalize(reaction)]
	return p, ok
}

func normalize(name string) string {
	name = strings.TrimSpace(strings.Trim(strings.TrimSpace(name), ":"))
	if i := strings.Index(name, "::"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}
