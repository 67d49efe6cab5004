package template

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"scribe.app/engine/common"
	"scribe.app/engine/internal/block"
	"scribe.app/engine/internal/model"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidIdentity  = errors.New("template type cannot be empty")
)

// Identity names a template: a document type plus an optional complexity tier.
type Identity struct {
	Type       string
	Complexity model.Complexity
}

// Slug is the file-safe form of the template type.
func (id Identity) Slug() string {
	return common.Slug(id.Type)
}

// Key is "type" or "type:complexity".
func (id Identity) Key() string {
	if id.Complexity == "" {
		return id.Slug()
	}
	return id.Slug() + ":" + string(id.Complexity)
}

// Source supplies the full, ordered block list for a template.
type Source interface {
	Fetch(ctx context.Context, id Identity) ([]block.Block, error)
}

// FileSource reads templates from <dir>/<type>.<complexity>.yaml, falling
// back to <dir>/<type>.yaml when no tiered file exists.
type FileSource struct {
	dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (s *FileSource) Fetch(ctx context.Context, id Identity) ([]block.Block, error) {
	slug := id.Slug()
	if slug == "" {
		return nil, ErrInvalidIdentity
	}

	candidates := []string{slug + ".yaml"}
	if id.Complexity != "" {
		candidates = append([]string{fmt.Sprintf("%s.%s.yaml", slug, id.Complexity)}, candidates...)
	}

	for _, name := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", name, err)
		}
		blocks, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding template %s: %w", name, err)
		}
		return blocks, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id.Key())
}

// fileBlock is the YAML shape of a template block. Text may use inline
// markdown for bold, italic and links.
type fileBlock struct {
	Kind     string      `yaml:"kind"`
	Text     string      `yaml:"text"`
	URL      string      `yaml:"url"`
	Icon     string      `yaml:"icon"`
	Color    string      `yaml:"color"`
	Children []fileBlock `yaml:"children"`
}

// Decode parses a YAML template document into blocks.
func Decode(raw []byte) ([]block.Block, error) {
	var doc struct {
		Blocks []fileBlock `yaml:"blocks"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return convert(doc.Blocks), nil
}

func convert(in []fileBlock) []block.Block {
	if len(in) == 0 {
		return nil
	}
	out := make([]block.Block, 0, len(in))
	for _, fb := range in {
		b := block.Block{
			Kind:     block.ParseKind(fb.Kind),
			URL:      fb.URL,
			Icon:     fb.Icon,
			Color:    fb.Color,
			Children: convert(fb.Children),
		}
		if b.Kind.IsHeading() {
			b.RichText = block.Text(strings.TrimSpace(fb.Text))
		} else {
			b.RichText = block.Markdown(fb.Text)
		}
		out = append(out, b)
	}
	return out
}
