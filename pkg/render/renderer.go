package render

import (
	"errors"
	"fmt"
	"strings"

	"ai-docfill-be/pkg/docx"
	"ai-docfill-be/pkg/placeholder"

	"github.com/flosch/pongo2/v6"
)

var ErrTemplate = errors.New("render: invalid template")

// Result summarizes one document render.
type Result struct {
	Paragraphs int
	// Missing lists tokens with no value, in first occurrence order. They
	// render as empty text.
	Missing []string
}

// Renderer fills `{{ name }}` tokens using a pongo2 template set. Field
// names are arbitrary strings, so each token is rebound to a generated
// identifier before the paragraph is compiled.
type Renderer struct {
	set *pongo2.TemplateSet
}

func NewRenderer() *Renderer {
	return &Renderer{set: pongo2.NewSet("docfill", pongo2.DefaultLoader)}
}

// RenderText renders a single paragraph. Text without tokens is returned as
// is.
func (r *Renderer) RenderText(text string, values map[string]string) (string, []string, error) {
	matches := placeholder.TokenPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil, nil
	}

	var (
		tpl     strings.Builder
		ctx     = pongo2.Context{}
		idents  = map[string]string{}
		missing []string
		pos     int
	)

	for _, m := range matches {
		name := strings.TrimSpace(text[m[2]:m[3]])

		ident, ok := idents[name]
		if !ok {
			ident = fmt.Sprintf("f%d", len(idents))
			idents[name] = ident

			value, found := values[name]
			if !found {
				missing = append(missing, name)
			}
			ctx[ident] = value
		}

		tpl.WriteString(text[pos:m[0]])
		tpl.WriteString("{{ " + ident + "|safe }}")
		pos = m[1]
	}
	tpl.WriteString(text[pos:])

	compiled, err := r.set.FromString(tpl.String())
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	out, err := compiled.Execute(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return out, missing, nil
}

// RenderDocument renders every paragraph of doc in place.
func (r *Renderer) RenderDocument(doc *docx.Document, values map[string]string) (*Result, error) {
	res := &Result{}
	seen := map[string]struct{}{}

	n, err := doc.MapText(func(text string) (string, error) {
		out, missing, err := r.RenderText(text, values)
		if err != nil {
			return "", err
		}
		for _, name := range missing {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			res.Missing = append(res.Missing, name)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	res.Paragraphs = n
	return res, nil
}
