package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// FormatJSON writes the builds of artifacts as a JSON array. Placeholder
// bytes are rendered as dollars.
func (g *Graph) FormatJSON(_ context.Context, w io.Writer, indent int, artifacts []string) error {
	builds, err := g.export(artifacts)
	if err != nil {
		return err
	}

	var data []byte

	if indent > 0 {
		data, err = json.MarshalIndent(builds, "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(builds)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

// FormatYAML writes the builds of artifacts as a YAML sequence. An indent
// of zero selects flow style.
func (g *Graph) FormatYAML(ctx context.Context, w io.Writer, indent int, artifacts []string) error {
	builds, err := g.export(artifacts)
	if err != nil {
		return err
	}

	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, builds, opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, string(data))

	return err
}

func (g *Graph) export(artifacts []string) ([]*Build, error) {
	builds := make([]*Build, 0, len(artifacts))

	for _, a := range artifacts {
		b, ok := g.builds[a]
		if !ok {
			continue
		}

		c, err := b.Map(func(s string) (string, error) { return Unescape(s), nil })
		if err != nil {
			return nil, err
		}

		c.Rule = Unescape(c.Rule)
		builds = append(builds, c)
	}

	return builds, nil
}
