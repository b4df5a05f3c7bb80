// Package input loads scroll map inputs from JSON or YAML files.
package input

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/difflens/internal/scrollmap"
)

// Format is an input file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for files whose extension names no known format.
var ErrUnknownFormat = errors.New("unknown input format")

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads and validates the input at path.
func Load(path string) (scrollmap.Input, error) {
	format, err := FormatFor(path)
	if err != nil {
		return scrollmap.Input{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return scrollmap.Input{}, fmt.Errorf("opening input: %w", err)
	}
	defer func() { _ = f.Close() }()

	in, err := Decode(f, format)
	if err != nil {
		return scrollmap.Input{}, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

// Decode parses an input in format and validates every chunk.
func Decode(r io.Reader, format Format) (scrollmap.Input, error) {
	var in scrollmap.Input
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return scrollmap.Input{}, fmt.Errorf("decoding json: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&in); err != nil && !errors.Is(err, io.EOF) {
			return scrollmap.Input{}, fmt.Errorf("decoding yaml: %w", err)
		}
	default:
		return scrollmap.Input{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err := in.Validate(); err != nil {
		return scrollmap.Input{}, err
	}
	return in, nil
}
