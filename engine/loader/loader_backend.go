package loader

import (
	"errors"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// levelBackend decodes one manifest file format. Unknown keys are errors in
// every format so typos do not silently drop content.
type levelBackend interface {
	// Decode reads a whole manifest.
	//
	// Parameters:
	//   - r: the manifest text
	//
	// Returns:
	//   - *Manifest: the decoded manifest, not yet validated
	//   - error: a syntax or schema error
	Decode(r io.Reader) (*Manifest, error)
}

type yamlBackend struct{}

func (yamlBackend) Decode(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	m := &Manifest{}
	if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return m, nil
}

type tomlBackend struct{}

func (tomlBackend) Decode(r io.Reader) (*Manifest, error) {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	m := &Manifest{}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("toml: %w", err)
	}
	return m, nil
}
