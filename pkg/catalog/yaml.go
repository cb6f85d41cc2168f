package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type document struct {
	Features []PlanFeature `yaml:"features"`
}

// LoadYAML reads a catalog document of the form:
//
//	features:
//	  - name: ai_chat
//	    included_in: {basic: false, standard: true, premium: true}
func LoadYAML(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	return New(doc.Features...)
}

// LoadFile reads a catalog from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// Default returns the catalog bundled with the binary.
func Default() *Catalog {
	c, err := LoadYAML(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(err)
	}
	return c
}

// WriteYAML encodes c in the format LoadYAML reads, features sorted by name.
func WriteYAML(w io.Writer, c *Catalog) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Features: c.Features()}); err != nil {
		return err
	}
	return enc.Close()
}
