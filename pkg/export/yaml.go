package export

import (
	"fmt"
	"io"

	"github.com/chazu/tubejoint/pkg/tube"
	"gopkg.in/yaml.v3"
)

// WriteYAML writes tubes as a YAML scene envelope.
func WriteYAML(w io.Writer, tubes []tube.Tube) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewScene(tubes)); err != nil {
		return fmt.Errorf("export: yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("export: yaml: %w", err)
	}
	return nil
}

// ReadYAML decodes a YAML scene envelope and returns its tubes.
func ReadYAML(r io.Reader) ([]tube.Tube, error) {
	var s Scene
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("export: yaml: %v: %w", err, ErrInvalidScene)
	}
	return s.ToTubes()
}
