package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chazu/tubejoint/pkg/tube"
)

// WriteJSON writes tubes as an indented scene envelope.
func WriteJSON(w io.Writer, tubes []tube.Tube) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewScene(tubes)); err != nil {
		return fmt.Errorf("export: json: %w", err)
	}
	return nil
}

// ReadJSON decodes a scene envelope and returns its tubes.
func ReadJSON(r io.Reader) ([]tube.Tube, error) {
	var s Scene
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("export: json: %v: %w", err, ErrInvalidScene)
	}
	return s.ToTubes()
}
