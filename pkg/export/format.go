package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chazu/tubejoint/pkg/tube"
)

// Format names a scene file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatOBJ  Format = "obj" // write only
)

// ErrUnknownFormat is returned for unrecognized format names and extensions.
var ErrUnknownFormat = errors.New("unknown scene format")

// ErrWriteOnly is returned when reading a format that cannot be read back.
var ErrWriteOnly = errors.New("format is write only")

// ParseFormat accepts a format name with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	case "obj":
		return FormatOBJ, nil
	}
	return "", fmt.Errorf("export: %q: %w", s, ErrUnknownFormat)
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("export: %s has no extension: %w", path, ErrUnknownFormat)
	}
	return ParseFormat(ext)
}

// Write encodes tubes in format f.
func Write(f Format, w io.Writer, tubes []tube.Tube) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, tubes)
	case FormatYAML:
		return WriteYAML(w, tubes)
	case FormatCSV:
		return WriteCSV(w, tubes)
	case FormatOBJ:
		return WriteOBJ(w, tubes)
	}
	return fmt.Errorf("export: %q: %w", f, ErrUnknownFormat)
}

// Read decodes tubes in format f.
func Read(f Format, r io.Reader) ([]tube.Tube, error) {
	switch f {
	case FormatJSON:
		return ReadJSON(r)
	case FormatYAML:
		return ReadYAML(r)
	case FormatCSV:
		return ReadCSV(r)
	case FormatOBJ:
		return nil, fmt.Errorf("export: %s: %w", f, ErrWriteOnly)
	}
	return nil, fmt.Errorf("export: %q: %w", f, ErrUnknownFormat)
}
