package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/chazu/tubejoint/pkg/tube"
)

// CSVHeader is the first row written by WriteCSV.
var CSVHeader = []string{"ID", "Type", "Width", "Height", "Thickness", "Length", "PosX", "PosY", "PosZ", "RotX", "RotY", "RotZ"}

// legacyCSVHeader is the browser tool's layout: no ID column and rotations
// in radians. ReadCSV accepts it, assigns fresh IDs and converts rotations.
var legacyCSVHeader = CSVHeader[1:]

// WriteCSV writes one row per tube. Positions keep 2 decimals and rotations
// (degrees) keep 4.
func WriteCSV(w io.Writer, tubes []tube.Tube) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("export: csv: %w", err)
	}
	for _, t := range tubes {
		c := t.Config
		row := []string{
			string(t.ID),
			c.Kind.String(),
			formatFloat(c.Width, -1),
			formatFloat(c.Height, -1),
			formatFloat(c.Thickness, -1),
			formatFloat(c.Length, -1),
			formatFloat(t.Position.X, 2),
			formatFloat(t.Position.Y, 2),
			formatFloat(t.Position.Z, 2),
			formatFloat(t.Rotation.X, 4),
			formatFloat(t.Rotation.Y, 4),
			formatFloat(t.Rotation.Z, 4),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: csv: %w", err)
	}
	return nil
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// ReadCSV parses rows written by WriteCSV, or the browser tool's layout.
func ReadCSV(r io.Reader) ([]tube.Tube, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("export: csv: missing header: %w", ErrInvalidScene)
	}
	if err != nil {
		return nil, fmt.Errorf("export: csv: %v: %w", err, ErrInvalidScene)
	}

	var hasID bool
	switch {
	case slices.Equal(header, CSVHeader):
		hasID = true
	case slices.Equal(header, legacyCSVHeader):
	default:
		return nil, fmt.Errorf("export: csv: unexpected header %v: %w", header, ErrInvalidScene)
	}
	cr.FieldsPerRecord = len(header)

	recs := []TubeRecord{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("export: csv: %v: %w", err, ErrInvalidScene)
		}
		if hasID {
			rec, err := parseRow(row[1:])
			if err != nil {
				return nil, fmt.Errorf("export: csv: line %d: %w", line, err)
			}
			rec.ID = row[0]
			recs = append(recs, rec)
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("export: csv: line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	if !hasID {
		recs = radiansToDegrees(recs)
	}
	return fromRecords(recs)
}

// parseRow reads Type through RotZ.
func parseRow(row []string) (TubeRecord, error) {
	nums := make([]float64, len(row)-1)
	for i, s := range row[1:] {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return TubeRecord{}, fmt.Errorf("column %s: %v: %w", legacyCSVHeader[i+1], err, ErrInvalidScene)
		}
		nums[i] = f
	}
	return TubeRecord{
		Type:      row[0],
		Width:     nums[0],
		Height:    nums[1],
		Thickness: nums[2],
		Length:    nums[3],
		Position:  Vec3{X: nums[4], Y: nums[5], Z: nums[6]},
		Rotation:  Vec3{X: nums[7], Y: nums[8], Z: nums[9]},
	}, nil
}
