// Package pointio reads and writes point sets: flat coordinate lists,
// JSON and YAML documents, and CSV or XYZ tables.
package pointio

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/capsulefit/internal/geom"
	"gopkg.in/yaml.v3"
)

// Format is an input or output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatXYZ  Format = "xyz"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	case ".xyz", ".txt":
		return FormatXYZ, nil
	default:
		return "", fmt.Errorf("%w: unknown point file extension %q", geom.ErrInvalidInput, filepath.Ext(path))
	}
}

// Document is the JSON and YAML schema. Exactly one of the fields should
// be set; Flat is x0 y0 z0 x1 y1 z1 ...
type Document struct {
	Points    [][]float64   `json:"points,omitempty" yaml:"points,omitempty"`
	Polyhedra [][][]float64 `json:"polyhedra,omitempty" yaml:"polyhedra,omitempty"`
	Flat      []float64     `json:"flat,omitempty" yaml:"flat,omitempty"`
}

// Set converts the document to a polyhedron set.
func (d Document) Set() (geom.PolyhedronSet, error) {
	var set geom.PolyhedronSet
	switch {
	case len(d.Polyhedra) > 0:
		for i, poly := range d.Polyhedra {
			pts, err := triples(poly)
			if err != nil {
				return nil, fmt.Errorf("polyhedron %d: %w", i, err)
			}
			set = append(set, pts)
		}
	case len(d.Points) > 0:
		pts, err := triples(d.Points)
		if err != nil {
			return nil, err
		}
		set = geom.PolyhedronSet{pts}
	case len(d.Flat) > 0:
		pts, err := FromFlat(d.Flat)
		if err != nil {
			return nil, err
		}
		set = geom.PolyhedronSet{pts}
	default:
		return nil, fmt.Errorf("%w: document has no points", geom.ErrInvalidInput)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// NewDocument converts set to a document, one polyhedron per entry.
func NewDocument(set geom.PolyhedronSet) Document {
	d := Document{Polyhedra: make([][][]float64, len(set))}
	for i, poly := range set {
		d.Polyhedra[i] = make([][]float64, len(poly))
		for j, p := range poly {
			d.Polyhedra[i][j] = []float64{p.X, p.Y, p.Z}
		}
	}
	return d
}

func triples(rows [][]float64) (geom.Polyhedron, error) {
	pts := make(geom.Polyhedron, len(rows))
	for i, r := range rows {
		if len(r) != 3 {
			return nil, fmt.Errorf("%w: point %d has %d coordinates", geom.ErrInvalidInput, i, len(r))
		}
		pts[i] = geom.Point{X: r[0], Y: r[1], Z: r[2]}
	}
	return pts, nil
}

// FromFlat groups x0 y0 z0 x1 y1 z1 ... into points.
func FromFlat(values []float64) (geom.Polyhedron, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no coordinates", geom.ErrInvalidInput)
	}
	if len(values)%3 != 0 {
		return nil, fmt.Errorf("%w: %d coordinates is not a multiple of 3", geom.ErrInvalidInput, len(values))
	}
	pts := make(geom.Polyhedron, 0, len(values)/3)
	for i := 0; i < len(values); i += 3 {
		pts = append(pts, geom.Point{X: values[i], Y: values[i+1], Z: values[i+2]})
	}
	return pts, nil
}

// ParseFlat parses a comma or whitespace separated coordinate list.
func ParseFlat(s string) (geom.Polyhedron, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", geom.ErrInvalidInput, err)
		}
		values = append(values, v)
	}
	return FromFlat(values)
}

// ReadFile reads a point file, choosing the format from its extension.
func ReadFile(path string) (geom.PolyhedronSet, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open point file: %w", err)
	}
	defer f.Close()
	set, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Read decodes a point set from r.
func Read(r io.Reader, format Format) (geom.PolyhedronSet, error) {
	switch format {
	case FormatJSON:
		var d Document
		if err := json.NewDecoder(r).Decode(&d); err != nil {
			return nil, fmt.Errorf("%w: decode json: %v", geom.ErrInvalidInput, err)
		}
		return d.Set()
	case FormatYAML:
		var d Document
		if err := yaml.NewDecoder(r).Decode(&d); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %v", geom.ErrInvalidInput, err)
		}
		return d.Set()
	case FormatCSV:
		cr := csv.NewReader(r)
		cr.Comment = '#'
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		return readRows(func() ([]string, error) { return cr.Read() })
	case FormatXYZ:
		sc := bufio.NewScanner(r)
		return readRows(func() ([]string, error) {
			for sc.Scan() {
				line := strings.TrimSpace(sc.Text())
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				return strings.Fields(line), nil
			}
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		})
	default:
		return nil, fmt.Errorf("%w: unknown format %q", geom.ErrInvalidInput, format)
	}
}

// readRows reads x,y,z[,group] records. Rows sharing a group label form one
// polyhedron, in first-seen order. A first row that does not parse as
// numbers is taken as a header.
func readRows(next func() ([]string, error)) (geom.PolyhedronSet, error) {
	var set geom.PolyhedronSet
	groups := map[string]int{}
	for line := 1; ; line++ {
		rec, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", geom.ErrInvalidInput, line, err)
		}
		if len(rec) < 3 || len(rec) > 4 {
			return nil, fmt.Errorf("%w: line %d has %d fields, want 3 or 4", geom.ErrInvalidInput, line, len(rec))
		}
		var xyz [3]float64
		var perr error
		for i := 0; i < 3 && perr == nil; i++ {
			xyz[i], perr = strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		}
		if perr != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("%w: line %d: %v", geom.ErrInvalidInput, line, perr)
		}
		group := ""
		if len(rec) == 4 {
			group = strings.TrimSpace(rec[3])
		}
		idx, ok := groups[group]
		if !ok {
			idx = len(set)
			groups[group] = idx
			set = append(set, nil)
		}
		set[idx] = append(set[idx], geom.Point{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// Write encodes set to w. CSV and XYZ carry the polyhedron index as the
// fourth column.
func Write(w io.Writer, set geom.PolyhedronSet, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(NewDocument(set))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewDocument(set)); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"x", "y", "z", "polyhedron"}); err != nil {
			return err
		}
		for i, poly := range set {
			for _, p := range poly {
				if err := cw.Write([]string{ff(p.X), ff(p.Y), ff(p.Z), strconv.Itoa(i)}); err != nil {
					return err
				}
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatXYZ:
		bw := bufio.NewWriter(w)
		for i, poly := range set {
			for _, p := range poly {
				fmt.Fprintf(bw, "%s %s %s %d\n", ff(p.X), ff(p.Y), ff(p.Z), i)
			}
		}
		return bw.Flush()
	default:
		return fmt.Errorf("%w: unknown format %q", geom.ErrInvalidInput, format)
	}
}

func ff(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
