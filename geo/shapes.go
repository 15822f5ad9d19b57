package geo

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// shapeRow is one shapes.txt record before ordering.
type shapeRow struct {
	seq int
	pt  Point
}

// LoadShapePoints reads a GTFS shapes.txt-style CSV and returns the ordered
// polyline for one shape id. Rows for other shapes are skipped; rows with
// unparseable coordinates are dropped.
func LoadShapePoints(r io.Reader, shapeID string) ([]Point, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimPrefix(strings.TrimSpace(h), "\uFEFF")] = i
	}
	idCol, okID := col["shape_id"]
	latCol, okLat := col["shape_pt_lat"]
	lonCol, okLon := col["shape_pt_lon"]
	seqCol, okSeq := col["shape_pt_sequence"]
	if !okID || !okLat || !okLon || !okSeq {
		return nil, ErrInvalidPath
	}

	var rows []shapeRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) <= idCol || strings.TrimSpace(rec[idCol]) != shapeID {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimSpace(rec[seqCol]))
		if err != nil {
			continue
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(rec[latCol]), 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(rec[lonCol]), 64)
		if err != nil {
			continue
		}
		rows = append(rows, shapeRow{seq: seq, pt: Point{Lon: lon, Lat: lat}})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	pts := make([]Point, 0, len(rows))
	for _, row := range rows {
		pts = append(pts, row.pt)
	}
	return pts, nil
}

// LoadShapeFile is a convenience wrapper over LoadShapePoints for a file path.
func LoadShapeFile(path, shapeID string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadShapePoints(f, shapeID)
}
