package geo

import (
	"strings"
	"testing"
)

const sampleShapes = `shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence
L1,41.3800,2.1700,1
L2,41.5000,2.3000,1
L1,41.3850,2.1700,2
L1,41.3880,2.1750,3
L2,41.5100,2.3100,2
L1,41.3930,2.1750,4
`

func TestLoadShapePoints(t *testing.T) {
	pts, err := LoadShapePoints(strings.NewReader(sampleShapes), "L1")
	if err != nil {
		t.Fatalf("LoadShapePoints failed: %v", err)
	}
	if len(pts) != 4 {
		t.Fatalf("expected 4 points for L1, got %d", len(pts))
	}
	if pts[0].Lat != 41.3800 || pts[3].Lat != 41.3930 {
		t.Errorf("points out of order: first %+v last %+v", pts[0], pts[3])
	}
}

func TestLoadShapePointsOrdersBySequence(t *testing.T) {
	shuffled := `shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence
L1,41.3930,2.1750,4
L1,41.3800,2.1700,1
L1,41.3880,2.1750,3
L1,41.3850,2.1700,2
`
	pts, err := LoadShapePoints(strings.NewReader(shuffled), "L1")
	if err != nil {
		t.Fatalf("LoadShapePoints failed: %v", err)
	}
	want := []float64{41.3800, 41.3850, 41.3880, 41.3930}
	for i, lat := range want {
		if pts[i].Lat != lat {
			t.Errorf("point %d: expected lat %f, got %f", i, lat, pts[i].Lat)
		}
	}
}

func TestLoadShapePointsSkipsBadRows(t *testing.T) {
	dirty := `shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence
L1,not-a-number,2.1700,1
L1,41.3850,2.1700,2
L1,41.3880,2.1750,x
L1,41.3930,2.1750,4
`
	pts, err := LoadShapePoints(strings.NewReader(dirty), "L1")
	if err != nil {
		t.Fatalf("LoadShapePoints failed: %v", err)
	}
	if len(pts) != 2 {
		t.Errorf("expected 2 valid points, got %d", len(pts))
	}
}

func TestLoadShapePointsByteOrderMark(t *testing.T) {
	withBOM := "\uFEFF" + sampleShapes
	pts, err := LoadShapePoints(strings.NewReader(withBOM), "L1")
	if err != nil {
		t.Fatalf("LoadShapePoints failed on BOM-prefixed file: %v", err)
	}
	if len(pts) != 4 {
		t.Errorf("expected 4 points for L1, got %d", len(pts))
	}
}

func TestLoadShapePointsMissingColumns(t *testing.T) {
	if _, err := LoadShapePoints(strings.NewReader("foo,bar\n1,2\n"), "L1"); err == nil {
		t.Error("expected error for missing shapes.txt columns")
	}
}

func TestLoadShapePointsUnknownShape(t *testing.T) {
	pts, err := LoadShapePoints(strings.NewReader(sampleShapes), "L9")
	if err != nil {
		t.Fatalf("LoadShapePoints failed: %v", err)
	}
	if len(pts) != 0 {
		t.Errorf("expected no points for unknown shape, got %d", len(pts))
	}
}
