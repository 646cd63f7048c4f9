package ledger

import (
	"path/filepath"
	"reflect"
	"testing"
)

func mkRec(id int, title string) *Record {
	return &Record{
		ID:         id,
		URL:        "http://example.com/" + title,
		Title:      title,
		Date:       "2025-03-28",
		TextFile:   "text_1.txt",
		ImageFiles: []string{"images/image_1_1.jpg", ""},
		Locations:  []string{"Mandalay", "Myanmar"},
	}
}

func TestAppendAndLoad(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "entry_record.csv"))

	// load of missing file is an empty table
	recs, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty table, got %d rows", len(recs))
	}

	lat, lon := 21.9588282, 96.0891007
	in := mkRec(1, "quake")
	in.Lat, in.Lon = &lat, &lon

	err = l.Append([]*Record{in})
	if err != nil {
		t.Fatalf("Append: %s", err)
	}

	recs, err = l.Load()
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d rows", len(recs))
	}
	if !reflect.DeepEqual(recs[0], in) {
		t.Errorf("roundtrip mismatch:\n got %+v\nwant %+v", recs[0], in)
	}
}

func TestAppendPreservesExisting(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "entry_record.csv"))

	batchA := []*Record{mkRec(1, "one"), mkRec(2, "two")}
	batchB := []*Record{mkRec(4, "four")} // gaps are fine - skips eat ids

	if err := l.Append(batchA); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(batchB); err != nil {
		t.Fatal(err)
	}

	recs, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}
	ids := []int{}
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	if !reflect.DeepEqual(ids, []int{1, 2, 4}) {
		t.Errorf("got ids %v", ids)
	}
}

// appending A then B must come out the same as appending A+B in one go
func TestAppendAssociative(t *testing.T) {
	dir := t.TempDir()

	split := NewLedger(filepath.Join(dir, "split.csv"))
	split.Append([]*Record{mkRec(1, "one")})
	split.Append([]*Record{mkRec(2, "two")})

	joined := NewLedger(filepath.Join(dir, "joined.csv"))
	joined.Append([]*Record{mkRec(1, "one"), mkRec(2, "two")})

	a, err := split.Load()
	if err != nil {
		t.Fatal(err)
	}
	b, err := joined.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("tables differ:\n%+v\n%+v", a, b)
	}
}

func TestNoLocationRow(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "entry_record.csv"))

	rec := &Record{ID: 1, URL: "http://example.com/x", Title: "x", Date: "2025-03-28",
		TextFile: "text_1.txt", ImageFiles: []string{""}}
	if err := l.Append([]*Record{rec}); err != nil {
		t.Fatal(err)
	}

	recs, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}
	got := recs[0]
	if got.Lat != nil || got.Lon != nil {
		t.Errorf("expected absent geopoint, got %v %v", got.Lat, got.Lon)
	}
	if len(got.Locations) != 0 {
		t.Errorf("expected no locations, got %+v", got)
	}
}

// a lone failed/absent image is one "" slot - the empty image_files
// column it writes must come back as that slot, not a shorter list
func TestEmptyImageSlotRoundTrip(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "entry_record.csv"))

	rec := mkRec(1, "imageless")
	rec.ImageFiles = []string{""}
	if err := l.Append([]*Record{rec}); err != nil {
		t.Fatal(err)
	}

	recs, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d rows", len(recs))
	}
	got := recs[0].ImageFiles
	if len(got) != 1 || got[0] != "" {
		t.Errorf("slot lost in roundtrip: %q", got)
	}
}
