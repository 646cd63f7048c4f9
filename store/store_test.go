package store

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bcampbell/disasteromat/ledger"
)

// Run the store tests against an in-memory sqlite3 database.
// NOTE: ":memory:" alone only persists for a single connection - shared
// cache keeps the database alive across all connections in the process.
// see https://github.com/mattn/go-sqlite3#faq
func openTestStore(t *testing.T, name string) *Store {
	db, err := sqlx.Open("sqlite3", "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %s", err)
	}
	db.SetConnMaxLifetime(-1)
	db.SetMaxIdleConns(2)
	st, err := NewFromDB("sqlite3", db)
	if err != nil {
		t.Fatalf("NewFromDB: %s", err)
	}
	return st
}

func TestStashAndFetch(t *testing.T) {
	st := openTestStore(t, "stashfetch")
	defer st.Close()

	lat, lon := 21.9588282, 96.0891007
	rec := &ledger.Record{
		ID:         1,
		URL:        "http://example.com/quake",
		Title:      "Quake hits region",
		Date:       "2025-03-28",
		TextFile:   "text_1.txt",
		ImageFiles: []string{"images/image_1_1.jpg", ""},
		Locations:  []string{"Mandalay", "Myanmar"},
		Lat:        &lat,
		Lon:        &lon,
	}

	err := st.Stash(rec, "2025-03-28T06:20:00Z", "Quake hits region Dozens injured in Mandalay")
	if err != nil {
		t.Fatalf("Stash: %s", err)
	}

	// stash a second, location-free record
	rec2 := &ledger.Record{ID: 3, URL: "http://example.com/other", Title: "other", Date: "2025-03-29"}
	err = st.Stash(rec2, "", "other text")
	if err != nil {
		t.Fatalf("Stash: %s", err)
	}

	got, err := st.Fetch(0, 0)
	if err != nil {
		t.Fatalf("Fetch: %s", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records", len(got))
	}
	r := got[0]
	if r.ID != 1 || r.Title != "Quake hits region" || r.Published != "2025-03-28T06:20:00Z" {
		t.Errorf("bad record: %+v", r)
	}
	if r.Lat == nil || *r.Lat != lat || r.Lon == nil || *r.Lon != lon {
		t.Errorf("bad geopoint: %v %v", r.Lat, r.Lon)
	}
	if len(r.ImageFiles) != 2 || r.ImageFiles[0] != "images/image_1_1.jpg" || r.ImageFiles[1] != "" {
		t.Errorf("bad images: %v", r.ImageFiles)
	}
	if len(r.Locations) != 2 {
		t.Errorf("bad locations: %v", r.Locations)
	}
	if got[1].Lat != nil || got[1].Published != "" {
		t.Errorf("record 3 should have no geopoint/published: %+v", got[1])
	}

	// since_id filtering
	got, err = st.Fetch(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 3 {
		t.Errorf("since filter broken: %+v", got)
	}
}

func TestStashReplaces(t *testing.T) {
	st := openTestStore(t, "stashreplace")
	defer st.Close()

	rec := &ledger.Record{ID: 5, URL: "http://example.com/a", Title: "first", Date: "2025-03-28",
		ImageFiles: []string{"x.jpg"}}
	if err := st.Stash(rec, "", "text"); err != nil {
		t.Fatal(err)
	}

	rec.Title = "second"
	rec.ImageFiles = []string{"y.jpg"}
	if err := st.Stash(rec, "", "text"); err != nil {
		t.Fatal(err)
	}

	got, err := st.Fetch(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("rerun duplicated rows: %d", len(got))
	}
	if got[0].Title != "second" || len(got[0].ImageFiles) != 1 || got[0].ImageFiles[0] != "y.jpg" {
		t.Errorf("replace didn't take: %+v", got[0])
	}
}

func TestSummary(t *testing.T) {
	st := openTestStore(t, "summary")
	defer st.Close()

	days := []string{"2025-03-28", "2025-03-28", "2025-03-29"}
	for i, d := range days {
		rec := &ledger.Record{ID: i + 1, URL: "http://example.com", Date: d}
		if err := st.Stash(rec, "", "t"); err != nil {
			t.Fatal(err)
		}
	}

	got, err := st.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Count != 2 || got[1].Count != 1 {
		t.Errorf("bad summary: %+v", got)
	}
}
