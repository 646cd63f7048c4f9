package ledger

// The ledger is the flat CSV table of everything collected so far, across
// every run. Rows are only ever appended - the downstream enrichment stage
// reads this file and depends on the exact column layout.

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// column layout, in order
var header = []string{
	"idx",
	"url",
	"title",
	"date",
	"text_file",
	"image_files",
	"extracted_locations",
	"latitude",
	"longitude",
}

// Record is one collected article. Lat/Lon are nil when no location was
// resolved - never set one without the other. ImageFiles always has one
// entry per image slot, "" where the download failed or there was no
// image; it's never empty.
type Record struct {
	ID         int
	URL        string
	Title      string
	Date       string
	TextFile   string
	ImageFiles []string
	Locations  []string
	Lat        *float64
	Lon        *float64
}

func (rec *Record) row() []string {
	lat, lon := "", ""
	if rec.Lat != nil && rec.Lon != nil {
		lat = strconv.FormatFloat(*rec.Lat, 'f', -1, 64)
		lon = strconv.FormatFloat(*rec.Lon, 'f', -1, 64)
	}
	return []string{
		strconv.Itoa(rec.ID),
		rec.URL,
		rec.Title,
		rec.Date,
		rec.TextFile,
		strings.Join(rec.ImageFiles, ", "),
		strings.Join(rec.Locations, ", "),
		lat,
		lon,
	}
}

func recordFromRow(row []string) (*Record, error) {
	if len(row) != len(header) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(header), len(row))
	}
	id, err := strconv.Atoi(row[0])
	if err != nil {
		return nil, fmt.Errorf("bad idx %q", row[0])
	}
	rec := &Record{
		ID:       id,
		URL:      row[1],
		Title:    row[2],
		Date:     row[3],
		TextFile: row[4],
	}
	// every article has at least one image slot (a lone unfetched slot
	// joins to an empty column), so an empty column is one empty ref -
	// splitting "" would lose the slot and break the length contract
	if row[5] == "" {
		rec.ImageFiles = []string{""}
	} else {
		rec.ImageFiles = strings.Split(row[5], ", ")
	}
	if row[6] != "" {
		rec.Locations = strings.Split(row[6], ", ")
	}
	if row[7] != "" && row[8] != "" {
		lat, err := strconv.ParseFloat(row[7], 64)
		if err != nil {
			return nil, fmt.Errorf("bad latitude %q", row[7])
		}
		lon, err := strconv.ParseFloat(row[8], 64)
		if err != nil {
			return nil, fmt.Errorf("bad longitude %q", row[8])
		}
		rec.Lat, rec.Lon = &lat, &lon
	}
	return rec, nil
}

// Ledger reads and appends the record table at Path.
type Ledger struct {
	Path string
}

func NewLedger(path string) *Ledger {
	return &Ledger{Path: path}
}

// Load reads all records currently in the table.
// A missing file is an empty table, not an error.
func (l *Ledger) Load() ([]*Record, error) {
	fp, err := os.Open(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Record{}, nil
		}
		return nil, err
	}
	defer fp.Close()

	r := csv.NewReader(fp)
	out := []*Record{}
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			continue // header
		}
		rec, err := recordFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %s", l.Path, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Append adds recs after whatever rows already exist and writes the whole
// table back out. The write goes to a temp file which is renamed into
// place, so a crash mid-write can't mangle the previous table.
func (l *Ledger) Append(recs []*Record) error {
	existing, err := l.Load()
	if err != nil {
		return err
	}

	dir := filepath.Dir(l.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(l.Path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	err = w.Write(header)
	if err == nil {
		for _, rec := range existing {
			if err = w.Write(rec.row()); err != nil {
				break
			}
		}
	}
	if err == nil {
		for _, rec := range recs {
			if err = w.Write(rec.row()); err != nil {
				break
			}
		}
	}
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if err == nil {
		err = tmp.Close()
	} else {
		tmp.Close()
	}
	if err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, l.Path)
}
