package store

// SQL stash of collected records. The CSV ledger is the contract with the
// downstream enrichment stage - this store is the queryable copy, holding
// the extracted text as well so tools don't have to go back to the text
// files.

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/bcampbell/disasteromat/ledger"
)

type Logger interface {
	Printf(format string, v ...interface{})
}

type nullLogger struct{}

func (l nullLogger) Printf(format string, v ...interface{}) {}

// Store stashes records in an SQL database (sqlite3 or postgres).
type Store struct {
	db         *sqlx.DB
	driverName string
	ErrLog     Logger
	DebugLog   Logger
}

// eg "sqlite3", "/tmp/foo.db"
// eg "postgres", "postgres://username@localhost/dbname"
func New(driver string, connStr string) (*Store, error) {
	db, err := sqlx.Open(driver, connStr)
	if err != nil {
		return nil, err
	}
	return NewFromDB(driver, db)
}

func NewFromDB(driver string, db *sqlx.DB) (*Store, error) {
	err := db.Ping()
	if err != nil {
		db.Close()
		return nil, err
	}

	st := Store{
		db:         db,
		driverName: driver,
		ErrLog:     nullLogger{},
		DebugLog:   nullLogger{},
	}

	err = st.checkSchema()
	if err != nil {
		db.Close()
		return nil, err
	}
	return &st, nil
}

// Same as New(), but missing driver/connStr fall back to environment vars
// DISASTEROMAT_DRIVER and DISASTEROMAT_DB (default driver "sqlite3").
func NewWithEnv(driver string, connStr string) (*Store, error) {
	if connStr == "" {
		connStr = os.Getenv("DISASTEROMAT_DB")
	}
	if driver == "" {
		driver = os.Getenv("DISASTEROMAT_DRIVER")
		if driver == "" {
			driver = "sqlite3"
		}
	}
	if connStr == "" {
		return nil, fmt.Errorf("no database specified (set DISASTEROMAT_DB?)")
	}
	return New(driver, connStr)
}

func (st *Store) Close() {
	if st.db != nil {
		st.db.Close()
		st.db = nil
	}
}

// flat row as held in the record table
type recordRow struct {
	ID        int             `db:"id"`
	URL       string          `db:"url"`
	Title     string          `db:"title"`
	Date      string          `db:"date"`
	Published sql.NullString  `db:"published"`
	TextFile  string          `db:"text_file"`
	Text      string          `db:"extracted_text"`
	Lat       sql.NullFloat64 `db:"latitude"`
	Lon       sql.NullFloat64 `db:"longitude"`
}

// StoredRecord is a ledger record plus the store-only extras.
type StoredRecord struct {
	ledger.Record
	Published string `json:"published,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Stash writes one record (and its text) into the store. Stashing the
// same id again replaces the previous row - reruns are idempotent, same
// as the files on disk.
func (st *Store) Stash(rec *ledger.Record, published, text string) error {
	tx, err := st.db.Beginx()
	if err != nil {
		return err
	}
	err = st.stash2(tx, rec, published, text)
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (st *Store) stash2(tx *sqlx.Tx, rec *ledger.Record, published, text string) error {
	// ids come from the pipeline counter, so replace-by-id keeps reruns
	// from piling up duplicate rows
	for _, q := range []string{
		`DELETE FROM record_image WHERE record_id=?`,
		`DELETE FROM record_location WHERE record_id=?`,
		`DELETE FROM record WHERE id=?`,
	} {
		_, err := tx.Exec(tx.Rebind(q), rec.ID)
		if err != nil {
			return err
		}
	}

	var pub interface{}
	if published != "" {
		pub = published
	}
	var lat, lon interface{}
	if rec.Lat != nil && rec.Lon != nil {
		lat, lon = *rec.Lat, *rec.Lon
	}

	_, err := tx.Exec(tx.Rebind(
		`INSERT INTO record (id,url,title,date,published,text_file,extracted_text,latitude,longitude)
		 VALUES (?,?,?,?,?,?,?,?,?)`),
		rec.ID, rec.URL, rec.Title, rec.Date, pub, rec.TextFile, text, lat, lon)
	if err != nil {
		return err
	}

	for i, path := range rec.ImageFiles {
		_, err = tx.Exec(tx.Rebind(
			`INSERT INTO record_image (record_id,pos,path) VALUES (?,?,?)`),
			rec.ID, i+1, path)
		if err != nil {
			return fmt.Errorf("failed adding image %d: %s", i+1, err)
		}
	}
	for _, name := range rec.Locations {
		_, err = tx.Exec(tx.Rebind(
			`INSERT INTO record_location (record_id,name) VALUES (?,?)`),
			rec.ID, name)
		if err != nil {
			return fmt.Errorf("failed adding location %q: %s", name, err)
		}
	}
	return nil
}

// Fetch returns up to count records with id > sinceID, in id order.
// count<=0 means no limit.
func (st *Store) Fetch(sinceID, count int) ([]*StoredRecord, error) {
	q := `SELECT id,url,title,date,published,text_file,extracted_text,latitude,longitude
	        FROM record WHERE id>? ORDER BY id`
	args := []interface{}{sinceID}
	if count > 0 {
		q += ` LIMIT ?`
		args = append(args, count)
	}
	st.DebugLog.Printf("fetch: %s %v\n", q, args)

	rows := []recordRow{}
	err := st.db.Select(&rows, st.db.Rebind(q), args...)
	if err != nil {
		return nil, err
	}

	out := make([]*StoredRecord, 0, len(rows))
	for _, row := range rows {
		rec := &StoredRecord{
			Record: ledger.Record{
				ID:       row.ID,
				URL:      row.URL,
				Title:    row.Title,
				Date:     row.Date,
				TextFile: row.TextFile,
			},
			Text: row.Text,
		}
		if row.Published.Valid {
			rec.Published = row.Published.String
		}
		if row.Lat.Valid && row.Lon.Valid {
			lat, lon := row.Lat.Float64, row.Lon.Float64
			rec.Lat, rec.Lon = &lat, &lon
		}

		err = st.db.Select(&rec.ImageFiles, st.db.Rebind(
			`SELECT path FROM record_image WHERE record_id=? ORDER BY pos`), row.ID)
		if err != nil {
			return nil, err
		}
		err = st.db.Select(&rec.Locations, st.db.Rebind(
			`SELECT name FROM record_location WHERE record_id=? ORDER BY name`), row.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// DaySummary is the number of records collected for one crawl date.
type DaySummary struct {
	Date  string `db:"date" json:"date"`
	Count int    `db:"cnt" json:"count"`
}

func (st *Store) Summary() ([]DaySummary, error) {
	out := []DaySummary{}
	err := st.db.Select(&out,
		`SELECT date, COUNT(*) AS cnt FROM record GROUP BY date ORDER BY date`)
	return out, err
}
