package store

import (
	"fmt"
)

func (st *Store) checkSchema() error {
	ver, err := st.schemaVersion()
	if err != nil {
		return err
	}
	if ver == 1 {
		return nil // up to date.
	}

	// auto schema management currently only for sqlite.
	if st.driverName != "sqlite3" {
		return fmt.Errorf("missing schema")
	}

	if ver != 0 {
		return fmt.Errorf("no schema upgrade path (from ver %d)", ver)
	}

	stmts := []string{
		`CREATE TABLE record (
			id INTEGER PRIMARY KEY,
			added TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			url TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			published TIMESTAMP DEFAULT NULL,
			text_file TEXT NOT NULL DEFAULT '',
			extracted_text TEXT NOT NULL DEFAULT '',
			latitude REAL DEFAULT NULL,
			longitude REAL DEFAULT NULL )`,

		`CREATE TABLE record_image (
			id INTEGER PRIMARY KEY,
			record_id INTEGER NOT NULL,
			pos INTEGER NOT NULL,
			path TEXT NOT NULL DEFAULT '',
			FOREIGN KEY(record_id) REFERENCES record(id) ON DELETE CASCADE )`,
		`CREATE INDEX record_image_recid ON record_image(record_id)`,

		`CREATE TABLE record_location (
			id INTEGER PRIMARY KEY,
			record_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			FOREIGN KEY(record_id) REFERENCES record(id) ON DELETE CASCADE )`,
		`CREATE INDEX record_location_recid ON record_location(record_id)`,

		`CREATE INDEX record_date ON record(date)`,

		`CREATE TABLE version (ver INTEGER NOT NULL)`,
		`INSERT INTO version (ver) VALUES (1)`,
	}

	for _, stmt := range stmts {
		_, err := st.db.Exec(stmt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (st *Store) schemaVersion() (int, error) {
	var v int
	err := st.db.QueryRow(`SELECT MAX(ver) FROM version`).Scan(&v)
	if err != nil {
		// no version table = empty database
		return 0, nil
	}
	return v, nil
}
