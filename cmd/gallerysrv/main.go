package main

// run server to provide an API and simple file gallery upon a
// disasteromat database

import (
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bcampbell/disasteromat/store"
)

var opts struct {
	verbosity  int
	driver     string
	connStr    string
	port       int
	prefix     string
	datasetDir string
}

func main() {
	flag.StringVar(&opts.connStr, "db", "", "database connection string (or set DISASTEROMAT_DB)")
	flag.StringVar(&opts.driver, "driver", "", "database driver name (defaults to sqlite3 if DISASTEROMAT_DRIVER is unset)")
	flag.StringVar(&opts.prefix, "prefix", "", `url prefix (eg "/mandalay") to allow multiple servers on same port`)
	flag.StringVar(&opts.datasetDir, "d", "", "dataset dir to serve texts/ and images/ from")
	flag.IntVar(&opts.port, "port", 12345, "port to run server on")
	flag.IntVar(&opts.verbosity, "v", 0, "verbosity (0=errors only, 1=info, 2=debug)")
	flag.Parse()

	errLog := log.New(os.Stderr, "ERR: ", 0)
	var infoLog Logger
	if opts.verbosity > 0 {
		infoLog = log.New(os.Stderr, "INF: ", 0)
	} else {
		infoLog = nullLogger{}
	}

	db, err := store.NewWithEnv(opts.driver, opts.connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR opening db: %s\n", err)
		os.Exit(1)
	}
	defer db.Close()

	db.ErrLog = errLog
	if opts.verbosity >= 2 {
		db.DebugLog = log.New(os.Stderr, "store: ", 0)
	}

	srv := NewServer(db, opts.datasetDir, opts.port, opts.prefix, infoLog, errLog)
	err = srv.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}
