package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/bcampbell/disasteromat/store"
)

var opts struct {
	driver    string
	connStr   string
	from, to  string
	termWidth int
	csv       bool
}

func init() {
	flag.StringVar(&opts.connStr, "db", "", "database connection string (or set DISASTEROMAT_DB)")
	flag.StringVar(&opts.driver, "driver", "", "database driver name (defaults to sqlite3 if DISASTEROMAT_DRIVER is unset)")
	flag.StringVar(&opts.from, "from", "", "from date")
	flag.StringVar(&opts.to, "to", "", "to date")
	flag.IntVar(&opts.termWidth, "w", 0, "output width (0=auto)")
	flag.BoolVar(&opts.csv, "c", false, "output as csv rather than ascii-art")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, `
Displays per-day record counts from a disasteromat database
using a noddy ascii art chart.
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	if !opts.csv && opts.termWidth == 0 {
		var err error
		opts.termWidth, err = detectTermWidth()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR detecting terminal width: %s\n", err)
			os.Exit(2)
		}
	}

	db, err := store.NewWithEnv(opts.driver, opts.connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR opening db: %s\n", err)
		os.Exit(2)
	}
	defer db.Close()

	days, err := db.Summary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(2)
	}
	days = filterDays(days, opts.from, opts.to)

	if opts.csv {
		err = dumpCSV(days)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
			os.Exit(1)
		}
	} else {
		dump(days, opts.termWidth)
	}
}

// filterDays keeps only summaries within the inclusive from/to date
// range. Empty bounds are open.
func filterDays(days []store.DaySummary, from, to string) []store.DaySummary {
	out := []store.DaySummary{}
	for _, d := range days {
		if from != "" && d.Date < from {
			continue
		}
		if to != "" && d.Date > to {
			continue
		}
		out = append(out, d)
	}
	return out
}

func detectTermWidth() (int, error) {
	fd := int(os.Stdout.Fd())
	if !terminal.IsTerminal(fd) {
		return 0, fmt.Errorf("Not a terminal")
	}
	w, _, err := terminal.GetSize(fd)
	if err != nil {
		return 0, err
	}
	return w, nil
}

func weekday(day string) string {
	t, _ := time.Parse("2006-01-02", day)
	return t.Weekday().String()[:1]
}

func dump(days []store.DaySummary, termW int) {
	max := 0
	for _, d := range days {
		if d.Count > max {
			max = d.Count
		}
	}
	if max == 0 {
		return
	}

	numReserve := len(fmt.Sprintf("%d", max))
	w := termW - (1 + 1 + 10 + 1 + numReserve + 1 + 1)

	for _, d := range days {
		n := (d.Count * 1024) / max
		n = (n * w) / 1024
		bar := strings.Repeat("*", n)
		fmt.Printf("%s %10s %*d %s\n", weekday(d.Date), d.Date, numReserve, d.Count, bar)
	}
}

// Output the summary as a csv file
func dumpCSV(days []store.DaySummary) error {
	out := csv.NewWriter(os.Stdout)
	out.Write([]string{"date", "count"})
	for _, d := range days {
		out.Write([]string{d.Date, strconv.Itoa(d.Count)})
	}
	out.Flush()
	return out.Error()
}
