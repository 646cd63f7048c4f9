package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/flytam/filenamify"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/time/rate"
	"gopkg.in/gcfg.v1"

	"github.com/bcampbell/disasteromat/extract"
	"github.com/bcampbell/disasteromat/geoloc"
	"github.com/bcampbell/disasteromat/images"
	"github.com/bcampbell/disasteromat/ledger"
	"github.com/bcampbell/disasteromat/newsapi"
	"github.com/bcampbell/disasteromat/store"
)

const (
	defaultSearchURL  = "https://newsapi.org/v2/everything"
	defaultGeocodeURL = "https://nominatim.openstreetmap.org/search"
	userAgent         = "disasteromat/0.1 (+https://github.com/bcampbell/disasteromat)"
)

func main() {
	var listFlag = flag.Bool("l", false, "list configured crawls and exit")
	var verbosityFlag = flag.Int("v", 1, "verbosity of output (0=errors only 1=info)")
	var configFlag = flag.String("c", "crawls.cfg", "config file for crawls")
	var outDirFlag = flag.String("o", "data", "base output dir for collected datasets")
	var apiKeyFlag = flag.String("k", "", "search API key (default: NEWS_API_KEY env var)")
	var driverFlag = flag.String("driver", "", "database driver (default sqlite3)")
	var dbFlag = flag.String("db", "", "database connection string (default <dataset>/records.db)")
	flag.Parse()

	// crawl configuration
	crawlsCfg := struct {
		Crawl map[string]*CrawlConf
	}{}
	err := gcfg.ReadFileInto(&crawlsCfg, *configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}

	if *listFlag {
		for name := range crawlsCfg.Crawl {
			fmt.Println(name)
		}
		return
	}

	apiKey := *apiKeyFlag
	if apiKey == "" {
		apiKey = os.Getenv("NEWS_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "ERROR: no search API key (use -k or NEWS_API_KEY)\n")
		os.Exit(1)
	}

	// which crawls?
	targets := flag.Args()
	if len(targets) == 0 {
		// none specified - do the lot
		for name := range crawlsCfg.Crawl {
			targets = append(targets, name)
		}
	}

	fail := false
	for _, name := range targets {
		conf, got := crawlsCfg.Crawl[name]
		if !got {
			fmt.Fprintf(os.Stderr, "Unknown crawl '%s'\n", name)
			fail = true
			continue
		}

		p, err := NewPipeline(name, conf, apiKey, *outDirFlag, *driverFlag, *dbFlag, *verbosityFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s: %s\n", name, err)
			fail = true
			continue
		}

		// ctrl-c finishes the current article then stops cleanly
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt)
		go func() {
			<-sigs
			p.Stop()
		}()

		err = p.Run()
		signal.Stop(sigs)
		if p.db != nil {
			p.db.Close()
		}
		if err != nil && err != ErrQuit {
			fmt.Fprintf(os.Stderr, "ERROR: %s: %s\n", name, err)
			fail = true
		}
	}

	if fail {
		os.Exit(1)
	}
}

// NewPipeline wires up a pipeline and its output directories for one
// configured crawl. Layout under outDir:
//
//	<outDir>/<crawl name>/texts/
//	                      images/
//	                      archive/        (full-body mode only)
//	                      entry_record.csv
//	                      records.db      (unless overridden)
func NewPipeline(name string, conf *CrawlConf, apiKey, outDir, driver, connStr string, verbosity int) (*Pipeline, error) {
	if conf.Query == "" {
		return nil, fmt.Errorf("no query configured")
	}

	safeName, err := filenamify.Filenamify(name, filenamify.Options{Replacement: "_"})
	if err != nil {
		return nil, err
	}
	datasetDir := filepath.Join(outDir, safeName)
	textsDir := filepath.Join(datasetDir, "texts")
	imagesDir := filepath.Join(datasetDir, "images")
	for _, dir := range []string{textsDir, imagesDir} {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return nil, err
		}
	}

	p := &Pipeline{
		Name:     name,
		Conf:     conf,
		textsDir: textsDir,
		deadline: extract.DefaultDeadline,
		ledg:     ledger.NewLedger(filepath.Join(datasetDir, "entry_record.csv")),
		quit:     make(chan struct{}, 1),
	}

	p.errorLog = log.New(os.Stderr, "ERR "+name+": ", 0)
	if verbosity > 0 {
		p.infoLog = log.New(os.Stderr, "INF "+name+": ", 0)
	} else {
		p.infoLog = log.New(ioutil.Discard, "", 0)
	}

	// pace the search and geocode calls - both upstreams are
	// rate-sensitive and ban hammerers
	p.searcher = newsapi.NewClient(defaultSearchURL, apiKey,
		rate.NewLimiter(rate.Every(time.Second), 1))
	p.searcher.ErrLog = p.errorLog

	p.geocoder = geoloc.NewGeocoder(defaultGeocodeURL, userAgent,
		rate.NewLimiter(rate.Every(time.Second), 1))

	p.imgFetcher = images.NewFetcher(imagesDir)
	p.imgFetcher.ErrLog = p.errorLog

	if conf.FullBody {
		archiveDir := filepath.Join(datasetDir, "archive")
		if err := os.MkdirAll(archiveDir, 0777); err != nil {
			return nil, err
		}
		fb, err := extract.NewFetcher(archiveDir, conf.CookieFile)
		if err != nil {
			return nil, err
		}
		fb.UserAgent = userAgent
		p.fullBody = fb
	}

	if connStr == "" && os.Getenv("DISASTEROMAT_DB") == "" {
		connStr = filepath.Join(datasetDir, "records.db")
	}
	db, err := store.NewWithEnv(driver, connStr)
	if err != nil {
		return nil, err
	}
	db.ErrLog = p.errorLog
	p.db = db

	return p, nil
}
