package main

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/purell"
	"github.com/bcampbell/fuzzytime"

	"github.com/bcampbell/disasteromat/extract"
	"github.com/bcampbell/disasteromat/geoloc"
	"github.com/bcampbell/disasteromat/images"
	"github.com/bcampbell/disasteromat/ledger"
	"github.com/bcampbell/disasteromat/newsapi"
	"github.com/bcampbell/disasteromat/store"
)

var ErrQuit = errors.New("quit requested")

// CrawlConf is one [crawl "name"] section in the config file.
type CrawlConf struct {
	// search query, eg "Mandalay earthquake OR Myanmar earthquake"
	Query string
	// inclusive ISO day range to crawl, one-day windows
	DayFrom string
	DayTo   string
	// fetch full article pages when the API truncates content
	FullBody bool
	// optional cookie file for full-body fetches
	CookieFile string
}

type RunStats struct {
	Start        time.Time
	End          time.Time
	AttemptCount int
	SkipCount    int
	RecordCount  int
	ErrorCount   int
}

// Pipeline drives one crawl: day window by day window, article by article.
// It owns the id counter - every article attempt consumes an id, skipped
// or not, so ids stay stable across reruns of the same windows.
type Pipeline struct {
	Name string
	Conf *CrawlConf

	searcher   *newsapi.Client
	geocoder   *geoloc.Geocoder
	imgFetcher *images.Fetcher
	fullBody   *extract.Fetcher // nil = disabled
	db         *store.Store     // nil = no sql stash
	ledg       *ledger.Ledger
	textsDir   string
	deadline   time.Duration

	errorLog *log.Logger
	infoLog  *log.Logger

	// delay before first retry (doubles each go); 0 = default
	backoff time.Duration

	idSeq   int
	records []*ledger.Record
	stats   RunStats
	quit    chan struct{}
}

const dayFmt = "2006-01-02"

// retry knobs for the calls worth retrying (search pages, geocoding)
const (
	retryAttempts = 3
	retryBackoff  = 2 * time.Second
)

// every article attempt consumes exactly one id, in encounter order
func (p *Pipeline) nextID() int {
	p.idSeq++
	return p.idSeq
}

// stop the pipeline, at the next opportunity
func (p *Pipeline) Stop() {
	select {
	case p.quit <- struct{}{}:
	default:
	}
}

func (p *Pipeline) checkQuit() bool {
	select {
	case <-p.quit:
		return true
	default:
		return false
	}
}

// withRetry runs fn up to retryAttempts times, doubling the delay between
// goes. fn must be safe to re-run - the callers here only re-issue
// idempotent lookups, never anything that consumes an id or writes files.
func (p *Pipeline) withRetry(what string, fn func() error) error {
	var err error
	delay := p.backoff
	if delay == 0 {
		delay = retryBackoff
	}
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || attempt >= retryAttempts {
			return err
		}
		p.errorLog.Printf("%s failed (attempt %d/%d), retrying in %s: %s\n",
			what, attempt, retryAttempts, delay, err)
		select {
		case <-p.quit:
			return ErrQuit
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// Run performs the whole crawl and appends everything collected to the
// ledger in one go at the end. A failed day window loses that window
// only; a failed ledger write loses the run.
func (p *Pipeline) Run() error {
	p.stats = RunStats{}
	p.stats.Start = time.Now()
	defer func() {
		stats := &p.stats
		stats.End = time.Now()
		elapsed := stats.End.Sub(stats.Start)
		p.infoLog.Printf("run finished in %s (%d attempted, %d collected, %d skipped, %d errors)\n",
			elapsed, stats.AttemptCount, stats.RecordCount, stats.SkipCount, stats.ErrorCount)
	}()

	days, err := genDateRange(p.Conf.DayFrom, p.Conf.DayTo)
	if err != nil {
		return err
	}

	for _, day := range days {
		if p.checkQuit() {
			return ErrQuit
		}
		err := p.doWindow(day)
		if err == ErrQuit {
			return ErrQuit
		}
		if err != nil {
			// window lost, but carry on with the rest
			p.errorLog.Printf("%s\n", err)
			p.stats.ErrorCount++
		}
	}

	// the one ledger write of the run. If this fails the collected
	// records are gone - there's no fallback persistence.
	err = p.ledg.Append(p.records)
	if err != nil {
		return fmt.Errorf("ledger write failed: %s", err)
	}
	p.infoLog.Printf("appended %d records to %s\n", len(p.records), p.ledg.Path)
	return nil
}

// doWindow pages through one day's results until a short or empty page.
func (p *Pipeline) doWindow(day time.Time) error {
	from := day.Format(dayFmt)
	to := day.AddDate(0, 0, 1).Format(dayFmt)
	p.infoLog.Printf("searching %s\n", from)

	dayCount := 0
	for page := 1; ; page++ {
		var arts []newsapi.Article
		err := p.withRetry(fmt.Sprintf("search %s page %d", from, page), func() error {
			var serr error
			arts, serr = p.searcher.Search(context.Background(), p.Conf.Query, from, to, page)
			return serr
		})
		if err == ErrQuit {
			return ErrQuit
		}
		if err != nil {
			return fmt.Errorf("window %s aborted: %s", from, err)
		}

		for i := range arts {
			if p.checkQuit() {
				return ErrQuit
			}
			p.processArticle(from, &arts[i])
		}
		dayCount += len(arts)

		// a short page is the last page
		if len(arts) < p.searcher.PageSize {
			break
		}
	}

	p.infoLog.Printf("finished %s: %d articles attempted\n", from, dayCount)
	return nil
}

// processArticle drives one article through extract/locate/images and, if
// it survives, assembly. Everything downstream of extraction degrades
// rather than skips - partial records are fine, lost ones aren't.
func (p *Pipeline) processArticle(day string, art *newsapi.Article) {
	id := p.nextID() // consumed even if we bail below
	p.stats.AttemptCount++

	raw := &extract.RawArticle{
		Title:       art.Title,
		Description: art.Description,
		Content:     art.Content,
	}
	text, err := extract.CleanTextWithDeadline(raw, p.deadline)
	if err == extract.ErrTimeout {
		p.errorLog.Printf("article %d: %s\n", id, err)
	}
	if strings.TrimSpace(text) == "" {
		p.infoLog.Printf("skipped article %d on %s - no text\n", id, day)
		p.stats.SkipCount++
		return
	}

	if p.fullBody != nil && art.TruncatedContent() {
		full, err := p.fullBody.FullText(art.URL)
		if err != nil {
			p.errorLog.Printf("article %d: full-body fetch failed: %s (%s)\n", id, err, art.URL)
		} else if len(full) > len(text) {
			text = full
		}
	}

	textFile := fmt.Sprintf("text_%d.txt", id)
	err = ioutil.WriteFile(filepath.Join(p.textsDir, textFile), []byte(text), 0644)
	if err != nil {
		p.errorLog.Printf("article %d: can't write text file: %s\n", id, err)
		p.stats.ErrorCount++
		p.stats.SkipCount++
		return
	}

	locs, err := geoloc.Locations(text)
	if err != nil {
		p.errorLog.Printf("article %d: entity recognition failed: %s\n", id, err)
		locs = []string{}
	}

	var pt *geoloc.Point
	if len(locs) > 0 {
		// only the first candidate gets geocoded - the rest are kept
		// as metadata
		err = p.withRetry(fmt.Sprintf("geocode %q", locs[0]), func() error {
			var gerr error
			pt, gerr = p.geocoder.Geocode(context.Background(), locs[0])
			return gerr
		})
		if err != nil {
			p.errorLog.Printf("article %d: %s\n", id, err)
			pt = nil
		}
	}

	imgRefs := p.imgFetcher.FetchAll(id, art.ImageURLs())

	rec := &ledger.Record{
		ID:         id,
		URL:        normaliseURL(art.URL),
		Title:      art.Title,
		Date:       day,
		TextFile:   textFile,
		ImageFiles: imgRefs,
		Locations:  locs,
	}
	if pt != nil {
		rec.Lat, rec.Lon = &pt.Lat, &pt.Lon
	}

	p.records = append(p.records, rec)
	if p.db != nil {
		err = p.db.Stash(rec, isoDate(art.PublishedAt), text)
		if err != nil {
			p.errorLog.Printf("article %d: stash failed: %s\n", id, err)
			p.stats.ErrorCount++
		}
	}
	p.stats.RecordCount++
	p.infoLog.Printf("processed article %d on %s (%d chars, %d locations, %d images)\n",
		id, day, len(text), len(locs), len(imgRefs))
}

func normaliseURL(artURL string) string {
	normed, err := purell.NormalizeURLString(artURL, purell.FlagsSafe)
	if err != nil {
		return artURL
	}
	return normed
}

// isoDate squeezes whatever the API put in publishedAt into an ISO8601
// string, or "" if nothing parseable is in there.
func isoDate(raw string) string {
	if raw == "" {
		return ""
	}
	dt, _, err := fuzzytime.Extract(raw)
	if err != nil || dt.Empty() {
		return ""
	}
	return dt.ISOFormat()
}

// genDateRange expands an inclusive day range into its component days.
// An empty dayTo means "up to today".
func genDateRange(dayFrom, dayTo string) ([]time.Time, error) {
	if dayFrom == "" {
		return nil, fmt.Errorf("from day required")
	}
	from, err := time.Parse(dayFmt, dayFrom)
	if err != nil {
		return nil, err
	}

	var to time.Time
	if dayTo == "" {
		now := time.Now()
		to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		to, err = time.Parse(dayFmt, dayTo)
		if err != nil {
			return nil, err
		}
	}

	if to.Before(from) {
		return nil, fmt.Errorf("to day is before from")
	}

	out := []time.Time{}
	end := to.AddDate(0, 0, 1)
	for day := from; day.Before(end); day = day.AddDate(0, 0, 1) {
		out = append(out, day)
	}
	return out, nil
}
