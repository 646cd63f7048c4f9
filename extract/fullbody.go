package extract

// Optional full-body fetching. The search API truncates article content,
// so when a result carries the truncation marker we can go and grab the
// real page and pull the text out of it instead.

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"time"

	"github.com/bcampbell/arts/arts"
	"github.com/bcampbell/arts/util"
	"github.com/bcampbell/biscuit"
	"github.com/bcampbell/disasteromat/arc"
)

// Fetcher grabs full article pages and extracts their text.
type Fetcher struct {
	Client *http.Client
	// dir for .warc.gz archives of fetched pages ("" = don't archive)
	ArchiveDir string
	UserAgent  string
}

// NewFetcher sets up a full-body fetcher with a polite client.
// cookieFile is optional - some origins need a logged-in session.
func NewFetcher(archiveDir, cookieFile string) (*Fetcher, error) {
	f := &Fetcher{ArchiveDir: archiveDir}

	if cookieFile == "" {
		f.Client = &http.Client{Transport: util.NewPoliteTripper()}
		return f, nil
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	fp, err := os.Open(cookieFile)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	cookies, err := biscuit.ReadCookies(fp)
	if err != nil {
		return nil, err
	}
	// each cookie gets set against its own domain
	for _, ck := range cookies {
		u := &url.URL{Scheme: "https", Host: ck.Domain, Path: "/"}
		jar.SetCookies(u, []*http.Cookie{ck})
	}

	f.Client = &http.Client{
		Transport: util.NewPoliteTripper(),
		Jar:       jar,
	}
	return f, nil
}

// FullText fetches artURL, archives the raw response (if configured) and
// returns the extracted article text, cleaned the same way as API text.
func (f *Fetcher) FullText(artURL string) (string, error) {
	fetchTime := time.Now()
	req, err := http.NewRequest("GET", artURL, nil)
	if err != nil {
		return "", err
	}
	// some sites 403 if no Accept header is present
	req.Header.Set("Accept", "*/*")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if f.ArchiveDir != "" {
		err = arc.ArchiveResponse(f.ArchiveDir, resp, artURL, fetchTime)
		if err != nil {
			return "", err
		}
	}

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("HTTP error: %s (%s)", resp.Status, artURL)
	}

	rawHTML, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	scraped, err := arts.ExtractFromHTML(rawHTML, artURL)
	if err != nil {
		return "", err
	}

	// scraped content is sanitised html - flatten it to plain text
	return StripMarkup(scraped.Content), nil
}
