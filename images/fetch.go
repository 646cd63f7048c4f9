package images

// Downloads candidate images for an article. Individual failures never
// propagate - a dud image just leaves a gap in the output list.

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bcampbell/arts/util"
)

type Logger interface {
	Printf(format string, v ...interface{})
}

type nullLogger struct{}

func (l nullLogger) Printf(format string, v ...interface{}) {}

// per-image fetch timeout - image hosts can be slow and we don't care
// enough about any one image to wait around
const fetchTimeout = 5 * time.Second

// Fetcher downloads article images into Dir.
type Fetcher struct {
	Client *http.Client
	Dir    string
	ErrLog Logger
}

func NewFetcher(dir string) *Fetcher {
	return &Fetcher{
		Client: &http.Client{
			Transport: util.NewPoliteTripper(),
			Timeout:   fetchTimeout,
		},
		Dir:    dir,
		ErrLog: nullLogger{},
	}
}

// FetchAll downloads every present URL in urls, concurrently.
// The result always has exactly len(urls) entries, in the same order -
// downstream treats the first image as primary, so position matters.
// Placeholders ("") and failed downloads come back as "".
func (f *Fetcher) FetchAll(artID int, urls []string) []string {
	out := make([]string, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		if u == "" {
			continue
		}
		wg.Add(1)
		go func(pos int, imgURL string) {
			defer wg.Done()
			// each goroutine writes only its own slot, so no locking
			path, err := f.fetch(artID, pos+1, imgURL)
			if err != nil {
				f.ErrLog.Printf("image %d/%d failed: %s (%s)\n", artID, pos+1, err, imgURL)
				return
			}
			out[pos] = path
		}(i, u)
	}
	wg.Wait()

	return out
}

// fetch grabs one image, streaming it to a name derived from the article
// id and position. Re-running overwrites the same file rather than
// growing a pile of duplicates.
func (f *Fetcher) fetch(artID, pos int, imgURL string) (string, error) {
	resp, err := f.Client.Get(imgURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("HTTP %s", resp.Status)
	}

	filename := fmt.Sprintf("image_%d_%d.jpg", artID, pos)
	outPath := filepath.Join(f.Dir, filename)
	outFile, err := os.Create(outPath)
	if err != nil {
		return "", err
	}

	_, err = io.Copy(outFile, resp.Body)
	if err != nil {
		outFile.Close()
		os.Remove(outPath) // don't leave truncated images lying about
		return "", err
	}

	err = outFile.Close()
	if err != nil {
		return "", err
	}
	return outPath, nil
}
