package extract

import (
	"errors"
	"time"
)

// ErrTimeout signals that cleaning took longer than the allowed deadline.
// Callers should treat the article text as empty and move on.
var ErrTimeout = errors.New("text extraction timed out")

// DefaultDeadline bounds how long we'll spend cleaning one article.
// Pathologically-huge or malformed markup mustn't stall the whole crawl.
const DefaultDeadline = 5 * time.Second

// RunWithDeadline runs fn, but gives up after d and returns ErrTimeout.
// The abandoned fn keeps running to completion in its own goroutine and
// then exits - the buffered channel means it can never block, so repeated
// timeouts can't pile up more goroutines than there are in-flight cleans.
func RunWithDeadline(d time.Duration, fn func() string) (string, error) {
	ch := make(chan string, 1)
	go func() {
		ch <- fn()
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case s := <-ch:
		return s, nil
	case <-timer.C:
		return "", ErrTimeout
	}
}

// CleanTextWithDeadline is CleanText bounded by a wall-clock deadline.
// On timeout the result is "" and ErrTimeout.
func CleanTextWithDeadline(raw *RawArticle, d time.Duration) (string, error) {
	return RunWithDeadline(d, func() string {
		return CleanText(raw)
	})
}
