package extract

import (
	"testing"
	"time"
)

func TestStripMarkup(t *testing.T) {
	testData := []struct{ in, out string }{
		{"plain text", "plain text"},
		{"  lots   of\n\t whitespace ", "lots of whitespace"},
		{"<p>Quake <b>hits</b> region</p>", "Quake hits region"},
		{"<div>before<script>var x=1;</script>after</div>", "before after"},
		{"<style>p{color:red}</style>styled", "styled"},
		{"", ""},
		{"<p></p>", ""},
	}

	for _, dat := range testData {
		got := StripMarkup(dat.in)
		if got != dat.out {
			t.Errorf(`StripMarkup(%q) = %q (expected %q)`, dat.in, got, dat.out)
		}
	}
}

func TestCleanText(t *testing.T) {
	raw := &RawArticle{
		Title:       "Quake hits region",
		Description: "",
		Content:     "<p>Dozens injured in Mandalay</p>",
	}
	got := CleanText(raw)
	expect := "Quake hits region Dozens injured in Mandalay"
	if got != expect {
		t.Errorf("CleanText: got %q (expected %q)", got, expect)
	}

	// all fields empty -> empty blob, not an error
	if CleanText(&RawArticle{}) != "" {
		t.Errorf("CleanText of empty article should be empty")
	}

	// fields which clean down to nothing shouldn't leave stray separators
	raw = &RawArticle{Title: "Title", Description: "<p> </p>", Content: "body"}
	if got := CleanText(raw); got != "Title body" {
		t.Errorf("got %q (expected \"Title body\")", got)
	}
}

func TestRunWithDeadline(t *testing.T) {
	// quick fn comes back fine
	got, err := RunWithDeadline(time.Second, func() string { return "done" })
	if err != nil || got != "done" {
		t.Errorf("got (%q,%v)", got, err)
	}

	// slow fn is abandoned and treated as empty
	got, err = RunWithDeadline(10*time.Millisecond, func() string {
		time.Sleep(500 * time.Millisecond)
		return "too late"
	})
	if err != ErrTimeout {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if got != "" {
		t.Errorf("timed-out result should be empty, got %q", got)
	}
}

func TestCleanTextWithDeadline(t *testing.T) {
	raw := &RawArticle{Title: "Quake hits region"}
	got, err := CleanTextWithDeadline(raw, DefaultDeadline)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != "Quake hits region" {
		t.Errorf("got %q", got)
	}
}
