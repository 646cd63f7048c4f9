package geoloc

// Pick place names out of article text using named-entity recognition.

import (
	"sort"

	prose "github.com/jdkato/prose/v2"
)

// entity labels we treat as places
func isPlaceLabel(label string) bool {
	return label == "GPE" || label == "LOC"
}

// collectPlaces filters entities down to distinct place names.
// Sorted so "the first candidate" is stable for identical input -
// set iteration order isn't.
func collectPlaces(ents []prose.Entity) []string {
	seen := map[string]struct{}{}
	for _, ent := range ents {
		if isPlaceLabel(ent.Label) {
			seen[ent.Text] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Locations runs NER over text and returns the distinct place names found.
// May well be empty - plenty of articles never name a location.
func Locations(text string) ([]string, error) {
	if text == "" {
		return []string{}, nil
	}
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, err
	}
	return collectPlaces(doc.Entities()), nil
}
