// Package fixtures provides the synthetic work-item catalog used to
// exercise the title tokenizer against a real tracking service, plus
// the seed/verify/teardown lifecycle around it.
package fixtures

import (
	"github.com/google/uuid"

	"github.com/tagsweep/tagsweep/internal/titles"
)

// MarkerPrefix prefixes the per-run tag that identifies seeded items.
const MarkerPrefix = "tagsweep-run-"

// NewMarker generates a unique marker tag for one seeding run.
func NewMarker() string {
	return MarkerPrefix + uuid.New().String()
}

// SelfCheck runs the catalog through the tokenizer without touching any
// service and reports the fixtures whose parse output disagrees with
// the catalog's expectations.
func SelfCheck() (failures []Fixture) {
	for _, fixture := range Catalog() {
		result := titles.Parse(fixture.Title)
		if result.Title != fixture.WantTitle || !equalTags(result.Tags, fixture.WantTags) {
			failures = append(failures, fixture)
		}
	}
	return failures
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Fixture is one synthetic title with its expected parse outcome.
type Fixture struct {
	Name      string
	Title     string
	WantTitle string
	WantTags  []string
}

// Catalog returns the fixed set of parser edge cases the harness seeds.
// The expected values describe the state of each item after a sweep.
func Catalog() []Fixture {
	return []Fixture{
		{
			Name:      "plain",
			Title:     "No bracketed substrings in this title",
			WantTitle: "No bracketed substrings in this title",
		},
		{
			Name:      "single-leading",
			Title:     "[Single] bracketed substring at start of title",
			WantTitle: "Bracketed substring at start of title",
			WantTags:  []string{"Single"},
		},
		{
			Name:      "trailing-bracket",
			Title:     "Title with bracketed substring at end [End]",
			WantTitle: "Title with bracketed substring at end [End]",
		},
		{
			Name:      "all-brackets",
			Title:     "[All][Brackets][Only]",
			WantTitle: titles.UntitledFallback,
			WantTags:  []string{"All", "Brackets", "Only"},
		},
		{
			Name:      "nested",
			Title:     "[Outer [Inner]] Title with nested brackets",
			WantTitle: "Title with nested brackets",
			WantTags:  []string{"Outer", "Inner"},
		},
		{
			Name:      "mid-title-empty",
			Title:     "Title with empty brackets [] should ignore them",
			WantTitle: "Title with empty brackets [] should ignore them",
		},
		{
			Name:      "whitespace-collapse",
			Title:     "Title   with    multiple   spaces  [Tag]  should   normalize",
			WantTitle: "Title with multiple spaces [Tag] should normalize",
		},
		{
			Name:      "lowercase-remainder",
			Title:     "[start] title begins with lowercase text",
			WantTitle: "Title begins with lowercase text",
			WantTags:  []string{"start"},
		},
		{
			Name:      "unclosed-bracket",
			Title:     "[Dangling the bracket never closes",
			WantTitle: "[Dangling the bracket never closes",
		},
		{
			Name:      "empty-leading-bracket",
			Title:     "[ ] only whitespace inside",
			WantTitle: "Only whitespace inside",
		},
		{
			Name:      "colon-separator",
			Title:     "[Area]: colon after the run",
			WantTitle: "Colon after the run",
			WantTags:  []string{"Area"},
		},
		{
			Name:      "spaced-groups",
			Title:     "[UI]  [critical] groups separated by spaces",
			WantTitle: "Groups separated by spaces",
			WantTags:  []string{"UI", "critical"},
		},
		{
			Name:      "deep-nesting",
			Title:     "[a [b [c]]] three levels down",
			WantTitle: "Three levels down",
			WantTags:  []string{"a", "b", "c"},
		},
	}
}
