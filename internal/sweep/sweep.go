// Package sweep runs the title cleanup over Bug work items: fetch,
// parse each title, promote leading bracket tokens to tags, and write
// back anything that changed.
package sweep

import (
	"context"
	"fmt"
	"strings"

	"github.com/tagsweep/tagsweep/internal/titles"
	"github.com/tagsweep/tagsweep/internal/types"
)

// TrackerClient is the slice of the tracker API the sweeper needs.
type TrackerClient interface {
	QueryIDs(ctx context.Context, wiql string) ([]int, error)
	GetWorkItems(ctx context.Context, ids []int) ([]types.WorkItem, error)
	UpdateWorkItem(ctx context.Context, id, rev int, title, tags string) error
}

// Options controls one sweep run.
type Options struct {
	// DryRun computes changes without writing anything back.
	DryRun bool
	// MarkerTag, when set, restricts the sweep to items carrying this
	// tag. The fixture harness uses it to scope a run to seeded items.
	MarkerTag string
	// Limit caps how many items are processed (0 = no cap).
	Limit int
}

// Change records one item the sweep modified (or would modify, in dry
// run).
type Change struct {
	ID        int
	OldTitle  string
	NewTitle  string
	AddedTags []string
	Err       error // non-nil when the write-back failed
}

// Summary is the result of one sweep run.
type Summary struct {
	Scanned   int
	Changed   int
	Unchanged int
	Failed    int
	Changes   []Change
}

// Sweeper drives the cleanup.
type Sweeper struct {
	client TrackerClient
	opts   Options
}

// New creates a sweeper.
func New(client TrackerClient, opts Options) *Sweeper {
	return &Sweeper{client: client, opts: opts}
}

// BugQuery builds the WIQL that selects the Bug work items to sweep.
// The marker tag is user input, so embedded single quotes are doubled
// per WIQL string-literal rules.
func BugQuery(markerTag string) string {
	wiql := "SELECT [System.Id] FROM WorkItems WHERE [System.WorkItemType] = 'Bug'"
	if markerTag != "" {
		escaped := strings.ReplaceAll(markerTag, "'", "''")
		wiql += fmt.Sprintf(" AND [System.Tags] CONTAINS '%s'", escaped)
	}
	return wiql + " ORDER BY [System.Id]"
}

// Run executes one sweep. Items are processed sequentially in query
// order; a failed write-back is recorded and the sweep continues.
func (s *Sweeper) Run(ctx context.Context) (*Summary, error) {
	ids, err := s.client.QueryIDs(ctx, BugQuery(s.opts.MarkerTag))
	if err != nil {
		return nil, fmt.Errorf("failed to query work items: %w", err)
	}
	if s.opts.Limit > 0 && len(ids) > s.opts.Limit {
		ids = ids[:s.opts.Limit]
	}

	items, err := s.client.GetWorkItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch work items: %w", err)
	}

	summary := &Summary{}
	for _, item := range items {
		summary.Scanned++

		result := titles.Parse(item.Title)
		mergedTags, tagsAdded := types.MergeTags(item.Tags, result.Tags)
		if result.Title == item.Title && !tagsAdded {
			summary.Unchanged++
			continue
		}

		change := Change{
			ID:        item.ID,
			OldTitle:  item.Title,
			NewTitle:  result.Title,
			AddedTags: newTags(item.Tags, result.Tags),
		}

		if !s.opts.DryRun {
			if err := s.client.UpdateWorkItem(ctx, item.ID, item.Rev, result.Title, mergedTags); err != nil {
				change.Err = err
				summary.Failed++
				summary.Changes = append(summary.Changes, change)
				continue
			}
		}

		summary.Changed++
		summary.Changes = append(summary.Changes, change)
	}

	return summary, nil
}

// newTags returns the subset of parsed that is not already present in
// the existing tag string, for reporting.
func newTags(existing string, parsed []string) []string {
	var added []string
	for _, tag := range parsed {
		if !types.HasTag(existing, tag) && !types.HasTag(types.JoinTags(added), tag) {
			added = append(added, tag)
		}
	}
	return added
}
