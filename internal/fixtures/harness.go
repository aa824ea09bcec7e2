package fixtures

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tagsweep/tagsweep/internal/runstore"
	"github.com/tagsweep/tagsweep/internal/sweep"
	"github.com/tagsweep/tagsweep/internal/types"
)

// TrackerClient is the slice of the tracker API the harness needs.
type TrackerClient interface {
	QueryIDs(ctx context.Context, wiql string) ([]int, error)
	GetWorkItems(ctx context.Context, ids []int) ([]types.WorkItem, error)
	CreateWorkItem(ctx context.Context, itemType, title, tags string) (types.WorkItem, error)
	DeleteWorkItem(ctx context.Context, id int) error
}

// RunStore records which work items each run created.
type RunStore interface {
	CreateRun(ctx context.Context, marker string) error
	AddItem(ctx context.Context, marker string, workItemID int) error
	GetRun(ctx context.Context, marker string) (*runstore.Run, error)
	DeleteRun(ctx context.Context, marker string) error
}

// Harness drives the seed/verify/teardown lifecycle for one run.
type Harness struct {
	client TrackerClient
	store  RunStore
}

// New creates a harness.
func New(client TrackerClient, store RunStore) *Harness {
	return &Harness{client: client, store: store}
}

// Seed creates one Bug work item per catalog fixture, tagged with a
// fresh run marker, and records the created IDs. Creation stops at the
// first failure; items created before the failure stay recorded so a
// teardown can remove them.
func (h *Harness) Seed(ctx context.Context) (string, []int, error) {
	marker := NewMarker()
	if err := h.store.CreateRun(ctx, marker); err != nil {
		return "", nil, fmt.Errorf("failed to record run: %w", err)
	}

	var ids []int
	for _, fixture := range Catalog() {
		item, err := h.client.CreateWorkItem(ctx, "Bug", fixture.Title, marker)
		if err != nil {
			return marker, ids, fmt.Errorf("failed to seed fixture %q: %w", fixture.Name, err)
		}
		if err := h.store.AddItem(ctx, marker, item.ID); err != nil {
			return marker, ids, fmt.Errorf("failed to record fixture %q: %w", fixture.Name, err)
		}
		ids = append(ids, item.ID)
	}
	return marker, ids, nil
}

// Check is the verification outcome for one fixture.
type Check struct {
	Fixture   Fixture
	ID        int
	GotTitle  string
	GotTags   string
	WantTitle string
	WantTags  string
	Pass      bool
}

// Report summarizes a verification pass.
type Report struct {
	Marker string
	Checks []Check
	Passed int
	Failed int
}

// Verify fetches the run's items and compares each against its
// fixture's expected post-sweep state. Items are matched positionally:
// the seeder records IDs in catalog order. It also cross-checks that a
// marker-tag query finds the same number of items, exercising the same
// query path the sweep uses.
func (h *Harness) Verify(ctx context.Context, marker string) (*Report, error) {
	run, err := h.store.GetRun(ctx, marker)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", marker, err)
	}
	catalog := Catalog()
	if len(run.ItemIDs) != len(catalog) {
		return nil, fmt.Errorf("run %s has %d items, catalog has %d: incomplete seed", marker, len(run.ItemIDs), len(catalog))
	}

	queried, err := h.client.QueryIDs(ctx, sweep.BugQuery(marker))
	if err != nil {
		return nil, fmt.Errorf("marker query failed: %w", err)
	}
	if len(queried) != len(catalog) {
		return nil, fmt.Errorf("marker query found %d items, expected %d", len(queried), len(catalog))
	}

	items, err := h.client.GetWorkItems(ctx, run.ItemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run items: %w", err)
	}
	if len(items) != len(catalog) {
		return nil, fmt.Errorf("fetched %d items, expected %d", len(items), len(catalog))
	}

	report := &Report{Marker: marker}
	for i, fixture := range catalog {
		wantTags := types.JoinTags(append([]string{marker}, fixture.WantTags...))
		check := Check{
			Fixture:   fixture,
			ID:        items[i].ID,
			GotTitle:  items[i].Title,
			GotTags:   items[i].Tags,
			WantTitle: fixture.WantTitle,
			WantTags:  wantTags,
		}
		check.Pass = check.GotTitle == check.WantTitle && check.GotTags == check.WantTags
		if check.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Checks = append(report.Checks, check)
	}
	return report, nil
}

// Teardown deletes every work item created by the run: the union of a
// live marker-tag query and the recorded IDs, so items survive neither
// a crashed seeder nor a tag edit. Individual delete failures are
// collected; the run record is removed only when every delete worked.
func (h *Harness) Teardown(ctx context.Context, marker string) (int, error) {
	ids := make(map[int]bool)

	if queried, err := h.client.QueryIDs(ctx, sweep.BugQuery(marker)); err == nil {
		for _, id := range queried {
			ids[id] = true
		}
	}
	run, err := h.store.GetRun(ctx, marker)
	if err != nil && !errors.Is(err, runstore.ErrRunNotFound) {
		return 0, fmt.Errorf("failed to load run %s: %w", marker, err)
	}
	if run != nil {
		for _, id := range run.ItemIDs {
			ids[id] = true
		}
	}
	if len(ids) == 0 && run == nil {
		return 0, fmt.Errorf("nothing to tear down for %s: %w", marker, runstore.ErrRunNotFound)
	}

	sorted := make([]int, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Ints(sorted)

	deleted := 0
	var errs []error
	for _, id := range sorted {
		if err := h.client.DeleteWorkItem(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	if len(errs) > 0 {
		return deleted, fmt.Errorf("failed to delete %d of %d items: %w", len(errs), len(sorted), errs[0])
	}

	if run != nil {
		if err := h.store.DeleteRun(ctx, marker); err != nil {
			return deleted, fmt.Errorf("items deleted but run record remains: %w", err)
		}
	}
	return deleted, nil
}
