package sweep

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagsweep/tagsweep/internal/types"
)

// mockClient implements TrackerClient for testing.
type mockClient struct {
	items      map[int]types.WorkItem
	order      []int
	queryErr   error
	updateErr  map[int]error
	updates    map[int]update
	lastWIQL   string
	getCalled  int
	idsFetched []int
}

type update struct {
	rev   int
	title string
	tags  string
}

func newMockClient(items ...types.WorkItem) *mockClient {
	m := &mockClient{
		items:     make(map[int]types.WorkItem),
		updates:   make(map[int]update),
		updateErr: make(map[int]error),
	}
	for _, item := range items {
		m.items[item.ID] = item
		m.order = append(m.order, item.ID)
	}
	return m
}

func (m *mockClient) QueryIDs(ctx context.Context, wiql string) ([]int, error) {
	m.lastWIQL = wiql
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return append([]int(nil), m.order...), nil
}

func (m *mockClient) GetWorkItems(ctx context.Context, ids []int) ([]types.WorkItem, error) {
	m.getCalled++
	m.idsFetched = append([]int(nil), ids...)
	var items []types.WorkItem
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *mockClient) UpdateWorkItem(ctx context.Context, id, rev int, title, tags string) error {
	if err := m.updateErr[id]; err != nil {
		return err
	}
	m.updates[id] = update{rev: rev, title: title, tags: tags}
	return nil
}

func TestRunPromotesLeadingTags(t *testing.T) {
	client := newMockClient(
		types.WorkItem{ID: 1, Rev: 4, Title: "[UI] [critical] fix the save dialog", Tags: "regression", Type: "Bug"},
		types.WorkItem{ID: 2, Rev: 1, Title: "Already clean title", Tags: "UI", Type: "Bug"},
		types.WorkItem{ID: 3, Rev: 2, Title: "Trailing bracket stays [End]", Type: "Bug"},
	)

	summary, err := New(client, Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, 2, summary.Unchanged)
	assert.Equal(t, 0, summary.Failed)

	got, ok := client.updates[1]
	require.True(t, ok)
	assert.Equal(t, 4, got.rev)
	assert.Equal(t, "Fix the save dialog", got.title)
	assert.Equal(t, "regression; UI; critical", got.tags)

	// Untouched items must not be written back.
	assert.NotContains(t, client.updates, 2)
	assert.NotContains(t, client.updates, 3)

	require.Len(t, summary.Changes, 1)
	assert.Equal(t, []string{"UI", "critical"}, summary.Changes[0].AddedTags)
}

func TestRunTitleOnlyChange(t *testing.T) {
	// Tag already present; only the title needs rewriting.
	client := newMockClient(
		types.WorkItem{ID: 5, Rev: 1, Title: "[UI] fix it", Tags: "ui", Type: "Bug"},
	)

	summary, err := New(client, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Changed)

	got := client.updates[5]
	assert.Equal(t, "Fix it", got.title)
	assert.Equal(t, "ui", got.tags)
	assert.Empty(t, summary.Changes[0].AddedTags)
}

func TestRunDryRun(t *testing.T) {
	client := newMockClient(
		types.WorkItem{ID: 1, Rev: 1, Title: "[UI] fix it", Type: "Bug"},
	)

	summary, err := New(client, Options{DryRun: true}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Changed)
	assert.Empty(t, client.updates, "dry run must not write back")
	require.Len(t, summary.Changes, 1)
	assert.Equal(t, "Fix it", summary.Changes[0].NewTitle)
}

func TestRunMarkerScopesQuery(t *testing.T) {
	client := newMockClient()
	_, err := New(client, Options{MarkerTag: "tagsweep-run-abc"}).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, client.lastWIQL, "CONTAINS 'tagsweep-run-abc'")
	assert.Contains(t, client.lastWIQL, "[System.WorkItemType] = 'Bug'")
}

func TestBugQueryEscapesQuotes(t *testing.T) {
	wiql := BugQuery("o'brien's-run")
	assert.Contains(t, wiql, "CONTAINS 'o''brien''s-run'")
	assert.NotContains(t, wiql, "CONTAINS 'o'brien")
}

func TestRunLimit(t *testing.T) {
	client := newMockClient(
		types.WorkItem{ID: 1, Rev: 1, Title: "a", Type: "Bug"},
		types.WorkItem{ID: 2, Rev: 1, Title: "b", Type: "Bug"},
		types.WorkItem{ID: 3, Rev: 1, Title: "c", Type: "Bug"},
	)

	_, err := New(client, Options{Limit: 2}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, client.idsFetched)
}

func TestRunUpdateFailureContinues(t *testing.T) {
	client := newMockClient(
		types.WorkItem{ID: 1, Rev: 1, Title: "[a] one", Type: "Bug"},
		types.WorkItem{ID: 2, Rev: 1, Title: "[b] two", Type: "Bug"},
	)
	client.updateErr[1] = errors.New("rev mismatch")

	summary, err := New(client, Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Changed)
	require.Len(t, summary.Changes, 2)
	assert.Error(t, summary.Changes[0].Err)
	assert.NoError(t, summary.Changes[1].Err)
	assert.Contains(t, client.updates, 2)
}

func TestRunQueryError(t *testing.T) {
	client := newMockClient()
	client.queryErr = errors.New("boom")

	_, err := New(client, Options{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query work items")
}
