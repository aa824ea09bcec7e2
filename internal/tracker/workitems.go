package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/tagsweep/tagsweep/internal/types"
)

// Reference names for the fields this tool touches.
const (
	FieldTitle = "System.Title"
	FieldTags  = "System.Tags"
	FieldType  = "System.WorkItemType"
	FieldState = "System.State"
)

// batchSize is the service's maximum IDs per workitemsbatch call.
const batchSize = 200

// maxConcurrentPages bounds parallel batch-page fetches.
const maxConcurrentPages = 4

// QueryIDs runs a WIQL query and returns the matched work-item IDs in
// the order the service reports them.
func (c *Client) QueryIDs(ctx context.Context, wiql string) ([]int, error) {
	body, err := json.Marshal(map[string]string{"query": wiql})
	if err != nil {
		return nil, fmt.Errorf("failed to encode WIQL query: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.url("wiql", ""), "application/json", body)
	if err != nil {
		return nil, fmt.Errorf("WIQL query failed: %w", err)
	}

	var result struct {
		WorkItems []struct {
			ID int `json:"id"`
		} `json:"workItems"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to decode WIQL response: %w", err)
	}

	ids := make([]int, len(result.WorkItems))
	for i, wi := range result.WorkItems {
		ids[i] = wi.ID
	}
	return ids, nil
}

// GetWorkItems fetches the given work items via the batch endpoint,
// 200 IDs per page. Pages are fetched concurrently (bounded) and the
// results are returned in the order of ids.
func (c *Client) GetWorkItems(ctx context.Context, ids []int) ([]types.WorkItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var chunks [][]int
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}

	pages := make([][]types.WorkItem, len(chunks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPages)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			page, err := c.getBatch(ctx, chunk)
			if err != nil {
				return err
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]types.WorkItem, 0, len(ids))
	for _, page := range pages {
		items = append(items, page...)
	}
	return items, nil
}

func (c *Client) getBatch(ctx context.Context, ids []int) ([]types.WorkItem, error) {
	body, err := json.Marshal(map[string]interface{}{
		"ids":    ids,
		"fields": []string{FieldTitle, FieldTags, FieldType, FieldState},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.url("workitemsbatch", ""), "application/json", body)
	if err != nil {
		return nil, fmt.Errorf("batch fetch failed: %w", err)
	}

	var result struct {
		Value []workItemEnvelope `json:"value"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}

	items := make([]types.WorkItem, len(result.Value))
	for i, env := range result.Value {
		items[i] = env.toWorkItem()
	}
	return items, nil
}

// workItemEnvelope is the service's wire shape for one work item.
type workItemEnvelope struct {
	ID     int                    `json:"id"`
	Rev    int                    `json:"rev"`
	Fields map[string]interface{} `json:"fields"`
}

func (e workItemEnvelope) toWorkItem() types.WorkItem {
	str := func(field string) string {
		if v, ok := e.Fields[field].(string); ok {
			return v
		}
		return ""
	}
	return types.WorkItem{
		ID:    e.ID,
		Rev:   e.Rev,
		Title: str(FieldTitle),
		Tags:  str(FieldTags),
		Type:  str(FieldType),
		State: str(FieldState),
	}
}

// patchOp is one JSON Patch operation.
type patchOp struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

// UpdateWorkItem writes a new title and tag string to one work item.
// The patch includes a revision test so a concurrent edit fails the
// update instead of being silently overwritten.
func (c *Client) UpdateWorkItem(ctx context.Context, id, rev int, title, tags string) error {
	ops := []patchOp{
		{Op: "test", Path: "/rev", Value: rev},
		{Op: "add", Path: "/fields/" + FieldTitle, Value: title},
		{Op: "add", Path: "/fields/" + FieldTags, Value: tags},
	}
	body, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}

	url := c.url(fmt.Sprintf("workitems/%d", id), "")
	if _, err := c.do(ctx, http.MethodPatch, url, "application/json-patch+json", body); err != nil {
		return fmt.Errorf("failed to update work item %d: %w", id, err)
	}
	return nil
}

// CreateWorkItem creates a work item of the given type. Used only by
// the fixture harness.
func (c *Client) CreateWorkItem(ctx context.Context, itemType, title, tags string) (types.WorkItem, error) {
	ops := []patchOp{
		{Op: "add", Path: "/fields/" + FieldTitle, Value: title},
	}
	if tags != "" {
		ops = append(ops, patchOp{Op: "add", Path: "/fields/" + FieldTags, Value: tags})
	}
	body, err := json.Marshal(ops)
	if err != nil {
		return types.WorkItem{}, fmt.Errorf("failed to encode patch: %w", err)
	}

	url := c.url("workitems/$"+itemType, "")
	resp, err := c.do(ctx, http.MethodPost, url, "application/json-patch+json", body)
	if err != nil {
		return types.WorkItem{}, fmt.Errorf("failed to create work item: %w", err)
	}

	var env workItemEnvelope
	if err := json.Unmarshal(resp, &env); err != nil {
		return types.WorkItem{}, fmt.Errorf("failed to decode created work item: %w", err)
	}
	return env.toWorkItem(), nil
}

// DeleteWorkItem permanently deletes a work item. Used only by the
// fixture harness teardown.
func (c *Client) DeleteWorkItem(ctx context.Context, id int) error {
	url := c.url(fmt.Sprintf("workitems/%d", id), "destroy=true")
	if _, err := c.do(ctx, http.MethodDelete, url, "", nil); err != nil {
		return fmt.Errorf("failed to delete work item %d: %w", id, err)
	}
	return nil
}
