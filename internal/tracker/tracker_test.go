package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:           baseURL,
		Project:           "Fabrikam",
		Token:             "secret-pat",
		RequestsPerSecond: 1000,
		Retry: RetryConfig{
			MaxRetries:        2,
			InitialBackoff:    time.Millisecond,
			MaxBackoff:        5 * time.Millisecond,
			BackoffMultiplier: 2.0,
			Timeout:           5 * time.Second,
		},
	}
}

func TestRetryConfigDefaults(t *testing.T) {
	// Each unset knob gets its default even when others are tuned.
	partial := RetryConfig{MaxRetries: 7}.withDefaults()
	full := DefaultRetryConfig()

	assert.Equal(t, 7, partial.MaxRetries)
	assert.Equal(t, full.InitialBackoff, partial.InitialBackoff)
	assert.Equal(t, full.MaxBackoff, partial.MaxBackoff)
	assert.Equal(t, full.BackoffMultiplier, partial.BackoffMultiplier)
	assert.Equal(t, full.Timeout, partial.Timeout)

	assert.Equal(t, full, RetryConfig{}.withDefaults())

	// Explicit settings are never overwritten.
	tuned := RetryConfig{
		MaxRetries:        1,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 1.5,
		Timeout:           time.Minute,
	}
	assert.Equal(t, tuned, tuned.withDefaults())
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig("https://tracker.example.com/org")
	assert.NoError(t, cfg.Validate())

	for _, strip := range []func(*Config){
		func(c *Config) { c.BaseURL = "" },
		func(c *Config) { c.Project = " " },
		func(c *Config) { c.Token = "" },
	} {
		broken := cfg
		strip(&broken)
		assert.Error(t, broken.Validate())
	}
}

func TestAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"workItems":[]}`)
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.QueryIDs(context.Background(), "SELECT [System.Id] FROM WorkItems")
	require.NoError(t, err)

	// base64(":secret-pat") — empty username, PAT as password
	assert.Equal(t, "Basic OnNlY3JldC1wYXQ=", gotAuth)
}

func TestQueryIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/Fabrikam/_apis/wit/wiql")
		assert.Equal(t, "7.1", r.URL.Query().Get("api-version"))

		var body struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body.Query, "Bug")

		fmt.Fprint(w, `{"workItems":[{"id":7},{"id":12},{"id":3}]}`)
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	ids, err := c.QueryIDs(context.Background(), "SELECT [System.Id] FROM WorkItems WHERE [System.WorkItemType] = 'Bug'")
	require.NoError(t, err)
	assert.Equal(t, []int{7, 12, 3}, ids)
}

func TestGetWorkItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IDs    []int    `json:"ids"`
			Fields []string `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body.Fields, FieldTitle)
		assert.Contains(t, body.Fields, FieldTags)

		fmt.Fprint(w, `{"count":2,"value":[
			{"id":7,"rev":2,"fields":{"System.Title":"[UI] fix dialog","System.Tags":"old","System.WorkItemType":"Bug","System.State":"New"}},
			{"id":12,"rev":1,"fields":{"System.Title":"plain title","System.WorkItemType":"Bug"}}
		]}`)
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	items, err := c.GetWorkItems(context.Background(), []int{7, 12})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, 7, items[0].ID)
	assert.Equal(t, 2, items[0].Rev)
	assert.Equal(t, "[UI] fix dialog", items[0].Title)
	assert.Equal(t, "old", items[0].Tags)
	assert.Equal(t, "Bug", items[0].Type)
	assert.Equal(t, "New", items[0].State)

	// Missing fields decode to empty strings, not errors.
	assert.Equal(t, "", items[1].Tags)
	assert.Equal(t, "", items[1].State)
}

func TestGetWorkItemsEmpty(t *testing.T) {
	c, err := New(testConfig("https://unused.example.com"))
	require.NoError(t, err)

	items, err := c.GetWorkItems(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestUpdateWorkItemPatch(t *testing.T) {
	var ops []patchOp
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "application/json-patch+json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ops))
		fmt.Fprint(w, `{"id":7,"rev":3,"fields":{}}`)
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	require.NoError(t, c.UpdateWorkItem(context.Background(), 7, 2, "Fix dialog", "UI; critical"))

	require.Len(t, ops, 3)
	assert.Equal(t, patchOp{Op: "test", Path: "/rev", Value: float64(2)}, ops[0])
	assert.Equal(t, patchOp{Op: "add", Path: "/fields/System.Title", Value: "Fix dialog"}, ops[1])
	assert.Equal(t, patchOp{Op: "add", Path: "/fields/System.Tags", Value: "UI; critical"}, ops[2])
}

func TestCreateAndDeleteWorkItem(t *testing.T) {
	var deletedPath, deletedQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Contains(t, r.URL.Path, "workitems/$Bug")
			fmt.Fprint(w, `{"id":99,"rev":1,"fields":{"System.Title":"[x] seeded","System.Tags":"marker"}}`)
		case http.MethodDelete:
			deletedPath = r.URL.Path
			deletedQuery = r.URL.RawQuery
			fmt.Fprint(w, `{}`)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	item, err := c.CreateWorkItem(context.Background(), "Bug", "[x] seeded", "marker")
	require.NoError(t, err)
	assert.Equal(t, 99, item.ID)
	assert.Equal(t, "marker", item.Tags)

	require.NoError(t, c.DeleteWorkItem(context.Background(), 99))
	assert.Contains(t, deletedPath, "workitems/99")
	assert.Contains(t, deletedQuery, "destroy=true")
}

func TestRetryOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"workItems":[{"id":1}]}`)
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	ids, err := c.QueryIDs(context.Background(), "SELECT [System.Id] FROM WorkItems")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids)
	assert.Equal(t, 3, attempts)
}

func TestNoRetryOnAuthFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.QueryIDs(context.Background(), "SELECT [System.Id] FROM WorkItems")
	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestRetriesExhausted(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.QueryIDs(context.Background(), "SELECT [System.Id] FROM WorkItems")
	require.Error(t, err)
	assert.Equal(t, 3, attempts) // initial + 2 retries
}
