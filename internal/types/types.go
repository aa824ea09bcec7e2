// Package types defines the work-item model shared by the tracker client,
// the sweep engine, and the fixture harness.
package types

import (
	"fmt"
	"strings"
)

// TagSeparator joins the tag list into the service's wire format.
// The service accepts bare ";" on write but always renders "; " on read,
// so we write the canonical form to keep diffs stable.
const TagSeparator = "; "

// WorkItem is the subset of a tracked work item this tool reads and
// writes. Field names mirror the service's reference names
// (System.Title, System.Tags, ...).
type WorkItem struct {
	ID    int    `json:"id"`
	Rev   int    `json:"rev"`
	Title string `json:"title"`
	Tags  string `json:"tags"` // semicolon-delimited, may be empty
	Type  string `json:"type"`
	State string `json:"state,omitempty"`
}

// Validate checks the fields this tool is about to write back.
func (w *WorkItem) Validate() error {
	if strings.TrimSpace(w.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(w.Title) > 255 {
		return fmt.Errorf("title must be 255 characters or less (got %d)", len(w.Title))
	}
	if w.ID < 0 {
		return fmt.Errorf("work item ID cannot be negative (got %d)", w.ID)
	}
	return nil
}

// SplitTags parses a semicolon-delimited tag string into individual
// tags, trimming whitespace and dropping empty entries.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var tags []string
	for _, part := range strings.Split(s, ";") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// JoinTags renders a tag list in the service's wire format.
func JoinTags(tags []string) string {
	return strings.Join(tags, TagSeparator)
}

// HasTag reports whether the semicolon-delimited tag string contains
// tag, comparing case-insensitively.
func HasTag(tags string, tag string) bool {
	for _, t := range SplitTags(tags) {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// MergeTags unions add into the existing semicolon-delimited tag string.
// Comparison is case-insensitive; existing tags keep their position and
// original casing, and new tags are appended in the order given. The
// boolean reports whether any tag was actually added.
func MergeTags(existing string, add []string) (string, bool) {
	tags := SplitTags(existing)
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		seen[strings.ToLower(tag)] = true
	}

	added := false
	for _, tag := range add {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
		added = true
	}

	return JoinTags(tags), added
}
