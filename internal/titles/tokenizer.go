// Package titles implements the title tokenizer: it splits a raw work-item
// title into bracket-derived tags and a normalized cleaned title.
//
// Only a leading run of bracket groups is eligible for tag extraction.
// Bracket syntax anywhere else in the title is plain text. The parse is a
// pure function: every input, including malformed bracket syntax, maps to
// a defined result and no error is ever returned.
package titles

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// UntitledFallback is the cleaned title used when stripping the leading
// bracket run leaves nothing behind (e.g. "[All][Brackets][Only]").
const UntitledFallback = "Untitled Work Item"

// Result is the outcome of parsing one title.
type Result struct {
	// Title is the cleaned title: leading bracket run removed, whitespace
	// runs collapsed, one leading ':' stripped, first rune uppercased.
	// Never empty; falls back to UntitledFallback.
	Title string

	// Tags holds the trimmed, non-empty bracket contents from the leading
	// run. Groups appear left to right; within a nested group, outer
	// before inner. Nil when the title has no leading run.
	Tags []string
}

// Parse extracts leading bracket tags from title and normalizes the rest.
//
// The leading run is parsed with a commit-or-discard policy: if any group
// in the run has an unclosed bracket, the entire title is treated as
// literal text and no tags are extracted.
func Parse(title string) Result {
	start := skipSpace(title, 0)
	if start >= len(title) || title[start] != '[' {
		return Result{Title: normalize(title)}
	}

	var tags []string
	pos := start
	for pos < len(title) && title[pos] == '[' {
		groupTags, next, ok := parseGroup(title, pos)
		if !ok {
			// Unclosed bracket somewhere in the run: the whole title,
			// brackets included, is literal.
			return Result{Title: normalize(title)}
		}
		tags = append(tags, groupTags...)
		pos = skipSpace(title, next)
	}

	return Result{Title: normalize(title[pos:]), Tags: tags}
}

// parseGroup consumes one bracket group starting at an opening '[' and
// returns its tags plus the offset just past the closing bracket.
//
// Nesting is tracked with an explicit stack of string buffers, one per
// open bracket. Text accumulates into the innermost open buffer; closing
// a bracket pops its buffer and, if the trimmed content is non-empty,
// records it as a tag. Buffers pop innermost-first, so a multi-tag group
// is reversed before returning to restore outer-to-inner order.
//
// ok is false when the input ends before every bracket is closed.
func parseGroup(s string, start int) (tags []string, end int, ok bool) {
	var stack []string

	i := start
	for i < len(s) {
		switch s[i] {
		case '[':
			stack = append(stack, "")
		case ']':
			top := len(stack) - 1
			if content := strings.TrimSpace(stack[top]); content != "" {
				tags = append(tags, content)
			}
			stack = stack[:top]
			if len(stack) == 0 {
				if len(tags) > 1 {
					reverse(tags)
				}
				return tags, i + 1, true
			}
		default:
			// Byte-wise append keeps multi-byte runes intact; '[' and ']'
			// never occur inside a UTF-8 continuation sequence.
			stack[len(stack)-1] += s[i : i+1]
		}
		i++
	}

	return nil, 0, false
}

// normalize applies the cleaned-title rules: collapse every run of
// whitespace to a single space, trim the ends, drop one leading ':',
// trim again, and uppercase the first rune. An empty result becomes
// UntitledFallback.
func normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimSpace(strings.TrimPrefix(s, ":"))
	if s == "" {
		return UntitledFallback
	}
	r, size := utf8.DecodeRuneInString(s)
	if upper := unicode.ToUpper(r); upper != r {
		return string(upper) + s[size:]
	}
	return s
}

// skipSpace returns the offset of the first non-whitespace rune at or
// after i.
func skipSpace(s string, i int) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

func reverse(ss []string) {
	for i, j := 0, len(ss)-1; i < j; i, j = i+1, j-1 {
		ss[i], ss[j] = ss[j], ss[i]
	}
}
