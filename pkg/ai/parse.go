package ai

import (
	"fmt"
	"strings"

	strip "github.com/grokify/html-strip-tags-go"
	"github.com/tidwall/gjson"
)

// showsField is the wrapper key some completions nest the list under.
const showsField = "shows"

// ParseShows reads show records out of raw completion text. It accepts a bare
// JSON array or an object with a "shows" array, optionally wrapped in a
// markdown fence or surrounded by prose.
func ParseShows(content string) ([]ShowRecord, error) {
	block := extractJSONBlock(content)
	if block == "" || !gjson.Valid(block) {
		return nil, fmt.Errorf("%w: no JSON block found", ErrUnparseable)
	}

	parsed := gjson.Parse(block)
	switch {
	case parsed.IsArray():
	case parsed.IsObject() && parsed.Get(showsField).IsArray():
		parsed = parsed.Get(showsField)
	default:
		return nil, fmt.Errorf("%w: expected an array or an object with %q", ErrUnparseable, showsField)
	}

	records := make([]ShowRecord, 0)
	for _, item := range parsed.Array() {
		if !item.IsObject() {
			continue
		}
		records = append(records, ShowRecord{
			Date:          strings.TrimSpace(item.Get("date").String()),
			Time:          labelText(item.Get("time")),
			VenueLocation: labelText(item.Get("venue_location")),
			Comedians:     comedians(item.Get("comedians")),
			ShowURL:       strings.TrimSpace(item.Get("show_url").String()),
		})
	}
	return records, nil
}

// labelText cleans a field that ends up in a slot label. Backends sometimes
// copy markup from the page into these.
func labelText(v gjson.Result) string {
	return strings.Join(strings.Fields(strip.StripTags(v.String())), " ")
}

// comedians keeps names exactly as listed. A lone string is taken as one name.
func comedians(v gjson.Result) []string {
	if v.IsArray() {
		out := make([]string, 0, len(v.Array()))
		for _, n := range v.Array() {
			if n.Type == gjson.String {
				out = append(out, n.String())
			}
		}
		return out
	}
	if v.Type == gjson.String && v.String() != "" {
		return []string{v.String()}
	}
	return []string{}
}

// extractJSONBlock prefers the first fenced block, then the text itself when it
// is already valid JSON, then the first bracket-delimited block.
func extractJSONBlock(s string) string {
	if body, ok := fencedBlock(s); ok {
		s = body
	}
	s = strings.TrimSpace(s)
	if gjson.Valid(s) {
		return s
	}
	return bracketBlock(s)
}

// fencedBlock returns the body of the first ``` fence, without its language tag.
func fencedBlock(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	rest := s[start+3:]

	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		tag := strings.TrimSpace(rest[:nl])
		if !strings.ContainsAny(tag, "[{") {
			rest = rest[nl+1:]
		}
	}

	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return rest, true
}

// bracketBlock returns the first balanced [...] or {...} span in s that is
// valid JSON. Spans in leading prose such as "[as requested]" are skipped.
func bracketBlock(s string) string {
	for from := 0; from < len(s); {
		off := strings.IndexAny(s[from:], "[{")
		if off < 0 {
			return ""
		}
		start := from + off
		if end := balancedEnd(s, start); end > 0 && gjson.Valid(s[start:end]) {
			return s[start:end]
		}
		from = start + 1
	}
	return ""
}

// balancedEnd returns the index just past the bracket closing the one at
// start, skipping brackets inside JSON strings, or -1 if it never closes.
func balancedEnd(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}

	return -1
}
