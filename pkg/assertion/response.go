package assertion

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Response is the part of an HTTP response an assertion can address.
//
// Body may be an already decoded JSON value (map[string]any, []any, float64,
// string, bool, nil) or the raw payload as string or []byte. Raw payloads
// that are valid JSON are decoded before evaluation; anything else is
// compared as text.
type Response struct {
	Status     int
	StatusText string
	Headers    map[string]string
	Body       any
	Duration   time.Duration
}

// tree exposes the response as the value rooted at "response".
func (r *Response) tree() map[string]any {
	if r == nil {
		return map[string]any{}
	}
	headers := make(map[string]any, len(r.Headers))
	for k, v := range r.Headers {
		headers[k] = v
	}
	return map[string]any{
		"status":       r.Status,
		"statusText":   r.StatusText,
		"headers":      headers,
		"body":         decodeBody(r.Body),
		"responseTime": r.Duration.Milliseconds(),
	}
}

func decodeBody(body any) any {
	var raw string
	switch b := body.(type) {
	case string:
		raw = b
	case []byte:
		raw = string(bytes.TrimSpace(b))
	default:
		return body
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" && gjson.Valid(trimmed) {
		return gjson.Parse(trimmed).Value()
	}
	return raw
}

// lookup walks a dotted expression rooted at "response" (or "res").
// Bracket indexes are accepted as an alternative spelling: "items[0].id".
func lookup(root map[string]any, expr string) (any, bool) {
	expr = strings.TrimSpace(expr)
	expr = strings.NewReplacer("[", ".", "]", "").Replace(expr)

	segments := strings.Split(expr, ".")
	if segments[0] != "response" && segments[0] != "res" {
		return nil, false
	}

	var cur any = root
	for i, seg := range segments[1:] {
		if seg == "" {
			return nil, false
		}
		// header names are matched case-insensitively, body keys exactly
		fold := i == 1 && segments[1] == "headers"
		next, ok := step(cur, seg, fold)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func step(cur any, seg string, fold bool) (any, bool) {
	switch v := cur.(type) {
	case map[string]any:
		if next, ok := v[seg]; ok {
			return next, true
		}
		if fold {
			if next, ok := foldKey(v, seg); ok {
				return next, true
			}
		}
		if seg == "length" {
			return len(v), true
		}
	case []any:
		if seg == "length" {
			return len(v), true
		}
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(v) {
			return nil, false
		}
		return v[i], true
	case string:
		if seg == "length" {
			return len([]rune(v)), true
		}
	}
	return nil, false
}

// foldKey finds the single key of m equal to key under case folding. Several
// matches are ambiguous and reported as not found.
func foldKey(m map[string]any, key string) (any, bool) {
	var (
		found any
		n     int
	)
	for k, v := range m {
		if strings.EqualFold(k, key) {
			found = v
			n++
		}
	}
	return found, n == 1
}
