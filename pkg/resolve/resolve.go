// Package resolve turns an HTTP request item, its merged configuration and a
// variable store into one concrete, fully interpolated request definition.
//
// Resolution never performs I/O and never validates the resulting URL.
package resolve

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/blackcoderx/opencollection/pkg/collection"
	"github.com/blackcoderx/opencollection/pkg/merge"
	"github.com/blackcoderx/opencollection/pkg/template"
)

// Request is a resolved request ready for a transport. It is built fresh per
// (item, environment) pair and must be treated as immutable.
type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams map[string]string
	Auth        collection.Auth
	Body        collection.Body
}

// Resolution is the result of Resolve: the request plus the placeholder names
// that could not be resolved, de-duplicated in first-seen order.
type Resolution struct {
	Request    *Request
	Unresolved []string
}

// Resolve builds the concrete request for item.
//
// The order is fixed: URL, header values, params (path params are substituted
// into the URL, query params appended), auth fields, then body. Disabled
// headers, params and form fields are dropped.
func Resolve(item *collection.HTTPRequest, cfg merge.Config, vars template.Lookuper) (*Resolution, error) {
	if item == nil {
		return nil, fmt.Errorf("resolve: nil request")
	}
	var unresolved []string
	interp := func(s string) string { return template.String(s, vars, &unresolved) }

	method := strings.ToUpper(strings.TrimSpace(item.Method))
	if method == "" {
		method = "GET"
	}
	req := &Request{
		Method:      method,
		Headers:     make(map[string]string, len(cfg.Headers)),
		QueryParams: make(map[string]string),
	}

	// 1. URL
	rawURL := interp(item.URL)

	// 2. headers
	for _, h := range cfg.Headers {
		if h.Disabled {
			continue
		}
		req.Headers[h.Name] = interp(h.Value)
	}

	// 3. params
	var query []queryPair
	for _, p := range item.Params {
		if p.Disabled {
			continue
		}
		value := interp(p.Value)
		switch p.Type {
		case collection.ParamPath:
			rawURL = substitutePathParam(rawURL, p.Name, value)
		case collection.ParamQuery:
			query = append(query, queryPair{p.Name, value})
			req.QueryParams[p.Name] = value
		default:
			return nil, &collection.StructuralError{
				Item:   item.ID,
				Reason: fmt.Sprintf("param %q type %q", p.Name, p.Type),
				Err:    collection.ErrUnknownType,
			}
		}
	}
	req.URL = appendQuery(rawURL, query)

	// 4. auth
	auth, err := resolveAuth(cfg.Auth, interp)
	if err != nil {
		return nil, &collection.StructuralError{Item: item.ID, Err: err}
	}
	req.Auth = auth

	// 5. body
	body, err := resolveBody(item.Body, interp)
	if err != nil {
		return nil, &collection.StructuralError{Item: item.ID, Err: err}
	}
	req.Body = body

	return &Resolution{Request: req, Unresolved: dedupe(unresolved)}, nil
}

func resolveAuth(a collection.Auth, interp func(string) string) (collection.Auth, error) {
	switch v := a.(type) {
	case nil:
		return nil, nil
	case collection.NoAuth:
		return v, nil
	case collection.BasicAuth:
		return collection.BasicAuth{Username: interp(v.Username), Password: interp(v.Password)}, nil
	case collection.BearerAuth:
		return collection.BearerAuth{Token: interp(v.Token)}, nil
	case collection.DigestAuth:
		return collection.DigestAuth{Username: interp(v.Username), Password: interp(v.Password)}, nil
	case collection.APIKeyAuth:
		return collection.APIKeyAuth{Key: interp(v.Key), Value: interp(v.Value), Placement: v.Placement}, nil
	case collection.AWSV4Auth:
		return collection.AWSV4Auth{
			AccessKeyID:     interp(v.AccessKeyID),
			SecretAccessKey: interp(v.SecretAccessKey),
			SessionToken:    interp(v.SessionToken),
			Service:         interp(v.Service),
			Region:          interp(v.Region),
			ProfileName:     interp(v.ProfileName),
		}, nil
	case collection.NTLMAuth:
		return collection.NTLMAuth{Username: interp(v.Username), Password: interp(v.Password), Domain: interp(v.Domain)}, nil
	case collection.WSSEAuth:
		return collection.WSSEAuth{Username: interp(v.Username), Password: interp(v.Password)}, nil
	}
	return nil, fmt.Errorf("auth variant %T: %w", a, collection.ErrUnknownType)
}

func resolveBody(b collection.Body, interp func(string) string) (collection.Body, error) {
	switch v := b.(type) {
	case nil:
		return nil, nil
	case collection.RawBody:
		return collection.RawBody{Kind: v.Kind, Data: interp(v.Data)}, nil
	case collection.FormBody:
		fields := make([]collection.FormField, 0, len(v.Fields))
		for _, f := range v.Fields {
			if f.Disabled {
				continue
			}
			f.Value = interp(f.Value)
			fields = append(fields, f)
		}
		return collection.FormBody{Kind: v.Kind, Fields: fields}, nil
	case collection.FileBody:
		files := make([]collection.FileEntry, 0, len(v.Files))
		for _, f := range v.Files {
			if f.Selected {
				files = append(files, f)
			}
		}
		return collection.FileBody{Files: files}, nil
	}
	return nil, fmt.Errorf("body variant %T: %w", b, collection.ErrUnknownType)
}

type queryPair struct {
	name, value string
}

// substitutePathParam replaces "/:name" segments and "{name}" occurrences.
// A ":name" only matches at the start of a segment and when followed by a
// segment boundary, so ports and longer names are left alone.
func substitutePathParam(rawURL, name, value string) string {
	if name == "" {
		return rawURL
	}
	rawURL = replaceBraced(rawURL, name, value)

	token := "/:" + name
	var sb strings.Builder
	rest := rawURL
	for {
		i := strings.Index(rest, token)
		if i < 0 {
			sb.WriteString(rest)
			break
		}
		after := i + len(token)
		sb.WriteString(rest[:i])
		if after == len(rest) || strings.ContainsRune("/?#;.", rune(rest[after])) {
			sb.WriteString("/" + value)
		} else {
			sb.WriteString(token)
		}
		rest = rest[after:]
	}
	return sb.String()
}

// replaceBraced replaces "{name}" with value unless the braces belong to an
// unresolved "{{name}}" placeholder, which must survive verbatim.
func replaceBraced(rawURL, name, value string) string {
	token := "{" + name + "}"
	var sb strings.Builder
	rest := rawURL
	for {
		i := strings.Index(rest, token)
		if i < 0 {
			sb.WriteString(rest)
			break
		}
		after := i + len(token)
		doubled := (i > 0 && rest[i-1] == '{') || (after < len(rest) && rest[after] == '}')
		sb.WriteString(rest[:i])
		if doubled {
			sb.WriteString(token)
		} else {
			sb.WriteString(value)
		}
		rest = rest[after:]
	}
	return sb.String()
}

func appendQuery(rawURL string, query []queryPair) string {
	if len(query) == 0 {
		return rawURL
	}
	fragment := ""
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		rawURL, fragment = rawURL[:i], rawURL[i:]
	}
	var sb strings.Builder
	sb.WriteString(rawURL)
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
		if strings.HasSuffix(rawURL, "?") || strings.HasSuffix(rawURL, "&") {
			sep = ""
		}
	}
	for _, q := range query {
		sb.WriteString(sep)
		sb.WriteString(url.QueryEscape(q.name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(q.value))
		sep = "&"
	}
	sb.WriteString(fragment)
	return sb.String()
}

func dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
