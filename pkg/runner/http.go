package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blackcoderx/opencollection/pkg/collection"
	"github.com/blackcoderx/opencollection/pkg/resolve"
)

// Client sends resolved requests over HTTP.
type Client struct {
	client  *http.Client
	baseDir string
}

// NewClient creates a client. File paths in bodies are relative to baseDir.
// A zero timeout means 30 seconds.
func NewClient(timeout time.Duration, baseDir string) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseDir: baseDir,
	}
}

// Response is the transport-level view of an HTTP response.
type Response struct {
	StatusCode int               `json:"status_code"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	Duration   time.Duration     `json:"duration"`
}

// Send performs req.
func (c *Client) Send(ctx context.Context, req *resolve.Request) (*Response, error) {
	startTime := time.Now()

	bodyReader, contentType, err := c.body(req.Body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	// A multipart body always carries its own boundary.
	if contentType != "" && (httpReq.Header.Get("Content-Type") == "" || bodyKind(req.Body) == collection.BodyMultipartForm) {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if err := applyAuth(httpReq, req.Auth); err != nil {
		return nil, err
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	headers := make(map[string]string)
	for key, values := range httpResp.Header {
		headers[key] = strings.Join(values, ", ")
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    headers,
		Body:       string(bodyBytes),
		Duration:   time.Since(startTime),
	}, nil
}

// FormatResponse formats the response for display.
func (r *Response) FormatResponse() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Status: %s (%dms)\n\n", r.Status, r.Duration.Milliseconds()))

	keys := make([]string, 0, len(r.Headers))
	for key := range r.Headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	sb.WriteString("Headers:\n")
	for _, key := range keys {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", key, r.Headers[key]))
	}
	sb.WriteString("\n")

	sb.WriteString("Body:\n")
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, []byte(r.Body), "", "  "); err == nil {
		sb.WriteString(prettyJSON.String())
	} else {
		sb.WriteString(r.Body)
	}

	return sb.String()
}

func bodyKind(b collection.Body) collection.BodyType {
	if b == nil {
		return ""
	}
	return b.Type()
}

var rawContentTypes = map[collection.BodyType]string{
	collection.BodyJSON:   "application/json",
	collection.BodyXML:    "application/xml",
	collection.BodyText:   "text/plain",
	collection.BodySPARQL: "application/sparql-query",
}

// body encodes a resolved body and returns its default content type.
func (c *Client) body(b collection.Body) (io.Reader, string, error) {
	switch v := b.(type) {
	case nil:
		return nil, "", nil
	case collection.RawBody:
		return strings.NewReader(v.Data), rawContentTypes[v.Kind], nil
	case collection.FormBody:
		if v.Kind == collection.BodyFormURLEncoded {
			form := url.Values{}
			for _, f := range v.Fields {
				form.Add(f.Name, f.Value)
			}
			return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil
		}
		return c.multipart(v.Fields)
	case collection.FileBody:
		if len(v.Files) == 0 {
			return nil, "", nil
		}
		f := v.Files[0]
		path, err := c.path(f.FilePath)
		if err != nil {
			return nil, "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read body file: %w", err)
		}
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return bytes.NewReader(data), contentType, nil
	}
	return nil, "", fmt.Errorf("body variant %T: %w", b, collection.ErrUnknownType)
}

func (c *Client) multipart(fields []collection.FormField) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if !f.IsFile {
			if f.ContentType == "" {
				if err := w.WriteField(f.Name, f.Value); err != nil {
					return nil, "", fmt.Errorf("failed to write form field: %w", err)
				}
				continue
			}
			h := textproto.MIMEHeader{}
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, f.Name))
			h.Set("Content-Type", f.ContentType)
			part, err := w.CreatePart(h)
			if err != nil {
				return nil, "", fmt.Errorf("failed to write form field: %w", err)
			}
			if _, err := io.WriteString(part, f.Value); err != nil {
				return nil, "", fmt.Errorf("failed to write form field: %w", err)
			}
			continue
		}

		path, err := c.path(f.Value)
		if err != nil {
			return nil, "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read form file: %w", err)
		}
		part, err := w.CreateFormFile(f.Name, filepath.Base(f.Value))
		if err != nil {
			return nil, "", fmt.Errorf("failed to write form file: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", fmt.Errorf("failed to write form file: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// ErrOutsideBaseDir is returned when a body file resolves to a path outside
// the client's base directory.
var ErrOutsideBaseDir = errors.New("path outside collection directory")

// path resolves a body file path against baseDir. Paths that escape baseDir,
// through ".." or as absolute paths, are rejected.
func (c *Client) path(p string) (string, error) {
	if c.baseDir == "" {
		return p, nil
	}
	target := p
	if !filepath.IsAbs(target) {
		target = filepath.Join(c.baseDir, target)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", p, err)
	}
	root, err := filepath.Abs(c.baseDir)
	if err != nil {
		return "", fmt.Errorf("invalid base directory: %w", err)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", p, ErrOutsideBaseDir)
	}
	return abs, nil
}
