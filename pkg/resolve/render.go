package resolve

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/blackcoderx/opencollection/pkg/collection"
)

// AuthFields flattens an auth block into its discriminator and field values,
// for display and serialisation. Empty optional fields are omitted.
func AuthFields(a collection.Auth) map[string]string {
	if a == nil {
		return nil
	}
	out := map[string]string{"type": string(a.Type())}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	switch v := a.(type) {
	case collection.BasicAuth:
		set("username", v.Username)
		set("password", v.Password)
	case collection.BearerAuth:
		set("token", v.Token)
	case collection.DigestAuth:
		set("username", v.Username)
		set("password", v.Password)
	case collection.APIKeyAuth:
		set("key", v.Key)
		set("value", v.Value)
		set("placement", string(v.Placement))
	case collection.AWSV4Auth:
		set("accessKeyId", v.AccessKeyID)
		set("secretAccessKey", v.SecretAccessKey)
		set("sessionToken", v.SessionToken)
		set("service", v.Service)
		set("region", v.Region)
		set("profileName", v.ProfileName)
	case collection.NTLMAuth:
		set("username", v.Username)
		set("password", v.Password)
		set("domain", v.Domain)
	case collection.WSSEAuth:
		set("username", v.Username)
		set("password", v.Password)
	}
	return out
}

type jsonBody struct {
	Type   string          `json:"type"`
	Data   string          `json:"data,omitempty"`
	Fields []jsonFormField `json:"fields,omitempty"`
	Files  []jsonFileEntry `json:"files,omitempty"`
}

type jsonFormField struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	File        bool   `json:"file,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

type jsonFileEntry struct {
	FilePath    string `json:"filePath"`
	ContentType string `json:"contentType,omitempty"`
}

type jsonRequest struct {
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers"`
	QueryParams map[string]string `json:"queryParams"`
	Auth        map[string]string `json:"auth,omitempty"`
	Body        *jsonBody         `json:"body,omitempty"`
}

// MarshalJSON renders the request in the wire shape used by reporting tools.
func (r *Request) MarshalJSON() ([]byte, error) {
	out := jsonRequest{
		Method:      r.Method,
		URL:         r.URL,
		Headers:     r.Headers,
		QueryParams: r.QueryParams,
		Auth:        AuthFields(r.Auth),
	}
	switch b := r.Body.(type) {
	case collection.RawBody:
		out.Body = &jsonBody{Type: string(b.Kind), Data: b.Data}
	case collection.FormBody:
		out.Body = &jsonBody{Type: string(b.Kind)}
		for _, f := range b.Fields {
			out.Body.Fields = append(out.Body.Fields, jsonFormField{Name: f.Name, Value: f.Value, File: f.IsFile, ContentType: f.ContentType})
		}
	case collection.FileBody:
		out.Body = &jsonBody{Type: string(collection.BodyFile)}
		for _, f := range b.Files {
			out.Body.Files = append(out.Body.Files, jsonFileEntry{FilePath: f.FilePath, ContentType: f.ContentType})
		}
	}
	return json.Marshal(out)
}

// Curl renders the request as a curl command line. Auth types curl cannot
// express directly are rendered as a comment.
func (r *Request) Curl() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "curl -X %s %s", r.Method, shellQuote(r.curlURL()))

	names := make([]string, 0, len(r.Headers))
	for name := range r.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, " \\\n  -H %s", shellQuote(name+": "+r.Headers[name]))
	}

	switch a := r.Auth.(type) {
	case collection.BasicAuth:
		fmt.Fprintf(&sb, " \\\n  -u %s", shellQuote(a.Username+":"+a.Password))
	case collection.DigestAuth:
		fmt.Fprintf(&sb, " \\\n  --digest -u %s", shellQuote(a.Username+":"+a.Password))
	case collection.NTLMAuth:
		fmt.Fprintf(&sb, " \\\n  --ntlm -u %s", shellQuote(a.Username+":"+a.Password))
	case collection.BearerAuth:
		fmt.Fprintf(&sb, " \\\n  -H %s", shellQuote("Authorization: Bearer "+a.Token))
	case collection.APIKeyAuth:
		if a.Placement == collection.PlacementHeader {
			fmt.Fprintf(&sb, " \\\n  -H %s", shellQuote(a.Key+": "+a.Value))
		}
	case collection.AWSV4Auth:
		fmt.Fprintf(&sb, " \\\n  --aws-sigv4 %s -u %s",
			shellQuote("aws:amz:"+a.Region+":"+a.Service), shellQuote(a.AccessKeyID+":"+a.SecretAccessKey))
	case collection.WSSEAuth:
		sb.WriteString("\n# wsse auth is not expressible with curl flags")
	}

	switch b := r.Body.(type) {
	case collection.RawBody:
		fmt.Fprintf(&sb, " \\\n  --data-raw %s", shellQuote(b.Data))
	case collection.FormBody:
		for _, f := range b.Fields {
			if b.Kind == collection.BodyMultipartForm {
				value := f.Value
				if f.IsFile {
					value = "@" + value
				}
				fmt.Fprintf(&sb, " \\\n  -F %s", shellQuote(f.Name+"="+value))
			} else {
				fmt.Fprintf(&sb, " \\\n  --data-urlencode %s", shellQuote(f.Name+"="+f.Value))
			}
		}
	case collection.FileBody:
		if len(b.Files) > 0 {
			fmt.Fprintf(&sb, " \\\n  --data-binary %s", shellQuote("@"+b.Files[0].FilePath))
		}
	}
	return sb.String()
}

func (r *Request) curlURL() string {
	a, ok := r.Auth.(collection.APIKeyAuth)
	if !ok || a.Placement != collection.PlacementQuery {
		return r.URL
	}
	return appendQuery(r.URL, []queryPair{{a.Key, a.Value}})
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
