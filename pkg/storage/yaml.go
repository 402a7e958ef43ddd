// Package storage loads OpenCollection documents and environment files from
// disk into the in-memory collection model.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/blackcoderx/opencollection/pkg/collection"
)

// itemNamespace seeds deterministic ids for items without a uid.
var itemNamespace = uuid.MustParse("6f1d2c8e-5b7a-4c39-9e0f-3a2b1c4d5e6f")

// LoadCollection reads a collection from a YAML or JSON file. Environment
// files found in the sibling environments directory are appended after the
// environments declared in the document.
func LoadCollection(filePath string) (*collection.Collection, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}

	c, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}

	envs, err := LoadEnvironments(filepath.Dir(filePath))
	if err != nil {
		return nil, err
	}
	c.Environments = append(c.Environments, envs...)
	return c, nil
}

// Decode parses, schema-checks and converts a document.
func Decode(data []byte) (*collection.Collection, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := ValidateSchema(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return Convert(&doc)
}

// Convert builds the collection arena from a decoded document. Items keep
// their uid as id; items without one get an id derived from their position,
// stable across loads of the same document.
func Convert(doc *Document) (*collection.Collection, error) {
	c := &collection.Collection{
		Name:        doc.Name,
		Description: doc.Description,
		Docs:        doc.Docs,
		Items:       make(map[collection.ItemID]collection.Item),
	}
	if doc.Info != nil {
		if doc.Info.Name != "" {
			c.Name = doc.Info.Name
		}
		if doc.Info.Summary != "" {
			c.Description = doc.Info.Summary
		}
	}

	base, err := convertBase(doc.Base)
	if err != nil {
		return nil, &collection.StructuralError{Reason: "collection base", Err: err}
	}
	c.Base = base

	for i, e := range doc.Environments {
		id := e.UID
		if id == "" {
			id = "env-" + strconv.Itoa(i)
		}
		c.Environments = append(c.Environments, collection.Environment{
			ID:        id,
			Name:      e.Name,
			Variables: convertVariables(e.Variables),
		})
	}

	cv := &converter{c: c}
	root, err := cv.items(doc.Items, "")
	if err != nil {
		return nil, err
	}
	c.Root = root
	return c, nil
}

type converter struct {
	c *collection.Collection
}

func (cv *converter) items(items []Item, parentKey string) ([]collection.ItemID, error) {
	ids := make([]collection.ItemID, 0, len(items))
	for i := range items {
		id, err := cv.item(&items[i], parentKey, i)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (cv *converter) item(in *Item, parentKey string, index int) (collection.ItemID, error) {
	key := parentKey + "/" + strconv.Itoa(index) + ":" + in.Name
	id := collection.ItemID(in.UID)
	if id == "" {
		id = collection.ItemID(uuid.NewSHA1(itemNamespace, []byte(key)).String())
	}
	if _, dup := cv.c.Items[id]; dup {
		return "", &collection.StructuralError{Item: id, Reason: "duplicate uid", Err: collection.ErrSharedItem}
	}
	fail := func(err error) (collection.ItemID, error) {
		return "", &collection.StructuralError{Item: id, Reason: in.Name, Err: err}
	}

	typ, err := collection.ParseItemType(in.Type)
	if err != nil {
		return fail(err)
	}
	meta := collection.Meta{ID: id, Name: in.Name, Seq: in.Seq, Docs: in.Docs}

	var item collection.Item
	switch typ {
	case collection.ItemHTTP:
		req := &collection.HTTPRequest{
			Meta:       meta,
			Method:     in.Method,
			URL:        in.URL,
			Headers:    convertHeaders(in.Headers),
			Params:     convertParams(in.Params),
			Variables:  convertVariables(in.Variables),
			Assertions: convertAssertions(in.Assertions),
			Scripts:    convertScripts(in.Scripts),
		}
		if req.Auth, err = convertAuth(in.Auth); err != nil {
			return fail(err)
		}
		if req.Body, err = convertBody(in.Body); err != nil {
			return fail(err)
		}
		item = req
	case collection.ItemGraphQL:
		req := &collection.GraphQLRequest{
			Meta:           meta,
			Method:         in.Method,
			URL:            in.URL,
			Headers:        convertHeaders(in.Headers),
			Variables:      convertVariables(in.Variables),
			Query:          in.Query,
			QueryVariables: in.QueryVariables,
			Assertions:     convertAssertions(in.Assertions),
		}
		if req.Auth, err = convertAuth(in.Auth); err != nil {
			return fail(err)
		}
		item = req
	case collection.ItemGRPC:
		req := &collection.GRPCRequest{
			Meta:      meta,
			URL:       in.URL,
			Method:    in.Method,
			Headers:   convertHeaders(in.Headers),
			Variables: convertVariables(in.Variables),
			Message:   in.Message,
		}
		if req.Auth, err = convertAuth(in.Auth); err != nil {
			return fail(err)
		}
		item = req
	case collection.ItemScript:
		item = &collection.Script{Meta: meta, Code: in.Code}
	case collection.ItemFolder:
		cfg, err := convertBase(in.Base)
		if err != nil {
			return fail(err)
		}
		folder := &collection.Folder{Meta: meta, Config: cfg}
		// Reserve the id before descending so a child reusing it is caught.
		cv.c.Items[id] = folder
		children, err := cv.items(in.Items, key)
		if err != nil {
			return "", err
		}
		folder.Children = children
		return id, nil
	}
	cv.c.Items[id] = item
	return id, nil
}

func convertBase(b *Base) (collection.Config, error) {
	if b == nil {
		return collection.Config{}, nil
	}
	auth, err := convertAuth(b.Auth)
	if err != nil {
		return collection.Config{}, err
	}
	return collection.Config{
		Headers:   convertHeaders(b.Headers),
		Auth:      auth,
		Variables: convertVariables(b.Variables),
	}, nil
}

func convertHeaders(in []Header) []collection.Header {
	if len(in) == 0 {
		return nil
	}
	out := make([]collection.Header, 0, len(in))
	for _, h := range in {
		out = append(out, collection.Header{Name: h.Name, Value: h.Value, Disabled: h.Off()})
	}
	return out
}

func convertParams(in []Param) []collection.Param {
	if len(in) == 0 {
		return nil
	}
	out := make([]collection.Param, 0, len(in))
	for _, p := range in {
		out = append(out, collection.Param{
			Name:     p.Name,
			Value:    p.Value,
			Type:     collection.ParamType(p.Type),
			Disabled: p.Off(),
		})
	}
	return out
}

func convertVariables(in []Variable) []collection.Variable {
	if len(in) == 0 {
		return nil
	}
	out := make([]collection.Variable, 0, len(in))
	for _, v := range in {
		value := collection.VariableValue{Data: v.Value.Data, Type: v.Value.Type}
		for _, variant := range v.Value.Variants {
			value.Variants = append(value.Variants, collection.Variant{Data: variant.Data, Description: variant.Description})
		}
		out = append(out, collection.Variable{
			Name:      v.Name,
			Value:     value,
			Disabled:  v.Off(),
			Transient: v.Transient,
		})
	}
	return out
}

func convertAssertions(in []Assertion) []collection.Assertion {
	if len(in) == 0 {
		return nil
	}
	out := make([]collection.Assertion, 0, len(in))
	for _, a := range in {
		out = append(out, collection.Assertion{
			Expression:  a.Expression,
			Operator:    a.Operator,
			Value:       a.Value,
			Description: a.Description,
			Disabled:    a.Off(),
		})
	}
	return out
}

func convertScripts(in []Script) []collection.ScriptBlock {
	if len(in) == 0 {
		return nil
	}
	out := make([]collection.ScriptBlock, 0, len(in))
	for _, s := range in {
		out = append(out, collection.ScriptBlock{Type: collection.ScriptType(s.Type), Code: s.Code})
	}
	return out
}

// convertAuth maps a wire auth block to its variant. A missing block and
// `type: inherit` both mean "not declared".
func convertAuth(a *Auth) (collection.Auth, error) {
	if a == nil || strings.EqualFold(a.Type, "inherit") {
		return nil, nil
	}
	typ, err := collection.ParseAuthType(a.Type)
	if err != nil {
		return nil, err
	}
	switch typ {
	case collection.AuthNone:
		return collection.NoAuth{}, nil
	case collection.AuthBasic:
		return collection.BasicAuth{Username: a.Username, Password: a.Password}, nil
	case collection.AuthBearer:
		return collection.BearerAuth{Token: a.Token}, nil
	case collection.AuthDigest:
		return collection.DigestAuth{Username: a.Username, Password: a.Password}, nil
	case collection.AuthAPIKey:
		return collection.APIKeyAuth{Key: a.Key, Value: a.Value, Placement: collection.APIKeyPlacement(a.Placement)}, nil
	case collection.AuthAWSV4:
		return collection.AWSV4Auth{
			AccessKeyID:     a.AccessKeyID,
			SecretAccessKey: a.SecretAccessKey,
			SessionToken:    a.SessionToken,
			Service:         a.Service,
			Region:          a.Region,
			ProfileName:     a.ProfileName,
		}, nil
	case collection.AuthNTLM:
		return collection.NTLMAuth{Username: a.Username, Password: a.Password, Domain: a.Domain}, nil
	case collection.AuthWSSE:
		return collection.WSSEAuth{Username: a.Username, Password: a.Password}, nil
	}
	return nil, fmt.Errorf("auth type %q: %w", a.Type, collection.ErrUnknownType)
}

func convertBody(b *Body) (collection.Body, error) {
	if b == nil {
		return nil, nil
	}
	typ, err := collection.ParseBodyType(b.Type)
	if err != nil {
		return nil, err
	}
	empty := b.Data.Kind == 0 || b.Data.Tag == "!!null"

	switch {
	case typ.IsRaw():
		if empty {
			return collection.RawBody{Kind: typ}, nil
		}
		if b.Data.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%s body data must be a string: %w", typ, collection.ErrUnknownType)
		}
		return collection.RawBody{Kind: typ, Data: b.Data.Value}, nil

	case typ == collection.BodyFormURLEncoded || typ == collection.BodyMultipartForm:
		var fields []FormField
		if !empty {
			if err := b.Data.Decode(&fields); err != nil {
				return nil, fmt.Errorf("%s body fields: %w", typ, err)
			}
		}
		out := collection.FormBody{Kind: typ}
		for _, f := range fields {
			out.Fields = append(out.Fields, collection.FormField{
				Name:        f.Name,
				Value:       f.Value,
				Disabled:    f.Off(),
				IsFile:      f.Type == "file",
				ContentType: f.ContentType,
			})
		}
		return out, nil

	default:
		var files []FileEntry
		if !empty {
			if err := b.Data.Decode(&files); err != nil {
				return nil, fmt.Errorf("file body entries: %w", err)
			}
		}
		out := collection.FileBody{}
		for _, f := range files {
			out.Files = append(out.Files, collection.FileEntry{FilePath: f.FilePath, ContentType: f.ContentType, Selected: f.Selected})
		}
		return out, nil
	}
}
