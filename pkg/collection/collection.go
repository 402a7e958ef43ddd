// Package collection defines the in-memory model of an OpenCollection document:
// the item arena, environments, inheritable configuration and the tagged sum
// types used for items, auth blocks and request bodies.
//
// A Collection is treated as an immutable snapshot. Nothing in this module
// mutates one after it has been built; callers that edit documents should swap
// in a new Collection rather than modifying a shared one.
package collection

// ItemID is the stable identifier of an item in a collection arena.
type ItemID string

// Collection is the root of an OpenCollection document.
//
// Items are stored in an arena keyed by ItemID. Folders reference their
// children by id, so ordering lives in Root and Folder.Children.
type Collection struct {
	Name         string
	Description  string
	Docs         string
	Environments []Environment
	Base         Config
	Root         []ItemID
	Items        map[ItemID]Item
}

// Item returns the item with the given id.
func (c *Collection) Item(id ItemID) (Item, bool) {
	if c == nil || c.Items == nil {
		return nil, false
	}
	item, ok := c.Items[id]
	return item, ok
}

// Environment returns the environment whose ID or Name equals key.
// An ID match takes priority over a name match.
func (c *Collection) Environment(key string) (*Environment, bool) {
	if c == nil || key == "" {
		return nil, false
	}
	for i := range c.Environments {
		if c.Environments[i].ID != "" && c.Environments[i].ID == key {
			return &c.Environments[i], true
		}
	}
	for i := range c.Environments {
		if c.Environments[i].Name == key {
			return &c.Environments[i], true
		}
	}
	return nil, false
}

// Config is the inheritable configuration carried by the collection root,
// by folders, and (as their own declarations) by request items.
// A nil Auth means no auth block was declared at that level.
type Config struct {
	Headers   []Header
	Auth      Auth
	Variables []Variable
}

// IsEmpty reports whether the config declares nothing.
func (c Config) IsEmpty() bool {
	return len(c.Headers) == 0 && c.Auth == nil && len(c.Variables) == 0
}

// Header is a single request header declaration. Names are never templated.
type Header struct {
	Name     string
	Value    string
	Disabled bool
}

// ParamType distinguishes query parameters from path parameters.
type ParamType string

const (
	ParamQuery ParamType = "query"
	ParamPath  ParamType = "path"
)

// Param is a query or path parameter declared on a request.
type Param struct {
	Name     string
	Value    string
	Type     ParamType
	Disabled bool
}

// Environment is a named, selectable set of variables.
type Environment struct {
	ID        string
	Name      string
	Variables []Variable
}

// Variable is a named value owned by the scope that declares it.
type Variable struct {
	Name      string
	Value     VariableValue
	Disabled  bool
	Transient bool // usable during resolution, never exported
}

// VariableValue is either a plain string (Data only) or a typed value with
// contextual variants.
type VariableValue struct {
	Data     string
	Type     string
	Variants []Variant
}

// Variant is a contextual alternate for a variable value.
type Variant struct {
	Data        string
	Description string
}

// Assertion is a declarative check against an eventual response.
type Assertion struct {
	Expression  string
	Operator    string
	Value       string
	Disabled    bool
	Description string
}

// ScriptType tells when an embedded script runs.
type ScriptType string

const (
	ScriptPreRequest   ScriptType = "pre-request"
	ScriptPostResponse ScriptType = "post-response"
	ScriptTests        ScriptType = "tests"
)

// ScriptBlock is an opaque script payload attached to a request. It is
// passed through untouched; executing it is the job of an external host.
type ScriptBlock struct {
	Type ScriptType
	Code string
}
