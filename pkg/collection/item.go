package collection

import "fmt"

// ItemType is the `type` discriminator of an item.
type ItemType string

const (
	ItemHTTP    ItemType = "http"
	ItemGraphQL ItemType = "graphql"
	ItemGRPC    ItemType = "grpc"
	ItemFolder  ItemType = "folder"
	ItemScript  ItemType = "script"
)

// ParseItemType validates a wire discriminator.
func ParseItemType(s string) (ItemType, error) {
	switch t := ItemType(s); t {
	case ItemHTTP, ItemGraphQL, ItemGRPC, ItemFolder, ItemScript:
		return t, nil
	}
	return "", fmt.Errorf("item type %q: %w", s, ErrUnknownType)
}

// Item is a node of the collection tree. The concrete variants are
// *HTTPRequest, *Folder, *Script, *GraphQLRequest and *GRPCRequest.
type Item interface {
	// Info returns the fields shared by every item variant.
	Info() Meta
	// Type returns the discriminator of the variant.
	Type() ItemType
	// Declared returns the headers, auth and variables declared by the
	// item itself, in the same shape a folder or the collection root uses.
	Declared() Config
	isItem()
}

// Meta holds identity and display fields common to every item.
type Meta struct {
	ID   ItemID
	Name string
	Seq  int
	Docs string
}

// HTTPRequest is a plain HTTP request item.
type HTTPRequest struct {
	Meta
	Method     string
	URL        string
	Headers    []Header
	Params     []Param
	Body       Body
	Auth       Auth
	Variables  []Variable
	Assertions []Assertion
	Scripts    []ScriptBlock
}

func (r *HTTPRequest) Info() Meta     { return r.Meta }
func (r *HTTPRequest) Type() ItemType { return ItemHTTP }
func (r *HTTPRequest) Declared() Config {
	return Config{Headers: r.Headers, Auth: r.Auth, Variables: r.Variables}
}
func (*HTTPRequest) isItem() {}

// Folder groups child items and carries its own inheritable config.
type Folder struct {
	Meta
	Children []ItemID
	Config   Config
}

func (f *Folder) Info() Meta       { return f.Meta }
func (f *Folder) Type() ItemType   { return ItemFolder }
func (f *Folder) Declared() Config { return f.Config }
func (*Folder) isItem() {}

// Script is a standalone script item.
type Script struct {
	Meta
	Code string
}

func (s *Script) Info() Meta       { return s.Meta }
func (s *Script) Type() ItemType   { return ItemScript }
func (s *Script) Declared() Config { return Config{} }
func (*Script) isItem() {}

// GraphQLRequest is parsed and validated but not yet resolvable.
type GraphQLRequest struct {
	Meta
	Method         string
	URL            string
	Headers        []Header
	Auth           Auth
	Variables      []Variable
	Query          string
	QueryVariables string
	Assertions     []Assertion
}

func (g *GraphQLRequest) Info() Meta     { return g.Meta }
func (g *GraphQLRequest) Type() ItemType { return ItemGraphQL }
func (g *GraphQLRequest) Declared() Config {
	return Config{Headers: g.Headers, Auth: g.Auth, Variables: g.Variables}
}
func (*GraphQLRequest) isItem() {}

// GRPCRequest is parsed and validated but not yet resolvable.
type GRPCRequest struct {
	Meta
	URL       string
	Method    string   // fully qualified service method
	Headers   []Header // sent as metadata
	Auth      Auth
	Variables []Variable
	Message   string
}

func (g *GRPCRequest) Info() Meta     { return g.Meta }
func (g *GRPCRequest) Type() ItemType { return ItemGRPC }
func (g *GRPCRequest) Declared() Config {
	return Config{Headers: g.Headers, Auth: g.Auth, Variables: g.Variables}
}
func (*GRPCRequest) isItem() {}
