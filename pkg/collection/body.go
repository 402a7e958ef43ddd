package collection

import "fmt"

// BodyType is the `type` discriminator of a request body.
type BodyType string

const (
	BodyJSON           BodyType = "json"
	BodyXML            BodyType = "xml"
	BodyText           BodyType = "text"
	BodySPARQL         BodyType = "sparql"
	BodyFormURLEncoded BodyType = "form-urlencoded"
	BodyMultipartForm  BodyType = "multipart-form"
	BodyFile           BodyType = "file"
)

// ParseBodyType validates a wire discriminator.
func ParseBodyType(s string) (BodyType, error) {
	switch t := BodyType(s); t {
	case BodyJSON, BodyXML, BodyText, BodySPARQL, BodyFormURLEncoded, BodyMultipartForm, BodyFile:
		return t, nil
	}
	return "", fmt.Errorf("body type %q: %w", s, ErrUnknownType)
}

// IsRaw reports whether bodies of this type carry a single template string.
func (t BodyType) IsRaw() bool {
	switch t {
	case BodyJSON, BodyXML, BodyText, BodySPARQL:
		return true
	}
	return false
}

// Body is a request body. Variants: RawBody, FormBody, FileBody.
type Body interface {
	Type() BodyType
	isBody()
}

// RawBody is a json, xml, text or sparql body whose Data is a template.
type RawBody struct {
	Kind BodyType
	Data string
}

// FormBody is a form-urlencoded or multipart-form body.
type FormBody struct {
	Kind   BodyType
	Fields []FormField
}

// FormField is one ordered entry of a form body.
type FormField struct {
	Name        string
	Value       string
	Disabled    bool
	IsFile      bool // multipart only: Value is a file path
	ContentType string
}

// FileBody sends the content of one selected file.
type FileBody struct {
	Files []FileEntry
}

type FileEntry struct {
	FilePath    string
	ContentType string
	Selected    bool
}

func (b RawBody) Type() BodyType  { return b.Kind }
func (b FormBody) Type() BodyType { return b.Kind }
func (FileBody) Type() BodyType   { return BodyFile }

func (RawBody) isBody()  {}
func (FormBody) isBody() {}
func (FileBody) isBody() {}

// ValidateBody checks that the variant and its discriminator agree.
func ValidateBody(b Body) error {
	switch v := b.(type) {
	case nil:
		return nil
	case RawBody:
		if !v.Kind.IsRaw() {
			return fmt.Errorf("raw body with type %q: %w", v.Kind, ErrUnknownType)
		}
	case FormBody:
		if v.Kind != BodyFormURLEncoded && v.Kind != BodyMultipartForm {
			return fmt.Errorf("form body with type %q: %w", v.Kind, ErrUnknownType)
		}
	case FileBody:
	default:
		return fmt.Errorf("body variant %T: %w", b, ErrUnknownType)
	}
	return nil
}
