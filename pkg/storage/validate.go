package storage

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/blackcoderx/opencollection/pkg/collection"
)

//go:embed schema.json
var schemaJSON []byte

// ErrInvalidDocument is the cause of a StructuralError raised when a document
// does not match the OpenCollection JSON Schema.
var ErrInvalidDocument = errors.New("document does not match the OpenCollection schema")

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// ValidateSchema checks a decoded document (maps, slices and scalars) against
// the embedded draft-07 schema. Every violation is listed in the returned
// error's Reason.
func ValidateSchema(doc any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to validate document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return &collection.StructuralError{
		Reason: strings.Join(problems, "; "),
		Err:    ErrInvalidDocument,
	}
}
