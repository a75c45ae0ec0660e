package screening

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fairyhunter13/sift/internal/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// schemaSet holds the compiled wire schema of each JSON-producing stage.
type schemaSet struct {
	profile      *gojsonschema.Schema
	requirements *gojsonschema.Schema
	match        *gojsonschema.Schema
}

func loadSchemas() (*schemaSet, error) {
	load := func(name string) (*gojsonschema.Schema, error) {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, err
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", name, err)
		}
		return s, nil
	}
	var (
		set schemaSet
		err error
	)
	if set.profile, err = load("profile"); err != nil {
		return nil, err
	}
	if set.requirements, err = load("requirements"); err != nil {
		return nil, err
	}
	if set.match, err = load("match"); err != nil {
		return nil, err
	}
	return &set, nil
}

// FieldError is one schema violation.
type FieldError struct {
	Field   string
	Message string
}

// SchemaError lists every violation found in a generator answer.
type SchemaError struct {
	Errors []FieldError
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

func (e *SchemaError) Unwrap() error { return domain.ErrSchemaInvalid }

func validate(schema *gojsonschema.Schema, doc string) error {
	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if result.Valid() {
		return nil
	}
	se := &SchemaError{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		se.Errors = append(se.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return se
}
