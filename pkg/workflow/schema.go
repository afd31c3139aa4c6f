package workflow

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrSchema is returned when a document does not match the workflow schema.
var ErrSchema = errors.New("workflow does not match schema")

//go:embed schema.json
var schemaJSON string

const schemaURL = "https://friendlypipe.dev/schemas/workflow.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal workflow schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add workflow schema resource: %w", err)
	}
	return c.Compile(schemaURL)
})

// Validate checks data against the embedded workflow schema. Violations are
// reported as one error wrapping [ErrSchema] that lists every failing
// location.
func Validate(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := sch.Validate(inst); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return fmt.Errorf("%w: %v", ErrSchema, err)
		}
		return fmt.Errorf("%w: %s", ErrSchema, strings.Join(violations(verr), "; "))
	}
	return nil
}

// violations flattens a validation error tree into "location: message"
// strings, one per leaf.
func violations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/" + strings.Join(verr.InstanceLocation, "/")
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}
	var out []string
	for _, c := range verr.Causes {
		out = append(out, violations(c)...)
	}
	return out
}
