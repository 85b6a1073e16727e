package llm

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/clinical-docs/internal/common"
)

var reQuotedName = regexp.MustCompile(`'([^']+)'`)

// CompileSchema compiles a schema map with the jsonschema validator.
func CompileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	url := name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateJSON validates data against a compiled schema.
//
// Data that is not JSON yields a *common.MalformedResponseError; a schema
// violation yields the first *common.ValidationError (ordered by instance location).
func ValidateJSON(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return common.NewMalformedResponseError("output is not valid JSON", string(data), err)
	}
	if err := schema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return toValidationError(ve)
		}
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// toValidationError reduces a jsonschema error tree to its first leaf violation.
func toValidationError(root *jsonschema.ValidationError) *common.ValidationError {
	var leaves []*jsonschema.ValidationError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			leaves = append(leaves, e)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(root)
	// causes come from map iteration; sort for a stable "first" violation
	sort.SliceStable(leaves, func(i, j int) bool {
		if leaves[i].InstanceLocation != leaves[j].InstanceLocation {
			return leaves[i].InstanceLocation < leaves[j].InstanceLocation
		}
		return leaves[i].KeywordLocation < leaves[j].KeywordLocation
	})
	leaf := leaves[0]

	constraint := leaf.KeywordLocation
	if i := strings.LastIndexByte(constraint, '/'); i >= 0 {
		constraint = constraint[i+1:]
	}
	field := leaf.InstanceLocation
	if constraint == "required" || constraint == "additionalProperties" {
		if m := reQuotedName.FindStringSubmatch(leaf.Message); m != nil {
			field += "/" + m[1]
		}
	}
	if field == "" {
		field = "/"
	}
	return &common.ValidationError{
		Field:      field,
		Constraint: constraint,
		Message:    leaf.Message,
	}
}
