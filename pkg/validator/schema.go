package validator

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/lumenflow/lumenflow/pkg/logger"
)

var schemaLog = logger.New("validator:schema")

//go:embed schemas/wu_schema.json
var wuSchemaJSON string

var (
	compileOnce      sync.Once
	compiledSchema   *jsonschema.Schema
	compileSchemaErr error
)

func compiled() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(wuSchemaJSON), &doc); err != nil {
			compileSchemaErr = fmt.Errorf("failed to parse embedded WU schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		const url = "http://lumenflow.internal/wu-schema.json"
		if err := compiler.AddResource(url, doc); err != nil {
			compileSchemaErr = fmt.Errorf("failed to add WU schema resource: %w", err)
			return
		}
		compiledSchema, compileSchemaErr = compiler.Compile(url)
	})
	return compiledSchema, compileSchemaErr
}

// SchemaIssue is one JSON-schema validation failure, reduced to a message a
// human (or the engine's auto-fix pass) can act on.
type SchemaIssue struct {
	Message string
	// Fixable reports whether the engine's auto-fix pass (applied only
	// inside the owning worktree, never on main) knows how to repair this
	// specific issue class, recognized here by a substring of the schema
	// library's own error text.
	Fixable bool
}

// fixableSubstrings are schema failure text fragments the engine's
// apply-fixes step knows how to repair automatically (e.g. defaulting a
// missing `type` to "feature"); everything else needs a human decision.
var fixableSubstrings = []string{
	"/type",
	"missing properties: \"type\"",
}

// ValidateSchema decodes wuDoc (as produced by yaml.Unmarshal into a
// map[string]any, then round-tripped through JSON to normalize types) against
// the embedded WU JSON Schema and returns the ordered list of validation
// issues, empty when the document is valid.
func ValidateSchema(wuDoc map[string]any) ([]SchemaIssue, error) {
	schema, err := compiled()
	if err != nil {
		return nil, err
	}

	normalized, err := normalizeForSchema(wuDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize WU document for schema validation: %w", err)
	}

	if err := schema.Validate(normalized); err != nil {
		issues := splitValidationError(err.Error())
		schemaLog.Printf("schema validation found %d issue(s)", len(issues))
		return issues, nil
	}
	return nil, nil
}

// normalizeForSchema round-trips wuDoc through JSON so YAML-native types
// (e.g. map[any]any from some decoders) become the map[string]any/[]any/
// string/float64/bool shapes jsonschema expects.
func normalizeForSchema(wuDoc map[string]any) (any, error) {
	data, err := json.Marshal(wuDoc)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// splitValidationError turns the schema library's multi-line validation
// error text (one root cause plus indented sub-causes) into one SchemaIssue
// per non-empty line, marking ones that mention a known-fixable field.
func splitValidationError(msg string) []SchemaIssue {
	var issues []SchemaIssue
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "jsonschema validation failed") {
			continue
		}
		issues = append(issues, SchemaIssue{Message: line, Fixable: isFixable(line)})
	}
	if len(issues) == 0 {
		issues = append(issues, SchemaIssue{Message: msg})
	}
	return issues
}

func isFixable(line string) bool {
	for _, s := range fixableSubstrings {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}
