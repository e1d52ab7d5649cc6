package engine

import (
	"encoding/json"

	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/validator"
	"github.com/lumenflow/lumenflow/pkg/wu"
)

// schemaIssuesFor round-trips w through JSON into the map[string]any shape
// validator.ValidateSchema expects, so the engine's claim step 8 ("apply
// schema auto-fixes") can reuse pkg/validator's jsonschema-backed
// validation pass.
func schemaIssuesFor(w *wu.WU) ([]validator.SchemaIssue, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, lferr.Wrap(lferr.Fatal, err, "", "failed to encode WU %s for schema validation", w.ID)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, lferr.Wrap(lferr.Fatal, err, "", "failed to decode WU %s for schema validation", w.ID)
	}
	return validator.ValidateSchema(doc)
}
