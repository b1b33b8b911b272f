package triage

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/rpggio/inboxtriage/internal/inference"
)

func arrayOf(items *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Types: []string{"array", "null"}, Items: items}
}

// Resolve requires the schema to be a tree: every use site gets its own node.

func objectSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

func stringSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string"}
}

func optionalString() *jsonschema.Schema {
	return &jsonschema.Schema{Types: []string{"string", "null"}}
}

func optionalBool() *jsonschema.Schema {
	return &jsonschema.Schema{Types: []string{"boolean", "null"}}
}

func stringsOrText() *jsonschema.Schema {
	return &jsonschema.Schema{Types: []string{"array", "string", "null"}}
}

// pass1Schema: {"emails_to_expand": [id...], "task_ops": [op...]}
var pass1Schema = mustResolve(&jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"emails_to_expand": arrayOf(stringSchema()),
		"task_ops":         arrayOf(objectSchema()),
	},
})

// pass2Schema: {"updated_senders": [...], "final_task_ops": [...], "daily_summary": {...}}
var pass2Schema = mustResolve(&jsonschema.Schema{
	Type:     "object",
	Required: []string{"final_task_ops", "daily_summary"},
	Properties: map[string]*jsonschema.Schema{
		"updated_senders": arrayOf(&jsonschema.Schema{
			Type:     "object",
			Required: []string{"email"},
			Properties: map[string]*jsonschema.Schema{
				"email":  stringSchema(),
				"pinned": optionalBool(),
				"unpin":  optionalBool(),
			},
		}),
		"final_task_ops": arrayOf(objectSchema()),
		"daily_summary": {
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"summary_date": optionalString(),
				"other_notes":  optionalString(),
				"critical_emails": arrayOf(&jsonschema.Schema{
					Type:     "object",
					Required: []string{"email_id"},
					Properties: map[string]*jsonschema.Schema{
						"email_id":        stringSchema(),
						"linked_task_ids": stringsOrText(),
					},
				}),
				"suggested_responses": arrayOf(&jsonschema.Schema{
					Type:     "object",
					Required: []string{"email_id"},
					Properties: map[string]*jsonschema.Schema{
						"email_id":      stringSchema(),
						"draft_outline": stringsOrText(),
						"full_draft":    optionalString(),
					},
				}),
			},
		},
	},
})

// refineSchema: {"instructions": "..."}
var refineSchema = mustResolve(&jsonschema.Schema{
	Type:     "object",
	Required: []string{"instructions"},
	Properties: map[string]*jsonschema.Schema{
		"instructions": stringSchema(),
	},
})

func mustResolve(s *jsonschema.Schema) *jsonschema.Resolved {
	rs, err := s.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("resolving schema: %v", err))
	}
	return rs
}

// decodeValidated extracts the JSON object from a model response, checks it
// against the schema and decodes it into out.
func decodeValidated(rs *jsonschema.Resolved, text string, out any) error {
	body, err := inference.ExtractJSON(text)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	var instance any
	if err := json.Unmarshal([]byte(body), &instance); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := rs.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}
