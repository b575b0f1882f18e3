package answer

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema names a JSON schema definition for a stored payload.
type Schema struct {
	Name       string
	Definition map[string]any
}

var lineSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"account": map[string]any{"type": "string", "minLength": 1},
		"amount":  map[string]any{"type": "number", "minimum": 0},
	},
	"required": []any{"account", "amount"},
}

// JournalKeySchema validates a journal correct-answer payload. Both the
// single-line and the multi-line shapes are accepted.
var JournalKeySchema = &Schema{
	Name: "journal-key",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"journalEntry": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"debit_account":  map[string]any{"type": "string", "minLength": 1},
					"debit_amount":   map[string]any{"type": "number", "minimum": 0},
					"credit_account": map[string]any{"type": "string", "minLength": 1},
					"credit_amount":  map[string]any{"type": "number", "minimum": 0},
					"debits":         map[string]any{"type": "array", "minItems": 1, "items": lineSchema},
					"credits":        map[string]any{"type": "array", "minItems": 1, "items": lineSchema},
				},
				"anyOf": []any{
					map[string]any{"required": []any{"debit_account", "debit_amount", "credit_account", "credit_amount"}},
					map[string]any{"required": []any{"debits", "credits"}},
				},
			},
		},
		"required": []any{"journalEntry"},
	},
}

// LedgerKeySchema validates a ledger correct-answer payload.
var LedgerKeySchema = &Schema{
	Name: "ledger-key",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ledgerEntry": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entries": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"account":     map[string]any{"type": "string"},
								"description": map[string]any{"type": "string"},
								"amount":      map[string]any{"type": "number", "minimum": 0},
							},
						},
					},
				},
				"required": []any{"entries"},
			},
		},
		"required": []any{"ledgerEntry"},
	},
}

// TrialBalanceKeySchema validates a trial balance correct-answer payload.
var TrialBalanceKeySchema = &Schema{
	Name: "trial-balance-key",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"trialBalance": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"balances": map[string]any{
						"type":                 "object",
						"minProperties":        1,
						"additionalProperties": map[string]any{"type": "number"},
					},
				},
				"required": []any{"balances"},
			},
		},
		"required": []any{"trialBalance"},
	},
}

// TemplateSchema validates an answer template payload.
var TemplateSchema = &Schema{
	Name: "answer-template",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type": map[string]any{"type": "string"},
			"fields": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":     map[string]any{"type": "string", "minLength": 1},
						"label":    map[string]any{"type": "string"},
						"type":     map[string]any{"enum": []any{"number", "text", "dropdown"}},
						"required": map[string]any{"type": "boolean"},
					},
					"required": []any{"name", "type"},
				},
			},
		},
	},
}

// keySchemaFor returns the correct-answer schema of a category.
func keySchemaFor(c Category) (*Schema, error) {
	switch c {
	case CategoryJournal:
		return JournalKeySchema, nil
	case CategoryLedger:
		return LedgerKeySchema, nil
	case CategoryTrialBalance:
		return TrialBalanceKeySchema, nil
	default:
		return nil, fmt.Errorf("no schema for category %q", c)
	}
}

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// validateDocument validates an already decoded JSON value against schema.
func validateDocument(schema *Schema, doc any) error {
	compiled, err := getCompiledSchema(schema)
	if err != nil {
		return fmt.Errorf("compile schema %q: %w", schema.Name, err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// getCompiledSchema returns a cached compiled schema or compiles and caches it.
func getCompiledSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants plain decoded JSON, so round-trip the Go literal.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
