package payout

import (
	"encoding/json"
	"fmt"

	"github.com/clipfuse/clipfuse/internal/models"
	"github.com/xeipuuv/gojsonschema"
)

// Per-method-type schemas for the details JSON document. The shape of
// details varies by destination type, so each type validates against its
// own schema before anything is persisted.
var detailSchemas = map[models.PayoutMethodType]string{
	models.PayoutMethodPayPal: `{
		"type": "object",
		"properties": {
			"email": {"type": "string", "format": "email"}
		},
		"required": ["email"],
		"additionalProperties": false
	}`,
	models.PayoutMethodWise: `{
		"type": "object",
		"properties": {
			"email": {"type": "string", "format": "email"},
			"currency": {"type": "string", "minLength": 3, "maxLength": 3}
		},
		"required": ["email"],
		"additionalProperties": false
	}`,
	models.PayoutMethodRevolut: `{
		"type": "object",
		"properties": {
			"revtag": {"type": "string", "minLength": 1},
			"phone": {"type": "string"}
		},
		"required": ["revtag"],
		"additionalProperties": false
	}`,
	models.PayoutMethodBankTransfer: `{
		"type": "object",
		"properties": {
			"account_holder": {"type": "string", "minLength": 1},
			"iban": {"type": "string", "minLength": 15},
			"account_number": {"type": "string", "minLength": 1},
			"routing_number": {"type": "string", "minLength": 1},
			"bank_name": {"type": "string"},
			"swift_code": {"type": "string"}
		},
		"required": ["account_holder"],
		"anyOf": [
			{"required": ["iban"]},
			{"required": ["account_number", "routing_number"]}
		],
		"additionalProperties": false
	}`,
}

var compiledSchemas map[models.PayoutMethodType]*gojsonschema.Schema

func init() {
	compiledSchemas = make(map[models.PayoutMethodType]*gojsonschema.Schema, len(detailSchemas))
	for t, raw := range detailSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			panic(fmt.Sprintf("invalid payout details schema for %s: %v", t, err))
		}
		compiledSchemas[t] = schema
	}
}

// ValidateDetails checks a details document against the schema for its
// method type. Returns the list of violations when invalid.
func ValidateDetails(methodType models.PayoutMethodType, details json.RawMessage) ([]string, error) {
	schema, ok := compiledSchemas[methodType]
	if !ok {
		return nil, ErrInvalidMethodType
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(details))
	if err != nil {
		return nil, fmt.Errorf("failed to validate details: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return violations, nil
}
