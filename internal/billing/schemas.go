package billing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Jperi24/nsfw-platform/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Per-kind JSON schemas for the data.object block. Validation happens before
// the payload is mapped into its typed struct, so downstream code can rely
// on the fields each kind guarantees.

const checkoutObjectSchema = `{
	"type": "object",
	"required": ["mode"],
	"properties": {
		"mode":         {"type": "string"},
		"customer":     {"type": ["string", "null"]},
		"subscription": {"type": ["string", "null"]},
		"metadata": {
			"type": "object",
			"properties": {
				"userId": {"type": "string"}
			}
		}
	}
}`

const subscriptionObjectSchema = `{
	"type": "object",
	"required": ["customer"],
	"properties": {
		"id":       {"type": "string"},
		"customer": {"type": "string", "minLength": 1},
		"status":   {"type": "string"}
	}
}`

var objectSchemas = map[Kind]*gojsonschema.Schema{}

func init() {
	for kind, raw := range map[Kind]string{
		KindCheckoutCompleted:   checkoutObjectSchema,
		KindSubscriptionCreated: subscriptionObjectSchema,
		KindSubscriptionUpdated: subscriptionObjectSchema,
		KindSubscriptionDeleted: subscriptionObjectSchema,
	} {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			panic(fmt.Sprintf("invalid embedded schema for %s: %v", kind, err))
		}
		objectSchemas[kind] = schema
	}
}

func validateObjectSchema(kind Kind, object json.RawMessage) error {
	schema, ok := objectSchemas[kind]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(object))
	if err != nil {
		return errors.NewPayloadMalformedError(err.Error())
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return errors.NewPayloadMalformedError(strings.Join(msgs, "; "))
	}
	return nil
}
