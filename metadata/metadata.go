// Package metadata validates caller-supplied payment metadata against the
// metadata schema. Metadata rides along with an external payment request and
// is never editable by the user, so a schema violation is terminal for that
// request: the confirmation flow surfaces the error without submitting.
package metadata

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	lnbridge "github.com/lightvault/lnbridge-go"
)

// Schema is the JSON schema payment metadata must conform to. Absent
// metadata is also valid metadata; the schema only constrains what is there.
const Schema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"type": {"type": "string"},
		"identifier": {"type": "string"},
		"title": {"type": "string"},
		"description": {"type": "string"},
		"url": {"type": "string"},
		"image": {"type": "string"},
		"amount": {"type": "integer", "minimum": 0}
	},
	"additionalProperties": true
}`

var schemaLoader = gojsonschema.NewStringLoader(Schema)

// Validate checks raw metadata against the schema. Nil or empty metadata is
// valid. Unparsable or non-conformant metadata fails with
// lnbridge.ErrInvalidMetadata.
func Validate(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", lnbridge.ErrInvalidMetadata, err)
	}
	if result.Valid() {
		return nil
	}

	descs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		descs = append(descs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("%w: %s", lnbridge.ErrInvalidMetadata, strings.Join(descs, "; "))
}
