package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

var schemaReflector = jsonschema.Reflector{
	DoNotReference: true,
	ExpandedStruct: true,
}

const formatInstructionsHeader = `The output should be formatted as a JSON instance that conforms to the JSON schema below.

As an example, for the schema {"properties": {"foo": {"title": "Foo", "description": "a list of strings", "type": "array", "items": {"type": "string"}}}, "required": ["foo"]}
the object {"foo": ["bar", "baz"]} is a well-formatted instance of the schema. The object {"properties": {"foo": ["bar", "baz"]}} is not well-formatted.

Reply with the JSON object only.

Here is the output schema:
`

// FormatInstructions renders instructions constraining a model reply to the
// JSON shape of T.
func FormatInstructions[T any]() (string, error) {
	var v T
	s := schemaReflector.Reflect(&v)
	// Drop the draft URL and id; models do not need them.
	s.Version = ""
	s.ID = ""

	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal output schema: %w", err)
	}
	return formatInstructionsHeader + "```\n" + string(raw) + "\n```", nil
}
