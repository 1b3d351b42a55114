package gemini

import (
	"google.golang.org/genai"

	"github.com/phrazzld/lectern/internal/generation"
)

var schemaTypes = map[generation.SchemaType]genai.Type{
	generation.TypeObject:  genai.TypeObject,
	generation.TypeArray:   genai.TypeArray,
	generation.TypeString:  genai.TypeString,
	generation.TypeNumber:  genai.TypeNumber,
	generation.TypeInteger: genai.TypeInteger,
	generation.TypeBoolean: genai.TypeBoolean,
}

// toGenaiSchema converts a schema to Gemini's response schema.
func toGenaiSchema(s *generation.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaTypes[s.Type],
		Description: s.Description,
		Required:    s.Required,
		Items:       toGenaiSchema(s.Items),
	}
	if s.Nullable {
		nullable := true
		out.Nullable = &nullable
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
		out.PropertyOrdering = s.PropertyOrder()
	}
	return out
}
