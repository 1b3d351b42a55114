package generation

import "slices"

// SchemaType is the JSON type of a schema node.
type SchemaType string

// Schema node types.
const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
)

// Schema describes the JSON shape expected from a structured completion.
// Providers translate it into their own schema representation.
type Schema struct {
	// Name identifies the schema to providers that require one.
	Name        string
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
	Nullable    bool
}

// PropertyOrder returns the property names with required ones first, in
// declaration order, followed by optional ones sorted by name. Providers
// that accept an ordering hint use it to keep output stable.
func (s *Schema) PropertyOrder() []string {
	if s == nil || len(s.Properties) == 0 {
		return nil
	}
	order := make([]string, 0, len(s.Properties))
	seen := make(map[string]bool, len(s.Properties))
	for _, name := range s.Required {
		if _, ok := s.Properties[name]; ok && !seen[name] {
			order = append(order, name)
			seen[name] = true
		}
	}
	var optional []string
	for name := range s.Properties {
		if !seen[name] {
			optional = append(optional, name)
		}
	}
	slices.Sort(optional)
	return append(order, optional...)
}
