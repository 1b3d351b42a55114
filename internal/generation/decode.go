package generation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON decodes a model reply into out. Markdown code fences around
// the JSON are tolerated.
func DecodeJSON(text string, out any) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	if text == "" {
		return fmt.Errorf("%w: empty reply", ErrInvalidResponse)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
