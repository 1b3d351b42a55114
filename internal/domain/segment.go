package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Segment is a timed span of spoken text. Start and End are seconds from
// the beginning of the recording.
type Segment struct {
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gtefield=Start"`
	Text  string  `json:"text"`
}

// Validate checks the timing invariants of the segment.
func (s Segment) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	switch fieldErrs[0].Field() {
	case "Start":
		return fmt.Errorf("%w: %w", ErrValidation, ErrNegativeStart)
	default:
		return fmt.Errorf("%w: %w", ErrValidation, ErrEndBeforeStart)
	}
}

// ValidateSegments validates every segment, reporting the first offending index.
func ValidateSegments(segments []Segment) error {
	for i, seg := range segments {
		if err := seg.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return nil
}

// JoinText concatenates segment texts with a single space and trims the result.
func JoinText(segments []Segment) string {
	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		texts = append(texts, seg.Text)
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

// Source is a literary or scholarly reference attached to an edited part.
type Source struct {
	Author       string  `json:"author"`
	Work         string  `json:"work"`
	Reference    string  `json:"reference"`
	Text         string  `json:"text"`
	CitedExcerpt *string `json:"cited_excerpt,omitempty"`
}

// EditedPart is a rewritten span of the transcript. Its boundaries follow
// the editor's paragraphing rather than the original segment boundaries.
type EditedPart struct {
	Start   float64  `json:"start"`
	End     float64  `json:"end"`
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// ExcerptVerified reports whether the source's cited excerpt appears
// verbatim in text. Sources without an excerpt are considered verified.
func (s Source) ExcerptVerified(text string) bool {
	if s.CitedExcerpt == nil || *s.CitedExcerpt == "" {
		return true
	}
	return strings.Contains(text, *s.CitedExcerpt)
}
