package task

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Params are the decoded parameters of a task. The set of implementations
// is closed: one per Type.
type Params interface {
	TaskType() Type
	Lesson() int64
}

// TranscriptionParams selects the lesson whose audio is transcribed.
type TranscriptionParams struct {
	LessonID int64 `json:"lesson_id" validate:"required,gt=0"`
}

// CorrectionParams configures a correction run. Nil fields fall back to
// the correction stage configuration.
type CorrectionParams struct {
	LessonID         int64 `json:"lesson_id" validate:"required,gt=0"`
	SegmentsPerGroup *int  `json:"segments_per_group,omitempty" validate:"omitempty,gte=1"`
	MaxConcurrency   *int  `json:"max_concurrency,omitempty" validate:"omitempty,gte=1"`
}

// EditionParams configures an edition run. Nil fields fall back to the
// edition stage configuration.
type EditionParams struct {
	LessonID         int64 `json:"lesson_id" validate:"required,gt=0"`
	SegmentsPerGroup *int  `json:"segments_per_group,omitempty" validate:"omitempty,gte=1"`
	MaxConcurrency   *int  `json:"max_concurrency,omitempty" validate:"omitempty,gte=1"`
}

// SummaryParams configures a summary run.
type SummaryParams struct {
	LessonID int64 `json:"lesson_id" validate:"required,gt=0"`
	// UseCorrected defaults to true when omitted.
	UseCorrected *bool `json:"use_corrected,omitempty"`
	// PromptType names a configured summary prompt; empty selects the first.
	PromptType string `json:"prompt_type,omitempty"`
}

func (TranscriptionParams) TaskType() Type { return TypeTranscription }
func (CorrectionParams) TaskType() Type    { return TypeCorrection }
func (EditionParams) TaskType() Type       { return TypeEdition }
func (SummaryParams) TaskType() Type       { return TypeSummary }

func (p TranscriptionParams) Lesson() int64 { return p.LessonID }
func (p CorrectionParams) Lesson() int64    { return p.LessonID }
func (p EditionParams) Lesson() int64       { return p.LessonID }
func (p SummaryParams) Lesson() int64       { return p.LessonID }

// PreferCorrected reports whether the summary should read the corrected
// transcript.
func (p SummaryParams) PreferCorrected() bool {
	return p.UseCorrected == nil || *p.UseCorrected
}

// DecodeParams decodes raw into the parameter type for taskType. Unknown
// fields and values failing validation return ErrInvalidParams; an
// unknown type returns ErrUnknownTaskType.
func DecodeParams(taskType Type, raw json.RawMessage) (Params, error) {
	var params Params
	switch taskType {
	case TypeTranscription:
		var p TranscriptionParams
		if err := decodeStrict(raw, &p); err != nil {
			return nil, err
		}
		params = p
	case TypeCorrection:
		var p CorrectionParams
		if err := decodeStrict(raw, &p); err != nil {
			return nil, err
		}
		params = p
	case TypeEdition:
		var p EditionParams
		if err := decodeStrict(raw, &p); err != nil {
			return nil, err
		}
		params = p
	case TypeSummary:
		var p SummaryParams
		if err := decodeStrict(raw, &p); err != nil {
			return nil, err
		}
		params = p
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}

	if err := validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParams, taskType, err)
	}
	return params, nil
}

func decodeStrict(raw json.RawMessage, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}
