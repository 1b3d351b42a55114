package domain

import "time"

// Lesson is a recorded lesson and the outputs of every processing stage.
// Each stage output is optional: a lesson may have been transcribed but not
// yet corrected, edited or summarized.
type Lesson struct {
	ID       int64      `json:"id"`
	CourseID *int64     `json:"course_id,omitempty"`
	Title    string     `json:"title"`
	Filename string     `json:"filename"`
	Date     *time.Time `json:"date,omitempty"`
	Duration *float64   `json:"duration,omitempty"`

	Transcript          []Segment    `json:"transcript,omitempty"`
	CorrectedTranscript []Segment    `json:"corrected_transcript,omitempty"`
	EditedTranscript    []EditedPart `json:"edited_transcript,omitempty"`
	Brief               *string      `json:"brief,omitempty"`
	Summary             *string      `json:"summary,omitempty"`

	TranscriptMetadata *TranscriptMetadata `json:"transcript_metadata,omitempty"`
	CorrectionMetadata *StageMetadata      `json:"correction_metadata,omitempty"`
	EditedMetadata     *StageMetadata      `json:"edited_metadata,omitempty"`
	SummaryMetadata    *StageMetadata      `json:"summary_metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLesson creates a lesson for an audio file. The ID is assigned by the store.
func NewLesson(title, filename string) (*Lesson, error) {
	now := time.Now().UTC()
	lesson := &Lesson{
		Title:     title,
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := lesson.Validate(); err != nil {
		return nil, err
	}
	return lesson, nil
}

// Validate checks the fields a lesson needs before it can be processed.
func (l *Lesson) Validate() error {
	if l.Filename == "" {
		return ErrEmptyFilename
	}
	if err := ValidateSegments(l.Transcript); err != nil {
		return err
	}
	return ValidateSegments(l.CorrectedTranscript)
}

// BestTranscript returns the corrected transcript when preferCorrected is
// set and one exists, otherwise the raw transcript.
func (l *Lesson) BestTranscript(preferCorrected bool) []Segment {
	if preferCorrected && len(l.CorrectedTranscript) > 0 {
		return l.CorrectedTranscript
	}
	return l.Transcript
}

// SetTranscript stores a raw transcript and derives the lesson duration
// from the end of its last segment. An empty transcript leaves the
// duration unchanged.
func (l *Lesson) SetTranscript(segments []Segment, meta TranscriptMetadata) {
	l.Transcript = segments
	l.TranscriptMetadata = &meta
	if n := len(segments); n > 0 {
		d := segments[n-1].End
		l.Duration = &d
	}
}
