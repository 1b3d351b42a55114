package task

// Result is the outcome a handler reports for a completed task. It is
// stored as JSON in the task's result column.
type Result interface {
	ResultType() Type
}

// TranscriptionResult reports a finished transcription.
type TranscriptionResult struct {
	Message      string   `json:"message"`
	LessonID     int64    `json:"lesson_id"`
	SegmentCount int      `json:"segment_count"`
	Duration     *float64 `json:"duration,omitempty"`
	AudioFile    string   `json:"audio_file"`
}

// BatchStats are the batch processor counters for a stage.
type BatchStats struct {
	Groups         int `json:"groups"`
	DegradedGroups int `json:"degraded_groups"`
	Attempts       int `json:"attempts"`
}

// CorrectionResult reports a finished correction.
type CorrectionResult struct {
	Message          string `json:"message"`
	LessonID         int64  `json:"lesson_id"`
	SegmentsPerGroup int    `json:"segments_per_group"`
	MaxConcurrency   int    `json:"max_concurrency"`
	SegmentCount     int    `json:"segment_count"`
	BatchStats
}

// EditionResult reports a finished edition.
type EditionResult struct {
	Message             string `json:"message"`
	LessonID            int64  `json:"lesson_id"`
	SegmentsPerGroup    int    `json:"segments_per_group"`
	MaxConcurrency      int    `json:"max_concurrency"`
	SegmentCount        int    `json:"segment_count"`
	PartCount           int    `json:"part_count"`
	SourceCount         int    `json:"source_count"`
	UnverifiedCitations int    `json:"unverified_citations"`
	BatchStats
}

// SummaryResult reports a finished summary.
type SummaryResult struct {
	Message      string `json:"message"`
	LessonID     int64  `json:"lesson_id"`
	UseCorrected bool   `json:"use_corrected"`
	PromptType   string `json:"prompt_type,omitempty"`
	Attempts     int    `json:"attempts"`
	SummaryWords int    `json:"summary_words"`
}

func (TranscriptionResult) ResultType() Type { return TypeTranscription }
func (CorrectionResult) ResultType() Type    { return TypeCorrection }
func (EditionResult) ResultType() Type       { return TypeEdition }
func (SummaryResult) ResultType() Type       { return TypeSummary }
