package domain

// StageMetadata records how an LLM-produced stage was generated.
type StageMetadata struct {
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`
	Prompt      string   `json:"prompt"`
}

// TranscriptMetadata records the speech recognition settings used to
// produce a raw transcript.
type TranscriptMetadata struct {
	ModelSize     string  `json:"model_size"`
	Device        string  `json:"device"`
	ComputeType   string  `json:"compute_type"`
	BeamSize      int     `json:"beam_size"`
	VADFilter     bool    `json:"vad_filter"`
	Language      string  `json:"language"`
	InitialPrompt *string `json:"initial_prompt,omitempty"`
}
