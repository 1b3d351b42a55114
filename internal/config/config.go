package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Worker     WorkerConfig     `mapstructure:"worker" validate:"required"`
	Retry      RetryConfig      `mapstructure:"retry" validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage" validate:"required"`
	Whisper    WhisperConfig    `mapstructure:"whisper" validate:"required"`
	Transcribe TranscribeConfig `mapstructure:"transcribe" validate:"required"`
	Correction StageConfig      `mapstructure:"correction" validate:"required"`
	Edition    StageConfig      `mapstructure:"edition" validate:"required"`
	Summary    SummaryConfig    `mapstructure:"summary" validate:"required"`
}

// ServerConfig contains the ops HTTP server and logging settings.
type ServerConfig struct {
	// Host is the interface the ops server binds to.
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// AuthSecret signs and verifies the HS256 bearer tokens the ops API
	// requires. The worker refuses to start without one.
	AuthSecret string `mapstructure:"auth_secret" validate:"omitempty,min=32"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver is the database/sql driver name: "pgx" for PostgreSQL or
	// "sqlite" for a local database file.
	Driver       string `mapstructure:"driver" validate:"required,oneof=pgx sqlite"`
	URL          string `mapstructure:"url" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
}

// LLMConfig selects the language model provider shared by all stages.
type LLMConfig struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=openai gemini"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url" validate:"omitempty,url"`
}

// WorkerConfig controls the polling loop.
type WorkerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	// StaleTaskAge marks running tasks older than this as failed at
	// startup. Zero disables the sweep.
	StaleTaskAge time.Duration `mapstructure:"stale_task_age" validate:"gte=0"`
}

// RetryConfig controls retries of LLM calls.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"gte=1"`
	InitialDelay time.Duration `mapstructure:"initial_delay" validate:"gte=0"`
	MaxDelay     time.Duration `mapstructure:"max_delay" validate:"gtefield=InitialDelay"`
}

// StorageConfig locates lesson audio files.
type StorageConfig struct {
	AudioDir string `mapstructure:"audio_dir" validate:"required"`
}

// WhisperConfig selects the speech recognition model.
type WhisperConfig struct {
	ModelSize   string `mapstructure:"model_size" validate:"required"`
	Device      string `mapstructure:"device" validate:"required"`
	ComputeType string `mapstructure:"compute_type" validate:"required"`
	Python      string `mapstructure:"python" validate:"required"`
}

// TranscribeConfig holds decoding options passed to the speech model.
type TranscribeConfig struct {
	Language      string `mapstructure:"language"`
	BeamSize      int    `mapstructure:"beam_size" validate:"gte=1"`
	VADFilter     bool   `mapstructure:"vad_filter"`
	InitialPrompt string `mapstructure:"initial_prompt"`
}

// StageConfig configures an LLM stage that runs through the batch processor.
type StageConfig struct {
	Model            string  `mapstructure:"model" validate:"required"`
	Temperature      float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Prompt           string  `mapstructure:"prompt" validate:"required"`
	SegmentsPerGroup int     `mapstructure:"segments_per_group" validate:"gte=1"`
	MaxConcurrency   int     `mapstructure:"max_concurrency" validate:"gte=1"`
}

// NamedPrompt is a selectable summary instruction.
type NamedPrompt struct {
	Name string `mapstructure:"name" yaml:"name" validate:"required"`
	Text string `mapstructure:"text" yaml:"text" validate:"required"`
}

// SummaryConfig configures summary generation.
type SummaryConfig struct {
	Model       string  `mapstructure:"model" validate:"required"`
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	// MaxLength is a word limit appended to the prompt. Zero omits it.
	MaxLength int           `mapstructure:"max_length" validate:"gte=0"`
	Prompts   []NamedPrompt `mapstructure:"prompts" validate:"dive"`
	// Prompt is the single-prompt form used by older configuration files.
	// It only applies when Prompts is empty.
	Prompt string `mapstructure:"prompt"`
}

// SelectPrompt returns the summary instruction named name, the first
// configured prompt when name is empty or unknown, or DefaultSummaryPrompt
// when nothing is configured. The returned name is empty for the built-in
// default.
func (s SummaryConfig) SelectPrompt(name string) (selected NamedPrompt, ok bool) {
	prompts := s.Prompts
	if len(prompts) == 0 && s.Prompt != "" {
		prompts = []NamedPrompt{{Name: "Default", Text: s.Prompt}}
	}
	if name != "" {
		for _, p := range prompts {
			if p.Name == name && p.Text != "" {
				return p, true
			}
		}
	}
	if len(prompts) > 0 && prompts[0].Text != "" {
		return prompts[0], true
	}
	return NamedPrompt{Text: DefaultSummaryPrompt}, false
}
