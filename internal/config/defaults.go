package config

import (
	"time"

	"github.com/spf13/viper"
)

// Built-in instructions used when the configuration file leaves a stage
// prompt unset.
const (
	DefaultCorrectionPrompt = "Please correct the following transcript, fixing any errors while maintaining the original meaning and style."
	DefaultEditionPrompt    = "Please rewrite the following transcript in a clear, written style while maintaining the original meaning and flow. Include timing information (start/end) and cite any sources mentioned."
	DefaultSummaryPrompt    = "Please provide a concise summary of the following lesson transcript."
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.auth_secret", "")
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")

	v.SetDefault("worker.poll_interval", 5*time.Second)
	v.SetDefault("worker.stale_task_age", time.Duration(0))

	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_delay", time.Second)
	v.SetDefault("retry.max_delay", 60*time.Second)

	v.SetDefault("storage.audio_dir", "data/audio")

	v.SetDefault("whisper.model_size", "large-v3")
	v.SetDefault("whisper.device", "cuda")
	v.SetDefault("whisper.compute_type", "int8")
	v.SetDefault("whisper.python", "python3")

	v.SetDefault("transcribe.language", "fr")
	v.SetDefault("transcribe.beam_size", 5)
	v.SetDefault("transcribe.vad_filter", true)
	v.SetDefault("transcribe.initial_prompt", "")

	v.SetDefault("correction.model", "gpt-4o")
	v.SetDefault("correction.temperature", 0.3)
	v.SetDefault("correction.prompt", DefaultCorrectionPrompt)
	v.SetDefault("correction.segments_per_group", 10)
	v.SetDefault("correction.max_concurrency", 10)

	v.SetDefault("edition.model", "gpt-4o")
	v.SetDefault("edition.temperature", 0.7)
	v.SetDefault("edition.prompt", DefaultEditionPrompt)
	v.SetDefault("edition.segments_per_group", 100)
	v.SetDefault("edition.max_concurrency", 10)

	v.SetDefault("summary.model", "gpt-4o")
	v.SetDefault("summary.temperature", 0.7)
	v.SetDefault("summary.max_length", 300)
	v.SetDefault("summary.prompt", "")
	v.SetDefault("summary.prompts", []map[string]any{
		{"name": "Default", "text": DefaultSummaryPrompt},
	})
}
