// Package openai implements generation.Engine on the OpenAI chat
// completions API through github.com/sashabaranov/go-openai.
package openai
