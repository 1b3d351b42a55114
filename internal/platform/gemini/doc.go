// Package gemini implements generation.Engine on Google's Gemini API
// through the google.golang.org/genai client.
//
// Structured completions send the generation.Schema as a Gemini response
// schema with a JSON MIME type, then decode the reply text. Throttling
// and quota errors are wrapped with generation.ErrRateLimited so the
// batch retry policy can back off.
package gemini
