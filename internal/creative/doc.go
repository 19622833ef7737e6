// Package creative classifies tracks through a locally hosted Ollama-style
// chat endpoint. It prechecks the configured model, prompts for a single
// JSON object against the closed taxonomy, repairs the usual LLM JSON
// damage, and normalizes every list onto canonical values. Failures never
// propagate as errors: the caller receives defaulted facts plus a status
// string naming the cause.
package creative
