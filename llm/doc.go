// Package llm provides a provider-neutral chat interface over the LLM
// backends used by browser automation agents. Adapters are included for
// Anthropic, OpenAI, and Google Gemini. All adapters share a single
// retry policy for transient failures and surface billing problems as
// permanent errors.
package llm
