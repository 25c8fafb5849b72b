// Package provider provides the LLM provider abstraction layer for the
// CoreAssist agent runtime.
//
// Each Provider translates the uniform CompletionRequest into its own wire
// protocol and decodes the response into the shared streamevent.Reader
// sequence (internal/streamevent), so the agent loop never has to know
// whether it is talking to Anthropic, OpenAI, or an OpenAI-compatible
// endpoint such as Volcengine ARK.
//
// # Supported providers
//
//   - Anthropic: the native Messages streaming API.
//   - OpenAI: the Chat Completions streaming API, and anything that
//     speaks the same wire format behind a different BaseURL (Azure
//     OpenAI, local runtimes, ARK).
//
// Registry resolves a "provider/model" string into a concrete Provider and
// validated types.Model, and is the only place provider construction from
// process environment and config happens.
package provider
