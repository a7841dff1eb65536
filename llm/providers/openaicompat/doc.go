// Package openaicompat provides a shared base implementation for every
// backend that speaks the OpenAI Chat Completions format.
//
// OpenAI itself, DeepSeek, Qwen, and most self-hosted gateways accept the
// same wire format. Instead of duplicating the HTTP handling, message
// conversion, and error mapping per backend, callers construct one Provider
// per backend and override only what differs:
//
//   - Provider name and default model
//   - Base URL
//   - Custom headers (if any)
//   - Request hooks for backend-specific body fields
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName: "openai",
//	    APIKey:       key,
//	    BaseURL:      "https://api.openai.com",
//	    DefaultModel: "gpt-4o-mini",
//	}, logger)
package openaicompat
