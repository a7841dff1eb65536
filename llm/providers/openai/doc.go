// Package openai adapts the OpenAI Chat Completions API as a dialogue
// backend. It is a thin configuration layer over openaicompat: OpenAI is the
// reference dialect of that wire format, so only the endpoints, the fallback
// model, and the optional OpenAI-Organization header live here.
package openai
