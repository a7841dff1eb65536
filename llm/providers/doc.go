// Package providers holds the shared plumbing for concrete backend adapters:
// the OpenAI-compatible wire format, message conversion, and the HTTP status
// to *types.Error mapping every adapter funnels its failures through.
//
// Concrete adapters live in subpackages (openaicompat, anthropic) and import
// this package for everything that is not protocol-specific.
package providers
