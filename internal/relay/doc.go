// Package relay implements the chat relay pipeline pieces that sit between the
// HTTP router and the upstream provider: per-client rate limiting, inbound
// payload validation and the persona-bound assistant call.
package relay
