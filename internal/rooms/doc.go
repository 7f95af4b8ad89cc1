// Package rooms holds the per-kind frame handlers. A handler decodes and
// validates one inbound frame, applies any store side effect and returns
// the broadcasts to publish. Handlers never write to connections.
package rooms
