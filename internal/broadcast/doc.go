// Package broadcast implements the room registry using the actor pattern.
//
// A single goroutine owns the room membership map and is driven through a
// command channel (no mutexes). Publishes go to a Transport; every process
// subscribes once and feeds received messages back into its own actor, which
// fans them out to local members. Per-connection write goroutines isolate
// slow clients, and a client whose buffer is full is evicted.
package broadcast
