// Package poll keeps poll sessions and their questions in the ephemeral
// store. Every write refreshes the session TTL; sessions, token mappings
// and questions expire together.
//
// Votes are a read-modify-write of the question record without locking.
// Concurrent votes on the same question can lose increments.
package poll
