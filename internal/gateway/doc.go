// Package gateway runs one Session per WebSocket connection.
//
// A session registers its connection in the broadcaster's room, then reads
// frames one at a time. Each frame is handed to the room handler and every
// resulting broadcast is published before the next frame is read, so one
// connection's events reach every member in the order they were sent.
// Rejected frames get an error reply on the sender's connection only.
package gateway
