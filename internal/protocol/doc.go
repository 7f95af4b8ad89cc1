// Package protocol defines the JSON frames exchanged with room clients.
//
// Inbound frames are decoded once, per room kind, into a closed set of event
// types. Decoding runs the field validators, so a decoded event is always
// well formed. Outbound frames are plain structs rendered with encoding/json;
// participant frames carry the sender's display name, overlay renderings omit it.
package protocol
