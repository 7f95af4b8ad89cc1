// Package auth turns handshake credentials into identities and roles.
//
// Counter and timer rooms accept an optional HS256 bearer credential; a
// missing or unusable one yields an anonymous identity. Poll rooms are
// entered with an opaque room-access token mapped to a session in the
// ephemeral store; the token text itself carries the moderator marker.
package auth
