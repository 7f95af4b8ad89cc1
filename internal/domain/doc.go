// Package domain holds the room, identity and poll types shared by every
// layer, plus the store and account interfaces the adapters implement.
package domain
