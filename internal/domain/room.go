package domain

import (
	"fmt"
	"strings"
)

type RoomKind string

const (
	RoomCounter RoomKind = "counter"
	RoomTimer   RoomKind = "timer"
	RoomPoll    RoomKind = "poll"
)

func (k RoomKind) Valid() bool {
	switch k {
	case RoomCounter, RoomTimer, RoomPoll:
		return true
	}
	return false
}

// Room is the broadcast scope for one run or poll session. Overlay
// connections join the same Room as participants; their role decides
// which rendering of a broadcast they receive.
type Room struct {
	Kind RoomKind
	ID   string
}

func CounterRoom(runID int64) Room {
	return Room{Kind: RoomCounter, ID: fmt.Sprint(runID)}
}

func TimerRoom(runID int64) Room {
	return Room{Kind: RoomTimer, ID: fmt.Sprint(runID)}
}

func PollRoom(sessionID string) Room {
	return Room{Kind: RoomPoll, ID: sessionID}
}

// Key is the stable string form used for registry maps and bus channels.
func (r Room) Key() string {
	return string(r.Kind) + ":" + r.ID
}

func (r Room) String() string {
	return r.Key()
}

func ParseRoomKey(key string) (Room, error) {
	kind, id, ok := strings.Cut(key, ":")
	if !ok || id == "" || !RoomKind(kind).Valid() {
		return Room{}, fmt.Errorf("invalid room key %q", key)
	}
	return Room{Kind: RoomKind(kind), ID: id}, nil
}
