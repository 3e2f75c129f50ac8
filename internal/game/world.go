package game

import (
	"sync"
)

var opposites = map[string]string{
	"north":     "south",
	"south":     "north",
	"east":      "west",
	"west":      "east",
	"up":        "down",
	"down":      "up",
	"northeast": "southwest",
	"northwest": "southeast",
	"southeast": "northwest",
	"southwest": "northeast",
}

// Opposite returns the reverse of a direction. Unknown directions return
// themselves so custom exits like "inside" round-trip unchanged.
func Opposite(direction string) string {
	if opp, ok := opposites[direction]; ok {
		return opp
	}
	return direction
}

// KnownOpposite is like Opposite but reports whether the direction has a
// defined reverse. Used when generating return exits, where guessing would
// create nonsense connections.
func KnownOpposite(direction string) (string, bool) {
	opp, ok := opposites[direction]
	return opp, ok
}

// World holds the room graph and its occupancy sets. Rooms are created once
// at load time and never destroyed; occupancy mutates for the life of the
// process under a single lock so no cross-room move is ever observed torn.
type World struct {
	mu           sync.RWMutex
	rooms        map[string]*Room
	startingRoom string
}

func NewWorld(rooms map[string]*Room, startingRoom string) *World {
	return &World{
		rooms:        rooms,
		startingRoom: startingRoom,
	}
}

// GetRoom returns the room or nil. Room identity fields (name, description,
// exits) are immutable after load and safe to read without the lock.
func (w *World) GetRoom(id string) *Room {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.rooms[id]
}

func (w *World) StartingRoom() string {
	return w.startingRoom
}

func (w *World) RoomCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.rooms)
}

// PlacePlayer adds a player to a room's occupancy set. Unknown rooms are a
// no-op so a stale persisted location degrades instead of crashing.
func (w *World) PlacePlayer(playerId, roomId string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := w.rooms[roomId]; ok {
		r.addPlayer(playerId)
	}
}

// RemovePlayer removes a player from a room's occupancy set.
func (w *World) RemovePlayer(playerId, roomId string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := w.rooms[roomId]; ok {
		r.removePlayer(playerId)
	}
}

// MovePlayer moves a player between occupancy sets in one critical section.
// Either side missing is a no-op for that side.
func (w *World) MovePlayer(playerId, fromId, toId string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := w.rooms[fromId]; ok {
		r.removePlayer(playerId)
	}
	if r, ok := w.rooms[toId]; ok {
		r.addPlayer(playerId)
	}
}

// PlaceNPC adds an NPC to a room's occupancy set.
func (w *World) PlaceNPC(npcId, roomId string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := w.rooms[roomId]; ok {
		r.addNPC(npcId)
	}
}

// RemoveNPC removes an NPC from a room's occupancy set.
func (w *World) RemoveNPC(npcId, roomId string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := w.rooms[roomId]; ok {
		r.removeNPC(npcId)
	}
}

// MoveNPC moves an NPC between occupancy sets in one critical section, so an
// NPC is never present in two rooms at once.
func (w *World) MoveNPC(npcId, fromId, toId string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := w.rooms[fromId]; ok {
		r.removeNPC(npcId)
	}
	if r, ok := w.rooms[toId]; ok {
		r.addNPC(npcId)
	}
}

// PlayersIn returns the player ids present in a room, sorted.
func (w *World) PlayersIn(roomId string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if r, ok := w.rooms[roomId]; ok {
		return r.playerIds()
	}
	return nil
}

// NPCsIn returns the NPC ids present in a room, sorted.
func (w *World) NPCsIn(roomId string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if r, ok := w.rooms[roomId]; ok {
		return r.npcIds()
	}
	return nil
}

// DirectionBetween returns the first exit direction leading from one room to
// another. Duplicate exits to the same target resolve to the first match.
func (w *World) DirectionBetween(fromId, toId string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	from, ok := w.rooms[fromId]
	if !ok {
		return "", false
	}
	for _, dir := range sortedExitDirs(from) {
		if from.Exits[dir] == toId {
			return dir, true
		}
	}
	return "", false
}

func sortedExitDirs(r *Room) []string {
	dirs := make([]string, 0, len(r.Exits))
	for dir := range r.Exits {
		dirs = append(dirs, dir)
	}
	// Deterministic iteration keeps DirectionBetween stable.
	for i := 1; i < len(dirs); i++ {
		for j := i; j > 0 && dirs[j] < dirs[j-1]; j-- {
			dirs[j], dirs[j-1] = dirs[j-1], dirs[j]
		}
	}
	return dirs
}
