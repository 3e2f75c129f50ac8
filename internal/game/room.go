package game

import (
	"sort"
	"strings"
)

// Room is a location node in the world graph. Occupancy sets are mutated
// through the owning World so every multi-room update happens under one lock.
type Room struct {
	Id          string
	Name        string
	Description string
	Art         string
	Exits       map[string]string // direction -> room id

	players map[string]struct{}
	npcs    map[string]struct{}
}

func NewRoom(id, name, description string) *Room {
	return &Room{
		Id:          id,
		Name:        name,
		Description: description,
		Exits:       map[string]string{},
		players:     map[string]struct{}{},
		npcs:        map[string]struct{}{},
	}
}

// ExitList returns the exit directions as a display string.
func (r *Room) ExitList() string {
	if len(r.Exits) == 0 {
		return "none"
	}
	dirs := make([]string, 0, len(r.Exits))
	for dir := range r.Exits {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return strings.Join(dirs, ", ")
}

func (r *Room) addPlayer(id string)    { r.players[id] = struct{}{} }
func (r *Room) removePlayer(id string) { delete(r.players, id) }
func (r *Room) addNPC(id string)       { r.npcs[id] = struct{}{} }
func (r *Room) removeNPC(id string)    { delete(r.npcs, id) }

func (r *Room) playerIds() []string {
	ids := make([]string, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Room) npcIds() []string {
	ids := make([]string, 0, len(r.npcs))
	for id := range r.npcs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
