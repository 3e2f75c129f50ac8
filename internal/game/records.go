package game

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

// PlayerRecord is the persisted account state for a player. The record id is
// the lowercase username.
type PlayerRecord struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CurrentRoom  string    `json:"current_room"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login"`
}

func (r *PlayerRecord) Validate() error {
	el := errors.NewErrorList()

	if r.Username == "" {
		el.Add(fmt.Errorf("username must be set"))
	}

	if r.PasswordHash == "" {
		el.Add(fmt.Errorf("password hash must be set"))
	}

	return el.Err()
}

// SessionRecord is an audit row for a single connection. One record per
// session id, deactivated on disconnect.
type SessionRecord struct {
	PlayerId  string    `json:"player_id"`
	IP        string    `json:"ip"`
	Active    bool      `json:"active"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

func (r *SessionRecord) Validate() error {
	el := errors.NewErrorList()

	if r.PlayerId == "" {
		el.Add(fmt.Errorf("player id must be set"))
	}

	return el.Err()
}

// NPCStateRecord is the persisted runtime state of an NPC, keyed by NPC id.
// StateData carries engine state like the ambient throttle timestamp.
type NPCStateRecord struct {
	CurrentRoom string            `json:"current_room"`
	LastMoved   time.Time         `json:"last_moved,omitempty"`
	StateData   map[string]string `json:"state_data,omitempty"`
}

func (r *NPCStateRecord) Validate() error {
	el := errors.NewErrorList()

	if r.CurrentRoom == "" {
		el.Add(fmt.Errorf("current room must be set"))
	}

	return el.Err()
}

// NPCMemoryRecord tracks one NPC's history with one player, keyed by
// "<npc>:<player>". MemoryData carries what the NPC actually remembers
// beyond the bookkeeping columns.
type NPCMemoryRecord struct {
	NPCId            string        `json:"npc_id"`
	PlayerName       string        `json:"player_name"`
	LastInteraction  time.Time     `json:"last_interaction"`
	InteractionCount int           `json:"interaction_count"`
	MemoryData       NPCMemoryData `json:"memory_data"`
}

// NPCMemoryData is the remembered detail of one player.
type NPCMemoryData struct {
	FirstMet time.Time `json:"first_met"`
	Topics   []string  `json:"topics,omitempty"`
}

func (r *NPCMemoryRecord) Validate() error {
	el := errors.NewErrorList()

	if r.NPCId == "" {
		el.Add(fmt.Errorf("npc id must be set"))
	}

	if r.PlayerName == "" {
		el.Add(fmt.Errorf("player name must be set"))
	}

	return el.Err()
}
