package npc

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pixil98/go-samud/internal/tick"
)

const (
	defaultTickInterval = 120 * time.Second
	defaultMoveChance   = 0.3

	// Minimum gap between two ambient actions from the same NPC.
	ambientCooldown = 30 * time.Second

	defaultMemoryDays = 30
)

// Dialogue keys recognized in NPC definitions.
const (
	dlgGreetingNew     = "greeting_new"
	dlgGreetingReturn  = "greeting_return"
	dlgFarewell        = "farewell"
	dlgPlayerArrival   = "player_arrival"
	dlgPlayerDeparture = "player_departure"
)

// MovementPolicy controls when and where an NPC wanders.
type MovementPolicy struct {
	AllowedRooms     []string          `yaml:"allowed_rooms"`
	TickInterval     int               `yaml:"tick_interval"`
	Probability      float64           `yaml:"movement_probability"`
	Schedule         map[string]string `yaml:"schedule"`
	DepartureMessage string            `yaml:"departure_message"`
	ArrivalMessage   string            `yaml:"arrival_message"`
}

// MemoryPolicy controls whether and how long an NPC remembers players.
// Remembering is on unless explicitly disabled.
type MemoryPolicy struct {
	RememberNames  *bool `yaml:"remember_names"`
	RememberTopics *bool `yaml:"remember_topics"`
	MemoryDuration int   `yaml:"memory_duration"`
}

func (m *MemoryPolicy) remembersNames() bool {
	return m == nil || m.RememberNames == nil || *m.RememberNames
}

func (m *MemoryPolicy) remembersTopics() bool {
	return m == nil || m.RememberTopics == nil || *m.RememberTopics
}

func (m *MemoryPolicy) duration() time.Duration {
	days := defaultMemoryDays
	if m != nil && m.MemoryDuration > 0 {
		days = m.MemoryDuration
	}
	return time.Duration(days) * 24 * time.Hour
}

// ContextPolicy controls how an NPC adjusts to its surroundings.
type ContextPolicy struct {
	CrowdAware     bool              `yaml:"crowd_aware"`
	CrowdReactions map[string]string `yaml:"crowd_reactions"`
	TimeAware      bool              `yaml:"time_aware"`
}

// Definition is the static configuration of an NPC, loaded from its file.
type Definition struct {
	Id          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Personality string            `yaml:"personality"`
	Dialogue    map[string]string `yaml:"dialogue"`
	Keywords    map[string]string `yaml:"keywords"`
	Movement    *MovementPolicy   `yaml:"movement"`
	Ambient     []string          `yaml:"ambient_actions"`
	Memory      *MemoryPolicy     `yaml:"memory"`
	Context     *ContextPolicy    `yaml:"context"`
}

type playerMemory struct {
	firstMet         time.Time
	lastSeen         time.Time
	interactionCount int
	topics           []string
}

// NPC is the runtime state of one NPC instance.
type NPC struct {
	Def *Definition

	mu          sync.Mutex
	room        string
	lastMoved   time.Time
	lastAction  time.Time
	interacting bool
	memories    map[string]*playerMemory
}

func New(def *Definition) *NPC {
	now := time.Now()
	return &NPC{
		Def:        def,
		lastMoved:  now,
		lastAction: now,
		memories:   map[string]*playerMemory{},
	}
}

func (n *NPC) Room() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.room
}

func (n *NPC) setRoom(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.room = id
}

func (n *NPC) LastMoved() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastMoved
}

func (n *NPC) markMoved(t time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastMoved = t
}

func (n *NPC) LastAction() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastAction
}

func (n *NPC) restoreState(lastMoved, lastAction time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !lastMoved.IsZero() {
		n.lastMoved = lastMoved
	}
	if !lastAction.IsZero() {
		n.lastAction = lastAction
	}
}

func (n *NPC) SetInteracting(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.interacting = v
}

// Greeting returns what the NPC says to an arriving player, using the return
// greeting for players it remembers.
func (n *NPC) Greeting(playerName string, known bool) string {
	if known {
		if g, ok := n.Def.Dialogue[dlgGreetingReturn]; ok {
			return ExpandTemplate(g, TemplateData{Player: playerName, NPC: n.Def.Name})
		}
	}
	if g, ok := n.Def.Dialogue[dlgGreetingNew]; ok {
		return ExpandTemplate(g, TemplateData{Player: playerName, NPC: n.Def.Name})
	}
	return fmt.Sprintf("%s nods in acknowledgment.", n.Def.Name)
}

// Farewell returns the NPC's goodbye to a player it knows, or empty when no
// farewell line is configured.
func (n *NPC) Farewell(playerName string) string {
	msg, ok := n.Def.Dialogue[dlgFarewell]
	if !ok {
		return ""
	}
	return ExpandTemplate(msg, TemplateData{Player: playerName, NPC: n.Def.Name})
}

// ArrivalReaction returns the NPC's line when a player walks in, or empty if
// it has none configured.
func (n *NPC) ArrivalReaction(playerName string) string {
	msg, ok := n.Def.Dialogue[dlgPlayerArrival]
	if !ok {
		return ""
	}
	return ExpandTemplate(msg, TemplateData{Player: playerName, NPC: n.Def.Name})
}

// DepartureReaction returns the NPC's line when a player walks out, or empty.
func (n *NPC) DepartureReaction(playerName string) string {
	msg, ok := n.Def.Dialogue[dlgPlayerDeparture]
	if !ok {
		return ""
	}
	return ExpandTemplate(msg, TemplateData{Player: playerName, NPC: n.Def.Name})
}

// MatchKeyword finds the response for a message. Triggers are pipe-separated
// per entry; the longest matching trigger wins, whether it matched on a word
// boundary or as a substring.
func (n *NPC) MatchKeyword(message string) (string, bool) {
	lower := strings.ToLower(message)

	var best string
	bestLen := 0
	for pattern, response := range n.Def.Keywords {
		for _, trigger := range strings.Split(pattern, "|") {
			trigger = strings.ToLower(strings.TrimSpace(trigger))
			if trigger == "" || len(trigger) <= bestLen {
				continue
			}

			wordPattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(trigger) + `\b`)
			if wordPattern.MatchString(lower) || strings.Contains(lower, trigger) {
				best = response
				bestLen = len(trigger)
			}
		}
	}

	return best, bestLen > 0
}

// AmbientAction picks a flavor action, or empty when throttled or none apply.
// Crowd-aware NPCs pick a reaction matching how busy the room is.
func (n *NPC) AmbientAction(playerCount int, now time.Time, rng *rand.Rand) string {
	if len(n.Def.Ambient) == 0 {
		return ""
	}

	n.mu.Lock()
	if now.Sub(n.lastAction) < ambientCooldown {
		n.mu.Unlock()
		return ""
	}
	n.lastAction = now
	n.mu.Unlock()

	action := n.Def.Ambient[rng.Intn(len(n.Def.Ambient))]
	if n.Def.Context != nil && n.Def.Context.CrowdAware && playerCount > 0 {
		reactions := n.Def.Context.CrowdReactions
		switch {
		case playerCount <= 2 && reactions["few"] != "":
			action = reactions["few"]
		case playerCount > 4 && reactions["many"] != "":
			action = reactions["many"]
		}
	}

	return fmt.Sprintf("%s %s.", n.Def.Name, ExpandTemplate(action, TemplateData{NPC: n.Def.Name}))
}

// CanMoveTo reports whether a room is on the NPC's allowed list.
func (n *NPC) CanMoveTo(roomId string) bool {
	if n.Def.Movement == nil {
		return false
	}
	for _, r := range n.Def.Movement.AllowedRooms {
		if r == roomId {
			return true
		}
	}
	return false
}

func (n *NPC) tickInterval() time.Duration {
	if n.Def.Movement != nil && n.Def.Movement.TickInterval > 0 {
		return time.Duration(n.Def.Movement.TickInterval) * time.Second
	}
	return defaultTickInterval
}

func (n *NPC) moveChance() float64 {
	if n.Def.Movement != nil && n.Def.Movement.Probability > 0 {
		return n.Def.Movement.Probability
	}
	return defaultMoveChance
}

// NextRoom decides where the NPC wants to go, or empty to stay put. Schedule
// destinations take precedence over random wandering. An NPC mid-conversation
// never moves.
func (n *NPC) NextRoom(now time.Time, rng *rand.Rand) string {
	if n.Def.Movement == nil {
		return ""
	}

	n.mu.Lock()
	interacting := n.interacting
	lastMoved := n.lastMoved
	current := n.room
	n.mu.Unlock()

	if interacting {
		return ""
	}
	if now.Sub(lastMoved) < n.tickInterval() {
		return ""
	}
	if rng.Float64() > n.moveChance() {
		return ""
	}

	if len(n.Def.Movement.Schedule) > 0 {
		if target, ok := n.Def.Movement.Schedule[string(tick.PeriodAt(now))]; ok && target != current {
			return target
		}
	}

	var candidates []string
	for _, r := range n.Def.Movement.AllowedRooms {
		if r != current {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[rng.Intn(len(candidates))]
}

// MovementMessage formats the departure or arrival broadcast for a move.
func (n *NPC) MovementMessage(otherRoom string, departure bool) string {
	if departure {
		if n.Def.Movement != nil && n.Def.Movement.DepartureMessage != "" {
			return ExpandTemplate(n.Def.Movement.DepartureMessage, TemplateData{NPC: n.Def.Name, Destination: otherRoom})
		}
		return fmt.Sprintf("%s heads off toward %s.", n.Def.Name, otherRoom)
	}
	if n.Def.Movement != nil && n.Def.Movement.ArrivalMessage != "" {
		return ExpandTemplate(n.Def.Movement.ArrivalMessage, TemplateData{NPC: n.Def.Name, Origin: otherRoom})
	}
	return fmt.Sprintf("%s arrives.", n.Def.Name)
}

// Remember records an interaction with a player. No-op when the NPC's memory
// policy disables name tracking.
func (n *NPC) Remember(playerName, topic string, now time.Time) {
	if !n.Def.Memory.remembersNames() {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	mem, ok := n.memories[playerName]
	if !ok {
		mem = &playerMemory{firstMet: now}
		n.memories[playerName] = mem
	}
	mem.lastSeen = now
	mem.interactionCount++

	if topic != "" && n.Def.Memory.remembersTopics() {
		for _, t := range mem.topics {
			if t == topic {
				return
			}
		}
		mem.topics = append(mem.topics, topic)
	}
}

// Knows reports whether the NPC remembers a player. Expired memories are
// forgotten on the spot.
func (n *NPC) Knows(playerName string, now time.Time) bool {
	if !n.Def.Memory.remembersNames() {
		return false
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	mem, ok := n.memories[playerName]
	if !ok {
		return false
	}

	if now.Sub(mem.lastSeen) > n.Def.Memory.duration() {
		delete(n.memories, playerName)
		return false
	}
	return true
}
