package npc

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/pixil98/go-samud/internal/game"
	"github.com/pixil98/go-samud/internal/storage"
	"github.com/pixil98/go-samud/internal/tick"
)

const (
	// Pause before an NPC answers a keyword, so replies feel typed rather
	// than instant.
	responseDelay = 1500 * time.Millisecond

	// Stagger between answers when several NPCs respond to one message.
	responseStagger = 500 * time.Millisecond

	greetingDelay = time.Second

	topicLength = 50

	// Engine fields persisted in the state record's data map.
	stateKeyLastAction = "last_action"
)

// Broadcaster is the message fan-out surface the NPC engine needs.
type Broadcaster interface {
	ToRoom(roomId, message string, exclude ...string)
	SystemToRoom(roomId, message string, exclude ...string)
}

// Presence reports which players are in a room.
type Presence interface {
	PlayersInRoom(roomId string) []*game.Player
}

// Registry owns the live NPCs: placement, wandering, keyword responses, and
// persistence of their state and memories.
type Registry struct {
	mu   sync.Mutex
	npcs map[string]*NPC

	world    *game.World
	bc       Broadcaster
	presence Presence

	stateStore  storage.Storer[*game.NPCStateRecord]
	memoryStore storage.Storer[*game.NPCMemoryRecord]

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewRegistry(world *game.World, bc Broadcaster, presence Presence,
	stateStore storage.Storer[*game.NPCStateRecord],
	memoryStore storage.Storer[*game.NPCMemoryRecord]) *Registry {
	return &Registry{
		npcs:        map[string]*NPC{},
		world:       world,
		bc:          bc,
		presence:    presence,
		stateStore:  stateStore,
		memoryStore: memoryStore,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *Registry) randFloat() float64 {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng.Float64()
}

// Register creates an NPC from its definition and places it. Persisted state
// wins over the configured initial room when the saved room still exists.
func (r *Registry) Register(def *Definition, initialRoom string) *NPC {
	n := New(def)

	if rec := r.stateStore.Get(def.Id); rec != nil {
		if r.world.GetRoom(rec.CurrentRoom) != nil {
			initialRoom = rec.CurrentRoom
		}
		var lastAction time.Time
		if v, ok := rec.StateData[stateKeyLastAction]; ok {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				lastAction = t
			}
		}
		n.restoreState(rec.LastMoved, lastAction)
	}
	r.restoreMemories(n)

	r.mu.Lock()
	r.npcs[def.Id] = n
	r.mu.Unlock()

	if initialRoom != "" {
		r.Place(def.Id, initialRoom)
	}

	slog.Info("registered npc", "npc", def.Id, "name", def.Name, "room", initialRoom)
	return n
}

// Unregister removes an NPC from the world and the registry.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	n, ok := r.npcs[id]
	if ok {
		delete(r.npcs, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	if room := n.Room(); room != "" {
		r.world.RemoveNPC(id, room)
	}
	slog.Info("unregistered npc", "npc", id)
}

func (r *Registry) Get(id string) *NPC {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.npcs[id]
}

// InRoom returns the NPCs in a room, in the world's sorted id order.
func (r *Registry) InRoom(roomId string) []*NPC {
	ids := r.world.NPCsIn(roomId)

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*NPC, 0, len(ids))
	for _, id := range ids {
		if n, ok := r.npcs[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Place puts an NPC in a room without movement broadcasts. Used for initial
// placement and state restore.
func (r *Registry) Place(id, roomId string) {
	n := r.Get(id)
	if n == nil {
		slog.Warn("attempted to place unknown npc", "npc", id)
		return
	}

	if old := n.Room(); old != "" {
		r.world.MoveNPC(id, old, roomId)
	} else {
		r.world.PlaceNPC(id, roomId)
	}
	n.setRoom(roomId)
}

// Move walks an NPC to a new room with departure and arrival notices, then
// persists the new position. Refused when the destination is off the NPC's
// allowed list.
func (r *Registry) Move(id, destId string) bool {
	n := r.Get(id)
	if n == nil {
		return false
	}
	if !n.CanMoveTo(destId) {
		slog.Debug("npc cannot move to room", "npc", id, "room", destId)
		return false
	}

	oldRoom := n.Room()
	if oldRoom != "" {
		r.bc.SystemToRoom(oldRoom, n.MovementMessage(r.roomName(destId), true))
	}

	r.Place(id, destId)
	n.markMoved(time.Now())

	origin := "somewhere"
	if oldRoom != "" {
		origin = r.roomName(oldRoom)
	}
	r.bc.SystemToRoom(destId, n.MovementMessage(origin, false))

	r.saveState(n)

	slog.Info("npc moved", "npc", id, "from", oldRoom, "to", destId)
	return true
}

func (r *Registry) roomName(roomId string) string {
	if room := r.world.GetRoom(roomId); room != nil {
		return room.Name
	}
	return roomId
}

// hasPlayers reports whether anyone is in the room. Wandering is suppressed
// while the NPC has company, on the assumption they may be mid-conversation.
func (r *Registry) hasPlayers(roomId string) bool {
	return roomId != "" && len(r.presence.PlayersInRoom(roomId)) > 0
}

// ProcessRoomMessage checks a player's room chat against every NPC in the
// room and schedules their responses. Replies go out after a short delay,
// staggered when more than one NPC answers.
func (r *Registry) ProcessRoomMessage(roomId, playerName, message string) {
	type reply struct {
		n        *NPC
		response string
	}

	var replies []reply
	now := time.Now()
	for _, n := range r.InRoom(roomId) {
		response, ok := n.MatchKeyword(message)
		if !ok {
			continue
		}

		topic := message
		if len(topic) > topicLength {
			topic = topic[:topicLength]
		}
		n.Remember(playerName, topic, now)
		r.saveMemory(n, playerName, now)

		replies = append(replies, reply{n: n, response: response})
	}

	if len(replies) == 0 {
		return
	}

	// Responding NPCs are in conversation and stay put until the reply is out.
	for _, rep := range replies {
		rep.n.SetInteracting(true)
	}

	go func() {
		time.Sleep(responseDelay)
		for i, rep := range replies {
			if i > 0 {
				time.Sleep(responseStagger)
			}
			line := ExpandTemplate(rep.response, TemplateData{Player: playerName, NPC: rep.n.Def.Name})
			rep.n.SetInteracting(false)
			r.bc.ToRoom(roomId, fmt.Sprintf("[NPC] %s: %s", rep.n.Def.Name, line))
		}
	}()
}

// HandlePlayerArrival lets one NPC in the room greet an arriving player after
// a beat. Only the first NPC with something to say speaks, to avoid a chorus.
func (r *Registry) HandlePlayerArrival(playerName, roomId string) {
	npcs := r.InRoom(roomId)
	if len(npcs) == 0 {
		return
	}

	go func() {
		time.Sleep(greetingDelay)
		now := time.Now()
		for _, n := range npcs {
			var line string
			if n.Knows(playerName, now) {
				line = n.Greeting(playerName, true)
			} else if msg := n.ArrivalReaction(playerName); msg != "" {
				line = msg
			}
			if line == "" {
				continue
			}
			r.bc.ToRoom(roomId, fmt.Sprintf("[NPC] %s: %s", n.Def.Name, line))
			return
		}
	}()
}

// HandlePlayerDeparture lets one NPC in the room the player left say goodbye.
// NPCs without a departure line still bid farewell to players they remember.
func (r *Registry) HandlePlayerDeparture(playerName, fromRoomId, toRoomId string) {
	now := time.Now()
	for _, n := range r.InRoom(fromRoomId) {
		msg := n.DepartureReaction(playerName)
		if msg == "" && n.Knows(playerName, now) {
			msg = n.Farewell(playerName)
		}
		if msg == "" {
			continue
		}
		r.bc.ToRoom(fromRoomId, fmt.Sprintf("[NPC] %s: %s", n.Def.Name, msg))
		return
	}
}

func (r *Registry) saveState(n *NPC) {
	err := r.stateStore.Save(n.Def.Id, &game.NPCStateRecord{
		CurrentRoom: n.Room(),
		LastMoved:   n.LastMoved(),
		StateData: map[string]string{
			stateKeyLastAction: n.LastAction().Format(time.RFC3339),
		},
	})
	if err != nil {
		slog.Error("saving npc state", "npc", n.Def.Id, "error", err)
	}
}

func (r *Registry) saveMemory(n *NPC, playerName string, now time.Time) {
	n.mu.Lock()
	mem, ok := n.memories[playerName]
	var count int
	var firstMet time.Time
	var topics []string
	if ok {
		count = mem.interactionCount
		firstMet = mem.firstMet
		topics = append([]string(nil), mem.topics...)
	}
	n.mu.Unlock()

	if !ok {
		return
	}

	key := fmt.Sprintf("%s:%s", n.Def.Id, strings.ToLower(playerName))
	err := r.memoryStore.Save(key, &game.NPCMemoryRecord{
		NPCId:            n.Def.Id,
		PlayerName:       playerName,
		LastInteraction:  now,
		InteractionCount: count,
		MemoryData: game.NPCMemoryData{
			FirstMet: firstMet,
			Topics:   topics,
		},
	})
	if err != nil {
		slog.Error("saving npc memory", "npc", n.Def.Id, "player", playerName, "error", err)
	}
}

func (r *Registry) restoreMemories(n *NPC) {
	prefix := n.Def.Id + ":"
	for key, rec := range r.memoryStore.GetAll() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		firstMet := rec.MemoryData.FirstMet
		if firstMet.IsZero() {
			firstMet = rec.LastInteraction
		}
		n.mu.Lock()
		n.memories[rec.PlayerName] = &playerMemory{
			firstMet:         firstMet,
			lastSeen:         rec.LastInteraction,
			interactionCount: rec.InteractionCount,
			topics:           append([]string(nil), rec.MemoryData.Topics...),
		}
		n.mu.Unlock()
	}
}

// SaveAll persists every NPC's position, for shutdown.
func (r *Registry) SaveAll() {
	r.mu.Lock()
	npcs := make([]*NPC, 0, len(r.npcs))
	for _, n := range r.npcs {
		npcs = append(npcs, n)
	}
	r.mu.Unlock()

	for _, n := range npcs {
		r.saveState(n)
	}
	slog.Info("saved npc states", "count", len(npcs))
}

// RegisterTasks wires every NPC's movement and ambient behavior into the
// scheduler, plus a period-change hook that wakes scheduled NPCs immediately
// when their destination for the new period differs from where they are.
func (r *Registry) RegisterTasks(sched *tick.Scheduler) {
	r.mu.Lock()
	npcs := make(map[string]*NPC, len(r.npcs))
	for id, n := range r.npcs {
		npcs[id] = n
	}
	r.mu.Unlock()

	for id, n := range npcs {
		if n.Def.Movement != nil {
			sched.Register("npc_move_"+id, n.tickInterval(), r.movementTask(id))
		}
		if len(n.Def.Ambient) > 0 {
			interval := ambientCooldown + time.Duration(r.randFloat()*float64(ambientCooldown))
			sched.Register("npc_ambient_"+id, interval, r.ambientTask(id))
		}
	}

	sched.OnPeriodChange(func(old, new tick.Period) {
		r.mu.Lock()
		defer r.mu.Unlock()
		for id, n := range r.npcs {
			if n.Def.Movement == nil || len(n.Def.Movement.Schedule) == 0 {
				continue
			}
			if target, ok := n.Def.Movement.Schedule[string(new)]; ok && target != n.Room() {
				sched.ForceWake("npc_move_" + id)
			}
		}
	})
}

// movementTask checks one NPC's wandering each interval. The scheduler's
// interval gates how often we look; NextRoom applies the NPC's own timing and
// probability on top.
func (r *Registry) movementTask(id string) tick.TaskFunc {
	return func(ctx context.Context) error {
		n := r.Get(id)
		if n == nil {
			return tick.ErrUnregister
		}

		r.rngMu.Lock()
		next := n.NextRoom(time.Now(), r.rng)
		r.rngMu.Unlock()

		if next == "" || next == n.Room() {
			return nil
		}
		if r.hasPlayers(n.Room()) {
			return nil
		}

		r.Move(id, next)
		return nil
	}
}

// ambientTask emits flavor actions while players are around to see them.
func (r *Registry) ambientTask(id string) tick.TaskFunc {
	return func(ctx context.Context) error {
		n := r.Get(id)
		if n == nil || n.Room() == "" {
			return tick.ErrUnregister
		}

		players := r.presence.PlayersInRoom(n.Room())
		if len(players) == 0 {
			return nil
		}

		r.rngMu.Lock()
		action := n.AmbientAction(len(players), time.Now(), r.rng)
		r.rngMu.Unlock()

		if action != "" {
			r.bc.ToRoom(n.Room(), action)
		}
		return nil
	}
}
