package broadcast

import (
	"fmt"
	"log/slog"

	"github.com/pixil98/go-samud/internal/game"
	"github.com/pixil98/go-samud/internal/messaging"
)

// Publisher is the message bus surface the broadcaster fans out on.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Broadcaster resolves recipients against the world and registry, then
// publishes one message per recipient on their player subject. A failed
// publish is logged and skipped; the rest of the fan-out proceeds.
type Broadcaster struct {
	world *game.World
	reg   *game.Registry
	pub   Publisher
}

func New(world *game.World, reg *game.Registry, pub Publisher) *Broadcaster {
	return &Broadcaster{
		world: world,
		reg:   reg,
		pub:   pub,
	}
}

func (b *Broadcaster) deliver(playerId, message string) {
	err := b.pub.Publish(messaging.PlayerSubject(playerId), []byte(message))
	if err != nil {
		slog.Error("delivering message", "player", playerId, "error", err)
	}
}

// ToRoom sends a message to every player in a room, minus the excluded ids.
// Broadcasting to a room that does not exist is logged and dropped.
func (b *Broadcaster) ToRoom(roomId, message string, exclude ...string) {
	if b.world.GetRoom(roomId) == nil {
		slog.Warn("broadcast to non-existent room", "room", roomId)
		return
	}

	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	for _, p := range b.reg.PlayersInRoom(roomId) {
		if skip[p.Id] {
			continue
		}
		b.deliver(p.Id, message)
	}
}

// ToAll sends a message to every online player, minus the excluded ids.
func (b *Broadcaster) ToAll(message string, exclude ...string) {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	for _, p := range b.reg.Online() {
		if skip[p.Id] {
			continue
		}
		b.deliver(p.Id, message)
	}
}

// SystemToRoom sends a system notice to a room.
func (b *Broadcaster) SystemToRoom(roomId, message string, exclude ...string) {
	b.ToRoom(roomId, fmt.Sprintf("[System] %s", message), exclude...)
}

// SystemToAll sends a system notice to everyone online.
func (b *Broadcaster) SystemToAll(message string) {
	b.ToAll(fmt.Sprintf("[System] %s", message))
}

// RoomMessage sends a player's say to their room. The sender is included so
// they see their own words the same way everyone else does.
func (b *Broadcaster) RoomMessage(roomId, username, message string) {
	b.ToRoom(roomId, fmt.Sprintf("[Room] %s: %s", username, message))
}

// GlobalMessage sends a player's shout to everyone online, sender included.
func (b *Broadcaster) GlobalMessage(username, message string) {
	b.ToAll(fmt.Sprintf("[Global] %s: %s", username, message))
}

// AnnounceConnection tells the whole server someone joined or left.
func (b *Broadcaster) AnnounceConnection(username string, connected bool) {
	if connected {
		b.SystemToAll(fmt.Sprintf("%s has joined the game.", username))
	} else {
		b.SystemToAll(fmt.Sprintf("%s has left the game.", username))
	}
}
