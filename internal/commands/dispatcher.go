package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pixil98/go-samud/internal/broadcast"
	"github.com/pixil98/go-samud/internal/game"
)

// UserError is a command failure meant for the player's screen. The
// dispatcher prints it verbatim instead of treating it as a server fault.
type UserError struct {
	msg string
}

func (e *UserError) Error() string {
	return e.msg
}

func Userf(format string, args ...any) error {
	return &UserError{msg: fmt.Sprintf(format, args...)}
}

// NPCEngine is the hook the dispatcher uses to let NPCs react to room chat
// and player movement.
type NPCEngine interface {
	ProcessRoomMessage(roomId, playerName, message string)
	HandlePlayerArrival(playerName, roomId string)
	HandlePlayerDeparture(playerName, fromRoomId, toRoomId string)
}

type noopNPCs struct{}

func (noopNPCs) ProcessRoomMessage(string, string, string)    {}
func (noopNPCs) HandlePlayerArrival(string, string)           {}
func (noopNPCs) HandlePlayerDeparture(string, string, string) {}

// Context carries everything a command handler may touch for one invocation.
type Context struct {
	Player *game.Player
	Send   func(msg string)
	Quit   bool

	world *game.World
	reg   *game.Registry
	bc    *broadcast.Broadcaster
	npcs  NPCEngine
}

type handlerFunc func(ctx *Context, args string) error

type command struct {
	name         string
	handler      handlerFunc
	description  string
	usage        string
	requiresAuth bool
}

// Dispatcher parses player input lines and routes them to command handlers.
type Dispatcher struct {
	commands map[string]*command
	order    []string

	world *game.World
	reg   *game.Registry
	bc    *broadcast.Broadcaster
	npcs  NPCEngine
}

func NewDispatcher(world *game.World, reg *game.Registry, bc *broadcast.Broadcaster) *Dispatcher {
	d := &Dispatcher{
		commands: map[string]*command{},
		world:    world,
		reg:      reg,
		bc:       bc,
		npcs:     noopNPCs{},
	}
	d.registerAll()
	return d
}

// SetNPCEngine wires the NPC layer in after construction.
func (d *Dispatcher) SetNPCEngine(e NPCEngine) {
	d.npcs = e
}

func (d *Dispatcher) register(name string, h handlerFunc, description, usage string) {
	d.commands[strings.ToLower(name)] = &command{
		name:         name,
		handler:      h,
		description:  description,
		usage:        usage,
		requiresAuth: true,
	}
	d.order = append(d.order, strings.ToLower(name))
}

func (d *Dispatcher) registerAll() {
	d.register("look", d.cmdLook, "Show room description, exits, and players", "")
	d.register("move", d.cmdMove, "Move in a direction", "move <direction>")
	d.register("n", d.cmdDir("north"), "Move north", "")
	d.register("north", d.cmdDir("north"), "Move north", "")
	d.register("s", d.cmdDir("south"), "Move south", "")
	d.register("south", d.cmdDir("south"), "Move south", "")
	d.register("e", d.cmdDir("east"), "Move east", "")
	d.register("east", d.cmdDir("east"), "Move east", "")
	d.register("w", d.cmdDir("west"), "Move west", "")
	d.register("west", d.cmdDir("west"), "Move west", "")
	d.register("where", d.cmdWhere, "Show your current location", "")

	d.register("say", d.cmdSay, "Say something to everyone in the room", "say <message>")
	d.register("shout", d.cmdShout, "Shout a message to all players", "shout <message>")

	d.register("who", d.cmdWho, "Show all online players", "")
	d.register("help", d.cmdHelp, "Show available commands", "")
	d.register("quit", d.cmdQuit, "Save and disconnect", "")
	d.register("exit", d.cmdQuit, "Save and disconnect", "")
}

// Dispatch runs one input line for a player. It returns true when the player
// asked to quit. Handler panics are contained so a bad command never takes
// the session down.
func (d *Dispatcher) Dispatch(p *game.Player, send func(string), line string) (quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	name, args, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	args = strings.TrimSpace(args)

	cmd, ok := d.commands[name]
	if !ok {
		if similar := d.findSimilar(name); len(similar) > 0 {
			send(fmt.Sprintf("Unknown command '%s'. Did you mean '%s'?\n", name, similar[0]))
		} else {
			send(fmt.Sprintf("Unknown command '%s'. Type 'help' for available commands.\n", name))
		}
		return false
	}

	if cmd.requiresAuth && p == nil {
		send("You must be logged in to use that command.\n")
		return false
	}

	if p != nil {
		p.MarkActive()
	}

	ctx := &Context{
		Player: p,
		Send:   send,
		world:  d.world,
		reg:    d.reg,
		bc:     d.bc,
		npcs:   d.npcs,
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("command panicked", "command", name, "panic", r)
			send("An error occurred while processing your command.\n")
			quit = false
		}
	}()

	err := cmd.handler(ctx, args)
	if err != nil {
		var ue *UserError
		if errors.As(err, &ue) {
			send(ue.msg + "\n")
		} else {
			slog.Error("command failed", "command", name, "error", err)
			send("An error occurred while processing your command.\n")
		}
		return false
	}

	return ctx.Quit
}

// findSimilar suggests commands for a typo. Prefix matches always rank ahead
// of names of comparable length sharing most positional characters. At most
// three.
func (d *Dispatcher) findSimilar(name string) []string {
	var similar []string
	for _, cmdName := range d.order {
		if len(similar) >= 3 {
			return similar
		}
		if strings.HasPrefix(cmdName, name) {
			similar = append(similar, cmdName)
		}
	}

	for _, cmdName := range d.order {
		if len(similar) >= 3 {
			break
		}
		if strings.HasPrefix(cmdName, name) {
			continue
		}
		if len(cmdName) > 3 && len(name) > 3 && abs(len(cmdName)-len(name)) <= 2 {
			matches := 0
			for i := 0; i < len(cmdName) && i < len(name); i++ {
				if cmdName[i] == name[i] {
					matches++
				}
			}
			if matches >= len(name)-2 {
				similar = append(similar, cmdName)
			}
		}
	}
	return similar
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
