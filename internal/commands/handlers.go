package commands

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pixil98/go-samud/internal/display"
	"github.com/pixil98/go-samud/internal/game"
)

const maxMessageLength = 250

var movementShortcuts = map[string]string{
	"n": "north",
	"s": "south",
	"e": "east",
	"w": "west",
	"u": "up",
	"d": "down",
}

// DescribeRoom writes the standard room view: name, art, description, exits,
// and who else is there. Shared by look, movement, and the login placement.
func DescribeRoom(send func(string), world *game.World, reg *game.Registry, roomId, selfId string, showAlone bool) {
	room := world.GetRoom(roomId)
	if room == nil {
		send("You are in a void. Something went wrong!\n")
		return
	}

	send(fmt.Sprintf("\n%s\n", room.Name))
	if room.Art != "" {
		send(fmt.Sprintf("%s\n", room.Art))
	}
	send(fmt.Sprintf("%s\n", display.Wrap(room.Description)))
	send(fmt.Sprintf("Exits: %s\n", room.ExitList()))

	var names []string
	for _, p := range reg.PlayersInRoom(roomId) {
		if p.Id != selfId {
			names = append(names, p.Username)
		}
	}
	if len(names) > 0 {
		send(fmt.Sprintf("Players here: %s\n", strings.Join(names, ", ")))
	} else if showAlone {
		send("You are alone here.\n")
	}
}

func (d *Dispatcher) cmdLook(ctx *Context, args string) error {
	DescribeRoom(ctx.Send, ctx.world, ctx.reg, ctx.Player.Room(), ctx.Player.Id, true)
	return nil
}

func (d *Dispatcher) cmdMove(ctx *Context, args string) error {
	if args == "" {
		return Userf("Move where? Usage: move <direction>")
	}
	return d.movePlayer(ctx, strings.ToLower(args))
}

func (d *Dispatcher) cmdDir(direction string) handlerFunc {
	return func(ctx *Context, args string) error {
		return d.movePlayer(ctx, direction)
	}
}

func (d *Dispatcher) movePlayer(ctx *Context, direction string) error {
	if full, ok := movementShortcuts[direction]; ok {
		direction = full
	}

	room := ctx.world.GetRoom(ctx.Player.Room())
	if room == nil {
		return Userf("You cannot move from here.")
	}

	destId, ok := room.Exits[direction]
	if !ok {
		return Userf("You can't go %s. Available exits: %s", direction, room.ExitList())
	}

	dest := ctx.world.GetRoom(destId)
	if dest == nil {
		return Userf("That direction leads nowhere.")
	}

	oldRoom := ctx.Player.Room()
	ctx.reg.MovePlayer(ctx.Player, destId, direction)
	ctx.npcs.HandlePlayerDeparture(ctx.Player.Username, oldRoom, destId)

	DescribeRoom(ctx.Send, ctx.world, ctx.reg, destId, ctx.Player.Id, false)
	ctx.npcs.HandlePlayerArrival(ctx.Player.Username, destId)

	return nil
}

func (d *Dispatcher) cmdWhere(ctx *Context, args string) error {
	room := ctx.world.GetRoom(ctx.Player.Room())
	if room == nil {
		return Userf("Your location is unknown.")
	}
	ctx.Send(fmt.Sprintf("You are at: %s\n", room.Name))
	return nil
}

func (d *Dispatcher) cmdSay(ctx *Context, args string) error {
	if args == "" {
		return Userf("Say what? Usage: say <message>")
	}

	if !ctx.Player.AllowMessage(time.Now()) {
		return Userf("You are speaking too quickly. Please slow down.")
	}

	message := truncateMessage(args)
	ctx.bc.RoomMessage(ctx.Player.Room(), ctx.Player.Username, message)
	ctx.npcs.ProcessRoomMessage(ctx.Player.Room(), ctx.Player.Username, message)
	return nil
}

func (d *Dispatcher) cmdShout(ctx *Context, args string) error {
	if args == "" {
		return Userf("Shout what? Usage: shout <message>")
	}

	if !ctx.Player.AllowMessage(time.Now()) {
		return Userf("You are shouting too quickly. Please slow down.")
	}

	ctx.bc.GlobalMessage(ctx.Player.Username, truncateMessage(args))
	return nil
}

func truncateMessage(msg string) string {
	if len(msg) <= maxMessageLength {
		return msg
	}
	// Back off to a rune boundary so the cut never emits a partial character.
	cut := maxMessageLength
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "..."
}

func (d *Dispatcher) cmdWho(ctx *Context, args string) error {
	players := ctx.reg.Online()
	if len(players) == 0 {
		ctx.Send("No players online.\n")
		return nil
	}

	ctx.Send(fmt.Sprintf("\n=== Online Players (%d) ===\n", len(players)))
	for _, p := range players {
		roomName := "Unknown"
		if room := ctx.world.GetRoom(p.Room()); room != nil {
			roomName = room.Name
		}
		ctx.Send(fmt.Sprintf("  %-20s - %s\n", p.Username, roomName))
	}
	return nil
}

func (d *Dispatcher) cmdHelp(ctx *Context, args string) error {
	if args != "" {
		name := strings.ToLower(strings.TrimSpace(args))
		cmd, ok := d.commands[name]
		if !ok {
			return Userf("No help available for '%s'.", name)
		}
		ctx.Send(fmt.Sprintf("\n%s: %s\n", strings.ToUpper(cmd.name), cmd.description))
		if cmd.usage != "" {
			ctx.Send(fmt.Sprintf("Usage: %s\n", cmd.usage))
		}
		return nil
	}

	ctx.Send("\n=== Available Commands ===\n")

	groups := []struct {
		title string
		names []string
	}{
		{"Navigation", []string{"look", "move", "n", "s", "e", "w", "where"}},
		{"Communication", []string{"say", "shout"}},
		{"System", []string{"who", "help", "quit"}},
	}

	for _, g := range groups {
		ctx.Send(fmt.Sprintf("\n%s:\n", g.title))
		for _, name := range g.names {
			if cmd, ok := d.commands[name]; ok {
				ctx.Send(fmt.Sprintf("  %-10s - %s\n", cmd.name, cmd.description))
			}
		}
	}

	ctx.Send("\nType 'help <command>' for more information about a specific command.\n")
	return nil
}

func (d *Dispatcher) cmdQuit(ctx *Context, args string) error {
	ctx.Send("Saving your progress...\n")
	ctx.Send("Goodbye! Come back soon!\n")
	ctx.Quit = true
	return nil
}
