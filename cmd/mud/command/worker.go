package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixil98/go-service"

	"github.com/pixil98/go-samud/internal/auth"
	"github.com/pixil98/go-samud/internal/broadcast"
	"github.com/pixil98/go-samud/internal/commands"
	"github.com/pixil98/go-samud/internal/game"
	"github.com/pixil98/go-samud/internal/listener"
	"github.com/pixil98/go-samud/internal/loader"
	"github.com/pixil98/go-samud/internal/npc"
	"github.com/pixil98/go-samud/internal/session"
	"github.com/pixil98/go-samud/internal/tick"
)

const idleCheckInterval = time.Minute

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	stores, err := cfg.Storage.BuildStores()
	if err != nil {
		return nil, fmt.Errorf("creating stores: %w", err)
	}

	worldData, err := loader.LoadRooms(cfg.World.RoomsPath)
	if err != nil {
		return nil, fmt.Errorf("loading rooms: %w", err)
	}
	world := game.NewWorld(worldData.Rooms, worldData.StartingRoom)

	bus, err := cfg.Nats.BuildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	reg := game.NewRegistry(world, stores.Players, stores.Sessions)
	bc := broadcast.New(world, reg, bus)
	reg.SetNotifier(bc)

	npcReg := npc.NewRegistry(world, bc, reg, stores.NPCState, stores.NPCMemory)
	if err := populateNPCs(cfg.World.NPCsPath, worldData, npcReg); err != nil {
		return nil, fmt.Errorf("loading npcs: %w", err)
	}

	sched := tick.NewScheduler(cfg.tickInterval())
	npcReg.RegisterTasks(sched)
	sched.Register("idle_check", idleCheckInterval, func(ctx context.Context) error {
		reg.CheckIdle(time.Now())
		return nil
	})

	dispatcher := commands.NewDispatcher(world, reg, bc)
	dispatcher.SetNPCEngine(npcReg)

	authMgr := auth.NewManager(stores.Players)
	sm := session.NewManager(world, reg, authMgr, dispatcher, bc, npcReg, bus, cfg.MaxConnections)
	cm := listener.NewConnectionManager(sm)

	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		lst, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = lst
	}

	return service.WorkerList{
		"nats":      bus,
		"scheduler": sched,
		"listeners": &listeners,
		"saver":     &stateSaver{npcs: npcReg},
	}, nil
}

// populateNPCs loads the NPC definitions and places each one: spawn rooms
// declared by the world win, then the first allowed movement room.
func populateNPCs(npcsPath string, worldData *loader.WorldData, npcReg *npc.Registry) error {
	if npcsPath == "" {
		return nil
	}

	defs, _, err := loader.LoadNPCs(npcsPath)
	if err != nil {
		return err
	}

	spawnRoom := map[string]string{}
	for roomId, ids := range worldData.RoomNPCs {
		for _, id := range ids {
			spawnRoom[id] = roomId
		}
	}

	loaded := map[string]bool{}
	for _, def := range defs {
		loaded[def.Id] = true

		room := spawnRoom[def.Id]
		if room == "" && def.Movement != nil && len(def.Movement.AllowedRooms) > 0 {
			room = def.Movement.AllowedRooms[0]
		}
		if room == "" {
			slog.Warn("npc has no spawn room", "npc", def.Id)
		}
		npcReg.Register(def, room)
	}

	for roomId, ids := range worldData.RoomNPCs {
		for _, id := range ids {
			if !loaded[id] {
				slog.Warn("room references undefined npc", "room", roomId, "npc", id)
			}
		}
	}

	return nil
}

// stateSaver persists NPC positions on shutdown.
type stateSaver struct {
	npcs *npc.Registry
}

func (s *stateSaver) Start(ctx context.Context) error {
	<-ctx.Done()
	s.npcs.SaveAll()
	return nil
}
