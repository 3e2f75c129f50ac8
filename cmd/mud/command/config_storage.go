package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-samud/internal/game"
	"github.com/pixil98/go-samud/internal/storage"
)

type StorageConfig struct {
	Players   AssetConfig[*game.PlayerRecord]    `json:"players"`
	Sessions  AssetConfig[*game.SessionRecord]   `json:"sessions"`
	NPCState  AssetConfig[*game.NPCStateRecord]  `json:"npc_state"`
	NPCMemory AssetConfig[*game.NPCMemoryRecord] `json:"npc_memory"`
}

func (c *StorageConfig) Validate() error {
	el := errors.NewErrorList()
	el.Add(c.Players.Validate("players"))
	el.Add(c.Sessions.Validate("sessions"))
	el.Add(c.NPCState.Validate("npc_state"))
	el.Add(c.NPCMemory.Validate("npc_memory"))
	return el.Err()
}

// Stores bundles the record stores the game layers persist through.
type Stores struct {
	Players   storage.Storer[*game.PlayerRecord]
	Sessions  storage.Storer[*game.SessionRecord]
	NPCState  storage.Storer[*game.NPCStateRecord]
	NPCMemory storage.Storer[*game.NPCMemoryRecord]
}

func (c *StorageConfig) BuildStores() (*Stores, error) {
	players, err := c.Players.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating player store: %w", err)
	}
	sessions, err := c.Sessions.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}
	npcState, err := c.NPCState.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating npc state store: %w", err)
	}
	npcMemory, err := c.NPCMemory.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating npc memory store: %w", err)
	}

	return &Stores{
		Players:   players,
		Sessions:  sessions,
		NPCState:  npcState,
		NPCMemory: npcMemory,
	}, nil
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}
