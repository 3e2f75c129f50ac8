package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"
)

type WorldConfig struct {
	RoomsPath string `json:"rooms_path"`
	NPCsPath  string `json:"npcs_path"`
}

func (c *WorldConfig) Validate() error {
	el := errors.NewErrorList()

	if c.RoomsPath == "" {
		el.Add(fmt.Errorf("rooms_path is required"))
	} else if _, err := os.Stat(c.RoomsPath); err != nil {
		el.Add(fmt.Errorf("invalid rooms_path %q: %w", c.RoomsPath, err))
	}

	// NPCs are optional; a world without them is just quiet.
	if c.NPCsPath != "" {
		if _, err := os.Stat(c.NPCsPath); err != nil {
			el.Add(fmt.Errorf("invalid npcs_path %q: %w", c.NPCsPath, err))
		}
	}

	return el.Err()
}
