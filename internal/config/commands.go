package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/jsonc"
)

// Commands is the custom commands file.
type Commands struct {
	// Cooldown in seconds.
	Cooldown          int               `json:"Cooldown"`
	CommandStartRegex string            `json:"CommandStartRegex"`
	Commands          map[string]string `json:"Commands"`
}

// LoadCommands reads the custom commands file. Comments are allowed.
func LoadCommands(path string) (*Commands, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var c Commands
	if err := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(b))).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if c.CommandStartRegex == "" {
		return nil, fmt.Errorf("%s: %w", path, errors.New("CommandStartRegex is empty"))
	}
	return &c, nil
}

func (c *Commands) CooldownDuration() time.Duration {
	return time.Duration(c.Cooldown) * time.Second
}
