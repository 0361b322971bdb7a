package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/jsonc"
)

var ErrNoToken = errors.New("bot token is empty")

// Bot is the remote bot settings file.
type Bot struct {
	LogChannelIDs []json.Number `json:"LogChannelsIds"`
	Token         string        `json:"Token"`
	LogStarter    string        `json:"LogStarter,omitempty"`
	IgnoredLogs   []string      `json:"IgnoredLogs,omitempty"`

	mu   sync.Mutex
	path string
}

// LoadBot reads the bot settings file. Comments and trailing commas are allowed.
func LoadBot(path string) (*Bot, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	d := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(b)))
	d.UseNumber()
	var bot Bot
	if err := d.Decode(&bot); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if bot.Token == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrNoToken)
	}
	for _, id := range bot.LogChannelIDs {
		if _, err := id.Int64(); err != nil {
			return nil, fmt.Errorf("%s: invalid channel id %q", path, id)
		}
	}
	bot.path = path
	return &bot, nil
}

// Path is the file the settings were loaded from and are saved to.
func (b *Bot) Path() string { return b.path }

// ChannelIDs returns the configured channel ids in order.
func (b *Bot) ChannelIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.LogChannelIDs))
	for _, id := range b.LogChannelIDs {
		out = append(out, id.String())
	}
	return out
}

// RemoveChannel drops id and saves the file when it was present.
func (b *Bot) RemoveChannel(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, v := range b.LogChannelIDs {
		if v.String() == id {
			b.LogChannelIDs = append(b.LogChannelIDs[:i], b.LogChannelIDs[i+1:]...)
			return b.saveLocked()
		}
	}
	return nil
}

// Save writes the settings back as indented JSON.
func (b *Bot) Save() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saveLocked()
}

func (b *Bot) saveLocked() error {
	if b.path == "" {
		return errors.New("bot settings have no file")
	}
	out, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, append(out, '\n'), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}
