package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCommands(t *testing.T) {
	p := writeFile(t, "commands-conf.json", `{
		"Cooldown": 5,
		"CommandStartRegex": "<\\w+> !",
		/* token table is case sensitive */
		"Commands": {"Day": "time set day", "rain": "weather rain"}
	}`)
	c, err := LoadCommands(p)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.CooldownDuration())
	assert.Equal(t, `<\w+> !`, c.CommandStartRegex)
	assert.Equal(t, "time set day", c.Commands["Day"])
	assert.NotContains(t, c.Commands, "day")
}

func TestLoadCommandsErrors(t *testing.T) {
	_, err := LoadCommands(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadCommands(writeFile(t, "c.json", `not json`))
	assert.Error(t, err)

	_, err = LoadCommands(writeFile(t, "c.json", `{"Cooldown": 1}`))
	assert.Error(t, err)
}
