package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldownWindow(t *testing.T) {
	m, err := New(Config{
		Cooldown: 100 * time.Millisecond,
		Pattern:  "!",
		Commands: map[string]string{"ping": "pong"},
	})
	require.NoError(t, err)

	resp, ok := m.Process("!ping extra")
	assert.True(t, ok)
	assert.Equal(t, "pong", resp)
	assert.True(t, m.Active())

	_, ok = m.Process("!ping")
	assert.False(t, ok, "ignored during cooldown")

	assert.Eventually(t, func() bool { return !m.Active() }, time.Second, 5*time.Millisecond)
	resp, ok = m.Process("!ping")
	assert.True(t, ok)
	assert.Equal(t, "pong", resp)
	m.Stop()
}

func TestSharedCooldownAcrossTokens(t *testing.T) {
	m, err := New(Config{
		Cooldown: time.Hour,
		Pattern:  `<\w+> !`,
		Commands: map[string]string{"day": "time set day", "rain": "weather rain"},
	})
	require.NoError(t, err)
	defer m.Stop()

	resp, ok := m.Process("[12:00] <steve> !day please")
	require.True(t, ok)
	assert.Equal(t, "time set day", resp)

	_, ok = m.Process("[12:01] <alex> !rain")
	assert.False(t, ok)
}

func TestStopEndsCooldown(t *testing.T) {
	m, err := New(Config{
		Cooldown: time.Hour,
		Pattern:  "!",
		Commands: map[string]string{"ping": "pong"},
	})
	require.NoError(t, err)

	_, ok := m.Process("!ping")
	require.True(t, ok)
	require.True(t, m.Active())

	m.Stop()
	assert.False(t, m.Active())
	resp, ok := m.Process("!ping")
	assert.True(t, ok)
	assert.Equal(t, "pong", resp)
	m.Stop()
}

func TestMissDoesNotStartCooldown(t *testing.T) {
	m, err := New(Config{Cooldown: time.Hour, Pattern: "!", Commands: map[string]string{"ping": "pong"}})
	require.NoError(t, err)

	_, ok := m.Process("!unknown")
	assert.False(t, ok)
	_, ok = m.Process("no trigger here")
	assert.False(t, ok)
	assert.False(t, m.Active())

	_, ok = m.Process("!ping")
	assert.True(t, ok)
	m.Stop()
}

func TestTokenStopsAtWhitespace(t *testing.T) {
	m, err := New(Config{Pattern: "#", Commands: map[string]string{"save": "save-all"}})
	require.NoError(t, err)

	resp, ok := m.Process("#save\tnow")
	assert.True(t, ok)
	assert.Equal(t, "save-all", resp)

	_, ok = m.Process("# save")
	assert.False(t, ok, "empty token")
}

func TestZeroCooldownNeverActivates(t *testing.T) {
	m, err := New(Config{Pattern: "!", Commands: map[string]string{"a": "b"}})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, ok := m.Process("!a")
		assert.True(t, ok)
	}
	assert.False(t, m.Active())
}

func TestInertMatcher(t *testing.T) {
	for name, m := range map[string]*Matcher{"inert": Inert(), "zero": {}} {
		t.Run(name, func(t *testing.T) {
			_, ok := m.Process("!ping")
			assert.False(t, ok)
			assert.False(t, m.Enabled())
		})
	}

	m, err := New(Config{Pattern: "(", Commands: map[string]string{"x": "y"}})
	assert.Error(t, err)
	require.NotNil(t, m)
	_, ok := m.Process("(x")
	assert.False(t, ok)

	m, err = New(Config{})
	assert.ErrorIs(t, err, ErrNoPattern)
	assert.False(t, m.Enabled())
}

func TestLineAnchoredPattern(t *testing.T) {
	m, err := New(Config{Pattern: "^!", Commands: map[string]string{"ping": "pong"}})
	require.NoError(t, err)
	_, ok := m.Process("say !ping")
	assert.False(t, ok)
	_, ok = m.Process("!ping")
	assert.True(t, ok)
}
