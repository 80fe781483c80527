package adapter

import (
	"context"
	"testing"

	"icarry-tracker/internal/core/proxy"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/stretchr/testify/assert"
)

// TestStealthProfile_Apply verifies every profile option lands on the launcher.
func TestStealthProfile_Apply(t *testing.T) {
	l := DefaultStealthProfile().apply(launcher.New())

	assert.False(t, l.Has("enable-automation"))
	assert.True(t, l.Has("incognito"))

	assert.True(t, l.Has("disable-blink-features"))
	assert.Equal(t, "AutomationControlled", l.Get("disable-blink-features"))

	assert.True(t, l.Has(flags.Flag("user-agent")))
	assert.Equal(t, DefaultUserAgent, l.Get(flags.Flag("user-agent")))

	assert.True(t, l.Has("window-size"))
	assert.Equal(t, "1920,1080", l.Get("window-size"))
}

// TestStealthProfile_Empty verifies a zero profile leaves identity switches untouched.
func TestStealthProfile_Empty(t *testing.T) {
	l := StealthProfile{}.apply(launcher.New())

	assert.False(t, l.Has("incognito"))
	assert.False(t, l.Has("window-size"))
	assert.False(t, l.Has(flags.Flag("user-agent")))
	assert.False(t, l.Has("disable-blink-features"))
}

// TestRodLauncher_Command verifies headless mode, binary and proxy switches.
func TestRodLauncher_Command(t *testing.T) {
	t.Run("Headless", func(t *testing.T) {
		r := NewRodLauncher("/usr/bin/chromium", false, DefaultStealthProfile(), proxy.Settings{})
		l := r.command(context.Background(), "")

		assert.True(t, l.Has(flags.Headless))
		assert.False(t, l.Has(flags.ProxyServer))
		assert.Equal(t, "/usr/bin/chromium", l.Get(flags.Bin))
	})

	t.Run("HeadedWithProxy", func(t *testing.T) {
		r := NewRodLauncher("", true, DefaultStealthProfile(), proxy.Settings{})
		l := r.command(context.Background(), "http://127.0.0.1:18080")

		assert.False(t, l.Has(flags.Headless))
		assert.True(t, l.Has(flags.ProxyServer))
		assert.Equal(t, "http://127.0.0.1:18080", l.Get(flags.ProxyServer))
	})
}
