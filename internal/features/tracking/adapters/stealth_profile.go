package adapter

import (
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
)

// DefaultUserAgent is a current desktop Chrome on Windows.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Viewport is the fixed window and layout size of the browser.
type Viewport struct {
	Width  int
	Height int
}

// StealthProfile gathers every browser setting meant to hide automation.
type StealthProfile struct {
	// DisableAutomation removes the automation switches and injects the stealth evasions.
	DisableAutomation bool
	// UserAgent replaces the client identification string; empty keeps the browser's own.
	UserAgent string
	// Viewport fixes the window size; a zero value keeps the browser default.
	Viewport Viewport
	// Incognito opens the page in a fresh, isolated browser context.
	Incognito bool
}

// DefaultStealthProfile returns the profile used against the tracking site.
func DefaultStealthProfile() StealthProfile {
	return StealthProfile{
		DisableAutomation: true,
		UserAgent:         DefaultUserAgent,
		Viewport:          Viewport{Width: 1920, Height: 1080},
		Incognito:         true,
	}
}

// apply translates the profile into launcher switches.
func (p StealthProfile) apply(l *launcher.Launcher) *launcher.Launcher {
	l = l.
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	if p.DisableAutomation {
		l = l.
			Delete("enable-automation").
			Set("disable-blink-features", "AutomationControlled").
			Set("disable-infobars")
	}
	if p.UserAgent != "" {
		l = l.Set(flags.Flag("user-agent"), p.UserAgent)
	}
	if p.Viewport.Width > 0 && p.Viewport.Height > 0 {
		l = l.Set("window-size", fmt.Sprintf("%d,%d", p.Viewport.Width, p.Viewport.Height))
	}
	if p.Incognito {
		l = l.Set("incognito")
	}
	return l
}
