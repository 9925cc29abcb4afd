// Package probe inspects the client environment and decides how a crash
// report can travel: with credentials, through a legacy relay gateway, or
// not at all.
package probe

import (
	"net/http"
	"net/http/cookiejar"
	"os"
	"time"
)

// Environment describes everything the transport selection looks at. A nil
// Client or a Client without a cookie jar cannot carry session credentials.
type Environment struct {
	// Client performs credentialed submissions. Credential support requires
	// a non-nil cookie jar.
	Client *http.Client

	// GatewayURL points at a legacy relay that accepts un-credentialed
	// text/plain submissions. Empty means no relay is available.
	GatewayURL string
}

// Mode is the transport class a probe resolves to.
type Mode string

const (
	// ModeCredentialed is the first choice: direct submission with cookies.
	ModeCredentialed Mode = "credentialed"
	// ModeLegacy relays through the gateway without credentials.
	ModeLegacy Mode = "legacy"
	// ModeUnsupported means no transport can carry the report.
	ModeUnsupported Mode = "unsupported"
)

// SupportsCredentialed reports whether the environment can attach session
// credentials to a cross-origin submission.
func SupportsCredentialed(env Environment) bool {
	return env.Client != nil && env.Client.Jar != nil
}

// HasLegacyGateway reports whether an un-credentialed relay is configured.
func HasLegacyGateway(env Environment) bool {
	return env.GatewayURL != ""
}

// Resolve picks the transport mode for the environment. Credentialed wins
// over legacy; legacy wins over unsupported.
func Resolve(env Environment) Mode {
	switch {
	case SupportsCredentialed(env):
		return ModeCredentialed
	case HasLegacyGateway(env):
		return ModeLegacy
	default:
		return ModeUnsupported
	}
}

// Detect builds the default environment for this process: a cookie-jar
// client, and the legacy gateway from MAYDAY_LEGACY_GATEWAY if set.
func Detect() Environment {
	env := Environment{
		GatewayURL: os.Getenv("MAYDAY_LEGACY_GATEWAY"),
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		// cookiejar.New never fails with a nil options struct, but if it
		// ever does the environment degrades to legacy or unsupported.
		return env
	}
	env.Client = &http.Client{
		Jar:     jar,
		Timeout: 30 * time.Second,
	}
	return env
}
