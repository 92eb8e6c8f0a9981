package device

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/trezcool/masomo-tracking/core"
)

var nowFunc = time.Now // mockable

type (
	// Attributes are the raw environment values available at call time.
	// Zero values mean "not available". Attributes reported by the UI shell
	// are used as-is: Attributes is itself an Environment.
	Attributes struct {
		UserAgent      string `json:"userAgent"`
		Language       string `json:"language"`
		Timezone       string `json:"timezone"`
		Referer        string `json:"referer"`
		Platform       string `json:"platform"`
		Online         *bool  `json:"online"`
		CookiesEnabled *bool  `json:"cookiesEnabled"`
		ScreenWidth    int    `json:"screenWidth" validate:"gte=0"`
		ScreenHeight   int    `json:"screenHeight" validate:"gte=0"`
		ViewportWidth  int    `json:"viewportWidth" validate:"gte=0"`
		ViewportHeight int    `json:"viewportHeight" validate:"gte=0"`
	}

	// Environment is anything that can describe the device a tracking call originates from.
	Environment interface {
		Attributes() Attributes
	}

	// Snapshot is the static device description attached to every tracking payload.
	// Details is only captured for session initialization records (the extended form).
	Snapshot struct {
		UserAgent  *string   `json:"userAgent"`
		Language   *string   `json:"language"`
		Timezone   *string   `json:"timezone"`
		Referer    *string   `json:"referer"`
		CapturedAt time.Time `json:"capturedAt"`
		Details    *Details  `json:"details,omitempty"`
	}

	// Details holds screen, viewport and connectivity information.
	Details struct {
		Platform       *string `json:"platform"`
		Online         *bool   `json:"online"`
		CookiesEnabled *bool   `json:"cookiesEnabled"`
		ScreenWidth    *int    `json:"screenWidth"`
		ScreenHeight   *int    `json:"screenHeight"`
		ViewportWidth  *int    `json:"viewportWidth"`
		ViewportHeight *int    `json:"viewportHeight"`
	}
)

func (a Attributes) Attributes() Attributes {
	return a
}

// Capture reads env at call time. It never fails: missing values become nil fields.
func Capture(env Environment) Snapshot {
	var attrs Attributes
	if env != nil {
		attrs = env.Attributes()
	}
	return Snapshot{
		UserAgent:  core.StringPtr(attrs.UserAgent),
		Language:   NormalizeLanguage(attrs.Language),
		Timezone:   core.StringPtr(attrs.Timezone),
		Referer:    core.StringPtr(attrs.Referer),
		CapturedAt: nowFunc().UTC(),
	}
}

// CaptureExtended is Capture plus screen, viewport and connectivity details.
func CaptureExtended(env Environment) Snapshot {
	var attrs Attributes
	if env != nil {
		attrs = env.Attributes()
	}
	snap := Capture(attrs)
	snap.Details = &Details{
		Platform:       core.StringPtr(attrs.Platform),
		Online:         attrs.Online,
		CookiesEnabled: attrs.CookiesEnabled,
		ScreenWidth:    positive(attrs.ScreenWidth),
		ScreenHeight:   positive(attrs.ScreenHeight),
		ViewportWidth:  positive(attrs.ViewportWidth),
		ViewportHeight: positive(attrs.ViewportHeight),
	}
	return snap
}

func positive(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

// NormalizeLanguage canonicalizes a POSIX locale ("fr_CD.UTF-8") or an
// Accept-Language header ("fr-CD,fr;q=0.9") into a BCP 47 tag ("fr-CD").
func NormalizeLanguage(raw string) *string {
	s := core.CleanString(raw)
	if !strings.ContainsAny(s, ",;") { // POSIX locale: drop codeset & modifier
		if i := strings.IndexAny(s, ".@"); i >= 0 {
			s = s[:i]
		}
	}
	s = strings.ReplaceAll(s, "_", "-")
	if s == "" || s == "C" || s == "POSIX" {
		return nil
	}
	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(tags) == 0 || tags[0] == language.Und {
		return nil
	}
	tag := tags[0].String()
	return &tag
}

// Layered returns an Environment whose empty attributes fall back to the next environments in order.
func Layered(envs ...Environment) Environment {
	return layered(envs)
}

type layered []Environment

func (l layered) Attributes() Attributes {
	var out Attributes
	for _, env := range l {
		if env == nil {
			continue
		}
		a := env.Attributes()
		out.UserAgent = firstString(out.UserAgent, a.UserAgent)
		out.Language = firstString(out.Language, a.Language)
		out.Timezone = firstString(out.Timezone, a.Timezone)
		out.Referer = firstString(out.Referer, a.Referer)
		out.Platform = firstString(out.Platform, a.Platform)
		if out.Online == nil {
			out.Online = a.Online
		}
		if out.CookiesEnabled == nil {
			out.CookiesEnabled = a.CookiesEnabled
		}
		if out.ScreenWidth <= 0 && out.ScreenHeight <= 0 {
			out.ScreenWidth, out.ScreenHeight = a.ScreenWidth, a.ScreenHeight
		}
		if out.ViewportWidth <= 0 && out.ViewportHeight <= 0 {
			out.ViewportWidth, out.ViewportHeight = a.ViewportWidth, a.ViewportHeight
		}
	}
	return out
}

func firstString(cur, next string) string {
	if core.CleanString(cur) != "" {
		return cur
	}
	return next
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying the request-scoped environment env.
func NewContext(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, ctxKey{}, env)
}

// FromContext returns the environment stored in ctx by NewContext.
func FromContext(ctx context.Context) (Environment, bool) {
	env, ok := ctx.Value(ctxKey{}).(Environment)
	return env, ok && env != nil
}
