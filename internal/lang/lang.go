// Package lang decides which reply draft is shown.
package lang

import (
	"fmt"

	"github.com/hpungsan/mailsort/internal/email"
	"github.com/hpungsan/mailsort/internal/errors"
)

// Resolution is the language chosen for display and its reply text.
type Resolution struct {
	Lang string
	Text string
	// FellBack is set when the preferred language had no text and the
	// other draft is shown instead.
	FellBack bool
}

// Other returns the opposite reply language.
func Other(l string) string {
	if l == email.LangEN {
		return email.LangPT
	}
	return email.LangEN
}

// Declared is the preferred_lang sent with a request: the session override,
// or "auto" when the user has not picked one.
func Declared(override string) string {
	if email.IsLang(override) {
		return override
	}
	return email.LangAuto
}

// Resolve picks the reply shown for a new result.
//
// Precedence: a session override wins; otherwise a persisted preference is
// used when its draft is non-empty; otherwise the server default (pt when
// absent). If the chosen draft is empty the other non-empty draft is shown.
// Callers persist the returned Lang.
func Resolve(r *email.Result, persisted, override string) Resolution {
	chosen := defaultLang(r)
	switch {
	case email.IsLang(override):
		chosen = override
	case email.IsLang(persisted) && r.Reply(persisted) != "":
		chosen = persisted
	}
	return withFallback(r, chosen)
}

// Toggle switches the visible reply to target.
//
// With no result on screen it returns target unchanged; the caller records
// it as the session override. With a result, an empty target draft yields a
// LANGUAGE_UNAVAILABLE error alongside the Resolution to display: the other
// draft when it has text, else the current display. The override must not
// be recorded when an error is returned.
func Toggle(r *email.Result, shown, target string) (Resolution, error) {
	if !email.IsLang(target) {
		return Resolution{}, errors.NewInvalidRequest(fmt.Sprintf("unsupported reply language %q (use pt or en)", target))
	}
	if r == nil {
		return Resolution{Lang: target}, nil
	}

	if text := r.Reply(target); text != "" {
		return Resolution{Lang: target, Text: text}, nil
	}

	other := Other(target)
	if text := r.Reply(other); text != "" {
		return Resolution{Lang: other, Text: text, FellBack: true}, errors.NewLanguageUnavailable(target, other)
	}

	if !email.IsLang(shown) {
		shown = defaultLang(r)
	}
	return Resolution{Lang: shown, Text: r.Reply(shown)}, errors.NewLanguageUnavailable(target, "")
}

func defaultLang(r *email.Result) string {
	if email.IsLang(r.DefaultLang) {
		return r.DefaultLang
	}
	return email.LangPT
}

func withFallback(r *email.Result, chosen string) Resolution {
	if text := r.Reply(chosen); text != "" {
		return Resolution{Lang: chosen, Text: text}
	}
	other := Other(chosen)
	if text := r.Reply(other); text != "" {
		return Resolution{Lang: other, Text: text, FellBack: true}
	}
	return Resolution{Lang: chosen}
}
