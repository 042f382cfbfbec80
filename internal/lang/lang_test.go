package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/mailsort/internal/email"
	"github.com/hpungsan/mailsort/internal/errors"
)

func result(pt, en, def string) *email.Result {
	return &email.Result{ReplyPT: pt, ReplyEN: en, DefaultLang: def}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		result    *email.Result
		persisted string
		override  string
		wantLang  string
		wantText  string
		fellBack  bool
	}{
		// override
		{"override en honoured", result("olá", "hello", "pt"), "pt", "en", "en", "hello", false},
		{"override pt honoured", result("olá", "hello", "en"), "en", "pt", "pt", "olá", false},
		{"override en empty falls back", result("olá", "", "en"), "en", "en", "pt", "olá", true},
		{"override beats persisted", result("olá", "hello", "pt"), "pt", "en", "en", "hello", false},

		// persisted
		{"persisted en with text", result("olá", "hello", "pt"), "en", "", "en", "hello", false},
		{"persisted pt with text", result("olá", "hello", "en"), "pt", "", "pt", "olá", false},
		{"persisted en empty uses default", result("olá", "", "pt"), "en", "", "pt", "olá", false},
		{"persisted pt empty uses default en", result("", "hello", "en"), "pt", "", "en", "hello", false},

		// server default
		{"default en", result("olá", "hello", "en"), "", "", "en", "hello", false},
		{"default pt", result("olá", "hello", "pt"), "", "", "pt", "olá", false},
		{"default missing means pt", result("olá", "hello", ""), "", "", "pt", "olá", false},
		{"default unknown means pt", result("olá", "hello", "fr"), "", "", "pt", "olá", false},
		{"default en empty falls back", result("olá", "", "en"), "", "", "pt", "olá", true},
		{"default pt empty falls back", result("", "hello", "pt"), "", "", "en", "hello", true},

		// nothing to show
		{"both empty keeps choice", result("", "", "en"), "", "", "en", "", false},
		{"both empty with override", result("", "", "pt"), "", "en", "en", "", false},

		// garbage preference values are ignored
		{"bad persisted ignored", result("olá", "hello", "en"), "xx", "", "en", "hello", false},
		{"auto override ignored", result("olá", "hello", "en"), "", "auto", "en", "hello", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.result, tt.persisted, tt.override)
			assert.Equal(t, tt.wantLang, got.Lang)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.fellBack, got.FellBack)
		})
	}
}

func TestResolve_PersistedEnglishWithoutEnglishReply(t *testing.T) {
	// Stored "en" from an earlier session, new result has only a pt draft.
	r := result("Olá, obrigado pelo contato.", "", "pt")

	got := Resolve(r, "en", "")
	assert.Equal(t, "pt", got.Lang, "resolved language is what callers write back")
	assert.Equal(t, "Olá, obrigado pelo contato.", got.Text)
}

func TestToggle_NoResult(t *testing.T) {
	got, err := Toggle(nil, "", "en")
	require.NoError(t, err)
	assert.Equal(t, "en", got.Lang)
	assert.Empty(t, got.Text)
}

func TestToggle_Switches(t *testing.T) {
	r := result("olá", "hello", "pt")

	got, err := Toggle(r, "pt", "en")
	require.NoError(t, err)
	assert.Equal(t, Resolution{Lang: "en", Text: "hello"}, got)

	got, err = Toggle(r, "en", "pt")
	require.NoError(t, err)
	assert.Equal(t, Resolution{Lang: "pt", Text: "olá"}, got)
}

func TestToggle_TargetEmptyKeepsShown(t *testing.T) {
	r := result("olá", "", "pt")

	got, err := Toggle(r, "pt", "en")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrLanguageUnavailable))
	assert.Equal(t, "pt", got.Lang)
	assert.Equal(t, "olá", got.Text)
	assert.Equal(t, "pt", errors.As(err).Details["shown"])
}

func TestToggle_BothEmpty(t *testing.T) {
	r := result("", "", "en")

	got, err := Toggle(r, "en", "pt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrLanguageUnavailable))
	assert.Equal(t, "en", got.Lang, "display unchanged")
	assert.Empty(t, got.Text)
	assert.Equal(t, "", errors.As(err).Details["shown"])
}

func TestToggle_InvalidTarget(t *testing.T) {
	_, err := Toggle(result("olá", "hello", "pt"), "pt", "fr")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestDeclared(t *testing.T) {
	assert.Equal(t, "auto", Declared(""))
	assert.Equal(t, "auto", Declared("auto"))
	assert.Equal(t, "pt", Declared("pt"))
	assert.Equal(t, "en", Declared("en"))
}

func TestOther(t *testing.T) {
	assert.Equal(t, "pt", Other("en"))
	assert.Equal(t, "en", Other("pt"))
}
