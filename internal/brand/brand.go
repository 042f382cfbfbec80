// Package brand manages the company name and logo shown by the front-ends.
//
// Values come from three layers, later ones winning: built-in defaults, the
// classification service's /config endpoint, and locally saved overrides.
package brand

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hpungsan/mailsort/internal/classify"
	"github.com/hpungsan/mailsort/internal/errors"
	"github.com/hpungsan/mailsort/internal/prefs"
)

// MaxLogoBytes is the largest logo accepted.
const MaxLogoBytes = 5 << 20

// AllowedLogoTypes are the accepted logo MIME types.
var AllowedLogoTypes = []string{"image/png", "image/jpeg", "image/svg+xml"}

// ConfigSource provides remote branding.
type ConfigSource interface {
	FetchConfig(ctx context.Context) (classify.SiteConfig, error)
}

// Preferences is where overrides are saved.
type Preferences interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	Clear(ctx context.Context, key string)
}

// State is the branding in effect.
type State struct {
	Name string `json:"name"`
	Logo string `json:"logo"`
}

// Title is the page title for this brand.
func (s State) Title() string {
	return fmt.Sprintf("%s — Email Classifier & Replies", s.Name)
}

// PendingLogo is an uploaded logo awaiting confirmation.
type PendingLogo struct {
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	DataURL     string `json:"-"`
}

// Manager owns branding state. Safe for concurrent use.
type Manager struct {
	source   ConfigSource
	prefs    Preferences
	defaults State
	log      zerolog.Logger

	mu      sync.Mutex
	remote  State // from /config; empty fields mean "not provided"
	state   State
	pending *PendingLogo
}

// NewManager returns a manager showing defaults until Load is called.
// source may be nil when no classification service is configured.
func NewManager(source ConfigSource, p Preferences, defaults State, log zerolog.Logger) *Manager {
	return &Manager{
		source:   source,
		prefs:    p,
		defaults: defaults,
		log:      log,
		state:    defaults,
	}
}

// Load rebuilds branding from all layers. A /config failure is logged and
// the remaining layers still apply.
func (m *Manager) Load(ctx context.Context) State {
	remote := m.fetchRemote(ctx)

	name, hasName := m.prefs.Get(ctx, prefs.KeyBrandName)
	logo, hasLogo := m.prefs.Get(ctx, prefs.KeyBrandLogo)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.remote = remote

	s := m.layered()
	if hasName && strings.TrimSpace(name) != "" {
		s.Name = name
	}
	if hasLogo && logo != "" {
		s.Logo = logo
	}
	m.state = s
	return s
}

// Current returns the branding in effect.
func (m *Manager) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Pending returns the staged logo, or nil.
func (m *Manager) Pending() *PendingLogo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return nil
	}
	p := *m.pending
	return &p
}

// Rename sets and saves the company name.
func (m *Manager) Rename(ctx context.Context, name string) (State, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return m.Current(), errors.NewInvalidRequest("company name must not be empty")
	}

	m.mu.Lock()
	m.state.Name = name
	s := m.state
	m.mu.Unlock()

	m.prefs.Set(ctx, prefs.KeyBrandName, name)
	m.log.Info().Str("name", name).Msg("brand renamed")
	return s, nil
}

// StageLogo checks an uploaded logo and holds it until ApplyLogo or
// CancelLogo. A new upload replaces any staged one.
func (m *Manager) StageLogo(contentType string, data []byte) (*PendingLogo, error) {
	if len(data) == 0 {
		return nil, errors.NewInvalidRequest("logo file is empty")
	}
	if len(data) > MaxLogoBytes {
		return nil, errors.NewInvalidRequest("logo must be at most 5 MB")
	}

	ct, err := normalizeType(contentType)
	if err != nil {
		return nil, err
	}

	p := &PendingLogo{
		ContentType: ct,
		Size:        len(data),
		DataURL:     "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data),
	}

	m.mu.Lock()
	m.pending = p
	m.mu.Unlock()

	cp := *p
	return &cp, nil
}

// ApplyLogo saves the staged logo. consent must be true; without it the
// logo stays staged.
func (m *Manager) ApplyLogo(ctx context.Context, consent bool) (State, error) {
	m.mu.Lock()
	if m.pending == nil {
		s := m.state
		m.mu.Unlock()
		return s, errors.NewNotFound("pending logo")
	}
	if !consent {
		s := m.state
		m.mu.Unlock()
		return s, errors.NewConsentRequired("confirm you are authorized to use this logo")
	}
	dataURL := m.pending.DataURL
	m.pending = nil
	m.state.Logo = dataURL
	s := m.state
	m.mu.Unlock()

	m.prefs.Set(ctx, prefs.KeyBrandLogo, dataURL)
	m.log.Info().Int("bytes", len(dataURL)).Msg("brand logo applied")
	return s, nil
}

// CancelLogo discards the staged logo.
func (m *Manager) CancelLogo() {
	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()
}

// ResetLogo drops the saved logo and falls back to the remote or default one.
func (m *Manager) ResetLogo(ctx context.Context) State {
	m.prefs.Clear(ctx, prefs.KeyBrandLogo)
	remote := m.fetchRemote(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.remote = remote
	m.pending = nil
	m.state.Logo = m.layered().Logo
	return m.state
}

// layered is defaults overlaid with remote. Caller holds m.mu.
func (m *Manager) layered() State {
	s := m.defaults
	if m.remote.Name != "" {
		s.Name = m.remote.Name
	}
	if m.remote.Logo != "" {
		s.Logo = m.remote.Logo
	}
	return s
}

func (m *Manager) fetchRemote(ctx context.Context) State {
	if m.source == nil {
		return State{}
	}
	cfg, err := m.source.FetchConfig(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("remote branding unavailable, using defaults")
		return State{}
	}
	return State{Name: cfg.CompanyName, Logo: cfg.LogoURL}
}

func normalizeType(contentType string) (string, error) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("unrecognised logo type %q", contentType))
	}
	for _, allowed := range AllowedLogoTypes {
		if mt == allowed {
			return mt, nil
		}
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("logo must be PNG, JPEG or SVG, got %s", mt))
}
