// Package session holds the one current classification result and the
// state machine that moves it between Idle, Submitting, Displayed and Failed.
package session

import (
	"context"
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/hpungsan/mailsort/internal/classify"
	"github.com/hpungsan/mailsort/internal/email"
	"github.com/hpungsan/mailsort/internal/errors"
	"github.com/hpungsan/mailsort/internal/lang"
	"github.com/hpungsan/mailsort/internal/prefs"
	"github.com/hpungsan/mailsort/internal/present"
)

// State is the machine state.
type State int

const (
	Idle State = iota
	Submitting
	Displayed
	Failed
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Displayed:
		return "displayed"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Classifier sends one request to the classification service.
type Classifier interface {
	Classify(ctx context.Context, req email.Request, timeout time.Duration) (*email.Result, error)
}

// Preferences is the preference storage the machine reads and writes.
// Failures are absorbed by the implementation.
type Preferences interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	Clear(ctx context.Context, key string)
}

// Current is a displayed result with everything derived from it.
// It is built whole and never modified; a language switch replaces it.
type Current struct {
	SubmissionID string        `json:"submission_id"`
	Result       *email.Result `json:"result"`
	View         present.View  `json:"view"`
	Lang         string        `json:"reply_lang"`
	ReplyText    string        `json:"reply_text"`
}

// Snapshot is a copy of the machine's observable state.
type Snapshot struct {
	State     State    `json:"state"`
	Loading   bool     `json:"loading"`
	Current   *Current `json:"current,omitempty"`
	ErrorCode string   `json:"error_code,omitempty"`
	Error     string   `json:"error,omitempty"`
	Notice    string   `json:"notice,omitempty"`
	Override  string   `json:"lang_override,omitempty"`
}

// Machine owns the current result. Safe for concurrent use; its lock is
// never held while the classification service is being called.
type Machine struct {
	client  Classifier
	prefs   Preferences
	log     zerolog.Logger
	timeout time.Duration

	mu       sync.Mutex
	entropy  io.Reader
	state    State
	inflight ulid.ULID // zero when nothing is loading
	cancel   context.CancelFunc
	current  *Current
	failure  *errors.AppError
	notice   string
	override string
}

// Option configures a Machine.
type Option func(*Machine)

// WithTimeout overrides classify.DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Machine) { m.timeout = d }
}

// WithLogger sets the machine's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Machine) { m.log = log }
}

// New returns an Idle machine.
func New(client Classifier, p Preferences, opts ...Option) *Machine {
	m := &Machine{
		client:  client,
		prefs:   p,
		log:     zerolog.Nop(),
		timeout: classify.DefaultTimeout,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit validates req, sends it and publishes the outcome.
//
// Invalid input returns VALIDATION and a submission already in flight
// returns BUSY; neither changes state. Otherwise the machine passes through
// Submitting and ends in Displayed or Failed, unless Clear was called in
// the meantime, in which case the outcome is discarded.
// req.PreferredLang is replaced by the session override (or "auto").
func (m *Machine) Submit(ctx context.Context, req email.Request) (Snapshot, error) {
	if !email.IsSubmittable(email.FormOf(req)) {
		return m.Snapshot(), errors.NewValidation(email.ValidationMessage)
	}

	m.mu.Lock()
	if m.inflight != (ulid.ULID{}) {
		m.mu.Unlock()
		return m.Snapshot(), errors.NewBusy()
	}
	id, err := ulid.New(ulid.Timestamp(time.Now()), m.entropy)
	if err != nil {
		m.mu.Unlock()
		return m.Snapshot(), errors.NewInternal(err)
	}
	callCtx, cancel := context.WithCancel(ctx)
	m.inflight = id
	m.cancel = cancel
	m.state = Submitting
	m.current = nil
	m.failure = nil
	m.notice = ""
	req.PreferredLang = lang.Declared(m.override)
	m.mu.Unlock()

	defer m.release(id, cancel)

	log := m.log.With().Str("submission", id.String()).Logger()
	log.Debug().Str("kind", req.Kind.String()).Str("preferred_lang", req.PreferredLang).Msg("submitting")

	res, err := m.client.Classify(callCtx, req, m.timeout)
	if err != nil {
		appErr := errors.As(err)
		if !m.fail(id, appErr) {
			log.Debug().Str("code", string(appErr.Code)).Msg("discarding stale failure")
		} else {
			log.Info().Str("code", string(appErr.Code)).Msg("submission failed")
		}
		return m.Snapshot(), appErr
	}

	persisted, _ := m.prefs.Get(ctx, prefs.KeyReplyLang)
	resolved, ok := m.publish(id, res, persisted)
	if !ok {
		log.Debug().Msg("discarding stale result")
		return m.Snapshot(), errors.NewCanceled()
	}
	m.prefs.Set(ctx, prefs.KeyReplyLang, resolved)

	log.Info().
		Str("category", string(res.Category)).
		Str("reply_lang", resolved).
		Msg("submission displayed")
	return m.Snapshot(), nil
}

// fail moves to Failed if id is still in flight.
func (m *Machine) fail(id ulid.ULID, appErr *errors.AppError) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight != id {
		return false
	}
	m.inflight = ulid.ULID{}
	m.cancel = nil
	m.state = Failed
	m.current = nil
	m.failure = appErr
	return true
}

// publish moves to Displayed if id is still in flight and returns the
// resolved reply language.
func (m *Machine) publish(id ulid.ULID, res *email.Result, persisted string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight != id {
		return "", false
	}
	r := lang.Resolve(res, persisted, m.override)
	m.inflight = ulid.ULID{}
	m.cancel = nil
	m.state = Displayed
	m.failure = nil
	m.current = &Current{
		SubmissionID: id.String(),
		Result:       res,
		View:         present.Map(res),
		Lang:         r.Lang,
		ReplyText:    r.Text,
	}
	return r.Lang, true
}

// release clears the loading flag on every exit path. If neither fail nor
// publish ran (a panic in the client) the submission ends in Failed.
func (m *Machine) release(id ulid.ULID, cancel context.CancelFunc) {
	cancel()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight != id {
		return
	}
	m.inflight = ulid.ULID{}
	m.cancel = nil
	m.state = Failed
	m.current = nil
	m.failure = errors.NewInternal(nil)
}

// SetLanguage switches the displayed reply to target, or records target as
// the session override when no result is displayed.
//
// When target has no draft the display stays on (or moves to) a language
// that has text, Snapshot.Notice explains why and the override is not
// recorded. The shown language is persisted either way.
func (m *Machine) SetLanguage(ctx context.Context, target string) (Snapshot, error) {
	m.mu.Lock()
	var res *email.Result
	var shown string
	if m.current != nil {
		res = m.current.Result
		shown = m.current.Lang
	}

	r, err := lang.Toggle(res, shown, target)
	if err != nil && !errors.Is(err, errors.ErrLanguageUnavailable) {
		m.mu.Unlock()
		return m.Snapshot(), err
	}

	m.notice = ""
	if err != nil {
		m.notice = errors.As(err).Message
	} else {
		m.override = target
	}
	if m.current != nil {
		next := *m.current
		next.Lang = r.Lang
		next.ReplyText = r.Text
		m.current = &next
	}
	m.mu.Unlock()

	m.prefs.Set(ctx, prefs.KeyReplyLang, r.Lang)
	return m.Snapshot(), nil
}

// Clear returns to Idle from any state: the result, error, notice and
// session override are dropped and an in-flight submission is canceled.
// Calling it repeatedly is harmless.
func (m *Machine) Clear() Snapshot {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.inflight = ulid.ULID{}
	m.cancel = nil
	m.state = Idle
	m.current = nil
	m.failure = nil
	m.notice = ""
	m.override = ""
	m.mu.Unlock()
	return m.Snapshot()
}

// Snapshot returns a copy of the observable state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		State:    m.state,
		Loading:  m.inflight != (ulid.ULID{}),
		Current:  m.current,
		Notice:   m.notice,
		Override: m.override,
	}
	if m.failure != nil {
		s.ErrorCode = string(m.failure.Code)
		s.Error = m.failure.Message
	}
	return s
}

// PersistedLanguage returns the stored reply language, if any.
func (m *Machine) PersistedLanguage(ctx context.Context) (string, bool) {
	v, ok := m.prefs.Get(ctx, prefs.KeyReplyLang)
	if !ok || !email.IsLang(v) {
		return "", false
	}
	return v, true
}

// ForgetLanguage clears the stored reply language and the session override.
func (m *Machine) ForgetLanguage(ctx context.Context) {
	m.mu.Lock()
	m.override = ""
	m.mu.Unlock()
	m.prefs.Clear(ctx, prefs.KeyReplyLang)
}
