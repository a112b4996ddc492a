// Package datamode selects which provider serves analytics data. A Manager
// binds one provider to each mode and exposes exactly one of them at a time.
package datamode

import (
	"context"
	"fmt"
	"sync"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/provider"
	"github.com/rs/zerolog/log"
)

// Mode names a data source
type Mode string

const (
	ModeFake   Mode = "fake"
	ModeReal   Mode = "real"
	ModeRecord Mode = "record"
)

// DefaultSource tags the status of a manager built without a source
const DefaultSource = "desktop-runtime"

// priority is the fallback order and the order of Status.AvailableModes
var priority = []Mode{ModeFake, ModeReal, ModeRecord}

// Valid reports whether m is one of the known modes
func (m Mode) Valid() bool {
	switch m {
	case ModeFake, ModeReal, ModeRecord:
		return true
	}
	return false
}

// ParseMode validates s as a mode
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", apperror.New(apperror.CodeModeInvalid,
			fmt.Sprintf("invalid data mode %q", s), apperror.SeverityError,
			map[string]any{"mode": s, "allowed": modeStrings(priority)})
	}
	return m, nil
}

// Guard decides whether a mode may become active. A non-nil error rejects
// the transition.
type Guard interface {
	CanActivate(ctx context.Context, mode Mode) error
}

// GuardFunc adapts a function to Guard
type GuardFunc func(ctx context.Context, mode Mode) error

func (f GuardFunc) CanActivate(ctx context.Context, mode Mode) error { return f(ctx, mode) }

type allowAll struct{}

func (allowAll) CanActivate(context.Context, Mode) error { return nil }

// Options configures NewManager
type Options struct {
	// InitialMode defaults to ModeFake
	InitialMode Mode

	Fake   provider.Provider
	Real   provider.Provider
	Record provider.Recorder

	// Guard is consulted by SetMode; nil allows every configured mode
	Guard Guard

	// Source tags Status; defaults to DefaultSource
	Source string

	// OnChange is called with the active mode after construction and after
	// every committed transition
	OnChange func(Mode)
}

// Status describes the manager state
type Status struct {
	Mode           Mode   `json:"mode"`
	AvailableModes []Mode `json:"availableModes"`
	Source         string `json:"source"`
}

// Active is the provider bound to the committed mode
type Active struct {
	Mode     Mode
	Provider provider.Provider
}

// Manager owns the fake, real and record providers. It is safe for
// concurrent use.
type Manager struct {
	providers map[Mode]provider.Provider
	recorder  provider.Recorder
	guard     Guard
	source    string
	onChange  func(Mode)

	mu   sync.RWMutex
	mode Mode
}

// NewManager binds the providers. When the initial mode is unavailable the
// first configured mode in fake, real, record order is used instead.
func NewManager(opts Options) (*Manager, error) {
	if opts.Fake == nil || opts.Real == nil || opts.Record == nil {
		return nil, apperror.New(apperror.CodeConfigInvalid,
			"fake, real and record providers are all required", apperror.SeverityCritical, nil)
	}

	initial := opts.InitialMode
	if initial == "" {
		initial = ModeFake
	}
	if !initial.Valid() {
		_, err := ParseMode(string(initial))
		return nil, err
	}

	m := &Manager{
		providers: map[Mode]provider.Provider{
			ModeFake:   opts.Fake,
			ModeReal:   opts.Real,
			ModeRecord: opts.Record,
		},
		recorder: opts.Record,
		guard:    opts.Guard,
		source:   opts.Source,
		onChange: opts.OnChange,
		mode:     initial,
	}
	if m.guard == nil {
		m.guard = allowAll{}
	}
	if m.source == "" {
		m.source = DefaultSource
	}

	if !m.available(initial) {
		available := m.availableModes()
		if len(available) > 0 {
			m.mode = available[0]
			log.Warn().
				Str("requested_mode", string(initial)).
				Str("mode", string(m.mode)).
				Msg("Initial data mode unavailable, falling back")
		} else {
			log.Warn().
				Str("mode", string(initial)).
				Msg("No data mode is configured")
		}
	}

	log.Info().
		Str("mode", string(m.mode)).
		Str("provider", m.providers[m.mode].Name()).
		Str("source", m.source).
		Msg("Data mode manager initialized")

	m.notify(m.mode)
	return m, nil
}

func (m *Manager) available(mode Mode) bool {
	p, ok := m.providers[mode]
	return ok && p.Configured()
}

func (m *Manager) availableModes() []Mode {
	out := make([]Mode, 0, len(priority))
	for _, mode := range priority {
		if m.available(mode) {
			out = append(out, mode)
		}
	}
	return out
}

func (m *Manager) notify(mode Mode) {
	if m.onChange != nil {
		m.onChange(mode)
	}
}

// Status returns the committed mode, the configured modes and the source
func (m *Manager) Status() Status {
	m.mu.RLock()
	mode := m.mode
	m.mu.RUnlock()

	return Status{
		Mode:           mode,
		AvailableModes: m.availableModes(),
		Source:         m.source,
	}
}

// ActiveProvider returns the provider bound to the committed mode
func (m *Manager) ActiveProvider() Active {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Active{Mode: m.mode, Provider: m.providers[m.mode]}
}

// SetMode switches to target. The active mode is unchanged on any failure.
// An *apperror.Error returned by the guard is surfaced as is.
func (m *Manager) SetMode(ctx context.Context, target Mode) (Status, error) {
	if !target.Valid() {
		_, err := ParseMode(string(target))
		return Status{}, err
	}

	if !m.available(target) {
		return Status{}, apperror.New(apperror.CodeModeUnavailable,
			fmt.Sprintf("data mode %q is not available", target), apperror.SeverityError,
			map[string]any{
				"mode":           string(target),
				"availableModes": modeStrings(m.availableModes()),
			})
	}

	if err := m.guard.CanActivate(ctx, target); err != nil {
		log.Warn().Err(err).Str("mode", string(target)).Msg("Data mode change blocked")
		if _, ok := apperror.As(err); ok {
			return Status{}, err
		}
		return Status{}, apperror.Wrap(err, apperror.CodeModeBlocked,
			fmt.Sprintf("data mode %q was blocked", target), apperror.SeverityError,
			map[string]any{"mode": string(target)})
	}

	m.mu.Lock()
	previous := m.mode
	m.mode = target
	m.mu.Unlock()

	log.Info().
		Str("from", string(previous)).
		Str("to", string(target)).
		Str("provider", m.providers[target].Name()).
		Msg("Data mode changed")

	m.notify(target)
	return m.Status(), nil
}

// RecordPath returns the record provider's output once it has written
func (m *Manager) RecordPath() (string, bool) {
	return m.recorder.LastRecordPath()
}

func modeStrings(modes []Mode) []string {
	out := make([]string, len(modes))
	for i, mode := range modes {
		out[i] = string(mode)
	}
	return out
}
