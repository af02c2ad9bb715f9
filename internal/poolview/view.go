// Package poolview keeps a client-side mirror of the user's recommendation
// pool and guards the reveal actions against it.
package poolview

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/client"
	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
)

var (
	ErrComplete       = errors.New("all lines are already revealed")
	ErrSettingsLocked = errors.New("settings cannot change after every line is revealed")
	ErrInFlight       = errors.New("a pool request is already in flight")
	ErrClosed         = errors.New("pool view is closed")
)

// API is the part of the ai-lotto client the view needs.
type API interface {
	PoolStatus(ctx context.Context) (*client.PoolStatus, error)
	RevealOne(ctx context.Context, settings lotto.Settings, advanced bool) (*client.RevealOneResult, error)
	RevealAll(ctx context.Context, settings lotto.Settings, advanced bool) (*client.RevealAllResult, error)
}

// View mirrors the server pool. The server is the source of truth: every
// response replaces the mirror and nothing is incremented locally.
type View struct {
	api API
	log *zap.Logger

	mu          sync.Mutex
	status      client.PoolStatus
	loaded      bool
	exhausted   bool
	tier        lotto.Tier
	confirmed   lotto.Settings
	provisional lotto.Settings
	busy        bool
	closed      bool
}

func New(api API, tier lotto.Tier, log *zap.Logger) *View {
	empty := lotto.Settings{}.Normalize()
	return &View{
		api:         api,
		log:         log.Named("poolview"),
		tier:        tier,
		confirmed:   empty,
		provisional: empty,
	}
}

func (v *View) State() lotto.PoolState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state()
}

func (v *View) state() lotto.PoolState {
	if v.exhausted {
		return lotto.StateComplete
	}
	return v.status.State()
}

// Status returns a copy of the mirrored status.
func (v *View) Status() client.PoolStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := v.status
	st.RevealedLines = copyLines(v.status.RevealedLines)
	return st
}

func (v *View) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

func (v *View) Tier() lotto.Tier {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tier
}

// Load fetches the pool status from the server.
func (v *View) Load(ctx context.Context) error {
	if err := v.begin(); err != nil {
		return err
	}
	defer v.end()
	return v.reload(ctx)
}

// RequestOne reveals one more line and returns it.
func (v *View) RequestOne(ctx context.Context) ([]int, error) {
	if err := v.begin(); err != nil {
		return nil, err
	}
	defer v.end()

	v.mu.Lock()
	if v.state() == lotto.StateComplete {
		v.mu.Unlock()
		return nil, ErrComplete
	}
	settings, advanced := v.requestSettings()
	v.mu.Unlock()

	res, err := v.api.RevealOne(ctx, settings, advanced)
	if err != nil {
		return nil, v.reconcile(ctx, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, ErrClosed
	}
	if !res.Success {
		v.exhausted = true
		v.log.Debug("server reports pool complete", zap.String("message", res.Message))
		return nil, ErrComplete
	}
	v.apply(res.PoolStatus, true)
	return append([]int(nil), res.Line...), nil
}

// RequestAll reveals every line. It is allowed in any state; already tells
// whether the pool was complete before the call.
func (v *View) RequestAll(ctx context.Context) (lines [][]int, already bool, err error) {
	if err := v.begin(); err != nil {
		return nil, false, err
	}
	defer v.end()

	v.mu.Lock()
	settings, advanced := v.requestSettings()
	v.mu.Unlock()

	res, err := v.api.RevealAll(ctx, settings, advanced)
	if err != nil {
		return nil, false, v.reconcile(ctx, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, false, ErrClosed
	}
	v.apply(res.PoolStatus, true)
	return copyLines(res.Lines), res.AlreadyRevealed, nil
}

func (v *View) ToggleExclude(n int) error {
	return v.edit(func(s lotto.Settings, t lotto.Tier) (lotto.Settings, error) {
		return s.ToggleExclude(n, t)
	})
}

func (v *View) ToggleFixed(n int) error {
	return v.edit(func(s lotto.Settings, t lotto.Tier) (lotto.Settings, error) {
		return s.ToggleFixed(n, t)
	})
}

func (v *View) edit(fn func(lotto.Settings, lotto.Tier) (lotto.Settings, error)) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state() == lotto.StateComplete {
		return ErrSettingsLocked
	}
	next, err := fn(v.provisional, v.tier)
	if err != nil {
		return err
	}
	v.provisional = next
	return nil
}

// Provisional is what the next reveal will send.
func (v *View) Provisional() lotto.Settings {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.provisional.Normalize()
}

// Confirmed is what the server last reported.
func (v *View) Confirmed() lotto.Settings {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.confirmed.Normalize()
}

func (v *View) Diff() lotto.SettingsDiff {
	v.mu.Lock()
	defer v.mu.Unlock()
	return lotto.DiffSettings(v.confirmed, v.provisional)
}

func (v *View) Dirty() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.confirmed.Equal(v.provisional)
}

// Close stops the view from applying responses that arrive later.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}

func (v *View) begin() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if v.busy {
		return ErrInFlight
	}
	v.busy = true
	return nil
}

func (v *View) end() {
	v.mu.Lock()
	v.busy = false
	v.mu.Unlock()
}

// requestSettings must be called with mu held.
func (v *View) requestSettings() (lotto.Settings, bool) {
	return v.provisional.Normalize(), v.tier.AllowsAdvanced()
}

func (v *View) reload(ctx context.Context) error {
	st, err := v.api.PoolStatus(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	v.apply(*st, false)
	return nil
}

// reconcile reloads after a failed request and returns the request error.
func (v *View) reconcile(ctx context.Context, reqErr error) error {
	if err := v.reload(ctx); err != nil && !errors.Is(err, ErrClosed) {
		v.log.Warn("reconcile pool status", zap.Error(err))
	}
	return reqErr
}

// apply replaces the mirror. A reveal response confirms the settings it was
// sent with; a plain load keeps unsent edits. Called with mu held.
func (v *View) apply(st client.PoolStatus, confirm bool) {
	st.RevealedLines = copyLines(st.RevealedLines)
	v.status = st
	v.loaded = true
	v.exhausted = false
	if st.PlanType != "" {
		v.tier = st.PlanType
	}
	dirty := !v.confirmed.Equal(v.provisional)
	v.confirmed = st.Settings.Normalize()
	if confirm || !dirty {
		v.provisional = v.confirmed
	}
}

func copyLines(lines [][]int) [][]int {
	if lines == nil {
		return nil
	}
	out := make([][]int, len(lines))
	for i, l := range lines {
		out[i] = append([]int(nil), l...)
	}
	return out
}
