package poolview

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/client"
	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
)

// fakeAPI serves a fixed pool of lines and records what it was sent.
type fakeAPI struct {
	mu        sync.Mutex
	tier      lotto.Tier
	lines     [][]int
	revealed  int
	settings  lotto.Settings
	failNext  error
	statusN   int
	sent      []lotto.Settings
	advanced  []bool
	gate      chan struct{}
	entered   chan struct{}
	exhausted bool
}

func newFakeAPI(tier lotto.Tier, n int) *fakeAPI {
	lines := make([][]int, n)
	for i := range lines {
		lines[i] = []int{i + 1, i + 10, i + 20, i + 30, i + 35, i + 40}
	}
	return &fakeAPI{tier: tier, lines: lines, settings: lotto.Settings{}.Normalize()}
}

func (f *fakeAPI) statusLocked() client.PoolStatus {
	return client.PoolStatus{
		PoolExists:    f.revealed > 0 || len(f.sent) > 0,
		PoolTotal:     len(f.lines),
		RevealedCount: f.revealed,
		RevealedLines: f.lines[:f.revealed],
		AllRevealed:   f.revealed == len(f.lines),
		Settings:      f.settings,
		TargetDrawNo:  1103,
		PlanType:      f.tier,
	}
}

func (f *fakeAPI) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeAPI) PoolStatus(ctx context.Context) (*client.PoolStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusN++
	st := f.statusLocked()
	return &st, nil
}

func (f *fakeAPI) RevealOne(ctx context.Context, s lotto.Settings, advanced bool) (*client.RevealOneResult, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, s)
	f.advanced = append(f.advanced, advanced)
	if err := f.failNext; err != nil {
		f.failNext = nil
		return nil, err
	}
	if f.exhausted || f.revealed == len(f.lines) {
		return &client.RevealOneResult{PoolStatus: f.statusLocked(), Message: "all revealed"}, nil
	}
	f.settings = s
	line := f.lines[f.revealed]
	f.revealed++
	return &client.RevealOneResult{PoolStatus: f.statusLocked(), Success: true, Line: line}, nil
}

func (f *fakeAPI) RevealAll(ctx context.Context, s lotto.Settings, advanced bool) (*client.RevealAllResult, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, s)
	f.advanced = append(f.advanced, advanced)
	if err := f.failNext; err != nil {
		f.failNext = nil
		return nil, err
	}
	already := f.revealed == len(f.lines)
	f.settings = s
	f.revealed = len(f.lines)
	return &client.RevealAllResult{PoolStatus: f.statusLocked(), Success: true, Lines: f.lines, AlreadyRevealed: already}, nil
}

func newView(t *testing.T, tier lotto.Tier, n int) (*View, *fakeAPI) {
	t.Helper()
	api := newFakeAPI(tier, n)
	v := New(api, tier, zap.NewNop())
	require.NoError(t, v.Load(context.Background()))
	return v, api
}

func TestView_RevealLifecycle(t *testing.T) {
	ctx := context.Background()
	v, api := newView(t, lotto.TierBasic, 5)
	assert.Equal(t, lotto.StateNoPool, v.State())

	for i := 1; i <= 4; i++ {
		line, err := v.RequestOne(ctx)
		require.NoError(t, err)
		assert.Equal(t, api.lines[i-1], line)
		assert.Equal(t, lotto.StatePartial, v.State())
		assert.Equal(t, i, v.Status().RevealedCount)
	}
	_, err := v.RequestOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, lotto.StateComplete, v.State())
	assert.Len(t, v.Status().RevealedLines, 5)

	calls := len(api.sent)
	_, err = v.RequestOne(ctx)
	assert.ErrorIs(t, err, ErrComplete)
	assert.Len(t, api.sent, calls, "complete pool must not hit the server")

	lines, already, err := v.RequestAll(ctx)
	require.NoError(t, err)
	assert.True(t, already)
	assert.Len(t, lines, 5)
}

func TestView_RequestAllFromNoPool(t *testing.T) {
	v, _ := newView(t, lotto.TierBasic, 5)
	lines, already, err := v.RequestAll(context.Background())
	require.NoError(t, err)
	assert.False(t, already)
	assert.Len(t, lines, 5)
	assert.Equal(t, lotto.StateComplete, v.State())
}

func TestView_ServerSaysComplete(t *testing.T) {
	v, api := newView(t, lotto.TierBasic, 3)
	_, err := v.RequestOne(context.Background())
	require.NoError(t, err)

	api.mu.Lock()
	api.exhausted = true
	api.mu.Unlock()

	_, err = v.RequestOne(context.Background())
	assert.ErrorIs(t, err, ErrComplete)
	assert.Equal(t, lotto.StateComplete, v.State())
	assert.Len(t, v.Status().RevealedLines, 1, "lines are left as they were")
}

func TestView_SettingsEdits(t *testing.T) {
	v, api := newView(t, lotto.TierPremium, 10)

	require.NoError(t, v.ToggleExclude(7))
	require.NoError(t, v.ToggleExclude(8))
	assert.ErrorIs(t, v.ToggleExclude(9), lotto.ErrExcludeLimit)

	// fixing an excluded number moves it across
	require.NoError(t, v.ToggleFixed(7))
	assert.Equal(t, []int{8}, v.Provisional().Exclude)
	assert.Equal(t, []int{7}, v.Provisional().Fixed)
	assert.True(t, v.Dirty())
	assert.Equal(t, lotto.SettingsDiff{
		ExcludeAdded:   []int{8},
		ExcludeRemoved: []int{},
		FixedAdded:     []int{7},
		FixedRemoved:   []int{},
	}, v.Diff())

	_, err := v.RequestOne(context.Background())
	require.NoError(t, err)
	require.Len(t, api.sent, 1)
	assert.Equal(t, []int{8}, api.sent[0].Exclude)
	assert.True(t, api.advanced[0])

	assert.False(t, v.Dirty())
	assert.Equal(t, v.Provisional(), v.Confirmed())

	_, _, err = v.RequestAll(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, v.ToggleExclude(1), ErrSettingsLocked)
	assert.ErrorIs(t, v.ToggleFixed(1), ErrSettingsLocked)
}

func TestView_BasicTierCannotEdit(t *testing.T) {
	v, api := newView(t, lotto.TierBasic, 5)
	assert.ErrorIs(t, v.ToggleExclude(3), lotto.ErrExcludeLimit)
	assert.ErrorIs(t, v.ToggleFixed(3), lotto.ErrFixedLimit)

	_, err := v.RequestOne(context.Background())
	require.NoError(t, err)
	assert.False(t, api.advanced[0])
}

func TestView_LoadKeepsUnsentEdits(t *testing.T) {
	v, _ := newView(t, lotto.TierVIP, 20)
	require.NoError(t, v.ToggleFixed(45))
	require.NoError(t, v.Load(context.Background()))
	assert.Equal(t, []int{45}, v.Provisional().Fixed)
	assert.True(t, v.Dirty())
}

func TestView_FailureReconciles(t *testing.T) {
	v, api := newView(t, lotto.TierBasic, 5)
	_, err := v.RequestOne(context.Background())
	require.NoError(t, err)

	boom := errors.New("connection reset")
	api.mu.Lock()
	api.failNext = boom
	before := api.statusN
	api.mu.Unlock()

	_, err = v.RequestOne(context.Background())
	assert.ErrorIs(t, err, boom)
	api.mu.Lock()
	assert.Equal(t, before+1, api.statusN, "a failed request reloads the status")
	api.mu.Unlock()
	assert.Equal(t, 1, v.Status().RevealedCount)
}

func TestView_InFlightGuard(t *testing.T) {
	v, api := newView(t, lotto.TierBasic, 5)
	api.gate = make(chan struct{})
	api.entered = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := v.RequestOne(context.Background())
		done <- err
	}()
	<-api.entered

	_, err := v.RequestOne(context.Background())
	assert.ErrorIs(t, err, ErrInFlight)
	_, _, err = v.RequestAll(context.Background())
	assert.ErrorIs(t, err, ErrInFlight)

	close(api.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, v.Status().RevealedCount)
}

func TestView_CloseDropsLateResponse(t *testing.T) {
	v, api := newView(t, lotto.TierBasic, 5)
	api.gate = make(chan struct{})
	api.entered = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := v.RequestOne(context.Background())
		done <- err
	}()
	<-api.entered
	v.Close()
	close(api.gate)

	assert.ErrorIs(t, <-done, ErrClosed)
	assert.Equal(t, 0, v.Status().RevealedCount)
	assert.ErrorIs(t, v.Load(context.Background()), ErrClosed)
}
