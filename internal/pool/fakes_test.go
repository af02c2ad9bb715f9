package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qwmll19-cmd/ai-lotto/internal/model"
	"github.com/qwmll19-cmd/ai-lotto/internal/repo"
)

type fakePoolRepo struct {
	mu    sync.Mutex
	pools map[string]model.Pool
	saves int
}

func newFakePoolRepo() *fakePoolRepo {
	return &fakePoolRepo{pools: make(map[string]model.Pool)}
}

func poolKey(userID uuid.UUID, target int, plan string) string {
	return fmt.Sprintf("%s/%d/%s", userID, target, plan)
}

func clonePool(p model.Pool) model.Pool {
	out := p
	out.Lines = make([][]int, len(p.Lines))
	for i, l := range p.Lines {
		out.Lines[i] = append([]int(nil), l...)
	}
	out.Revealed = append([]int{}, p.Revealed...)
	out.Settings = p.Settings.Normalize()
	return out
}

func (f *fakePoolRepo) Get(_ context.Context, userID uuid.UUID, target int, plan string) (model.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pools[poolKey(userID, target, plan)]
	if !ok {
		return model.Pool{}, fmt.Errorf("pool: %w", repo.ErrNotFound)
	}
	return clonePool(p), nil
}

func (f *fakePoolRepo) Save(_ context.Context, p model.Pool) (model.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.saves++
	f.pools[poolKey(p.UserID, p.TargetDrawNo, p.PlanType)] = clonePool(p)
	return clonePool(p), nil
}

func (f *fakePoolRepo) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]model.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Pool
	for _, p := range f.pools {
		if p.UserID == userID {
			out = append(out, clonePool(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetDrawNo > out[j].TargetDrawNo })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePoolRepo) ListByUserAndDraw(_ context.Context, userID uuid.UUID, target int) ([]model.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Pool
	for _, p := range f.pools {
		if p.UserID == userID && p.TargetDrawNo == target {
			out = append(out, clonePool(p))
		}
	}
	return out, nil
}

type fakeDrawRepo struct {
	draws map[int]model.Draw
}

func newFakeDrawRepo(draws ...model.Draw) *fakeDrawRepo {
	f := &fakeDrawRepo{draws: make(map[int]model.Draw)}
	for _, d := range draws {
		f.draws[d.DrawNo] = d
	}
	return f
}

func (f *fakeDrawRepo) Upsert(_ context.Context, d model.Draw) error {
	f.draws[d.DrawNo] = d
	return nil
}

func (f *fakeDrawRepo) Get(_ context.Context, no int) (model.Draw, error) {
	d, ok := f.draws[no]
	if !ok {
		return model.Draw{}, fmt.Errorf("draw %d: %w", no, repo.ErrNotFound)
	}
	return d, nil
}

func (f *fakeDrawRepo) Latest(ctx context.Context) (model.Draw, error) {
	recent, _ := f.Recent(ctx, 1)
	if len(recent) == 0 {
		return model.Draw{}, fmt.Errorf("latest draw: %w", repo.ErrNotFound)
	}
	return recent[0], nil
}

func (f *fakeDrawRepo) Recent(_ context.Context, limit int) ([]model.Draw, error) {
	out := make([]model.Draw, 0, len(f.draws))
	for _, d := range f.draws {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DrawNo > out[j].DrawNo })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeFreePickRepo struct {
	mu    sync.Mutex
	picks []model.FreePick
}

func (f *fakeFreePickRepo) Create(_ context.Context, p model.FreePick) (model.FreePick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = uuid.New()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	f.picks = append(f.picks, p)
	return p, nil
}

func (f *fakeFreePickRepo) ListSince(_ context.Context, userID uuid.UUID, since time.Time) ([]model.FreePick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.FreePick
	for _, p := range f.picks {
		if p.UserID == userID && !p.CreatedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}
