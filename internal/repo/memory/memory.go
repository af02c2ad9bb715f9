// Package memory holds map-backed repositories used by tests and local
// development in place of Postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/model"
	"github.com/qwmll19-cmd/ai-lotto/internal/repo"
)

// Store implements every repo interface over one mutex.
type Store struct {
	mu       sync.Mutex
	users    map[uuid.UUID]model.User
	sessions map[uuid.UUID]model.RefreshSession
	draws    map[int]model.Draw
	pools    map[poolKey]model.Pool
	picks    []model.FreePick
	now      func() time.Time
}

type poolKey struct {
	user   uuid.UUID
	target int
	plan   string
}

func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]model.User),
		sessions: make(map[uuid.UUID]model.RefreshSession),
		draws:    make(map[int]model.Draw),
		pools:    make(map[poolKey]model.Pool),
		now:      time.Now,
	}
}

func (s *Store) Users() repo.UserRepo         { return userRepo{s} }
func (s *Store) Sessions() repo.RefreshRepo   { return refreshRepo{s} }
func (s *Store) Draws() repo.DrawRepo         { return drawRepo{s} }
func (s *Store) Pools() repo.PoolRepo         { return poolRepo{s} }
func (s *Store) FreePicks() repo.FreePickRepo { return freePickRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u model.User) (model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Identifier == u.Identifier {
			return model.User{}, fmt.Errorf("identifier %w", repo.ErrDuplicate)
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Tier == "" {
		u.Tier = lotto.TierFree
	}
	u.CreatedAt = r.s.now()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = u
	return u, nil
}

func (r userRepo) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user: %w", repo.ErrNotFound)
	}
	return u, nil
}

func (r userRepo) GetByIdentifier(_ context.Context, identifier string) (model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Identifier == identifier {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("user: %w", repo.ErrNotFound)
}

func (r userRepo) UpdateTier(_ context.Context, id uuid.UUID, tier lotto.Tier) (model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user: %w", repo.ErrNotFound)
	}
	u.Tier = tier
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u
	return u, nil
}

func (r userRepo) SetAdmin(_ context.Context, id uuid.UUID, isAdmin bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user: %w", repo.ErrNotFound)
	}
	u.IsAdmin = isAdmin
	r.s.users[id] = u
	return nil
}

type refreshRepo struct{ s *Store }

func (r refreshRepo) Create(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id := uuid.New()
	r.s.sessions[id] = model.RefreshSession{ID: id, UserID: userID, TokenHash: tokenHash, CreatedAt: r.s.now(), ExpiresAt: expiresAt}
	return id, nil
}

func (r refreshRepo) FindActive(_ context.Context, tokenHash string) (model.RefreshSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sess := range r.s.sessions {
		if sess.TokenHash == tokenHash && sess.RevokedAt == nil && sess.ExpiresAt.After(r.s.now()) {
			return sess, nil
		}
	}
	return model.RefreshSession{}, fmt.Errorf("refresh session: %w", repo.ErrNotFound)
}

func (r refreshRepo) FindAny(_ context.Context, tokenHash string) (model.RefreshSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sess := range r.s.sessions {
		if sess.TokenHash == tokenHash {
			return sess, nil
		}
	}
	return model.RefreshSession{}, fmt.Errorf("refresh session: %w", repo.ErrNotFound)
}

func (r refreshRepo) RevokeAndSetReplacedBy(_ context.Context, sessionID, replacedBy uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok || sess.RevokedAt != nil {
		return fmt.Errorf("refresh session: %w", repo.ErrNotFound)
	}
	now := r.s.now()
	sess.RevokedAt = &now
	sess.ReplacedBy = &replacedBy
	r.s.sessions[sessionID] = sess
	return nil
}

func (r refreshRepo) Revoke(_ context.Context, sessionID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess, ok := r.s.sessions[sessionID]; ok && sess.RevokedAt == nil {
		now := r.s.now()
		sess.RevokedAt = &now
		r.s.sessions[sessionID] = sess
	}
	return nil
}

func (r refreshRepo) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	for id, sess := range r.s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			sess.RevokedAt = &now
			r.s.sessions[id] = sess
		}
	}
	return nil
}

type drawRepo struct{ s *Store }

func (r drawRepo) Upsert(_ context.Context, d model.Draw) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if old, ok := r.s.draws[d.DrawNo]; ok {
		d.CreatedAt = old.CreatedAt
	} else {
		d.CreatedAt = r.s.now()
	}
	d.Numbers = append([]int(nil), d.Numbers...)
	r.s.draws[d.DrawNo] = d
	return nil
}

func (r drawRepo) Get(_ context.Context, drawNo int) (model.Draw, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.draws[drawNo]
	if !ok {
		return model.Draw{}, fmt.Errorf("draw %d: %w", drawNo, repo.ErrNotFound)
	}
	return d, nil
}

func (r drawRepo) Latest(ctx context.Context) (model.Draw, error) {
	recent, _ := r.Recent(ctx, 1)
	if len(recent) == 0 {
		return model.Draw{}, fmt.Errorf("latest draw: %w", repo.ErrNotFound)
	}
	return recent[0], nil
}

func (r drawRepo) Recent(_ context.Context, limit int) ([]model.Draw, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Draw, 0, len(r.s.draws))
	for _, d := range r.s.draws {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DrawNo > out[j].DrawNo })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type poolRepo struct{ s *Store }

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

func (r poolRepo) Get(_ context.Context, userID uuid.UUID, targetDrawNo int, planType string) (model.Pool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.pools[poolKey{userID, targetDrawNo, planType}]
	if !ok {
		return model.Pool{}, fmt.Errorf("pool: %w", repo.ErrNotFound)
	}
	return clonePool(p), nil
}

func (r poolRepo) Save(_ context.Context, p model.Pool) (model.Pool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := poolKey{p.UserID, p.TargetDrawNo, p.PlanType}
	now := r.s.now()
	if old, ok := r.s.pools[key]; ok {
		p.ID = old.ID
		p.CreatedAt = old.CreatedAt
	} else {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.s.pools[key] = clonePool(p)
	return clonePool(p), nil
}

func (r poolRepo) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]model.Pool, error) {
	out := r.filter(func(p model.Pool) bool { return p.UserID == userID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r poolRepo) ListByUserAndDraw(_ context.Context, userID uuid.UUID, targetDrawNo int) ([]model.Pool, error) {
	return r.filter(func(p model.Pool) bool { return p.UserID == userID && p.TargetDrawNo == targetDrawNo }), nil
}

// filter returns matches newest target draw first, then by creation time.
func (r poolRepo) filter(keep func(model.Pool) bool) []model.Pool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Pool
	for _, p := range r.s.pools {
		if keep(p) {
			out = append(out, clonePool(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TargetDrawNo != out[j].TargetDrawNo {
			return out[i].TargetDrawNo > out[j].TargetDrawNo
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type freePickRepo struct{ s *Store }

func (r freePickRepo) Create(_ context.Context, p model.FreePick) (model.FreePick, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = uuid.New()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.s.now()
	}
	p.Numbers = append([]int(nil), p.Numbers...)
	r.s.picks = append(r.s.picks, p)
	return p, nil
}

func (r freePickRepo) ListSince(_ context.Context, userID uuid.UUID, since time.Time) ([]model.FreePick, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.FreePick
	for _, p := range r.s.picks {
		if p.UserID == userID && !p.CreatedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}
