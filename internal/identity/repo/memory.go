package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ellarises/web/internal/identity/entity"
)

type memState struct {
	accounts map[string]entity.Account
	profiles map[string]entity.Profile
}

func newMemState() *memState {
	return &memState{
		accounts: map[string]entity.Account{},
		profiles: map[string]entity.Profile{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.profiles {
		if v.AccountID != nil {
			id := *v.AccountID
			v.AccountID = &id
		}
		c.profiles[k] = v
	}
	return c
}

// MemoryStore keeps accounts and profiles in process memory. Transactions are
// serialized and run against a copy that replaces the live state on commit.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState(), now: time.Now}
}

func (s *MemoryStore) Accounts() AccountRepository { return memAccounts{memView{store: s}} }
func (s *MemoryStore) Profiles() ProfileRepository { return memProfiles{memView{store: s}} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(ctx, memTx{memView{store: s, st: work}}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// memView runs operations either on a transaction copy (st set) or on the
// live state under the store mutex.
type memView struct {
	store *MemoryStore
	st    *memState
}

func (v memView) do(fn func(st *memState) error) error {
	if v.st != nil {
		return fn(v.st)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}

type memTx struct{ v memView }

func (t memTx) Accounts() AccountRepository { return memAccounts{t.v} }
func (t memTx) Profiles() ProfileRepository { return memProfiles{t.v} }

type memAccounts struct{ v memView }

func (r memAccounts) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	var out *entity.Account
	err := r.v.do(func(st *memState) error {
		for _, a := range st.accounts {
			if entity.NormalizeEmail(a.Email) == email {
				a := a
				out = &a
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memAccounts) Create(ctx context.Context, a *entity.Account) error {
	return r.v.do(func(st *memState) error {
		if _, ok := st.accounts[a.ID]; ok {
			return ErrDuplicate
		}
		email := entity.NormalizeEmail(a.Email)
		for _, existing := range st.accounts {
			if entity.NormalizeEmail(existing.Email) == email {
				return ErrDuplicate
			}
		}
		now := r.v.store.now()
		a.CreatedAt, a.UpdatedAt = now, now
		st.accounts[a.ID] = *a
		return nil
	})
}

type memProfiles struct{ v memView }

func (r memProfiles) GetByAccountID(ctx context.Context, accountID string) (*entity.Profile, error) {
	var out *entity.Profile
	err := r.v.do(func(st *memState) error {
		for _, p := range st.profiles {
			if p.AccountID != nil && *p.AccountID == accountID {
				p := p
				out = &p
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memProfiles) list(match func(p entity.Profile) bool) ([]entity.Profile, error) {
	out := []entity.Profile{}
	err := r.v.do(func(st *memState) error {
		for _, p := range st.profiles {
			if match(p) {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r memProfiles) ListByEmail(ctx context.Context, email string) ([]entity.Profile, error) {
	return r.list(func(p entity.Profile) bool {
		return entity.NormalizeEmail(p.Email) == email
	})
}

func (r memProfiles) ListUnclaimedByEmail(ctx context.Context, email string) ([]entity.Profile, error) {
	return r.list(func(p entity.Profile) bool {
		return p.Unclaimed() && entity.NormalizeEmail(p.Email) == email
	})
}

func (r memProfiles) Create(ctx context.Context, p *entity.Profile) error {
	return r.v.do(func(st *memState) error {
		if _, ok := st.profiles[p.ID]; ok {
			return ErrDuplicate
		}
		if !p.Unclaimed() {
			for _, existing := range st.profiles {
				if existing.AccountID != nil && *existing.AccountID == *p.AccountID {
					return ErrDuplicate
				}
			}
		}
		now := r.v.store.now()
		p.CreatedAt, p.UpdatedAt = now, now
		st.profiles[p.ID] = *p
		return nil
	})
}

func (r memProfiles) Claim(ctx context.Context, p *entity.Profile) error {
	return r.v.do(func(st *memState) error {
		existing, ok := st.profiles[p.ID]
		if !ok || !existing.Unclaimed() {
			return ErrNotFound
		}
		for _, other := range st.profiles {
			if other.AccountID != nil && p.AccountID != nil && *other.AccountID == *p.AccountID {
				return ErrDuplicate
			}
		}
		existing.AccountID = p.AccountID
		existing.FirstName = p.FirstName
		existing.LastName = p.LastName
		existing.UpdatedAt = r.v.store.now()
		st.profiles[p.ID] = existing
		p.UpdatedAt = existing.UpdatedAt
		return nil
	})
}
