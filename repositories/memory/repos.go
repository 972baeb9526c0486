package memory

import (
	"KidQuest/models"
	"context"
	"sort"
	"time"
)

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

type parentRepo struct{ run runner }

func (r *parentRepo) find(match func(models.Parent) bool) (models.Parent, error) {
	var found models.Parent
	err := r.run(func(d *data) error {
		for _, p := range d.parents {
			if match(p) {
				found = p
				return nil
			}
		}
		return models.ErrNotFound
	})
	return found, err
}

func (r *parentRepo) FindByID(_ context.Context, id string) (models.Parent, error) {
	return r.find(func(p models.Parent) bool { return p.ID == id })
}

func (r *parentRepo) FindByFirebaseUID(_ context.Context, uid string) (models.Parent, error) {
	return r.find(func(p models.Parent) bool { return uid != "" && p.FirebaseUID == uid })
}

func (r *parentRepo) FindByEmail(_ context.Context, email string) (models.Parent, error) {
	return r.find(func(p models.Parent) bool { return p.Email == email })
}

func (r *parentRepo) FindByCode(_ context.Context, code string) (models.Parent, error) {
	return r.find(func(p models.Parent) bool { return p.Code == code })
}

func (r *parentRepo) CountByCode(_ context.Context, code string) (int64, error) {
	var n int64
	err := r.run(func(d *data) error {
		for _, p := range d.parents {
			if p.Code == code {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *parentRepo) Create(_ context.Context, parent *models.Parent) error {
	return r.run(func(d *data) error {
		for _, p := range d.parents {
			if parent.Email != "" && p.Email == parent.Email {
				return models.ErrConflict
			}
		}
		if parent.ID == "" {
			parent.ID = models.NewID()
		}
		stamp(&parent.CreatedAt)
		d.parents[parent.ID] = *parent
		return nil
	})
}

func (r *parentRepo) Save(_ context.Context, parent models.Parent) error {
	return r.run(func(d *data) error {
		d.parents[parent.ID] = parent
		return nil
	})
}

type linkRepo struct{ run runner }

func (r *linkRepo) Exists(_ context.Context, parentID, childID string) (bool, error) {
	var ok bool
	err := r.run(func(d *data) error {
		for _, l := range d.links {
			if l.ParentID == parentID && l.ChildID == childID {
				ok = true
				break
			}
		}
		return nil
	})
	return ok, err
}

func (r *linkRepo) Create(_ context.Context, link *models.ParentChildLink) error {
	return r.run(func(d *data) error {
		for _, l := range d.links {
			if l.ParentID == link.ParentID && l.ChildID == link.ChildID {
				return models.ErrConflict
			}
		}
		if link.ID == "" {
			link.ID = models.NewID()
		}
		stamp(&link.CreatedAt)
		d.links = append(d.links, *link)
		return nil
	})
}

func (r *linkRepo) ParentIDs(_ context.Context, childID string) ([]string, error) {
	var ids []string
	err := r.run(func(d *data) error {
		for _, l := range d.links {
			if l.ChildID == childID {
				ids = append(ids, l.ParentID)
			}
		}
		return nil
	})
	return ids, err
}

type childRepo struct{ run runner }

func (r *childRepo) FindByID(_ context.Context, id string) (models.Child, error) {
	var child models.Child
	err := r.run(func(d *data) error {
		c, ok := d.children[id]
		if !ok {
			return models.ErrNotFound
		}
		child = c
		return nil
	})
	return child, err
}

func (r *childRepo) FindByCode(_ context.Context, code string) (models.Child, error) {
	var child models.Child
	err := r.run(func(d *data) error {
		for _, c := range d.children {
			if c.Code == code {
				child = c
				return nil
			}
		}
		return models.ErrNotFound
	})
	return child, err
}

func (r *childRepo) CountByCode(_ context.Context, code string) (int64, error) {
	var n int64
	err := r.run(func(d *data) error {
		for _, c := range d.children {
			if c.Code == code {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *childRepo) Create(_ context.Context, child *models.Child) error {
	return r.run(func(d *data) error {
		if child.ID == "" {
			child.ID = models.NewID()
		}
		stamp(&child.CreatedAt)
		d.children[child.ID] = *child
		return nil
	})
}

type walletRepo struct{ run runner }

func (r *walletRepo) Create(_ context.Context, wallet *models.Wallet) error {
	return r.run(func(d *data) error {
		for _, w := range d.wallets {
			if w.ChildID == wallet.ChildID {
				return models.ErrConflict
			}
		}
		if wallet.ID == "" {
			wallet.ID = models.NewID()
		}
		stamp(&wallet.CreatedAt)
		d.wallets[wallet.ID] = *wallet
		return nil
	})
}

func (r *walletRepo) FindByID(_ context.Context, id string) (models.Wallet, error) {
	var wallet models.Wallet
	err := r.run(func(d *data) error {
		w, ok := d.wallets[id]
		if !ok {
			return models.ErrNotFound
		}
		wallet = w
		return nil
	})
	return wallet, err
}

func (r *walletRepo) FindByChild(_ context.Context, childID string) (models.Wallet, error) {
	var wallet models.Wallet
	err := r.run(func(d *data) error {
		for _, w := range d.wallets {
			if w.ChildID == childID {
				wallet = w
				return nil
			}
		}
		return models.ErrNotFound
	})
	return wallet, err
}

func (r *walletRepo) LockByID(ctx context.Context, id string) (models.Wallet, error) {
	return r.FindByID(ctx, id)
}

type sessionRepo struct{ run runner }

func (r *sessionRepo) LockChild(context.Context, string) error { return nil }

func (r *sessionRepo) FindLive(_ context.Context, childID string) (models.DeviceSession, error) {
	var session models.DeviceSession
	err := r.run(func(d *data) error {
		for _, s := range d.sessions {
			if s.ChildID == childID && s.Live() {
				session = s
				return nil
			}
		}
		return models.ErrNotFound
	})
	return session, err
}

func (r *sessionRepo) Create(_ context.Context, session *models.DeviceSession) error {
	return r.run(func(d *data) error {
		if session.Live() {
			for _, s := range d.sessions {
				if s.ChildID == session.ChildID && s.Live() {
					return models.ErrConflict
				}
			}
		}
		if session.ID == "" {
			session.ID = models.NewID()
		}
		stamp(&session.CreatedAt)
		d.sessions = append(d.sessions, *session)
		return nil
	})
}

func (r *sessionRepo) Update(_ context.Context, session models.DeviceSession) error {
	return r.run(func(d *data) error {
		for i, s := range d.sessions {
			if s.ID != session.ID {
				continue
			}
			if session.Live() && !s.Live() {
				for _, other := range d.sessions {
					if other.ID != s.ID && other.ChildID == s.ChildID && other.Live() {
						return models.ErrConflict
					}
				}
			}
			d.sessions[i].IsActive = session.IsActive
			d.sessions[i].Revoked = session.Revoked
			d.sessions[i].RevokedAt = session.RevokedAt
			d.sessions[i].SessionEnd = session.SessionEnd
			return nil
		}
		return models.ErrNotFound
	})
}

func (r *sessionRepo) ListByChild(_ context.Context, childID string) ([]models.DeviceSession, error) {
	var out []models.DeviceSession
	err := r.run(func(d *data) error {
		for i := len(d.sessions) - 1; i >= 0; i-- {
			if d.sessions[i].ChildID == childID {
				out = append(out, d.sessions[i])
			}
		}
		return nil
	})
	return out, err
}

func (r *sessionRepo) DeactivateElapsed(_ context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.run(func(d *data) error {
		for i, s := range d.sessions {
			if s.Live() && s.ExpiredAt(now) {
				d.sessions[i].IsActive = false
				n++
			}
		}
		return nil
	})
	return n, err
}

type ledgerRepo struct{ run runner }

func (r *ledgerRepo) Append(_ context.Context, entry *models.LedgerEntry) error {
	return r.run(func(d *data) error {
		if entry.IdempotencyKey != nil {
			for _, e := range d.entries {
				if e.WalletID == entry.WalletID && e.IdempotencyKey != nil && *e.IdempotencyKey == *entry.IdempotencyKey {
					return models.ErrDuplicateEarn
				}
			}
		}
		if entry.ID == "" {
			entry.ID = models.NewID()
		}
		stamp(&entry.CreatedAt)
		d.entries = append(d.entries, *entry)
		return nil
	})
}

func (r *ledgerRepo) FindByIdempotencyKey(_ context.Context, walletID, key string) (models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.run(func(d *data) error {
		for _, e := range d.entries {
			if e.WalletID == walletID && e.IdempotencyKey != nil && *e.IdempotencyKey == key {
				entry = e
				return nil
			}
		}
		return models.ErrNotFound
	})
	return entry, err
}

func (r *ledgerRepo) Totals(_ context.Context, walletID string) (models.KindTotals, error) {
	totals := models.KindTotals{}
	err := r.run(func(d *data) error {
		for _, e := range d.entries {
			if e.WalletID == walletID {
				totals[e.Kind] += e.Magnitude()
			}
		}
		return nil
	})
	return totals, err
}

func (r *ledgerRepo) ListByWallet(_ context.Context, walletID string, limit int) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	err := r.run(func(d *data) error {
		for i := len(d.entries) - 1; i >= 0; i-- {
			if d.entries[i].WalletID != walletID {
				continue
			}
			out = append(out, d.entries[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

type requestRepo struct{ run runner }

func (r *requestRepo) Create(_ context.Context, req *models.SpendRequest) error {
	return r.run(func(d *data) error {
		if req.IsPending() {
			for _, existing := range d.requests {
				if existing.IsPending() && existing.ChildID == req.ChildID && existing.RewardID == req.RewardID {
					return models.ErrDuplicateRequest
				}
			}
		}
		if req.ID == "" {
			req.ID = models.NewID()
		}
		stamp(&req.CreatedAt)
		d.requests = append(d.requests, *req)
		return nil
	})
}

func (r *requestRepo) FindByID(_ context.Context, id string) (models.SpendRequest, error) {
	var req models.SpendRequest
	err := r.run(func(d *data) error {
		for _, existing := range d.requests {
			if existing.ID == id {
				req = existing
				return nil
			}
		}
		return models.ErrNotFound
	})
	return req, err
}

func (r *requestRepo) LockByID(ctx context.Context, id string) (models.SpendRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *requestRepo) HasPending(_ context.Context, childID, rewardID string) (bool, error) {
	var ok bool
	err := r.run(func(d *data) error {
		for _, existing := range d.requests {
			if existing.IsPending() && existing.ChildID == childID && existing.RewardID == rewardID {
				ok = true
				break
			}
		}
		return nil
	})
	return ok, err
}

func (r *requestRepo) Update(_ context.Context, req models.SpendRequest) error {
	return r.run(func(d *data) error {
		for i, existing := range d.requests {
			if existing.ID == req.ID {
				d.requests[i].Status = req.Status
				d.requests[i].DecidedBy = req.DecidedBy
				d.requests[i].DecidedAt = req.DecidedAt
				return nil
			}
		}
		return models.ErrNotFound
	})
}

func (r *requestRepo) ListStale(_ context.Context, cutoff time.Time, limit int) ([]models.SpendRequest, error) {
	var out []models.SpendRequest
	err := r.run(func(d *data) error {
		for _, req := range d.requests {
			if req.IsPending() && req.CreatedAt.Before(cutoff) {
				out = append(out, req)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *requestRepo) ListByChild(_ context.Context, childID string, status *models.SpendStatus) ([]models.SpendRequest, error) {
	var out []models.SpendRequest
	err := r.run(func(d *data) error {
		for i := len(d.requests) - 1; i >= 0; i-- {
			req := d.requests[i]
			if req.ChildID != childID || (status != nil && req.Status != *status) {
				continue
			}
			out = append(out, req)
		}
		return nil
	})
	return out, err
}

type rewardRepo struct{ run runner }

func (r *rewardRepo) Create(_ context.Context, reward *models.Reward) error {
	return r.run(func(d *data) error {
		if reward.ID == "" {
			reward.ID = models.NewID()
		}
		stamp(&reward.CreatedAt)
		d.rewards[reward.ID] = *reward
		return nil
	})
}

func (r *rewardRepo) FindByID(_ context.Context, id string) (models.Reward, error) {
	var reward models.Reward
	err := r.run(func(d *data) error {
		rw, ok := d.rewards[id]
		if !ok || rw.DeletedAt.Valid {
			return models.ErrNotFound
		}
		reward = rw
		return nil
	})
	return reward, err
}

func (r *rewardRepo) ListByParent(_ context.Context, parentID string) ([]models.Reward, error) {
	var out []models.Reward
	err := r.run(func(d *data) error {
		for _, rw := range d.rewards {
			if rw.ParentID == parentID && !rw.DeletedAt.Valid {
				out = append(out, rw)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func (r *rewardRepo) Delete(_ context.Context, id string) error {
	return r.run(func(d *data) error {
		rw, ok := d.rewards[id]
		if !ok || rw.DeletedAt.Valid {
			return models.ErrNotFound
		}
		rw.DeletedAt.Time = time.Now().UTC()
		rw.DeletedAt.Valid = true
		d.rewards[id] = rw
		return nil
	})
}

type completionRepo struct{ run runner }

func (r *completionRepo) FindByID(_ context.Context, id string) (models.TaskCompletion, error) {
	var completion models.TaskCompletion
	err := r.run(func(d *data) error {
		c, ok := d.completions[id]
		if !ok {
			return models.ErrNotFound
		}
		completion = c
		return nil
	})
	return completion, err
}

func (r *completionRepo) Create(_ context.Context, completion *models.TaskCompletion) error {
	return r.run(func(d *data) error {
		if completion.ID == "" {
			completion.ID = models.NewID()
		}
		if _, ok := d.completions[completion.ID]; ok {
			return models.ErrConflict
		}
		stamp(&completion.CreatedAt)
		d.completions[completion.ID] = *completion
		return nil
	})
}
