package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/billbatista/acasinha-trips/session"
	"github.com/billbatista/acasinha-trips/user"
	"github.com/google/uuid"
)

type Users struct{ s *Store }

func (r *Users) Register(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Handle == u.Handle {
			return user.ErrHandleExists
		}
	}
	r.s.users = append(r.s.users, *u)
	return nil
}

func (r *Users) GetByHandle(_ context.Context, handle string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Handle == handle {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *Users) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u := r.s.userByID(id); u != nil {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (r *Users) Search(_ context.Context, prefix string, limit int) ([]user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prefix = strings.ToLower(prefix)
	found := make([]user.User, 0)
	for _, u := range r.s.users {
		if strings.HasPrefix(strings.ToLower(u.Handle), prefix) {
			u.PasswordHash = ""
			found = append(found, u)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Handle < found[j].Handle })
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

type Sessions struct{ s *Store }

func (r *Sessions) Create(_ context.Context, sess *session.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.sessions[sess.Token] = *sess
	return nil
}

func (r *Sessions) GetByToken(_ context.Context, token string) (*session.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[token]
	if !ok {
		return nil, session.ErrInvalidSession
	}
	if sess.Expired(time.Now()) {
		return nil, session.ErrExpiredSession
	}
	return &sess, nil
}

func (r *Sessions) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.sessions, token)
	return nil
}
