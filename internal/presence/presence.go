// Package presence answers which users are online. Connections are tracked
// individually so a user stays online while any of their devices is.
package presence

import (
	"context"
	"sort"

	"github.com/samber/lo"
)

// Conn is one live connection.
type Conn struct {
	ID       string
	Username string
}

// Source lists live connections, typically the session registry.
type Source interface {
	Conns(ctx context.Context) ([]Conn, error)
}

type Store interface {
	Add(ctx context.Context, c Conn) error
	Remove(ctx context.Context, connID string) error
	Online(ctx context.Context) ([]string, error)
}

// LocalStore reads presence straight from the in-process source.
type LocalStore struct {
	source Source
}

func NewLocalStore(source Source) *LocalStore {
	return &LocalStore{source: source}
}

func (s *LocalStore) Add(context.Context, Conn) error       { return nil }
func (s *LocalStore) Remove(context.Context, string) error { return nil }

func (s *LocalStore) Online(ctx context.Context) ([]string, error) {
	conns, err := s.source.Conns(ctx)
	if err != nil {
		return nil, err
	}
	return usernames(conns), nil
}

func usernames(conns []Conn) []string {
	names := lo.Uniq(lo.Map(conns, func(c Conn, _ int) string { return c.Username }))
	sort.Strings(names)
	return names
}
