package service

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrGamesUnavailable = errors.New("games are not available")

// GameEngine runs turn-based games. It receives the raw command frame and
// returns the frame to send back to the requester.
type GameEngine interface {
	Handle(ctx context.Context, username, kind string, frame json.RawMessage) (json.RawMessage, error)
}

// UnavailableGames is the engine used when no game backend is configured.
type UnavailableGames struct{}

func (UnavailableGames) Handle(context.Context, string, string, json.RawMessage) (json.RawMessage, error) {
	return nil, ErrGamesUnavailable
}
