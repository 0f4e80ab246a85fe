// Package classify maps raw demand signals to conviction weights.
//
// The weights are the only place conviction levels are assigned numeric
// meaning; every downstream aggregate is built on top of them.
package classify

import (
	"errors"
	"fmt"

	"github.com/crowdwant/pulse/internal/domain"
)

// ErrUnknownSignalKind is returned when a signal carries an intensity or
// pledge type outside the known enums. An unknown kind means either data
// corruption or a version skew between writer and engine, so callers must
// treat it as fatal for the whole report rather than skip the signal.
var ErrUnknownSignalKind = errors.New("unknown signal kind")

// Lobby conviction weights. TAKE_MY_MONEY is deliberately worth five
// NEAT_IDEAs: casual interest inflates raw counts but predicts almost no
// purchases.
var lobbyWeights = map[domain.LobbyIntensity]float64{
	domain.IntensityNeatIdea:    1,
	domain.IntensityProbablyBuy: 2,
	domain.IntensityTakeMyMoney: 5,
}

// Pledge weights. An INTENT pledge carries checkout-adjacent commitment and
// outweighs a whole PROBABLY_BUY lobby.
var pledgeWeights = map[domain.PledgeType]float64{
	domain.PledgeSupport: 1,
	domain.PledgeIntent:  3,
}

// LobbyWeight returns the conviction weight for a lobby intensity.
func LobbyWeight(intensity domain.LobbyIntensity) (float64, error) {
	w, ok := lobbyWeights[intensity]
	if !ok {
		return 0, fmt.Errorf("%w: lobby intensity %q", ErrUnknownSignalKind, intensity)
	}
	return w, nil
}

// PledgeWeight returns the conviction weight for a pledge type.
func PledgeWeight(t domain.PledgeType) (float64, error) {
	w, ok := pledgeWeights[t]
	if !ok {
		return 0, fmt.Errorf("%w: pledge type %q", ErrUnknownSignalKind, t)
	}
	return w, nil
}

// ValidLobbyIntensity reports whether the intensity is a known enum value.
// Used by the API layer to reject bad input before it reaches storage.
func ValidLobbyIntensity(intensity domain.LobbyIntensity) bool {
	_, ok := lobbyWeights[intensity]
	return ok
}

// ValidPledgeType reports whether the pledge type is a known enum value.
func ValidPledgeType(t domain.PledgeType) bool {
	_, ok := pledgeWeights[t]
	return ok
}
