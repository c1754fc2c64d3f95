package secrethitler

import (
	"strings"

	apperrors "github.com/geokala/discord-gamebot/internal/platform/errors"
)

// Stage describes the top-level lifecycle of a game.
type Stage int

const (
	// StageGeneralElection is the lobby stage where players join and leave.
	StageGeneralElection Stage = iota
	// StageParliamentInSession is the playing stage.
	StageParliamentInSession
)

// String returns the display name of the stage.
func (s Stage) String() string {
	switch s {
	case StageGeneralElection:
		return "General election"
	case StageParliamentInSession:
		return "Parliament in session"
	default:
		return "Unknown stage"
	}
}

// RoundStage describes the sub-state of a round while parliament is in session.
type RoundStage int

const (
	// RoundStageNone applies before the first election starts.
	RoundStageNone RoundStage = iota
	// RoundStageElection covers chancellor nomination and voting.
	RoundStageElection
	// RoundStageLegislativeSession covers policy discard and selection.
	RoundStageLegislativeSession
	// RoundStageExecutiveAction covers a pending presidential power.
	RoundStageExecutiveAction
)

// String returns the display name of the round stage.
func (s RoundStage) String() string {
	switch s {
	case RoundStageElection:
		return "Election"
	case RoundStageLegislativeSession:
		return "Legislative Session"
	case RoundStageExecutiveAction:
		return "Executive Action"
	default:
		return "None"
	}
}

// Policy is a policy card type.
type Policy int

const (
	// PolicyUnspecified represents an invalid policy value.
	PolicyUnspecified Policy = iota
	// PolicyLiberal is a Liberal policy card.
	PolicyLiberal
	// PolicyFascist is a Fascist policy card.
	PolicyFascist
)

// String returns the display name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyLiberal:
		return "Liberal"
	case PolicyFascist:
		return "Fascist"
	default:
		return "Unspecified"
	}
}

// ParsePolicy converts user input to a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "liberal":
		return PolicyLiberal, nil
	case "fascist":
		return PolicyFascist, nil
	default:
		return PolicyUnspecified, apperrors.WithMetadata(
			apperrors.CodeInvalidPolicyType,
			"There are only Liberal and Fascist policies.",
			map[string]string{"Policy": value},
		)
	}
}

// Power is a presidential power granted by fascist policies.
type Power int

const (
	// PowerNone indicates no power is granted.
	PowerNone Power = iota
	// PowerInvestigateLoyalty lets the president see a player's faction.
	PowerInvestigateLoyalty
	// PowerCallSpecialElection lets the president pick the next president.
	PowerCallSpecialElection
	// PowerPolicyPeek lets the president see the next three policies.
	PowerPolicyPeek
	// PowerExecution lets the president remove a player from the game.
	PowerExecution
)

// String returns the display name of the power.
func (p Power) String() string {
	switch p {
	case PowerInvestigateLoyalty:
		return "Investigate Loyalty"
	case PowerCallSpecialElection:
		return "Call Special Election"
	case PowerPolicyPeek:
		return "Policy Peek"
	case PowerExecution:
		return "Execution"
	default:
		return "None"
	}
}

// EndState is the terminal result of a game. The zero value means the game
// is still in progress.
type EndState string

const (
	// EndStateNone indicates the game has not finished.
	EndStateNone EndState = ""
	// EndStateLiberalPolicies indicates five Liberal policies were enacted.
	EndStateLiberalPolicies EndState = "Liberal win (policies)"
	// EndStateLiberalHitlerKilled indicates Hitler was executed.
	EndStateLiberalHitlerKilled EndState = "Liberal win (killed Hitler)"
	// EndStateFascistPolicies indicates six Fascist policies were enacted.
	EndStateFascistPolicies EndState = "Fascist win (policies)"
	// EndStateFascistChancellorHitler indicates Hitler was elected chancellor
	// after three Fascist policies.
	EndStateFascistChancellorHitler EndState = "Fascist win (chancellor Hitler)"
)

// Deck composition and table sizes.
const (
	liberalPolicyCount = 6
	fascistPolicyCount = 11
	deckSize           = liberalPolicyCount + fascistPolicyCount

	// MinPlayers is the smallest parliament that can enter session.
	MinPlayers = 5
	// MaxPlayers is the largest parliament allowed.
	MaxPlayers = 10
)

// fascistCountByPlayers gives the number of fascists dealt for each player count.
var fascistCountByPlayers = map[int]int{
	5:  2,
	6:  2,
	7:  3,
	8:  3,
	9:  4,
	10: 4,
}

// fascistPowerTrack returns the powers granted by the 1st through 5th fascist
// policy for the given player count. The 6th fascist policy ends the game
// before any power is granted.
func fascistPowerTrack(playerCount int) [5]Power {
	switch {
	case playerCount < 7:
		return [5]Power{
			PowerNone,
			PowerNone,
			PowerPolicyPeek,
			PowerExecution,
			PowerExecution,
		}
	case playerCount < 9:
		return [5]Power{
			PowerNone,
			PowerInvestigateLoyalty,
			PowerCallSpecialElection,
			PowerExecution,
			PowerExecution,
		}
	default:
		return [5]Power{
			PowerInvestigateLoyalty,
			PowerInvestigateLoyalty,
			PowerCallSpecialElection,
			PowerExecution,
			PowerExecution,
		}
	}
}

// newPolicyDeck builds the full 17-card deck in a fixed order; callers
// shuffle it.
func newPolicyDeck() []Policy {
	deck := make([]Policy, 0, deckSize)
	for i := 0; i < liberalPolicyCount; i++ {
		deck = append(deck, PolicyLiberal)
	}
	for i := 0; i < fascistPolicyCount; i++ {
		deck = append(deck, PolicyFascist)
	}
	return deck
}

// joinNames renders a comma-separated list of display names.
func joinNames(names []string) string {
	return strings.Join(names, ", ")
}

// must be kept in sync with the EndState constants; used by the tracker to
// validate stat bucket updates.
func validEndState(state EndState) bool {
	switch state {
	case EndStateLiberalPolicies,
		EndStateLiberalHitlerKilled,
		EndStateFascistPolicies,
		EndStateFascistChancellorHitler:
		return true
	default:
		return false
	}
}
