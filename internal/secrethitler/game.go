// Package secrethitler implements the Secret Hitler table state machine:
// the election round structure, the legislative session, presidential
// powers, and the three terminal win conditions.
package secrethitler

import (
	"fmt"
	"math/rand"

	apperrors "github.com/geokala/discord-gamebot/internal/platform/errors"
	"github.com/geokala/discord-gamebot/internal/random"
)

var (
	// ErrLobbyClosed indicates a join or leave attempt after launch.
	ErrLobbyClosed = apperrors.New(apperrors.CodeGameInProgress,
		"Parliament is already in session and is not accepting new ministers.")
	// ErrAlreadyLaunched indicates a second launch attempt.
	ErrAlreadyLaunched = apperrors.New(apperrors.CodeGameInProgress,
		"Parliament is already in session. Are you a troublemaker?")
	// ErrGameEnded indicates a mutation attempt on a finished game.
	ErrGameEnded = apperrors.New(apperrors.CodeGameEnded,
		"This term of Parliament has already ended. Open elections again before you start again.")
	// ErrGameNotStarted indicates a query that needs a launched game.
	ErrGameNotStarted = apperrors.New(apperrors.CodeGameNotStarted,
		"Parliament is not in session yet, and voter integrity regulations mean that we can't reveal who you are.")
	// ErrNotEnoughPlayers indicates a launch attempt with fewer than five players.
	ErrNotEnoughPlayers = apperrors.New(apperrors.CodeNotEnoughPlayers,
		"There must be at least 5 ministers for parliament to enter session.")
	// ErrPlayerLimitReached indicates a join attempt at the ten player cap.
	ErrPlayerLimitReached = apperrors.New(apperrors.CodePlayerLimitReached,
		"There are already 10 ministers. Too many will spoil the country. You don't want to ruin democracy, do you?")
	// ErrNotPresidentTurn indicates a discard attempt outside a legislative session.
	ErrNotPresidentTurn = apperrors.New(apperrors.CodeNotPresidentTurn,
		"It is not time for the President to decide upon policies.")
	// ErrNotChancellorTurn indicates a selection attempt before the president discards.
	ErrNotChancellorTurn = apperrors.New(apperrors.CodeNotChancellorTurn,
		"It is not time for the Chancellor to enact policies.")
	// ErrVetoNotAllowed indicates a veto before five fascist policies passed.
	ErrVetoNotAllowed = apperrors.New(apperrors.CodeVetoNotAllowed,
		"Veto is only an option after 5 Fascist policies pass.")
	// ErrVetoNotRequested indicates a veto confirmation without a pending request.
	ErrVetoNotRequested = apperrors.New(apperrors.CodeVetoNotAllowed,
		"Veto can only be confirmed after the Chancellor requests it.")
	// ErrNoPowerPending indicates a power enactment with no power granted.
	ErrNoPowerPending = apperrors.New(apperrors.CodeNoPowerPending,
		"The President holds no new powers right now.")
	// ErrNotInGame indicates the acting player is not seated in this game.
	ErrNotInGame = apperrors.New(apperrors.CodePlayerNotFound,
		"You are not a minister in this parliament.")
)

// Game is one playthrough of Secret Hitler. It is not safe for concurrent
// use; callers serialize access per game.
type Game struct {
	stage      Stage
	roundStage RoundStage
	endState   EndState

	playerIDs []string // seating order
	names     map[string]string
	// playerCount is fixed at launch; executions shrink playerIDs but the
	// role and power tables keep using the launch count.
	playerCount         int
	hitler              string
	hitlerKnowsFascists bool
	fascists            []string
	liberals            []string

	policies    []Policy
	policyDeck  []Policy
	discardDeck []Policy

	president         string
	chancellor        string
	nextPresident     string
	specialElection   string
	termLimited       []string
	playerVotes       map[string]bool
	electionFailures  int
	presidentialPower Power
	presidentPolicies []Policy
	chancellorPolicies []Policy
	vetoRequest       bool
	investigated      []string

	rng *rand.Rand
}

// NewGame creates a game waiting for players. A nil rng gets a fresh
// crypto-seeded source; tests inject a deterministic one.
func NewGame(rng *rand.Rand) (*Game, error) {
	if rng == nil {
		seed, err := random.NewSeed()
		if err != nil {
			return nil, fmt.Errorf("seed game rng: %w", err)
		}
		rng = rand.New(rand.NewSource(seed))
	}

	return &Game{
		stage:      StageGeneralElection,
		roundStage: RoundStageNone,
		names:      make(map[string]string),
		policyDeck: newPolicyDeck(),
		playerVotes: make(map[string]bool),
		rng:        rng,
	}, nil
}

// Stage returns the lifecycle stage of the game.
func (g *Game) Stage() Stage { return g.stage }

// RoundStage returns the sub-state of the current round.
func (g *Game) RoundStage() RoundStage { return g.roundStage }

// EndState returns the terminal result, or EndStateNone while in progress.
func (g *Game) EndState() EndState { return g.endState }

// Players returns the current seating order.
func (g *Game) Players() []string {
	players := make([]string, len(g.playerIDs))
	copy(players, g.playerIDs)
	return players
}

// President returns the sitting president's player ID.
func (g *Game) President() string { return g.president }

// Chancellor returns the nominated chancellor's player ID.
func (g *Game) Chancellor() string { return g.chancellor }

// name resolves a player ID to its display name.
func (g *Game) name(id string) string {
	if display, ok := g.names[id]; ok {
		return display
	}
	return id
}

// ensureActive fails every mutating operation once the game has ended.
func (g *Game) ensureActive() error {
	if g.endState != EndStateNone {
		return ErrGameEnded
	}
	return nil
}

// AddPlayer adds a player to a game that is being prepared. Adding a player
// who already joined is a no-op.
func (g *Game) AddPlayer(id, displayName string) error {
	if g.seated(id) {
		return nil
	}
	if err := g.ensureActive(); err != nil {
		return err
	}
	if g.stage != StageGeneralElection {
		return ErrLobbyClosed
	}
	if len(g.playerIDs) == MaxPlayers {
		return ErrPlayerLimitReached
	}

	g.playerIDs = append(g.playerIDs, id)
	if displayName == "" {
		displayName = id
	}
	g.names[id] = displayName
	return nil
}

// RemovePlayer removes a player from a game that is being prepared. Removing
// an absent player is a no-op.
func (g *Game) RemovePlayer(id string) error {
	if err := g.ensureActive(); err != nil {
		return err
	}
	if g.stage != StageGeneralElection {
		return ErrLobbyClosed
	}

	g.removeSeat(id)
	delete(g.names, id)
	return nil
}

// Launch starts the game if enough players joined: shuffles the deck, deals
// roles, and begins the first election.
func (g *Game) Launch() (string, error) {
	if g.stage == StageParliamentInSession {
		return "", ErrAlreadyLaunched
	}
	if err := g.ensureActive(); err != nil {
		return "", err
	}

	g.playerCount = len(g.playerIDs)
	if g.playerCount < MinPlayers {
		return "", ErrNotEnoughPlayers
	}

	g.rng.Shuffle(len(g.policyDeck), func(i, j int) {
		g.policyDeck[i], g.policyDeck[j] = g.policyDeck[j], g.policyDeck[i]
	})
	g.assignRoles()
	g.stage = StageParliamentInSession
	return g.startElection(), nil
}

// assignRoles deals fascists, liberals, and Hitler for the launch count.
func (g *Game) assignRoles() {
	fascistCount := fascistCountByPlayers[g.playerCount]

	order := g.rng.Perm(len(g.playerIDs))
	g.fascists = make([]string, 0, fascistCount)
	for _, idx := range order[:fascistCount] {
		g.fascists = append(g.fascists, g.playerIDs[idx])
	}

	g.liberals = nil
	for _, id := range g.playerIDs {
		if !contains(g.fascists, id) {
			g.liberals = append(g.liberals, id)
		}
	}

	g.hitler = g.fascists[g.rng.Intn(len(g.fascists))]
	g.hitlerKnowsFascists = g.playerCount < 7
}

// StartingKnowledge describes the role of a player and what they know about
// the other ministers.
func (g *Game) StartingKnowledge(id string) (string, error) {
	if g.stage == StageGeneralElection {
		return "", ErrGameNotStarted
	}
	if !g.seated(id) {
		return "", ErrNotInGame
	}

	if contains(g.liberals, id) {
		return fmt.Sprintf(
			"%s, you are a liberal. You suspect there are %d fascists in this parliament. Be vigilant!",
			g.name(id), len(g.fascists),
		), nil
	}

	if id == g.hitler {
		if g.hitlerKnowsFascists {
			var allies []string
			for _, fascist := range g.fascists {
				if fascist != id {
					allies = append(allies, g.name(fascist))
				}
			}
			return fmt.Sprintf(
				"%s, you are hitler! Fortunately, you know your fellow ne'er-do-well: %s",
				g.name(id), joinNames(allies),
			), nil
		}
		return fmt.Sprintf(
			"%s, you are hitler! You suspect you have %d allies.",
			g.name(id), len(g.fascists)-1,
		), nil
	}

	var others []string
	for _, fascist := range g.fascists {
		if fascist != id && fascist != g.hitler {
			others = append(others, g.name(fascist))
		}
	}
	return fmt.Sprintf(
		"%s, you are a fascist. Your glorious(ly evil) leader is %s. Your fellow fascists are: %s",
		g.name(id), g.name(g.hitler), joinNames(others),
	), nil
}

// startElection begins the next round: clears the previous government,
// selects the president, and recomputes term limits.
func (g *Game) startElection() string {
	g.chancellor = ""
	g.playerVotes = make(map[string]bool)
	g.presidentialPower = PowerNone

	if g.specialElection != "" {
		g.president = g.specialElection
		g.specialElection = ""
	} else {
		switch {
		case g.nextPresident == "":
			// First round
			g.president = g.playerIDs[g.rng.Intn(len(g.playerIDs))]
		case g.seated(g.nextPresident):
			g.president = g.nextPresident
		default:
			// The queued president was executed; rotation continues from
			// the sitting president's seat in the surviving order.
			g.president = g.playerIDs[(g.seatIndex(g.president)+1)%len(g.playerIDs)]
		}
		g.nextPresident = g.playerIDs[(g.seatIndex(g.president)+1)%len(g.playerIDs)]
	}

	var ineligible []string
	for _, minister := range g.termLimited {
		if minister != g.president {
			ineligible = append(ineligible, g.name(minister))
		}
	}
	g.roundStage = RoundStageElection

	message := fmt.Sprintf("President %s must now select their chancellor.", g.name(g.president))
	if len(ineligible) > 0 {
		message += fmt.Sprintf("The following minister(s) are term limited: %s", joinNames(ineligible))
	}
	return message
}

// NominateChancellor proposes a chancellor for this round. Ineligible picks
// return guidance rather than an error so the dispatcher can prompt a retry.
func (g *Game) NominateChancellor(id string) (string, error) {
	if err := g.ensureActive(); err != nil {
		return "", err
	}

	var eligible []string
	for _, minister := range g.playerIDs {
		if minister != g.president && !contains(g.termLimited, minister) {
			eligible = append(eligible, g.name(minister))
		}
	}

	if !g.seated(id) {
		return fmt.Sprintf(
			"A living minister must be selected. Eligible Chancellors are: %s",
			joinNames(eligible),
		), nil
	}
	if id == g.president || contains(g.termLimited, id) {
		return fmt.Sprintf(
			"The previous or current President and the previous Chancellor are not eligible to become chancellor. Eligible Chancellors are: %s",
			joinNames(eligible),
		), nil
	}

	g.chancellor = id
	return fmt.Sprintf(
		"A government has been proposed: President %s with Chancellor %s. Ministers should discuss and vote on this proposal.",
		g.name(g.president), g.name(g.chancellor),
	), nil
}

// CastVote records a player's vote on the proposed government. While votes
// are outstanding it returns a running tally; the final vote resolves the
// election.
func (g *Game) CastVote(id string, vote bool) (string, error) {
	if err := g.ensureActive(); err != nil {
		return "", err
	}
	if !g.seated(id) {
		return "", ErrNotInGame
	}
	// The vote map stays populated after an election resolves; without this
	// guard a stray vote would re-tally and redraw the president's hand.
	if g.roundStage != RoundStageElection {
		return "There is no election in progress.", nil
	}

	g.playerVotes[id] = vote

	if len(g.playerVotes) < len(g.playerIDs) {
		return fmt.Sprintf("%d/%d votes cast!", len(g.playerVotes), len(g.playerIDs)), nil
	}

	var yesNames, noNames []string
	for _, minister := range g.playerIDs {
		if g.playerVotes[minister] {
			yesNames = append(yesNames, g.name(minister))
		} else {
			noNames = append(noNames, g.name(minister))
		}
	}

	message := "Voting complete! "
	if len(yesNames) > 0 {
		message += fmt.Sprintf("Ja votes: %s ; ", joinNames(yesNames))
	}
	if len(noNames) > 0 {
		message += fmt.Sprintf("Nein votes: %s ; ", joinNames(noNames))
	}

	// Strict majority of Ja over Nein; ties fail the government.
	if len(yesNames) <= len(noNames) {
		return g.checkFailingGovernment(), nil
	}

	if g.policyCount(PolicyFascist) >= 3 && g.chancellor == g.hitler {
		g.endState = EndStateFascistChancellorHitler
		return "Hitler was elected Chancellor, fascists win!", nil
	}

	message += "Government formed! "
	g.termLimited = []string{g.president, g.chancellor}
	message += "The President must now propose policies to the Chancellor."
	g.presidentPolicies = []Policy{
		g.drawPolicy(),
		g.drawPolicy(),
		g.drawPolicy(),
	}
	g.roundStage = RoundStageLegislativeSession
	return message, nil
}

// checkFailingGovernment escalates after a failed vote, enacting the top
// policy once the country hits three consecutive failures.
func (g *Game) checkFailingGovernment() string {
	g.electionFailures++
	if g.electionFailures >= 3 {
		policy := g.drawPolicy()
		if ended := g.assignPolicy(policy, true); ended != "" {
			return ended
		}
		return fmt.Sprintf(
			"The country is in chaos! The parliament passes a reactionary %s policy! %s",
			policy, g.startElection(),
		)
	}

	message := "The parliament argues, but takes no action. "
	if g.electionFailures == 1 {
		message += "The Media ridicules selected ministers. "
	} else {
		message += "The people are grumbling. Parliament would be wise to reach an agreement in the next session! "
	}
	return message + g.startElection()
}

// FascistPolicyPowers returns the powers granted by the 1st through 5th
// fascist policy for this parliament's size.
func (g *Game) FascistPolicyPowers() ([5]Power, error) {
	if g.stage == StageGeneralElection {
		return [5]Power{}, apperrors.New(apperrors.CodeGameNotStarted,
			"Fascist policy effects cannot be determined until we know how large the Parliament is.")
	}
	return fascistPowerTrack(g.playerCount), nil
}

// assignPolicy enacts a policy, checks the terminal conditions, grants any
// presidential power, and reshuffles the deck when it runs low. It returns
// the win message when the policy ended the game, otherwise "".
func (g *Game) assignPolicy(policy Policy, skipPower bool) string {
	g.policies = append(g.policies, policy)

	fascistPolicies := g.policyCount(PolicyFascist)
	liberalPolicies := g.policyCount(PolicyLiberal)

	if fascistPolicies == 6 {
		g.endState = EndStateFascistPolicies
		return "Parliament has elected to create an entirely fascist state. I hope you are proud of yourselves."
	}
	if liberalPolicies == 5 {
		g.endState = EndStateLiberalPolicies
		return "Well done! The country has remained liberal despite the dastardly machinations of scoundrels!"
	}

	if policy == PolicyFascist && !skipPower && fascistPolicies > 1 {
		track := fascistPowerTrack(g.playerCount)
		g.presidentialPower = track[fascistPolicies-1]
	}

	g.electionFailures = 0

	if len(g.policyDeck) < 3 {
		g.policyDeck = append(g.policyDeck, g.discardDeck...)
		g.rng.Shuffle(len(g.policyDeck), func(i, j int) {
			g.policyDeck[i], g.policyDeck[j] = g.policyDeck[j], g.policyDeck[i]
		})
		g.discardDeck = nil
	}
	return ""
}

// DiscardPolicy lets the president discard one of their three drawn
// policies, passing the remaining two to the chancellor. Claiming to hold a
// policy type that was not drawn discards one of the held cards instead.
func (g *Game) DiscardPolicy(policy Policy) (string, error) {
	if err := g.ensureActive(); err != nil {
		return "", err
	}
	if len(g.presidentPolicies) == 0 {
		return "", ErrNotPresidentTurn
	}
	if policy != PolicyLiberal && policy != PolicyFascist {
		return "", apperrors.New(apperrors.CodeInvalidPolicyType,
			"There are only Liberal and Fascist policies.")
	}

	var message string
	if !containsPolicy(g.presidentPolicies, policy) {
		discarded := g.presidentPolicies[len(g.presidentPolicies)-1]
		g.presidentPolicies = g.presidentPolicies[:len(g.presidentPolicies)-1]
		g.discardDeck = append(g.discardDeck, discarded)
		message = fmt.Sprintf(
			"Nice try, but there are no %s policies. One of the available policies was discarded.",
			policy,
		)
	} else {
		g.presidentPolicies = removePolicy(g.presidentPolicies, policy)
		g.discardDeck = append(g.discardDeck, policy)
		message = fmt.Sprintf("%s discarded.", policy)
	}

	g.chancellorPolicies = []Policy{g.presidentPolicies[0], g.presidentPolicies[1]}
	g.presidentPolicies = nil
	return message, nil
}

// SelectPolicy lets the chancellor enact one of their two policies. Naming a
// policy that is not held enacts the first held policy instead.
func (g *Game) SelectPolicy(policy Policy) (string, error) {
	if err := g.ensureActive(); err != nil {
		return "", err
	}
	if len(g.chancellorPolicies) == 0 {
		return "", ErrNotChancellorTurn
	}

	if !containsPolicy(g.chancellorPolicies, policy) {
		// Nice try.
		policy = g.chancellorPolicies[0]
	}

	if ended := g.assignPolicy(policy, false); ended != "" {
		return ended, nil
	}

	g.chancellorPolicies = removePolicy(g.chancellorPolicies, policy)
	g.discardDeck = append(g.discardDeck, g.chancellorPolicies...)
	g.chancellorPolicies = nil

	message := fmt.Sprintf("A %s policy was passed! ", policy)
	if g.presidentialPower != PowerNone {
		g.roundStage = RoundStageExecutiveAction
		message += fmt.Sprintf(
			"New powers have been granted to the president, who must: %s",
			g.presidentialPower,
		)
	} else {
		message += "It is time to elect the next Government! "
		message += g.startElection()
	}
	return message, nil
}

// Veto records that the chancellor wishes to veto the pending policies.
func (g *Game) Veto() error {
	if err := g.ensureActive(); err != nil {
		return err
	}
	if g.policyCount(PolicyFascist) < 5 {
		return ErrVetoNotAllowed
	}

	g.vetoRequest = true
	return nil
}

// VetoConfirm lets the president agree to the chancellor's veto, discarding
// both pending policies and counting a failed government.
func (g *Game) VetoConfirm() (string, error) {
	if err := g.ensureActive(); err != nil {
		return "", err
	}
	if !g.vetoRequest {
		return "", ErrVetoNotRequested
	}

	g.vetoRequest = false
	g.discardDeck = append(g.discardDeck, g.chancellorPolicies...)
	g.chancellorPolicies = nil

	return "The veto is passed. " + g.checkFailingGovernment(), nil
}

// EnactPower enacts the pending presidential power against the target. The
// first return value is for the president's eyes only; the second is the
// public announcement.
func (g *Game) EnactPower(targetID string) (private, public string, err error) {
	if err := g.ensureActive(); err != nil {
		return "", "", err
	}
	if g.presidentialPower == PowerNone {
		return "", "", ErrNoPowerPending
	}
	if targetID != "" && !g.seated(targetID) {
		return "A specific player must be chosen.", "", nil
	}

	switch g.presidentialPower {
	case PowerInvestigateLoyalty:
		return g.investigate(targetID)
	case PowerCallSpecialElection:
		return g.callSpecialElection(targetID)
	case PowerPolicyPeek:
		return g.peek()
	case PowerExecution:
		return g.execute(targetID)
	default:
		return "", "", ErrNoPowerPending
	}
}

// investigate reveals the target's faction to the president.
func (g *Game) investigate(targetID string) (string, string, error) {
	if targetID == "" {
		return "Please choose someone to investigate.", "", nil
	}
	if contains(g.investigated, targetID) {
		return fmt.Sprintf("%s has already been investigated. Choose again.", g.name(targetID)), "", nil
	}

	g.investigated = append(g.investigated, targetID)
	private := fmt.Sprintf("%s is a Liberal.", g.name(targetID))
	if contains(g.fascists, targetID) {
		private = fmt.Sprintf("%s is a Fascist.", g.name(targetID))
	}
	public := fmt.Sprintf("The President has investigated %s. ", g.name(targetID)) + g.startElection()
	return private, public, nil
}

// callSpecialElection lets the president choose the next president.
func (g *Game) callSpecialElection(targetID string) (string, string, error) {
	if targetID == "" {
		return "A specific player must be chosen.", "", nil
	}
	if targetID == g.president {
		return "You cannot nominate yourself.", "", nil
	}

	g.specialElection = targetID
	public := fmt.Sprintf("The President has elected %s. ", g.name(targetID)) + g.startElection()
	return "", public, nil
}

// peek shows the president the next three policies in draw order.
func (g *Game) peek() (string, string, error) {
	var upcoming []string
	for i := len(g.policyDeck) - 1; i >= 0 && len(upcoming) < 3; i-- {
		upcoming = append(upcoming, g.policyDeck[i].String())
	}
	private := fmt.Sprintf("The next three policies are: %s", joinNames(upcoming))
	public := "The President has been advised on upcoming policies. " + g.startElection()
	return private, public, nil
}

// execute removes the target from play; executing Hitler wins the game for
// the liberals.
func (g *Game) execute(targetID string) (string, string, error) {
	if targetID == "" {
		return "A specific player must be chosen.", "", nil
	}

	if targetID == g.hitler {
		g.endState = EndStateLiberalHitlerKilled
		return "", fmt.Sprintf(
			"The President formally executes %s. Hitler has been executed, the Liberals win. (with blood on their hands).",
			g.name(targetID),
		), nil
	}

	g.removeSeat(targetID)
	public := fmt.Sprintf(
		"The President formally executes %[1]s. Seances are not allowed in this game, so %[1]s should not share any useful information until the end of the game. ",
		g.name(targetID),
	) + g.startElection()
	return "", public, nil
}

// drawPolicy takes the top card of the policy deck, folding the discard
// pile back in first when the deck is empty. A chaos enactment after a
// confirmed veto can reach an empty deck before assignPolicy's low-deck
// reshuffle has run.
func (g *Game) drawPolicy() Policy {
	if len(g.policyDeck) == 0 {
		g.policyDeck = append(g.policyDeck, g.discardDeck...)
		g.discardDeck = nil
		g.rng.Shuffle(len(g.policyDeck), func(i, j int) {
			g.policyDeck[i], g.policyDeck[j] = g.policyDeck[j], g.policyDeck[i]
		})
	}
	policy := g.policyDeck[len(g.policyDeck)-1]
	g.policyDeck = g.policyDeck[:len(g.policyDeck)-1]
	return policy
}

// policyCount counts enacted policies of one type.
func (g *Game) policyCount(policy Policy) int {
	count := 0
	for _, enacted := range g.policies {
		if enacted == policy {
			count++
		}
	}
	return count
}

// seated reports whether the player is in the seating order.
func (g *Game) seated(id string) bool {
	return contains(g.playerIDs, id)
}

// seatIndex returns the seating position of a player, or -1.
func (g *Game) seatIndex(id string) int {
	for i, playerID := range g.playerIDs {
		if playerID == id {
			return i
		}
	}
	return -1
}

// removeSeat removes the player with this identity from the seating order.
func (g *Game) removeSeat(id string) {
	for i, playerID := range g.playerIDs {
		if playerID == id {
			g.playerIDs = append(g.playerIDs[:i], g.playerIDs[i+1:]...)
			return
		}
	}
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func containsPolicy(values []Policy, target Policy) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func removePolicy(values []Policy, target Policy) []Policy {
	for i, value := range values {
		if value == target {
			return append(values[:i], values[i+1:]...)
		}
	}
	return values
}
