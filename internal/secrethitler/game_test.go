package secrethitler

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func newTestGame(t *testing.T, seed int64) *Game {
	t.Helper()
	game, err := NewGame(rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	return game
}

func launchedGame(t *testing.T, playerCount int, seed int64) *Game {
	t.Helper()
	game := newTestGame(t, seed)
	for i := 0; i < playerCount; i++ {
		id := fmt.Sprintf("player-%d", i)
		if err := game.AddPlayer(id, fmt.Sprintf("Player %d", i)); err != nil {
			t.Fatalf("add player %s: %v", id, err)
		}
	}
	if _, err := game.Launch(); err != nil {
		t.Fatalf("launch with %d players: %v", playerCount, err)
	}
	return game
}

// totalCards counts every policy card wherever it currently lives.
func totalCards(g *Game) int {
	return len(g.policyDeck) + len(g.discardDeck) + len(g.policies) +
		len(g.presidentPolicies) + len(g.chancellorPolicies)
}

func TestLaunchRequiresFivePlayers(t *testing.T) {
	game := newTestGame(t, 1)
	for i := 0; i < 4; i++ {
		if err := game.AddPlayer(fmt.Sprintf("player-%d", i), ""); err != nil {
			t.Fatalf("add player: %v", err)
		}
	}

	if _, err := game.Launch(); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Fatalf("expected ErrNotEnoughPlayers, got %v", err)
	}

	if err := game.AddPlayer("player-4", ""); err != nil {
		t.Fatalf("add fifth player: %v", err)
	}
	message, err := game.Launch()
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if !strings.Contains(message, "must now select their chancellor") {
		t.Fatalf("unexpected launch message: %q", message)
	}
	if game.Stage() != StageParliamentInSession {
		t.Fatalf("expected parliament in session, got %v", game.Stage())
	}
}

func TestAddPlayerRules(t *testing.T) {
	game := newTestGame(t, 2)
	for i := 0; i < MaxPlayers; i++ {
		if err := game.AddPlayer(fmt.Sprintf("player-%d", i), ""); err != nil {
			t.Fatalf("add player %d: %v", i, err)
		}
	}

	// Re-joining is a no-op even at the cap.
	if err := game.AddPlayer("player-0", ""); err != nil {
		t.Fatalf("duplicate join should be a no-op, got %v", err)
	}
	if err := game.AddPlayer("player-10", ""); !errors.Is(err, ErrPlayerLimitReached) {
		t.Fatalf("expected ErrPlayerLimitReached, got %v", err)
	}

	if _, err := game.Launch(); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if err := game.AddPlayer("latecomer", ""); !errors.Is(err, ErrLobbyClosed) {
		t.Fatalf("expected ErrLobbyClosed, got %v", err)
	}
	if err := game.RemovePlayer("player-0"); !errors.Is(err, ErrLobbyClosed) {
		t.Fatalf("expected ErrLobbyClosed on remove, got %v", err)
	}
}

func TestRoleAssignment(t *testing.T) {
	tests := []struct {
		players        int
		fascists       int
		hitlerInformed bool
	}{
		{players: 5, fascists: 2, hitlerInformed: true},
		{players: 6, fascists: 2, hitlerInformed: true},
		{players: 7, fascists: 3, hitlerInformed: false},
		{players: 8, fascists: 3, hitlerInformed: false},
		{players: 9, fascists: 4, hitlerInformed: false},
		{players: 10, fascists: 4, hitlerInformed: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_players", tt.players), func(t *testing.T) {
			game := launchedGame(t, tt.players, int64(tt.players))

			if len(game.fascists) != tt.fascists {
				t.Fatalf("expected %d fascists, got %d", tt.fascists, len(game.fascists))
			}
			if len(game.liberals) != tt.players-tt.fascists {
				t.Fatalf("expected %d liberals, got %d", tt.players-tt.fascists, len(game.liberals))
			}
			if !contains(game.fascists, game.hitler) {
				t.Fatalf("hitler %s is not among the fascists", game.hitler)
			}
			if contains(game.liberals, game.hitler) {
				t.Fatalf("hitler %s also dealt as a liberal", game.hitler)
			}
			if game.hitlerKnowsFascists != tt.hitlerInformed {
				t.Fatalf("hitlerKnowsFascists = %v, want %v", game.hitlerKnowsFascists, tt.hitlerInformed)
			}

			knowledge, err := game.StartingKnowledge(game.hitler)
			if err != nil {
				t.Fatalf("starting knowledge for hitler: %v", err)
			}
			if !strings.Contains(knowledge, "you are hitler!") {
				t.Fatalf("unexpected hitler knowledge: %q", knowledge)
			}
			if tt.hitlerInformed != strings.Contains(knowledge, "fellow ne'er-do-well") {
				t.Fatalf("hitler knowledge does not match informed=%v: %q", tt.hitlerInformed, knowledge)
			}
		})
	}
}

func TestStartingKnowledgeBeforeLaunch(t *testing.T) {
	game := newTestGame(t, 3)
	if err := game.AddPlayer("player-0", ""); err != nil {
		t.Fatalf("add player: %v", err)
	}
	if _, err := game.StartingKnowledge("player-0"); !errors.Is(err, ErrGameNotStarted) {
		t.Fatalf("expected ErrGameNotStarted, got %v", err)
	}
}

func TestDeckComposition(t *testing.T) {
	deck := newPolicyDeck()
	if len(deck) != deckSize {
		t.Fatalf("expected %d cards, got %d", deckSize, len(deck))
	}
	liberals, fascists := 0, 0
	for _, policy := range deck {
		switch policy {
		case PolicyLiberal:
			liberals++
		case PolicyFascist:
			fascists++
		}
	}
	if liberals != liberalPolicyCount || fascists != fascistPolicyCount {
		t.Fatalf("deck split %d/%d, want %d/%d", liberals, fascists, liberalPolicyCount, fascistPolicyCount)
	}
}

func TestVoteTieFailsGovernment(t *testing.T) {
	game := launchedGame(t, 6, 11)
	nominateAnyChancellor(t, game)

	players := game.Players()
	for i, id := range players[:len(players)-1] {
		message, err := game.CastVote(id, i%2 == 0)
		if err != nil {
			t.Fatalf("cast vote: %v", err)
		}
		if !strings.Contains(message, "votes cast!") {
			t.Fatalf("expected running tally, got %q", message)
		}
	}

	// 3 Ja vs 3 Nein after the final vote; the tie must fail.
	message, err := game.CastVote(players[len(players)-1], false)
	if err != nil {
		t.Fatalf("cast final vote: %v", err)
	}
	if !strings.Contains(message, "takes no action") {
		t.Fatalf("expected failed government, got %q", message)
	}
	if game.electionFailures != 1 {
		t.Fatalf("expected 1 election failure, got %d", game.electionFailures)
	}
	if len(game.presidentPolicies) != 0 {
		t.Fatalf("failed government must not draw policies")
	}
}

func TestVoteFromOutsider(t *testing.T) {
	game := launchedGame(t, 5, 12)
	nominateAnyChancellor(t, game)
	if _, err := game.CastVote("stranger", true); !errors.Is(err, ErrNotInGame) {
		t.Fatalf("expected ErrNotInGame, got %v", err)
	}
}

func TestThreeFailedElectionsEnactTopPolicy(t *testing.T) {
	game := launchedGame(t, 5, 13)

	var lastMessage string
	for round := 0; round < 3; round++ {
		nominateAnyChancellor(t, game)
		for _, id := range game.Players() {
			message, err := game.CastVote(id, false)
			if err != nil {
				t.Fatalf("cast vote round %d: %v", round, err)
			}
			lastMessage = message
		}
	}

	if !strings.Contains(lastMessage, "The country is in chaos!") {
		t.Fatalf("expected chaos policy, got %q", lastMessage)
	}
	if len(game.policies) != 1 {
		t.Fatalf("expected 1 enacted policy, got %d", len(game.policies))
	}
	if game.electionFailures != 0 {
		t.Fatalf("chaos must reset the failure counter, got %d", game.electionFailures)
	}
	if totalCards(game) != deckSize {
		t.Fatalf("card conservation broken: %d cards accounted for", totalCards(game))
	}
}

func TestLegislativeSessionFlow(t *testing.T) {
	game := launchedGame(t, 5, 14)
	nominateAnyChancellor(t, game)

	for _, id := range game.Players() {
		if _, err := game.CastVote(id, true); err != nil {
			t.Fatalf("cast vote: %v", err)
		}
	}

	if len(game.presidentPolicies) != 3 {
		t.Fatalf("president should hold 3 policies, got %d", len(game.presidentPolicies))
	}
	if game.RoundStage() != RoundStageLegislativeSession {
		t.Fatalf("expected legislative session, got %v", game.RoundStage())
	}
	if totalCards(game) != deckSize {
		t.Fatalf("card conservation broken after draw: %d", totalCards(game))
	}

	held := game.presidentPolicies[0]
	message, err := game.DiscardPolicy(held)
	if err != nil {
		t.Fatalf("discard policy: %v", err)
	}
	if !strings.Contains(message, "discarded") {
		t.Fatalf("unexpected discard message: %q", message)
	}
	if len(game.chancellorPolicies) != 2 {
		t.Fatalf("chancellor should hold 2 policies, got %d", len(game.chancellorPolicies))
	}

	enact := game.chancellorPolicies[0]
	message, err = game.SelectPolicy(enact)
	if err != nil {
		t.Fatalf("select policy: %v", err)
	}
	if !strings.Contains(message, fmt.Sprintf("A %s policy was passed!", enact)) {
		t.Fatalf("unexpected select message: %q", message)
	}
	if len(game.policies) != 1 || game.policies[0] != enact {
		t.Fatalf("expected enacted %v, got %v", enact, game.policies)
	}
	if totalCards(game) != deckSize {
		t.Fatalf("card conservation broken after enactment: %d", totalCards(game))
	}
	if game.electionFailures != 0 {
		t.Fatalf("passing a policy must reset the failure counter")
	}
}

func TestDiscardPolicyOutOfTurn(t *testing.T) {
	game := launchedGame(t, 5, 15)
	if _, err := game.DiscardPolicy(PolicyLiberal); !errors.Is(err, ErrNotPresidentTurn) {
		t.Fatalf("expected ErrNotPresidentTurn, got %v", err)
	}
	if _, err := game.SelectPolicy(PolicyLiberal); !errors.Is(err, ErrNotChancellorTurn) {
		t.Fatalf("expected ErrNotChancellorTurn, got %v", err)
	}
}

func TestDiscardDishonestClaim(t *testing.T) {
	game := launchedGame(t, 5, 16)
	game.presidentPolicies = []Policy{PolicyFascist, PolicyFascist, PolicyFascist}

	message, err := game.DiscardPolicy(PolicyLiberal)
	if err != nil {
		t.Fatalf("discard: %v", err)
	}
	if !strings.Contains(message, "Nice try") {
		t.Fatalf("expected dishonest claim message, got %q", message)
	}
	if len(game.chancellorPolicies) != 2 {
		t.Fatalf("chancellor should still receive 2 policies, got %d", len(game.chancellorPolicies))
	}
}

func TestFascistPoliciesWin(t *testing.T) {
	game := launchedGame(t, 5, 17)
	game.policies = []Policy{
		PolicyFascist, PolicyFascist, PolicyFascist,
		PolicyFascist, PolicyFascist,
	}
	game.chancellorPolicies = []Policy{PolicyFascist, PolicyLiberal}

	message, err := game.SelectPolicy(PolicyFascist)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !strings.Contains(message, "entirely fascist state") {
		t.Fatalf("unexpected win message: %q", message)
	}
	if game.EndState() != EndStateFascistPolicies {
		t.Fatalf("expected fascist policy win, got %q", game.EndState())
	}

	// Every further mutation must be rejected.
	if _, err := game.NominateChancellor(game.Players()[0]); !errors.Is(err, ErrGameEnded) {
		t.Fatalf("expected ErrGameEnded, got %v", err)
	}
}

func TestLiberalPoliciesWin(t *testing.T) {
	game := launchedGame(t, 5, 18)
	game.policies = []Policy{
		PolicyLiberal, PolicyLiberal, PolicyLiberal, PolicyLiberal,
	}
	game.chancellorPolicies = []Policy{PolicyLiberal, PolicyFascist}

	message, err := game.SelectPolicy(PolicyLiberal)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !strings.Contains(message, "remained liberal") {
		t.Fatalf("unexpected win message: %q", message)
	}
	if game.EndState() != EndStateLiberalPolicies {
		t.Fatalf("expected liberal policy win, got %q", game.EndState())
	}
}

func TestHitlerChancellorWin(t *testing.T) {
	game := launchedGame(t, 5, 19)
	game.policies = []Policy{PolicyFascist, PolicyFascist, PolicyFascist}
	if game.president == game.hitler {
		game.president = game.liberals[0]
	}
	nominateChancellor(t, game, game.hitler)

	var message string
	for _, id := range game.Players() {
		var err error
		message, err = game.CastVote(id, true)
		if err != nil {
			t.Fatalf("cast vote: %v", err)
		}
	}
	if !strings.Contains(message, "Hitler was elected Chancellor") {
		t.Fatalf("unexpected win message: %q", message)
	}
	if game.EndState() != EndStateFascistChancellorHitler {
		t.Fatalf("expected hitler chancellor win, got %q", game.EndState())
	}
}

func TestExecutionRemovesPlayerByIdentity(t *testing.T) {
	game := launchedGame(t, 7, 20)
	game.presidentialPower = PowerExecution

	var target string
	for _, id := range game.Players() {
		if id != game.hitler {
			target = id
			break
		}
	}

	launchCount := game.playerCount
	_, public, err := game.EnactPower(target)
	if err != nil {
		t.Fatalf("enact execution: %v", err)
	}
	if !strings.Contains(public, "formally executes") {
		t.Fatalf("unexpected execution message: %q", public)
	}
	if game.seated(target) {
		t.Fatalf("executed player %s is still seated", target)
	}
	if game.playerCount != launchCount {
		t.Fatalf("power track size must stay at the launch count")
	}
	if game.EndState() != EndStateNone {
		t.Fatalf("executing a non-hitler player must not end the game")
	}
}

func TestExecutingHitlerWinsForLiberals(t *testing.T) {
	game := launchedGame(t, 7, 21)
	game.presidentialPower = PowerExecution

	_, public, err := game.EnactPower(game.hitler)
	if err != nil {
		t.Fatalf("enact execution: %v", err)
	}
	if !strings.Contains(public, "Hitler has been executed") {
		t.Fatalf("unexpected execution message: %q", public)
	}
	if game.EndState() != EndStateLiberalHitlerKilled {
		t.Fatalf("expected liberal hitler kill, got %q", game.EndState())
	}
}

func TestInvestigateLoyalty(t *testing.T) {
	game := launchedGame(t, 9, 22)
	game.presidentialPower = PowerInvestigateLoyalty

	fascist := game.fascists[0]
	private, public, err := game.EnactPower(fascist)
	if err != nil {
		t.Fatalf("investigate: %v", err)
	}
	if !strings.Contains(private, "is a Fascist.") {
		t.Fatalf("unexpected private result: %q", private)
	}
	if strings.Contains(public, "Fascist") {
		t.Fatalf("public announcement leaks the faction: %q", public)
	}

	game.presidentialPower = PowerInvestigateLoyalty
	retry, _, err := game.EnactPower(fascist)
	if err != nil {
		t.Fatalf("repeat investigate: %v", err)
	}
	if !strings.Contains(retry, "already been investigated") {
		t.Fatalf("expected repeat guard, got %q", retry)
	}
}

func TestPolicyPeekShowsDrawOrder(t *testing.T) {
	game := launchedGame(t, 5, 23)
	game.presidentialPower = PowerPolicyPeek

	top := len(game.policyDeck)
	expected := []Policy{
		game.policyDeck[top-1],
		game.policyDeck[top-2],
		game.policyDeck[top-3],
	}

	private, _, err := game.EnactPower("")
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	want := fmt.Sprintf("The next three policies are: %s, %s, %s", expected[0], expected[1], expected[2])
	if private != want {
		t.Fatalf("peek = %q, want %q", private, want)
	}

	// Peeked cards must be the ones the next president draws.
	for i, policy := range expected {
		if drawn := game.drawPolicy(); drawn != policy {
			t.Fatalf("draw %d = %v, want %v", i, drawn, policy)
		}
	}
}

func TestSpecialElection(t *testing.T) {
	game := launchedGame(t, 8, 24)
	game.presidentialPower = PowerCallSpecialElection

	private, _, err := game.EnactPower(game.president)
	if err != nil {
		t.Fatalf("self nomination: %v", err)
	}
	if !strings.Contains(private, "cannot nominate yourself") {
		t.Fatalf("expected self nomination guard, got %q", private)
	}

	var target string
	for _, id := range game.Players() {
		if id != game.president {
			target = id
			break
		}
	}
	expectedReturn := game.nextPresident

	_, public, err := game.EnactPower(target)
	if err != nil {
		t.Fatalf("special election: %v", err)
	}
	if !strings.Contains(public, "The President has elected") {
		t.Fatalf("unexpected announcement: %q", public)
	}
	if game.president != target {
		t.Fatalf("president = %s, want %s", game.president, target)
	}
	// The regular rotation resumes after the special term.
	if game.nextPresident != expectedReturn {
		t.Fatalf("nextPresident = %s, want %s", game.nextPresident, expectedReturn)
	}
}

func TestVetoGate(t *testing.T) {
	game := launchedGame(t, 5, 25)
	if err := game.Veto(); !errors.Is(err, ErrVetoNotAllowed) {
		t.Fatalf("expected ErrVetoNotAllowed, got %v", err)
	}
	if _, err := game.VetoConfirm(); !errors.Is(err, ErrVetoNotRequested) {
		t.Fatalf("expected ErrVetoNotRequested, got %v", err)
	}

	game.policies = []Policy{
		PolicyFascist, PolicyFascist, PolicyFascist,
		PolicyFascist, PolicyFascist,
	}
	game.chancellorPolicies = []Policy{PolicyLiberal, PolicyLiberal}

	if err := game.Veto(); err != nil {
		t.Fatalf("veto: %v", err)
	}
	message, err := game.VetoConfirm()
	if err != nil {
		t.Fatalf("veto confirm: %v", err)
	}
	if !strings.Contains(message, "The veto is passed.") {
		t.Fatalf("unexpected veto message: %q", message)
	}
	if len(game.chancellorPolicies) != 0 {
		t.Fatalf("vetoed policies must be discarded")
	}
	if game.electionFailures != 1 {
		t.Fatalf("a veto counts as a failed government, got %d failures", game.electionFailures)
	}
}

func TestVetoChaosRebuildsEmptyDeck(t *testing.T) {
	game := launchedGame(t, 5, 26)

	// Five fascist policies, a drained deck, and two prior failures: the
	// confirmed veto is the third failure and the chaos enactment must draw
	// from the rebuilt deck.
	game.policies = []Policy{
		PolicyFascist, PolicyFascist, PolicyFascist,
		PolicyFascist, PolicyFascist,
	}
	game.chancellorPolicies = []Policy{PolicyLiberal, PolicyLiberal}
	game.policyDeck = nil
	game.discardDeck = []Policy{
		PolicyLiberal, PolicyLiberal, PolicyLiberal, PolicyLiberal,
		PolicyFascist, PolicyFascist, PolicyFascist,
		PolicyFascist, PolicyFascist, PolicyFascist,
	}
	game.electionFailures = 2

	if err := game.Veto(); err != nil {
		t.Fatalf("veto: %v", err)
	}
	message, err := game.VetoConfirm()
	if err != nil {
		t.Fatalf("veto confirm: %v", err)
	}
	if !strings.Contains(message, "The veto is passed.") {
		t.Fatalf("unexpected veto message: %q", message)
	}
	if len(game.policies) != 6 {
		t.Fatalf("expected a chaos policy to be enacted, got %d policies", len(game.policies))
	}
	if totalCards(game) != deckSize {
		t.Fatalf("card conservation broken: %d cards accounted for", totalCards(game))
	}

	switch game.EndState() {
	case EndStateNone:
		if game.electionFailures != 0 {
			t.Fatalf("chaos must reset the failure counter, got %d", game.electionFailures)
		}
		if game.RoundStage() != RoundStageElection {
			t.Fatalf("expected a fresh election, got %v", game.RoundStage())
		}
	case EndStateFascistPolicies:
		// The chaos card was the sixth fascist policy.
	default:
		t.Fatalf("unexpected end state %q", game.EndState())
	}
}

func TestVetoChaosCanEndGame(t *testing.T) {
	game := launchedGame(t, 5, 27)

	// The sixth fascist policy sits alone on top of the deck, so the chaos
	// enactment after the veto ends the game.
	game.policies = []Policy{
		PolicyFascist, PolicyFascist, PolicyFascist,
		PolicyFascist, PolicyFascist,
		PolicyLiberal, PolicyLiberal, PolicyLiberal, PolicyLiberal,
	}
	game.chancellorPolicies = []Policy{PolicyLiberal, PolicyLiberal}
	game.policyDeck = []Policy{PolicyFascist}
	game.discardDeck = []Policy{
		PolicyFascist, PolicyFascist, PolicyFascist,
		PolicyFascist, PolicyFascist,
	}
	game.electionFailures = 2

	if err := game.Veto(); err != nil {
		t.Fatalf("veto: %v", err)
	}
	message, err := game.VetoConfirm()
	if err != nil {
		t.Fatalf("veto confirm: %v", err)
	}
	if !strings.Contains(message, "The veto is passed.") {
		t.Fatalf("unexpected veto message: %q", message)
	}
	if !strings.Contains(message, "entirely fascist state") {
		t.Fatalf("expected the fascist win message, got %q", message)
	}
	if game.EndState() != EndStateFascistPolicies {
		t.Fatalf("end state = %q, want %q", game.EndState(), EndStateFascistPolicies)
	}
}

func TestExecutingQueuedPresidentRepairsRotation(t *testing.T) {
	game := launchedGame(t, 6, 28)
	game.presidentialPower = PowerExecution

	target := game.nextPresident
	if target == game.hitler {
		// Keep the execution from ending the game.
		game.hitler = game.president
	}
	previous := game.president

	_, public, err := game.EnactPower(target)
	if err != nil {
		t.Fatalf("enact execution: %v", err)
	}
	if !strings.Contains(public, "formally executes") {
		t.Fatalf("unexpected execution message: %q", public)
	}
	if game.seated(target) {
		t.Fatalf("executed player %s is still seated", target)
	}
	if game.president == target {
		t.Fatalf("executed player %s presides", target)
	}
	if !game.seated(game.president) || !game.seated(game.nextPresident) {
		t.Fatalf("president %s / nextPresident %s must hold surviving seats",
			game.president, game.nextPresident)
	}
	// Rotation continues from the previous president's seat.
	if want := game.playerIDs[(game.seatIndex(previous)+1)%len(game.playerIDs)]; game.president != want {
		t.Fatalf("president = %s, want %s", game.president, want)
	}
}

func TestVoteAfterElectionResolves(t *testing.T) {
	game := launchedGame(t, 5, 29)
	nominateAnyChancellor(t, game)
	for _, id := range game.Players() {
		if _, err := game.CastVote(id, true); err != nil {
			t.Fatalf("cast vote: %v", err)
		}
	}
	if game.RoundStage() != RoundStageLegislativeSession {
		t.Fatalf("expected legislative session, got %v", game.RoundStage())
	}
	hand := append([]Policy(nil), game.presidentPolicies...)

	message, err := game.CastVote(game.Players()[0], false)
	if err != nil {
		t.Fatalf("stray vote: %v", err)
	}
	if message != "There is no election in progress." {
		t.Fatalf("unexpected stray vote reply: %q", message)
	}
	if len(game.presidentPolicies) != len(hand) {
		t.Fatalf("president's hand changed: %v, want %v", game.presidentPolicies, hand)
	}
	for i, policy := range hand {
		if game.presidentPolicies[i] != policy {
			t.Fatalf("president's hand changed: %v, want %v", game.presidentPolicies, hand)
		}
	}
	if totalCards(game) != deckSize {
		t.Fatalf("card conservation broken: %d cards accounted for", totalCards(game))
	}
}

func TestFascistPowerTrack(t *testing.T) {
	tests := []struct {
		players int
		want    [5]Power
	}{
		{5, [5]Power{PowerNone, PowerNone, PowerPolicyPeek, PowerExecution, PowerExecution}},
		{7, [5]Power{PowerNone, PowerInvestigateLoyalty, PowerCallSpecialElection, PowerExecution, PowerExecution}},
		{9, [5]Power{PowerInvestigateLoyalty, PowerInvestigateLoyalty, PowerCallSpecialElection, PowerExecution, PowerExecution}},
	}

	for _, tt := range tests {
		game := launchedGame(t, tt.players, int64(30+tt.players))
		track, err := game.FascistPolicyPowers()
		if err != nil {
			t.Fatalf("powers for %d players: %v", tt.players, err)
		}
		if track != tt.want {
			t.Fatalf("track for %d players = %v, want %v", tt.players, track, tt.want)
		}
	}

	unstarted := newTestGame(t, 31)
	if _, err := unstarted.FascistPolicyPowers(); err == nil {
		t.Fatalf("expected error before launch")
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input string
		want  Policy
		ok    bool
	}{
		{"liberal", PolicyLiberal, true},
		{"Fascist", PolicyFascist, true},
		{" LIBERAL ", PolicyLiberal, true},
		{"communist", PolicyUnspecified, false},
		{"", PolicyUnspecified, false},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.input)
		if tt.ok && err != nil {
			t.Fatalf("ParsePolicy(%q): %v", tt.input, err)
		}
		if !tt.ok && err == nil {
			t.Fatalf("ParsePolicy(%q): expected error", tt.input)
		}
		if got != tt.want {
			t.Fatalf("ParsePolicy(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// nominateAnyChancellor nominates the first eligible minister.
func nominateAnyChancellor(t *testing.T, game *Game) {
	t.Helper()
	for _, id := range game.Players() {
		if id == game.president || contains(game.termLimited, id) {
			continue
		}
		nominateChancellor(t, game, id)
		return
	}
	t.Fatalf("no eligible chancellor found")
}

func nominateChancellor(t *testing.T, game *Game, id string) {
	t.Helper()
	message, err := game.NominateChancellor(id)
	if err != nil {
		t.Fatalf("nominate %s: %v", id, err)
	}
	if !strings.Contains(message, "A government has been proposed") {
		t.Fatalf("nomination of %s rejected: %q", id, message)
	}
}
