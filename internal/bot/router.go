// Package bot routes chat commands to the game engines. The router resolves
// the acting player and room, invokes exactly one engine operation per
// command, and renders the result or the typed error's message. It contains
// no game logic.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/geokala/discord-gamebot/internal/platform/errors"
	"github.com/geokala/discord-gamebot/internal/secrethitler"
	"github.com/geokala/discord-gamebot/internal/vampire"
)

// Message is one incoming chat command.
type Message struct {
	RoomID     string
	PlayerID   string
	PlayerName string
	Content    string
}

// Reply is the rendered outcome of a command. Private goes to the author
// only; Public goes to the room.
type Reply struct {
	Private string
	Public  string
}

// Router dispatches commands to the Secret Hitler tracker and the Vampire
// session.
type Router struct {
	tracker *secrethitler.Tracker
	session *vampire.Session
	tracer  trace.Tracer
}

// NewRouter creates a router over the two engines.
func NewRouter(tracker *secrethitler.Tracker, session *vampire.Session) *Router {
	return &Router{
		tracker: tracker,
		session: session,
		tracer:  otel.Tracer("gamebot/bot"),
	}
}

// Dispatch handles one command and returns the rendered reply.
func (r *Router) Dispatch(ctx context.Context, msg Message) Reply {
	content := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Content), "!"))
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return Reply{Private: "Say something. Try !help."}
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	ctx, span := r.tracer.Start(ctx, "bot.dispatch", trace.WithAttributes(
		attribute.String("bot.command", verb),
		attribute.String("bot.room_id", msg.RoomID),
		attribute.String("bot.player_id", msg.PlayerID),
	))
	defer span.End()

	reply, err := r.route(ctx, msg, verb, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return Reply{Private: renderError(err)}
	}
	span.SetStatus(otelcodes.Ok, "")
	return reply
}

// renderError relays a typed engine error to the player verbatim; anything
// else is logged and hidden behind a generic message.
func renderError(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	log.Printf("command error=%v", err)
	return "Something went wrong. Try again, or complain to the storyteller."
}

func (r *Router) route(ctx context.Context, msg Message, verb string, args []string) (Reply, error) {
	switch verb {
	case "help":
		return Reply{Private: helpText}, nil
	case "sh":
		return r.routeSecretHitler(ctx, msg, args)

	case "join":
		return private(r.session.AddPlayer(msg.PlayerID, msg.PlayerName))
	case "award":
		if len(args) < 2 {
			return Reply{Private: "Expected an amount followed by a reason."}, nil
		}
		return public(r.session.AwardXP(args[0], strings.Join(args[1:], " ")))
	case "begin":
		return Reply{Public: r.session.FinishCharacterCreation()}, nil
	case "undo":
		return private(r.session.Undo(msg.PlayerID))
	case "reset":
		return private(r.session.Reset(msg.PlayerID))
	case "sheet":
		return private(r.session.Sheet(msg.PlayerID))
	case "get":
		return private(r.session.CharacterJSON(msg.PlayerID))
	case "costs":
		return private(r.session.CostListing(msg.PlayerID))
	case "focus":
		if len(args) < 2 {
			return Reply{Private: "Expected an attribute followed by a focus."}, nil
		}
		return private(r.session.AddFocus(msg.PlayerID, args[0], strings.Join(args[1:], " ")))
	case "unfocus":
		if len(args) < 2 {
			return Reply{Private: "Expected an attribute followed by a focus."}, nil
		}
		return private(r.session.RemoveFocus(msg.PlayerID, args[0], strings.Join(args[1:], " ")))

	case "notes":
		return r.routeNotes(msg, args)
	case "set":
		return r.routeSet(msg, args)
	case "buy":
		return r.routeBuy(msg, args)
	case "inflict":
		return r.routeInflict(msg, args)
	case "heal":
		return r.routeHeal(msg, args)
	case "remove":
		return r.routeRemove(msg, args)
	case "spend":
		return r.routeSpend(msg, args)
	case "gain":
		return r.routeGain(msg, args)

	default:
		return Reply{Private: fmt.Sprintf("Unknown command %s. Try !help.", verb)}, nil
	}
}

func (r *Router) routeSecretHitler(ctx context.Context, msg Message, args []string) (Reply, error) {
	if len(args) == 0 {
		return Reply{Private: "Try !sh with one of these: new, cancel, join, leave, " +
			"launch, role, powers, nominate, vote, discard, select, veto, acceptveto, " +
			"power, stats"}, nil
	}
	sub := strings.ToLower(args[0])
	args = args[1:]

	switch sub {
	case "new":
		if _, err := r.tracker.StartGame(ctx, msg.RoomID, msg.PlayerID, msg.PlayerName); err != nil {
			return Reply{}, err
		}
		return Reply{Public: fmt.Sprintf(
			"%s is starting a game of Secret Hitler! Join now.", msg.PlayerName)}, nil
	case "cancel":
		if err := r.tracker.CancelGame(ctx, msg.RoomID); err != nil {
			return Reply{}, err
		}
		return Reply{Public: "The game has been cancelled."}, nil
	case "stats":
		return Reply{Public: renderStats(r.tracker.StatsSnapshot())}, nil
	}

	game, err := r.tracker.Game(msg.RoomID)
	if err != nil {
		return Reply{}, err
	}

	switch sub {
	case "join":
		if err := game.AddPlayer(msg.PlayerID, msg.PlayerName); err != nil {
			return Reply{}, err
		}
		return Reply{Public: fmt.Sprintf("%s has joined the game.", msg.PlayerName)}, nil
	case "leave":
		if err := game.RemovePlayer(msg.PlayerID); err != nil {
			return Reply{}, err
		}
		return Reply{Public: fmt.Sprintf("%s has left the game.", msg.PlayerName)}, nil
	case "launch":
		return public(game.Launch())
	case "role":
		return private(game.StartingKnowledge(msg.PlayerID))
	case "powers":
		track, err := game.FascistPolicyPowers()
		if err != nil {
			return Reply{}, err
		}
		return Reply{Private: renderPowerTrack(track)}, nil
	case "nominate":
		if len(args) == 0 {
			return Reply{Private: "Expected the player to nominate."}, nil
		}
		return public(game.NominateChancellor(args[0]))
	case "vote":
		if len(args) == 0 {
			return Reply{Private: "Vote ja or nein."}, nil
		}
		var vote bool
		switch strings.ToLower(args[0]) {
		case "ja":
			vote = true
		case "nein":
			vote = false
		default:
			return Reply{Private: "Vote ja or nein."}, nil
		}
		reply, err := public(game.CastVote(msg.PlayerID, vote))
		if err != nil {
			return Reply{}, err
		}
		r.recordCompletion(ctx, msg.RoomID)
		return reply, nil
	case "discard":
		if len(args) == 0 {
			return Reply{Private: "Expected a policy type to discard."}, nil
		}
		policy, err := secrethitler.ParsePolicy(args[0])
		if err != nil {
			return Reply{}, err
		}
		return public(game.DiscardPolicy(policy))
	case "select":
		if len(args) == 0 {
			return Reply{Private: "Expected a policy type to enact."}, nil
		}
		policy, err := secrethitler.ParsePolicy(args[0])
		if err != nil {
			return Reply{}, err
		}
		reply, err := public(game.SelectPolicy(policy))
		if err != nil {
			return Reply{}, err
		}
		r.recordCompletion(ctx, msg.RoomID)
		return reply, nil
	case "veto":
		if err := game.Veto(); err != nil {
			return Reply{}, err
		}
		return Reply{Public: "The Chancellor moves to veto the policies. The President must accept for the veto to pass."}, nil
	case "acceptveto":
		reply, err := public(game.VetoConfirm())
		if err != nil {
			return Reply{}, err
		}
		// A chaos enactment after the veto can be the game-ending policy.
		r.recordCompletion(ctx, msg.RoomID)
		return reply, nil
	case "power":
		target := ""
		if len(args) > 0 {
			target = args[0]
		}
		priv, pub, err := game.EnactPower(target)
		if err != nil {
			return Reply{}, err
		}
		r.recordCompletion(ctx, msg.RoomID)
		return Reply{Private: priv, Public: pub}, nil
	default:
		return Reply{Private: fmt.Sprintf("Unknown sh command %s.", sub)}, nil
	}
}

// recordCompletion removes a finished game and records its outcome. The win
// announcement already came from the engine, so failures here are only
// logged.
func (r *Router) recordCompletion(ctx context.Context, roomID string) {
	endState, err := r.tracker.UpdateGameOnCompletion(ctx, roomID)
	if err != nil {
		log.Printf("record game completion room=%s error=%v", roomID, err)
		return
	}
	if endState != secrethitler.EndStateNone {
		log.Printf("game completed room=%s result=%q", roomID, endState)
	}
}

func (r *Router) routeNotes(msg Message, args []string) (Reply, error) {
	if len(args) == 0 {
		return Reply{Private: "Try !notes with one of these: add, list, delete"}, nil
	}
	switch strings.ToLower(args[0]) {
	case "add":
		return private(r.session.AddNote(msg.PlayerID, strings.Join(args[1:], " ")))
	case "list":
		return private(r.session.ListNotes(msg.PlayerID))
	case "delete":
		if len(args) < 2 {
			return Reply{Private: "Expected the note number to delete."}, nil
		}
		return private(r.session.RemoveNote(msg.PlayerID, args[1]))
	default:
		return Reply{Private: "Try !notes with one of these: add, list, delete"}, nil
	}
}

func (r *Router) routeSet(msg Message, args []string) (Reply, error) {
	usage := "Try !set with one of these: attribute, skill, background, discipline, " +
		"clan, name, archetype, blood_rate, healthy_count, unhealthy_counts, max_willpower"
	if len(args) == 0 {
		return Reply{Private: usage}, nil
	}
	sub := strings.ToLower(args[0])
	args = args[1:]

	// Multi-word names put the value last.
	nameAndValue := func() (string, string, bool) {
		if len(args) < 2 {
			return "", "", false
		}
		return strings.Join(args[:len(args)-1], " "), args[len(args)-1], true
	}

	switch sub {
	case "attribute":
		if len(args) < 2 {
			return Reply{Private: "Expected an attribute name followed by an integer for value."}, nil
		}
		return private(r.session.SetAttribute(msg.PlayerID, args[0], args[1]))
	case "skill":
		name, value, ok := nameAndValue()
		if !ok {
			return Reply{Private: "Expected a skill name followed by an integer for value."}, nil
		}
		return private(r.session.SetSkill(msg.PlayerID, name, value))
	case "background":
		name, value, ok := nameAndValue()
		if !ok {
			return Reply{Private: "Expected a background name followed by an integer for value."}, nil
		}
		return private(r.session.SetBackground(msg.PlayerID, name, value))
	case "discipline":
		name, value, ok := nameAndValue()
		if !ok {
			return Reply{Private: "Expected a discipline name followed by an integer for value."}, nil
		}
		return private(r.session.SetDiscipline(msg.PlayerID, name, value))
	case "clan":
		return private(r.session.SetClan(msg.PlayerID, strings.Join(args, " ")))
	case "name":
		return private(r.session.SetName(msg.PlayerID, strings.Join(args, " ")))
	case "archetype":
		return private(r.session.SetArchetype(msg.PlayerID, strings.Join(args, " ")))
	case "blood_rate":
		if len(args) == 0 {
			return Reply{Private: "Expected a blood rate."}, nil
		}
		return private(r.session.SetBloodRate(msg.PlayerID, args[0]))
	case "healthy_count":
		if len(args) == 0 {
			return Reply{Private: "Expected a number of healthy levels."}, nil
		}
		return private(r.session.SetHealthyCount(msg.PlayerID, args[0]))
	case "unhealthy_counts":
		if len(args) == 0 {
			return Reply{Private: "Expected a number of injured/incapacitated levels."}, nil
		}
		return private(r.session.SetUnhealthyCounts(msg.PlayerID, args[0]))
	case "max_willpower":
		if len(args) == 0 {
			return Reply{Private: "Expected a maximum willpower."}, nil
		}
		return private(r.session.SetMaxWillpower(msg.PlayerID, args[0]))
	default:
		return Reply{Private: usage}, nil
	}
}

func (r *Router) routeBuy(msg Message, args []string) (Reply, error) {
	usage := "Try !buy with one of these: attribute, skill, exceptional, in-clan, " +
		"out-of-clan, background, merit"
	if len(args) == 0 {
		return Reply{Private: usage}, nil
	}
	sub := strings.ToLower(args[0])
	args = args[1:]

	switch sub {
	case "attribute":
		if len(args) == 0 {
			return Reply{Private: "Expected an attribute to buy."}, nil
		}
		return private(r.session.IncreaseAttribute(msg.PlayerID, args[0]))
	case "skill":
		if len(args) == 0 {
			return Reply{Private: "Expected a skill to buy."}, nil
		}
		return private(r.session.IncreaseSkill(msg.PlayerID, strings.Join(args, " "), false))
	case "exceptional":
		if len(args) == 0 {
			return Reply{Private: "Expected a skill to buy."}, nil
		}
		return private(r.session.IncreaseSkill(msg.PlayerID, strings.Join(args, " "), true))
	case "in-clan":
		if len(args) == 0 {
			return Reply{Private: "Expected a discipline to buy."}, nil
		}
		return private(r.session.IncreaseDiscipline(msg.PlayerID, strings.Join(args, " "), false))
	case "out-of-clan":
		if len(args) == 0 {
			return Reply{Private: "Expected a discipline to buy."}, nil
		}
		return private(r.session.IncreaseDiscipline(msg.PlayerID, strings.Join(args, " "), true))
	case "background":
		if len(args) == 0 {
			return Reply{Private: "Expected a background to buy."}, nil
		}
		return private(r.session.IncreaseBackground(msg.PlayerID, strings.Join(args, " ")))
	case "merit":
		if len(args) < 2 {
			return Reply{Private: "Expected a merit name followed by an integer for cost."}, nil
		}
		name := strings.Join(args[:len(args)-1], " ")
		return private(r.session.AddMerit(msg.PlayerID, name, args[len(args)-1]))
	default:
		return Reply{Private: usage}, nil
	}
}

func (r *Router) routeInflict(msg Message, args []string) (Reply, error) {
	usage := "Try !inflict with one of these: flaw, derangement, damage, aggravated"
	if len(args) == 0 {
		return Reply{Private: usage}, nil
	}
	sub := strings.ToLower(args[0])
	args = args[1:]

	switch sub {
	case "flaw":
		if len(args) < 2 {
			return Reply{Private: "Expected a flaw name followed by an integer for value."}, nil
		}
		name := strings.Join(args[:len(args)-1], " ")
		return private(r.session.AddFlaw(msg.PlayerID, name, args[len(args)-1]))
	case "derangement":
		if len(args) == 0 {
			return Reply{Private: "Expected a derangement name."}, nil
		}
		return private(r.session.AddDerangement(msg.PlayerID, strings.Join(args, " ")))
	case "damage":
		return private(r.session.InflictDamage(msg.PlayerID, vampire.DamageNormal, amountOrOne(args)))
	case "aggravated":
		return private(r.session.InflictDamage(msg.PlayerID, vampire.DamageAggravated, amountOrOne(args)))
	default:
		return Reply{Private: usage}, nil
	}
}

func (r *Router) routeHeal(msg Message, args []string) (Reply, error) {
	usage := "Try !heal with one of these: damage, aggravated"
	if len(args) == 0 {
		return Reply{Private: usage}, nil
	}
	switch strings.ToLower(args[0]) {
	case "damage":
		return private(r.session.HealDamage(msg.PlayerID, vampire.DamageNormal))
	case "aggravated":
		return private(r.session.HealDamage(msg.PlayerID, vampire.DamageAggravated))
	default:
		return Reply{Private: usage}, nil
	}
}

func (r *Router) routeRemove(msg Message, args []string) (Reply, error) {
	usage := "Try !remove with one of these: merit, flaw, derangement, beast, morality"
	if len(args) == 0 {
		return Reply{Private: usage}, nil
	}
	sub := strings.ToLower(args[0])
	args = args[1:]

	switch sub {
	case "merit":
		return private(r.session.RemoveMerit(msg.PlayerID, strings.Join(args, " ")))
	case "flaw":
		return private(r.session.RemoveFlaw(msg.PlayerID, strings.Join(args, " ")))
	case "derangement":
		return private(r.session.RemoveDerangement(msg.PlayerID, strings.Join(args, " ")))
	case "beast":
		return private(r.session.RemoveBeastTraits(msg.PlayerID, amountOrOne(args)))
	case "morality":
		return private(r.session.RemoveMorality(msg.PlayerID))
	default:
		return Reply{Private: usage}, nil
	}
}

func (r *Router) routeSpend(msg Message, args []string) (Reply, error) {
	usage := "Try !spend with one of these: willpower, blood"
	if len(args) == 0 {
		return Reply{Private: usage}, nil
	}
	sub := strings.ToLower(args[0])
	args = args[1:]

	switch sub {
	case "willpower":
		return private(r.session.SpendWillpower(msg.PlayerID, amountOrOne(args)))
	case "blood":
		return private(r.session.SpendBlood(msg.PlayerID, amountOrOne(args)))
	default:
		return Reply{Private: usage}, nil
	}
}

func (r *Router) routeGain(msg Message, args []string) (Reply, error) {
	usage := "Try !gain with one of these: willpower, blood, beast, morality"
	if len(args) == 0 {
		return Reply{Private: usage}, nil
	}
	sub := strings.ToLower(args[0])
	args = args[1:]

	switch sub {
	case "willpower":
		return private(r.session.GainWillpower(msg.PlayerID, amountOrOne(args)))
	case "blood":
		return private(r.session.GainBlood(msg.PlayerID, amountOrOne(args)))
	case "beast":
		return private(r.session.GainBeastTraits(msg.PlayerID, amountOrOne(args)))
	case "morality":
		return private(r.session.GainMorality(msg.PlayerID))
	default:
		return Reply{Private: usage}, nil
	}
}

func amountOrOne(args []string) string {
	if len(args) == 0 {
		return "1"
	}
	return args[0]
}

func private(message string, err error) (Reply, error) {
	if err != nil {
		return Reply{}, err
	}
	return Reply{Private: message}, nil
}

func public(message string, err error) (Reply, error) {
	if err != nil {
		return Reply{}, err
	}
	return Reply{Public: message}, nil
}

func renderStats(stats secrethitler.Stats) string {
	return fmt.Sprintf(
		"Games started: %d, cancelled: %d, completed: %d, running: %d. "+
			"Liberal wins: %d by policies, %d by killing Hitler. "+
			"Fascist wins: %d by policies, %d by electing Hitler.",
		stats.Started, stats.Cancelled, stats.Completed, stats.Running,
		stats.LiberalPolicyWins, stats.LiberalHitlerKills,
		stats.FascistPolicyWins, stats.FascistHitlerChancellor,
	)
}

func renderPowerTrack(track [5]secrethitler.Power) string {
	lines := make([]string, 0, len(track)+1)
	lines = append(lines, "Fascist policy powers:")
	for i, power := range track {
		lines = append(lines, fmt.Sprintf("  %d: %s", i+1, power))
	}
	return strings.Join(lines, "\n")
}

const helpText = "Secret Hitler: !sh new/cancel/join/leave/launch/role/powers/nominate/vote/" +
	"discard/select/veto/acceptveto/power/stats. " +
	"Vampire: !join, !set, !buy, !focus, !unfocus, !inflict, !heal, !remove, " +
	"!spend, !gain, !notes, !award, !begin, !undo, !reset, !sheet, !get, !costs."
