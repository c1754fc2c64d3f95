package vampire

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/geokala/discord-gamebot/internal/platform/errors"
	"github.com/geokala/discord-gamebot/internal/storage"
)

var (
	// ErrPlayOnly indicates an XP purchase attempted during character creation.
	ErrPlayOnly = apperrors.New(apperrors.CodePlayOnly,
		"This can only be done after character creation is complete.")
	// ErrNothingToUndo indicates an undo with no retained snapshot.
	ErrNothingToUndo = apperrors.New(apperrors.CodeNothingToUndo,
		"Nothing to undo.")
)

// bloodByGeneration fixes the blood pool maximum and per-round rate when the
// Generation background is set.
var bloodByGeneration = map[int]Blood{
	1: {Max: 10, Rate: 1},
	2: {Max: 15, Rate: 2},
	3: {Max: 20, Rate: 3},
	4: {Max: 25, Rate: 4},
	5: {Max: 30, Rate: 5},
}

// Point budgets during character creation.
const (
	meritPointBudget = 7
	flawPointBudget  = 7
	derangementValue = 2
	maxTraitLevel    = 5
)

// Session owns every player's character, the per-player undo snapshots, and
// the character-creation phase flag. It is single-writer; the command
// dispatcher serializes access.
type Session struct {
	characters map[string]*Character
	undoPoints map[string]*Character
	creation   bool
	now        func() time.Time
	store      storage.CharacterStore
}

// NewSession creates a session in the character-creation phase. The store
// may be nil for a purely in-memory session; a nil now uses the wall clock.
func NewSession(store storage.CharacterStore, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		characters: make(map[string]*Character),
		undoPoints: make(map[string]*Character),
		creation:   true,
		now:        now,
		store:      store,
	}
}

// InCharacterCreation reports whether the session is still in the creation
// phase.
func (s *Session) InCharacterCreation() bool { return s.creation }

// FinishCharacterCreation ends character creation. There is no way back.
func (s *Session) FinishCharacterCreation() string {
	s.creation = false
	return "Character creation complete."
}

// AddPlayer creates a blank character for the player.
func (s *Session) AddPlayer(playerID, playerName string) (string, error) {
	if _, ok := s.characters[playerID]; ok {
		return "", apperrors.New(apperrors.CodePlayerExists,
			fmt.Sprintf("%s has already joined.", playerName))
	}
	s.characters[playerID] = NewCharacter(playerName)
	return fmt.Sprintf("Added %s.", playerName), nil
}

// Character returns the player's sheet for read-only use.
func (s *Session) Character(playerID string) (*Character, error) {
	return s.character(playerID)
}

// CharacterJSON returns the player's sheet as its JSON document.
func (s *Session) CharacterJSON(playerID string) (string, error) {
	char, err := s.character(playerID)
	if err != nil {
		return "", err
	}
	data, err := char.MarshalSheet()
	if err != nil {
		return "", fmt.Errorf("marshal character sheet: %w", err)
	}
	return string(data), nil
}

// AwardXP grants XP to every character. This is the storyteller's end-of-
// session award; it is deliberately not undoable.
func (s *Session) AwardXP(amount, reason string) (string, error) {
	value, err := s.checkInt(amount)
	if err != nil {
		return "", err
	}
	now := s.now()
	for _, char := range s.characters {
		char.AwardXP(now, value, reason)
	}
	return fmt.Sprintf("All characters received %d XP for %s", value, reason), nil
}

// Undo restores the player's retained pre-mutation snapshot, consuming it.
func (s *Session) Undo(playerID string) (string, error) {
	if _, err := s.character(playerID); err != nil {
		return "", err
	}
	snapshot, ok := s.undoPoints[playerID]
	if !ok {
		return "", ErrNothingToUndo
	}
	s.characters[playerID] = snapshot
	delete(s.undoPoints, playerID)
	return "Reverted your last change.", nil
}

// Reset discards the character and recreates a blank one under the same
// name. The old sheet stays available through a single undo.
func (s *Session) Reset(playerID string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		s.characters[playerID] = NewCharacter(char.Header.Player)
		return "Reset your character.", nil
	})
}

// withUndo runs a mutation against the player's character, retaining a
// pre-mutation deep copy as the single undo snapshot. Failed mutations do
// not disturb the previous snapshot.
func (s *Session) withUndo(playerID string, fn func(*Character) (string, error)) (string, error) {
	char, err := s.character(playerID)
	if err != nil {
		return "", err
	}
	snapshot := char.Clone()
	message, err := fn(char)
	if err != nil {
		return "", err
	}
	s.undoPoints[playerID] = snapshot
	return message, nil
}

// --- creation-only operations ---

// SetAttribute sets an attribute to a value during character creation.
func (s *Session) SetAttribute(playerID, attribute, value string) (string, error) {
	if !s.creation {
		return "", creationOnly("Attributes can not be set after character creation.")
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		attr, err := validAttribute(char, attribute)
		if err != nil {
			return "", err
		}
		level, err := s.checkInt(value)
		if err != nil {
			return "", err
		}
		attr.Value = level
		return fmt.Sprintf("%s set to %d", attribute, level), nil
	})
}

// SetSkill sets a skill to a value during character creation. Setting a
// skill to 0 removes it.
func (s *Session) SetSkill(playerID, skill, value string) (string, error) {
	if !s.creation {
		return "", creationOnly("Skills can not be set after character creation.")
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		return setTrait(char.Skills, "skill", skill, value, s.checkInt)
	})
}

// SetBackground sets a background to a value during character creation.
// Setting the Generation background also fixes the blood pool, and may only
// happen once.
func (s *Session) SetBackground(playerID, background, value string) (string, error) {
	if !s.creation {
		return "", creationOnly("Backgrounds can not be set after character creation.")
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		if strings.EqualFold(background, "generation") {
			return s.setGeneration(char, background, value)
		}
		return setTrait(char.Backgrounds, "background", background, value, s.checkInt)
	})
}

// SetDiscipline sets a discipline to a value during character creation.
func (s *Session) SetDiscipline(playerID, discipline, value string) (string, error) {
	if !s.creation {
		return "", creationOnly("Disciplines can not be set after character creation.")
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		return setTrait(char.Disciplines, "discipline", discipline, value, s.checkInt)
	})
}

func (s *Session) setGeneration(char *Character, key, value string) (string, error) {
	current, err := char.Generation()
	if err != nil {
		return "", err
	}
	if current != 0 {
		return "", apperrors.New(apperrors.CodeGenerationAlreadySet,
			"Your Generation background has already been set.")
	}

	level, err := s.checkInt(value)
	if err != nil {
		return "", err
	}
	blood, ok := bloodByGeneration[level]
	if !ok {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidGeneration,
			fmt.Sprintf("%d is not a valid Generation background, expected 1 to 5.", level),
			map[string]string{"Generation": value})
	}

	char.Backgrounds[key] = level
	char.State.Blood = Blood{Current: blood.Max, Max: blood.Max, Rate: blood.Rate}
	return fmt.Sprintf(
		"Set %s to %d. Your blood pool is now %d, regaining %d per round.",
		key, level, blood.Max, blood.Rate,
	), nil
}

// SetClan sets the character's clan during creation.
func (s *Session) SetClan(playerID, clan string) (string, error) {
	if !s.creation {
		return "", creationOnly("The clan can not be set after character creation.")
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		char.Header.Clan = clan
		return fmt.Sprintf("Clan set to %s.", clan), nil
	})
}

// SetName sets the character's name during creation.
func (s *Session) SetName(playerID, name string) (string, error) {
	if !s.creation {
		return "", creationOnly("The character name can not be set after character creation.")
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		char.Header.Character = name
		return fmt.Sprintf("Character name set to %s.", name), nil
	})
}

// SetArchetype sets the character's archetype during creation.
func (s *Session) SetArchetype(playerID, archetype string) (string, error) {
	if !s.creation {
		return "", creationOnly("The archetype can not be set after character creation.")
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		char.Header.Archetype = archetype
		return fmt.Sprintf("Archetype set to %s.", archetype), nil
	})
}

// AddFocus adds a focus on an attribute during creation.
func (s *Session) AddFocus(playerID, attribute, focus string) (string, error) {
	if !s.creation {
		return "", creationOnly("Focuses cannot be added after character creation.")
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		attr, err := validAttribute(char, attribute)
		if err != nil {
			return "", err
		}
		for _, existing := range attr.Focuses {
			if existing == focus {
				return "", apperrors.New(apperrors.CodeDuplicateEntry,
					fmt.Sprintf("You already have focus %s in attribute %s", focus, attribute))
			}
		}
		attr.Focuses = append(attr.Focuses, focus)
		return fmt.Sprintf("Added %s to %s focuses.", focus, attribute), nil
	})
}

// RemoveFocus removes a focus from an attribute during creation. Removing an
// absent focus is reported but is not an error.
func (s *Session) RemoveFocus(playerID, attribute, focus string) (string, error) {
	if !s.creation {
		return "", creationOnly("Focuses cannot be removed after character creation.")
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		attr, err := validAttribute(char, attribute)
		if err != nil {
			return "", err
		}
		for i, existing := range attr.Focuses {
			if existing == focus {
				attr.Focuses = append(attr.Focuses[:i], attr.Focuses[i+1:]...)
				return fmt.Sprintf("Removed %s from %s focuses.", focus, attribute), nil
			}
		}
		return fmt.Sprintf("You did not have focus %s in attribute %s", focus, attribute), nil
	})
}

// SetBloodRate overrides the character's per-round blood rate during
// creation.
func (s *Session) SetBloodRate(playerID, rate string) (string, error) {
	if !s.creation {
		return "", creationOnly("The blood rate can not be set after character creation.")
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		value, err := s.checkInt(rate)
		if err != nil {
			return "", err
		}
		char.State.Blood.Rate = value
		return fmt.Sprintf("Blood per round set to %d.", value), nil
	})
}

// SetHealthyCount sets the number of healthy wound levels during creation.
func (s *Session) SetHealthyCount(playerID, count string) (string, error) {
	if !s.creation {
		return "", creationOnly("Health levels can not be set after character creation.")
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		value, err := s.checkInt(count)
		if err != nil {
			return "", err
		}
		char.State.Health.Levels.Healthy = value
		return fmt.Sprintf("Healthy levels set to %d.", value), nil
	})
}

// SetUnhealthyCounts sets the injured and incapacitated wound levels during
// creation.
func (s *Session) SetUnhealthyCounts(playerID, count string) (string, error) {
	if !s.creation {
		return "", creationOnly("Health levels can not be set after character creation.")
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		value, err := s.checkInt(count)
		if err != nil {
			return "", err
		}
		char.State.Health.Levels.Injured = value
		char.State.Health.Levels.Incapacitated = value
		return fmt.Sprintf("Injured and incapacitated levels set to %d.", value), nil
	})
}

// SetMaxWillpower sets the willpower maximum during creation, refilling the
// pool to the new maximum.
func (s *Session) SetMaxWillpower(playerID, maximum string) (string, error) {
	if !s.creation {
		return "", creationOnly("The maximum willpower can not be set after character creation.")
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		value, err := s.checkInt(maximum)
		if err != nil {
			return "", err
		}
		char.State.Willpower.Max = value
		char.State.Willpower.Current = value
		return fmt.Sprintf("Maximum willpower set to %d.", value), nil
	})
}

// --- play-only XP purchases ---

// IncreaseAttribute spends XP to raise an attribute. Raising an attribute
// beyond 10 consumes generation bonus points.
func (s *Session) IncreaseAttribute(playerID, attribute string) (string, error) {
	if s.creation {
		return "", ErrPlayOnly
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		attr, err := validAttribute(char, attribute)
		if err != nil {
			return "", err
		}
		generation, err := s.checkGenerationIsSet(char)
		if err != nil {
			return "", err
		}

		costs, err := char.XPCosts()
		if err != nil {
			return "", err
		}
		cost, _ := costs[PurchaseAttribute].Flat()
		if err := checkXPAvailable(char, cost); err != nil {
			return "", err
		}

		bonusesSpent := 0
		for _, current := range []Attribute{
			char.Attributes.Physical, char.Attributes.Social, char.Attributes.Mental,
		} {
			if current.Value > 10 {
				bonusesSpent += current.Value - 10
			}
		}
		if bonusesSpent+1 > generation && attr.Value >= 10 {
			return "", apperrors.New(apperrors.CodePointBudgetExceeded,
				fmt.Sprintf("You don't have enough bonus points to raise %s any further.", attribute))
		}

		attr.Value++
		message := fmt.Sprintf("Raised %s to %d", attribute, attr.Value)
		char.SpendXP(s.now(), cost, message)
		return message, nil
	})
}

// IncreaseSkill spends XP to raise a skill. Levels beyond 5 require the
// exceedMaximum override (a merit grants it).
func (s *Session) IncreaseSkill(playerID, skill string, exceedMaximum bool) (string, error) {
	if s.creation {
		return "", ErrPlayOnly
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		return s.increaseScaling(char, scalingPurchase{
			purchase:   PurchaseSkill,
			entries:    char.Skills,
			name:       skill,
			capMessage: "You already have 5 points in this skill. This is the maximum unless you have a merit allowing more.",
			exceedCap:  exceedMaximum,
		})
	})
}

// IncreaseBackground spends XP to raise a background. Generation is not
// purchasable.
func (s *Session) IncreaseBackground(playerID, background string) (string, error) {
	if s.creation {
		return "", ErrPlayOnly
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		if strings.EqualFold(background, "generation") {
			return "", apperrors.New(apperrors.CodeXPPurchaseForbidden,
				"You can't buy generation improvements with XP, only by mercilessly "+
					"draining the soul of someone stronger than you. You monster.")
		}
		return s.increaseScaling(char, scalingPurchase{
			purchase:   PurchaseBackground,
			entries:    char.Backgrounds,
			name:       background,
			capMessage: "You already have 5 points in this background.",
		})
	})
}

// IncreaseDiscipline spends XP to raise a discipline, at the in-clan or
// out-of-clan rate.
func (s *Session) IncreaseDiscipline(playerID, discipline string, outOfClan bool) (string, error) {
	if s.creation {
		return "", ErrPlayOnly
	}
	purchase := PurchaseInClanDiscipline
	if outOfClan {
		purchase = PurchaseOutOfClanDiscipline
	}
	return s.withUndo(playerID, func(char *Character) (string, error) {
		return s.increaseScaling(char, scalingPurchase{
			purchase:   purchase,
			entries:    char.Disciplines,
			name:       discipline,
			capMessage: "You already have 5 points in this discipline.",
		})
	})
}

type scalingPurchase struct {
	purchase   Purchase
	entries    map[string]int
	name       string
	capMessage string
	exceedCap  bool
}

// increaseScaling is the shared engine for level purchases that cost
// (new level x multiplier) XP.
func (s *Session) increaseScaling(char *Character, buy scalingPurchase) (string, error) {
	if _, err := s.checkGenerationIsSet(char); err != nil {
		return "", err
	}

	name := correctCaseEntry(buy.name, buy.entries)
	currentLevel := buy.entries[name]

	costs, err := char.XPCosts()
	if err != nil {
		return "", err
	}
	multiplier, ok := costs[buy.purchase].Multiplier()
	if !ok {
		return "", apperrors.New(apperrors.CodeXPPurchaseForbidden,
			fmt.Sprintf("%s can not be bought at your generation.", buy.purchase))
	}
	cost := (currentLevel + 1) * multiplier
	if err := checkXPAvailable(char, cost); err != nil {
		return "", err
	}

	if currentLevel >= maxTraitLevel && !buy.exceedCap {
		return "", apperrors.New(apperrors.CodeLevelCapReached, buy.capMessage)
	}

	buy.entries[name] = currentLevel + 1
	message := fmt.Sprintf("Raised %s to %d", name, buy.entries[name])
	char.SpendXP(s.now(), cost, message)
	return message + fmt.Sprintf(" for %d XP", cost), nil
}

// --- notes ---

// AddNote appends a note to the character.
func (s *Session) AddNote(playerID, content string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		char.Notes = append(char.Notes, content)
		return "Note added.", nil
	})
}

// ListNotes lists the character's notes, numbered from 1.
func (s *Session) ListNotes(playerID string) (string, error) {
	char, err := s.character(playerID)
	if err != nil {
		return "", err
	}
	if len(char.Notes) == 0 {
		return "You have no notes.", nil
	}
	lines := make([]string, 0, len(char.Notes)+1)
	lines = append(lines, "Your notes:")
	for pos, note := range char.Notes {
		lines = append(lines, fmt.Sprintf("  %d: %s", pos+1, note))
	}
	return strings.Join(lines, "\n"), nil
}

// RemoveNote removes a note by its 1-indexed position.
func (s *Session) RemoveNote(playerID, pos string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		index, err := s.checkInt(pos)
		if err != nil {
			return "", err
		}
		if index < 1 || index > len(char.Notes) {
			return "", apperrors.New(apperrors.CodeEntryNotFound,
				fmt.Sprintf("Note %d does not exist, you have %d notes.", index, len(char.Notes)))
		}
		content := char.Notes[index-1]
		char.Notes = append(char.Notes[:index-1], char.Notes[index:]...)
		return fmt.Sprintf("Removed note %d: %s", index, content), nil
	})
}

// --- damage ---

// InflictDamage adds damage tokens to the character's damage track.
func (s *Session) InflictDamage(playerID, damageType, amount string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		kind, err := validDamageType(damageType)
		if err != nil {
			return "", err
		}
		count, err := s.checkInt(amount)
		if err != nil {
			return "", err
		}
		for i := 0; i < count; i++ {
			char.State.Health.Damage = append(char.State.Health.Damage, kind)
		}
		return fmt.Sprintf("Inflicted %d %s damage. You are now %s.",
			count, kind, char.HealthLevel()), nil
	})
}

// HealDamage removes the most recent damage token of the given type.
func (s *Session) HealDamage(playerID, damageType string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		kind, err := validDamageType(damageType)
		if err != nil {
			return "", err
		}
		damage := char.State.Health.Damage
		for i := len(damage) - 1; i >= 0; i-- {
			if damage[i] == kind {
				char.State.Health.Damage = append(damage[:i], damage[i+1:]...)
				return fmt.Sprintf("Healed one point of %s damage. You are now %s.",
					kind, char.HealthLevel()), nil
			}
		}
		return "", apperrors.New(apperrors.CodeEntryNotFound,
			fmt.Sprintf("You have no %s damage to heal.", kind))
	})
}

// --- resource pools ---

// SpendBlood spends blood from the pool.
func (s *Session) SpendBlood(playerID, amount string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		count, err := s.checkInt(amount)
		if err != nil {
			return "", err
		}
		return spendResource(&char.State.Blood.Current, "blood", count)
	})
}

// GainBlood adds blood to the pool, clamped at the maximum.
func (s *Session) GainBlood(playerID, amount string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		count, err := s.checkInt(amount)
		if err != nil {
			return "", err
		}
		return gainResource(&char.State.Blood.Current, char.State.Blood.Max, "blood", count), nil
	})
}

// SpendWillpower spends willpower.
func (s *Session) SpendWillpower(playerID, amount string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		count, err := s.checkInt(amount)
		if err != nil {
			return "", err
		}
		return spendResource(&char.State.Willpower.Current, "willpower", count)
	})
}

// GainWillpower restores willpower, clamped at the maximum.
func (s *Session) GainWillpower(playerID, amount string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		count, err := s.checkInt(amount)
		if err != nil {
			return "", err
		}
		return gainResource(&char.State.Willpower.Current, char.State.Willpower.Max, "willpower", count), nil
	})
}

// GainBeastTraits adds beast traits.
func (s *Session) GainBeastTraits(playerID, amount string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		count, err := s.checkInt(amount)
		if err != nil {
			return "", err
		}
		char.State.Morality.BeastTraits += count
		return fmt.Sprintf("Gained %d beast trait(s). You now have %d.",
			count, char.State.Morality.BeastTraits), nil
	})
}

// RemoveBeastTraits removes beast traits, stopping at zero.
func (s *Session) RemoveBeastTraits(playerID, amount string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		count, err := s.checkInt(amount)
		if err != nil {
			return "", err
		}
		if count > char.State.Morality.BeastTraits {
			count = char.State.Morality.BeastTraits
		}
		char.State.Morality.BeastTraits -= count
		return fmt.Sprintf("Removed %d beast trait(s). You now have %d.",
			count, char.State.Morality.BeastTraits), nil
	})
}

// GainMorality regains a point of lost humanity for 10 XP. The maximum is
// checked before any XP is spent.
func (s *Session) GainMorality(playerID string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		if char.State.Morality.Current >= char.State.Morality.Max {
			return "", apperrors.New(apperrors.CodeResourceAtMax,
				"Your morality is already at its maximum.")
		}
		costs, err := char.XPCosts()
		if err != nil {
			return "", err
		}
		cost, _ := costs[PurchaseRegainHumanity].Flat()
		if err := checkXPAvailable(char, cost); err != nil {
			return "", err
		}
		char.State.Morality.Current++
		char.SpendXP(s.now(), cost, "Regained lost humanity")
		return fmt.Sprintf("Regained a point of morality for %d XP. Morality is now %d.",
			cost, char.State.Morality.Current), nil
	})
}

// RemoveMorality removes a point of morality. There is no floor; the slide
// into the beast is unbounded.
func (s *Session) RemoveMorality(playerID string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		char.State.Morality.Current--
		message := fmt.Sprintf("Lost a point of morality. Morality is now %d.",
			char.State.Morality.Current)
		switch {
		case char.State.Morality.Current == 0:
			message += " Your beast roams free. This is the end of your unlife as anything but a monster."
		case char.State.Morality.Current < 3:
			message += " The beast gnaws at what remains of your humanity."
		}
		return message, nil
	})
}

// --- merits, flaws, derangements ---

// AddMerit buys a merit, spending its point cost as XP. Merits may total at
// most 7 points.
func (s *Session) AddMerit(playerID, name, cost string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		points, err := s.checkInt(cost)
		if err != nil {
			return "", err
		}
		if _, ok := findEntry(char.MeritsAndFlaws.Merits, name); ok {
			return "", apperrors.New(apperrors.CodeDuplicateEntry,
				fmt.Sprintf("You already have the merit %s", name))
		}
		currentTotal := 0
		for _, value := range char.MeritsAndFlaws.Merits {
			currentTotal += value
		}
		if currentTotal+points > meritPointBudget {
			return "", apperrors.New(apperrors.CodePointBudgetExceeded,
				fmt.Sprintf("You may have at most 7 points of merits. You have %d "+
					"and are trying to add %d, which would exceed 7.", currentTotal, points))
		}
		if err := checkXPAvailable(char, points); err != nil {
			return "", err
		}
		char.MeritsAndFlaws.Merits[name] = points
		char.SpendXP(s.now(), points, fmt.Sprintf("Merit: %s", name))
		return fmt.Sprintf("Added merit %s with cost %d", name, points), nil
	})
}

// RemoveMerit removes a merit. During character creation the spent XP is
// refunded; afterwards the merit is simply lost.
func (s *Session) RemoveMerit(playerID, name string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		key, ok := findEntry(char.MeritsAndFlaws.Merits, name)
		if !ok {
			return "", apperrors.New(apperrors.CodeEntryNotFound,
				fmt.Sprintf("You do not have the merit %s", name))
		}
		points := char.MeritsAndFlaws.Merits[key]
		delete(char.MeritsAndFlaws.Merits, key)
		if s.creation {
			char.RefundXP(s.now(), points, fmt.Sprintf("Removed merit: %s", key))
			return fmt.Sprintf("Removed merit %s, refunding %d XP.", key, points), nil
		}
		return fmt.Sprintf("Removed merit %s.", key), nil
	})
}

// AddFlaw adds a flaw. During character creation its value is awarded as
// XP and counts against the 7-point flaw and derangement budget; afterwards
// it is simply inflicted.
func (s *Session) AddFlaw(playerID, name, value string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		points, err := s.checkInt(value)
		if err != nil {
			return "", err
		}
		if _, ok := findEntry(char.MeritsAndFlaws.Flaws, name); ok {
			return "", apperrors.New(apperrors.CodeDuplicateEntry,
				fmt.Sprintf("You already have the flaw %s", name))
		}
		if s.creation {
			if err := checkFlawBudget(char, points); err != nil {
				return "", err
			}
			char.MeritsAndFlaws.Flaws[name] = points
			char.AwardXP(s.now(), points, fmt.Sprintf("Flaw: %s", name))
			return fmt.Sprintf("Added flaw %s with value %d, gaining %d XP.",
				name, points, points), nil
		}
		char.MeritsAndFlaws.Flaws[name] = points
		return fmt.Sprintf("Added flaw %s with value %d", name, points), nil
	})
}

// RemoveFlaw removes a flaw. During character creation the awarded XP is
// revoked (current may go negative); afterwards buying off the flaw costs
// its value in XP.
func (s *Session) RemoveFlaw(playerID, name string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		key, ok := findEntry(char.MeritsAndFlaws.Flaws, name)
		if !ok {
			return "", apperrors.New(apperrors.CodeEntryNotFound,
				fmt.Sprintf("You do not have the flaw %s", name))
		}
		points := char.MeritsAndFlaws.Flaws[key]
		if s.creation {
			delete(char.MeritsAndFlaws.Flaws, key)
			char.RevokeXP(s.now(), points, fmt.Sprintf("Removed flaw: %s", key))
			return fmt.Sprintf("Removed flaw %s, revoking %d XP.", key, points), nil
		}
		if err := checkXPAvailable(char, points); err != nil {
			return "", err
		}
		delete(char.MeritsAndFlaws.Flaws, key)
		char.SpendXP(s.now(), points, fmt.Sprintf("Removed flaw: %s", key))
		return fmt.Sprintf("Removed flaw %s for %d XP.", key, points), nil
	})
}

// AddDerangement adds a derangement, worth 2 points. A Malkavian's first
// derangement is free: no XP award and no budget charge.
func (s *Session) AddDerangement(playerID, name string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		for _, existing := range char.MeritsAndFlaws.Derangements {
			if strings.EqualFold(existing, name) {
				return "", apperrors.New(apperrors.CodeDuplicateEntry,
					fmt.Sprintf("You already have the derangement %s", name))
			}
		}
		free := isMalkavian(char) && len(char.MeritsAndFlaws.Derangements) == 0
		if s.creation && !free {
			if err := checkFlawBudget(char, derangementValue); err != nil {
				return "", err
			}
			char.MeritsAndFlaws.Derangements = append(char.MeritsAndFlaws.Derangements, name)
			char.AwardXP(s.now(), derangementValue, fmt.Sprintf("Derangement: %s", name))
			return fmt.Sprintf("Added derangement %s, gaining %d XP.", name, derangementValue), nil
		}
		char.MeritsAndFlaws.Derangements = append(char.MeritsAndFlaws.Derangements, name)
		if free {
			return fmt.Sprintf("Added derangement %s. Your first derangement is free.", name), nil
		}
		return fmt.Sprintf("Added derangement %s.", name), nil
	})
}

// RemoveDerangement removes a derangement. A Malkavian may never remove
// their last one. Removal during creation revokes the awarded XP;
// afterwards buying it off costs 2 XP.
func (s *Session) RemoveDerangement(playerID, name string) (string, error) {
	return s.withUndo(playerID, func(char *Character) (string, error) {
		index := -1
		for i, existing := range char.MeritsAndFlaws.Derangements {
			if strings.EqualFold(existing, name) {
				index = i
				break
			}
		}
		if index == -1 {
			return "", apperrors.New(apperrors.CodeEntryNotFound,
				fmt.Sprintf("You do not have the derangement %s", name))
		}
		if isMalkavian(char) && len(char.MeritsAndFlaws.Derangements) == 1 {
			return "", apperrors.New(apperrors.CodeXPPurchaseForbidden,
				"A Malkavian cannot remove their last derangement.")
		}

		key := char.MeritsAndFlaws.Derangements[index]
		if s.creation {
			char.MeritsAndFlaws.Derangements = append(
				char.MeritsAndFlaws.Derangements[:index],
				char.MeritsAndFlaws.Derangements[index+1:]...)
			char.RevokeXP(s.now(), derangementValue, fmt.Sprintf("Removed derangement: %s", key))
			return fmt.Sprintf("Removed derangement %s, revoking %d XP.", key, derangementValue), nil
		}
		if err := checkXPAvailable(char, derangementValue); err != nil {
			return "", err
		}
		char.MeritsAndFlaws.Derangements = append(
			char.MeritsAndFlaws.Derangements[:index],
			char.MeritsAndFlaws.Derangements[index+1:]...)
		char.SpendXP(s.now(), derangementValue, fmt.Sprintf("Removed derangement: %s", key))
		return fmt.Sprintf("Removed derangement %s for %d XP.", key, derangementValue), nil
	})
}

// --- persistence ---

// Save writes every character sheet through to the store.
func (s *Session) Save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	for playerID, char := range s.characters {
		sheet, err := char.MarshalSheet()
		if err != nil {
			return fmt.Errorf("marshal character for %s: %w", playerID, err)
		}
		record := storage.CharacterRecord{
			PlayerID:  playerID,
			Sheet:     sheet,
			UpdatedAt: s.now().UTC().UnixMilli(),
		}
		if err := s.store.PutCharacter(ctx, record); err != nil {
			return fmt.Errorf("store character for %s: %w", playerID, err)
		}
	}
	return nil
}

// Load replaces the in-memory characters with the persisted ones. Undo
// snapshots are discarded.
func (s *Session) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	records, err := s.store.ListCharacters(ctx)
	if err != nil {
		return fmt.Errorf("list characters: %w", err)
	}

	characters := make(map[string]*Character, len(records))
	for _, record := range records {
		var char Character
		if err := char.UnmarshalJSON(record.Sheet); err != nil {
			return fmt.Errorf("load character for %s: %w", record.PlayerID, err)
		}
		characters[record.PlayerID] = &char
	}
	s.characters = characters
	s.undoPoints = make(map[string]*Character)
	return nil
}

// --- helpers ---

func (s *Session) character(playerID string) (*Character, error) {
	char, ok := s.characters[playerID]
	if !ok {
		return nil, apperrors.New(apperrors.CodePlayerNotFound,
			"You do not have a character yet. Join the game first.")
	}
	return char, nil
}

func (s *Session) checkInt(value string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, apperrors.WithMetadata(apperrors.CodeInvalidInteger,
			fmt.Sprintf("%s is not an integer.", value),
			map[string]string{"Value": value})
	}
	return parsed, nil
}

func (s *Session) checkGenerationIsSet(char *Character) (int, error) {
	generation, err := char.Generation()
	if err != nil {
		return 0, err
	}
	if generation == 0 {
		return 0, apperrors.New(apperrors.CodeGenerationNotSet,
			"This command cannot be called until your Generation background has been set.")
	}
	return generation, nil
}

func creationOnly(message string) error {
	return apperrors.New(apperrors.CodeCreationOnly, message)
}

func checkXPAvailable(char *Character, cost int) error {
	if cost > char.Experience.Current {
		return apperrors.New(apperrors.CodeInsufficientXP,
			fmt.Sprintf("You need at least %d XP, but you only have %d",
				cost, char.Experience.Current))
	}
	return nil
}

// checkFlawBudget enforces the creation-time cap on flaw and derangement
// points. A Malkavian's free first derangement does not count.
func checkFlawBudget(char *Character, newPoints int) error {
	current := 0
	for _, value := range char.MeritsAndFlaws.Flaws {
		current += value
	}
	current += derangementValue * len(char.MeritsAndFlaws.Derangements)
	if isMalkavian(char) && len(char.MeritsAndFlaws.Derangements) > 0 {
		current -= derangementValue
	}
	if current+newPoints > flawPointBudget {
		return apperrors.New(apperrors.CodePointBudgetExceeded,
			fmt.Sprintf("You may have at most 7 points of flaws and derangements. "+
				"You have %d and are trying to add %d, which would exceed 7.",
				current, newPoints))
	}
	return nil
}

func isMalkavian(char *Character) bool {
	return strings.EqualFold(char.Header.Clan, "malkavian")
}

func validAttribute(char *Character, name string) (*Attribute, error) {
	switch name {
	case "physical":
		return &char.Attributes.Physical, nil
	case "social":
		return &char.Attributes.Social, nil
	case "mental":
		return &char.Attributes.Mental, nil
	default:
		return nil, apperrors.WithMetadata(apperrors.CodeUnknownAttribute,
			fmt.Sprintf("%s is not a valid attribute. Valid attributes are: "+
				"physical,social,mental", name),
			map[string]string{"Attribute": name})
	}
}

func validDamageType(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DamageNormal:
		return DamageNormal, nil
	case DamageAggravated:
		return DamageAggravated, nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeUnknownDamageType,
			fmt.Sprintf("%s is not a damage type. Damage is normal or aggravated.", name),
			map[string]string{"DamageType": name})
	}
}

// setTrait implements the shared set-to-value semantics for skills,
// backgrounds, and disciplines: value 0 removes the entry.
func setTrait(entries map[string]int, kind, name, value string, checkInt func(string) (int, error)) (string, error) {
	level, err := checkInt(value)
	if err != nil {
		return "", err
	}
	if level == 0 {
		if _, ok := entries[name]; !ok {
			return "", apperrors.New(apperrors.CodeEntryNotFound,
				fmt.Sprintf("Can't remove %s- you don't have that %s.", name, kind))
		}
		delete(entries, name)
		return fmt.Sprintf("Removed %s %s", name, kind), nil
	}
	entries[name] = level
	return fmt.Sprintf("Set %s to %d", name, level), nil
}

// correctCaseEntry reuses an existing entry whose name differs only by case.
func correctCaseEntry(name string, entries map[string]int) string {
	for existing := range entries {
		if strings.EqualFold(existing, name) {
			return existing
		}
	}
	return name
}

// findEntry looks up a map entry case-insensitively, returning the stored
// key.
func findEntry(entries map[string]int, name string) (string, bool) {
	for existing := range entries {
		if strings.EqualFold(existing, name) {
			return existing, true
		}
	}
	return "", false
}

func spendResource(current *int, resource string, amount int) (string, error) {
	if amount > *current {
		return "", apperrors.New(apperrors.CodeInsufficientResource,
			fmt.Sprintf("You do not have %d %s to spend. You have %d.",
				amount, resource, *current))
	}
	*current -= amount
	return fmt.Sprintf("Spent %d %s. You have %d remaining.", amount, resource, *current), nil
}

func gainResource(current *int, max int, resource string, amount int) string {
	gained := amount
	if *current+gained > max {
		gained = max - *current
		if gained < 0 {
			gained = 0
		}
	}
	lost := amount - gained
	*current += gained
	if lost > 0 {
		return fmt.Sprintf("Gained %d %s (%d lost to your maximum of %d).",
			gained, resource, lost, max)
	}
	return fmt.Sprintf("Gained %d %s.", gained, resource)
}

// CostListing renders the XP cost table for the player's generation.
func (s *Session) CostListing(playerID string) (string, error) {
	char, err := s.character(playerID)
	if err != nil {
		return "", err
	}
	costs, err := char.XPCosts()
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(costs))
	for purchase := range costs {
		names = append(names, string(purchase))
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names)+1)
	lines = append(lines, "XP costs:")
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("  %s: %s", name, costs[Purchase(name)]))
	}
	return strings.Join(lines, "\n"), nil
}
