// Package vampire implements the Vampire: the Masquerade character sheet
// backend: the sheet model, the XP economy, and the session manager that
// phase-gates mutations between character creation and play.
package vampire

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/geokala/discord-gamebot/internal/platform/errors"
)

// Damage token types recorded in the damage track.
const (
	DamageNormal     = "normal"
	DamageAggravated = "aggravated"
)

// xpLogTimeLayout is the timestamp prefix of every XP log line.
const xpLogTimeLayout = "2006/01/02 15:04"

// Header holds the identity fields of a sheet.
type Header struct {
	Player    string `json:"player"`
	Character string `json:"character"`
	Archetype string `json:"archetype"`
	Clan      string `json:"clan"`
	Sect      string `json:"sect"`
	Title     string `json:"title"`
}

// Experience tracks the XP economy. Current may legitimately drop below
// zero when a creation-time bonus is revoked after its XP was spent.
type Experience struct {
	Current int      `json:"current"`
	Total   int      `json:"total"`
	Log     []string `json:"log"`
}

// Attribute is one of the three core attributes with its focuses.
type Attribute struct {
	Value   int      `json:"value"`
	Focuses []string `json:"focuses"`
}

// Attributes holds the physical/social/mental trio.
type Attributes struct {
	Physical Attribute `json:"physical"`
	Social   Attribute `json:"social"`
	Mental   Attribute `json:"mental"`
}

// MeritsAndFlaws groups the point-budgeted advantages and disadvantages.
type MeritsAndFlaws struct {
	Merits       map[string]int `json:"merits"`
	Flaws        map[string]int `json:"flaws"`
	Derangements []string       `json:"derangements"`
}

// Blood is the blood pool. Max and Rate are fixed by the Generation
// background.
type Blood struct {
	Current int `json:"current"`
	Max     int `json:"max"`
	Rate    int `json:"rate"`
}

// Willpower is the willpower pool.
type Willpower struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Morality tracks humanity and accumulated beast traits. The JSON key for
// beast traits contains a space; it is part of the sheet schema.
type Morality struct {
	Current     int `json:"current"`
	Max         int `json:"max"`
	BeastTraits int `json:"beast traits"`
}

// HealthLevels counts the wound boxes per level.
type HealthLevels struct {
	Healthy       int `json:"healthy"`
	Injured       int `json:"injured"`
	Incapacitated int `json:"incapacitated"`
}

// Health combines the wound boxes with the ordered damage track.
type Health struct {
	Levels HealthLevels `json:"levels"`
	Damage []string     `json:"damage"`
}

// State groups the volatile pools of a sheet.
type State struct {
	Blood     Blood     `json:"blood"`
	Willpower Willpower `json:"willpower"`
	Morality  Morality  `json:"morality"`
	Health    Health    `json:"health"`
	Status    []string  `json:"status"`
}

// Character is one player's sheet. It is a plain data aggregate; all
// validation and phase-gating lives in the Session.
type Character struct {
	Header         Header         `json:"header"`
	Experience     Experience     `json:"xp"`
	Attributes     Attributes     `json:"attributes"`
	Skills         map[string]int `json:"skills"`
	Backgrounds    map[string]int `json:"backgrounds"`
	Disciplines    map[string]int `json:"disciplines"`
	MeritsAndFlaws MeritsAndFlaws `json:"merits_and_flaws"`
	State          State          `json:"state"`
	Equipment      []string       `json:"equipment"`
	Notes          []string       `json:"notes"`
}

// NewCharacter creates a blank sheet with the standard starting values.
func NewCharacter(playerName string) *Character {
	return &Character{
		Header: Header{Player: playerName},
		Experience: Experience{
			Current: 30,
			Total:   30,
			Log:     []string{},
		},
		Attributes: Attributes{
			Physical: Attribute{Focuses: []string{}},
			Social:   Attribute{Focuses: []string{}},
			Mental:   Attribute{Focuses: []string{}},
		},
		Skills:      map[string]int{},
		Backgrounds: map[string]int{},
		Disciplines: map[string]int{},
		MeritsAndFlaws: MeritsAndFlaws{
			Merits:       map[string]int{},
			Flaws:        map[string]int{},
			Derangements: []string{},
		},
		State: State{
			Willpower: Willpower{Current: 6, Max: 6},
			Morality:  Morality{Current: 5, Max: 5},
			Health: Health{
				Levels: HealthLevels{Healthy: 3, Injured: 3, Incapacitated: 3},
				Damage: []string{},
			},
			Status: []string{},
		},
		Equipment: []string{},
		Notes:     []string{},
	}
}

// AwardXP grants XP, raising both current and total.
func (c *Character) AwardXP(now time.Time, amount int, reason string) {
	c.Experience.Current += amount
	c.Experience.Total += amount
	c.logXP(now, "Gained", amount, reason)
}

// SpendXP consumes current XP. Total is untouched; it records lifetime
// earnings.
func (c *Character) SpendXP(now time.Time, amount int, reason string) {
	c.Experience.Current -= amount
	c.logXP(now, "Spent", amount, reason)
}

// RefundXP returns previously spent XP to the current pool.
func (c *Character) RefundXP(now time.Time, amount int, reason string) {
	c.Experience.Current += amount
	c.logXP(now, "Refunded", amount, reason)
}

// RevokeXP takes back a previous award, lowering both current and total.
// Current may go negative if the awarded XP was already spent.
func (c *Character) RevokeXP(now time.Time, amount int, reason string) {
	c.Experience.Current -= amount
	c.Experience.Total -= amount
	c.logXP(now, "Revoked", amount, reason)
}

func (c *Character) logXP(now time.Time, verb string, amount int, reason string) {
	c.Experience.Log = append(c.Experience.Log, fmt.Sprintf(
		"%s- %s %d (%s)", now.Format(xpLogTimeLayout), verb, amount, reason,
	))
}

// HealthLevel derives the current health level from the damage track laid
// over the ordered healthy/injured/incapacitated boxes. Damage beyond every
// box means torpor.
func (c *Character) HealthLevel() string {
	var boxes []string
	for _, level := range []struct {
		name  string
		count int
	}{
		{"healthy", c.State.Health.Levels.Healthy},
		{"injured", c.State.Health.Levels.Injured},
		{"incapacitated", c.State.Health.Levels.Incapacitated},
	} {
		for i := 0; i < level.count; i++ {
			boxes = append(boxes, level.name)
		}
	}

	taken := len(c.State.Health.Damage)
	if len(boxes) == 0 {
		return "torpid"
	}
	if taken <= len(boxes) {
		pos := taken - 1
		if pos < 0 {
			pos = 0
		}
		return boxes[pos]
	}
	return "torpid"
}

// Generation returns the value of the Generation background, matched
// case-insensitively, or 0 if it is not set. Two differently-cased
// generation entries on one sheet are a consistency failure.
func (c *Character) Generation() (int, error) {
	value := 0
	found := 0
	for name, level := range c.Backgrounds {
		if strings.EqualFold(name, "generation") {
			value = level
			found++
		}
	}
	if found > 1 {
		return 0, apperrors.New(apperrors.CodeGenerationConflict,
			"Generation set multiple times.")
	}
	return value, nil
}

// XPCosts returns the purchase cost table for this character's generation.
func (c *Character) XPCosts() (map[Purchase]Cost, error) {
	generation, err := c.Generation()
	if err != nil {
		return nil, err
	}
	return XPCostTable(generation), nil
}

// Clone returns a deep copy of the sheet, used for undo snapshots.
func (c *Character) Clone() *Character {
	clone := *c
	clone.Experience.Log = append([]string{}, c.Experience.Log...)
	clone.Attributes.Physical.Focuses = append([]string{}, c.Attributes.Physical.Focuses...)
	clone.Attributes.Social.Focuses = append([]string{}, c.Attributes.Social.Focuses...)
	clone.Attributes.Mental.Focuses = append([]string{}, c.Attributes.Mental.Focuses...)
	clone.Skills = copyIntMap(c.Skills)
	clone.Backgrounds = copyIntMap(c.Backgrounds)
	clone.Disciplines = copyIntMap(c.Disciplines)
	clone.MeritsAndFlaws.Merits = copyIntMap(c.MeritsAndFlaws.Merits)
	clone.MeritsAndFlaws.Flaws = copyIntMap(c.MeritsAndFlaws.Flaws)
	clone.MeritsAndFlaws.Derangements = append([]string{}, c.MeritsAndFlaws.Derangements...)
	clone.State.Health.Damage = append([]string{}, c.State.Health.Damage...)
	clone.State.Status = append([]string{}, c.State.Status...)
	clone.Equipment = append([]string{}, c.Equipment...)
	clone.Notes = append([]string{}, c.Notes...)
	return &clone
}

func copyIntMap(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

// MarshalSheet serializes the sheet to its JSON document form.
func (c *Character) MarshalSheet() ([]byte, error) {
	return json.Marshal(c)
}

// characterAlias avoids recursion into UnmarshalJSON.
type characterAlias Character

// UnmarshalJSON loads a sheet, failing fast when any schema section is
// missing rather than silently zeroing it.
func (c *Character) UnmarshalJSON(data []byte) error {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return apperrors.Wrap(apperrors.CodeSheetInvalidFormat,
			"character sheet is not valid JSON", err)
	}

	required := []string{
		"header", "xp", "attributes", "skills", "backgrounds",
		"disciplines", "merits_and_flaws", "state", "equipment", "notes",
	}
	for _, section := range required {
		if _, ok := sections[section]; !ok {
			return apperrors.WithMetadata(apperrors.CodeSheetInvalidFormat,
				fmt.Sprintf("character sheet is missing the %q section", section),
				map[string]string{"Section": section})
		}
	}

	var mafKeys map[string]json.RawMessage
	if err := json.Unmarshal(sections["merits_and_flaws"], &mafKeys); err != nil {
		return apperrors.Wrap(apperrors.CodeSheetInvalidFormat,
			"merits_and_flaws section is malformed", err)
	}
	for _, key := range []string{"merits", "flaws", "derangements"} {
		if _, ok := mafKeys[key]; !ok {
			return apperrors.WithMetadata(apperrors.CodeSheetInvalidFormat,
				fmt.Sprintf("merits_and_flaws is missing %q", key),
				map[string]string{"Section": key})
		}
	}

	var stateKeys map[string]json.RawMessage
	if err := json.Unmarshal(sections["state"], &stateKeys); err != nil {
		return apperrors.Wrap(apperrors.CodeSheetInvalidFormat,
			"state section is malformed", err)
	}
	for _, key := range []string{"blood", "willpower", "morality", "health", "status"} {
		if _, ok := stateKeys[key]; !ok {
			return apperrors.WithMetadata(apperrors.CodeSheetInvalidFormat,
				fmt.Sprintf("state is missing %q", key),
				map[string]string{"Section": key})
		}
	}

	var alias characterAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return apperrors.Wrap(apperrors.CodeSheetInvalidFormat,
			"character sheet does not match the schema", err)
	}
	*c = Character(alias)
	return nil
}
