package vampire

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Sheet glyphs.
const (
	dotFilled = "•"
	dotEmpty  = "◦"
	skull     = "🕱"
)

var titleCaser = cases.Title(language.English)

// Sheet renders the player's character sheet as text.
func (s *Session) Sheet(playerID string) (string, error) {
	char, err := s.character(playerID)
	if err != nil {
		return "", err
	}
	return renderSheet(char), nil
}

func renderSheet(char *Character) string {
	var b strings.Builder

	sect := char.Header.Sect
	if sect == "" {
		sect = "unaligned"
	}
	title := char.Header.Title
	if title == "" {
		title = "none"
	}

	b.WriteString("== Character ==\n")
	fmt.Fprintf(&b, "Name: %s\n", char.Header.Character)
	fmt.Fprintf(&b, "Player: %s\n", char.Header.Player)
	fmt.Fprintf(&b, "Archetype: %s\n", titleCaser.String(char.Header.Archetype))
	fmt.Fprintf(&b, "Clan: %s\n", titleCaser.String(char.Header.Clan))
	fmt.Fprintf(&b, "Sect: %s\n", titleCaser.String(sect))
	fmt.Fprintf(&b, "Title: %s\n", titleCaser.String(title))
	fmt.Fprintf(&b, "XP: %d unspent, %d total\n", char.Experience.Current, char.Experience.Total)

	b.WriteString("\n== Attributes ==\n")
	for _, attr := range []struct {
		name  string
		value Attribute
	}{
		{"Physical", char.Attributes.Physical},
		{"Mental", char.Attributes.Mental},
		{"Social", char.Attributes.Social},
	} {
		fmt.Fprintf(&b, "%s: %s\n", attr.name, renderAttribute(attr.value))
		if len(attr.value.Focuses) > 0 {
			focuses := make([]string, 0, len(attr.value.Focuses))
			for _, focus := range attr.value.Focuses {
				focuses = append(focuses, titleCaser.String(focus))
			}
			fmt.Fprintf(&b, "  Focuses: %s\n", strings.Join(focuses, " "))
		}
	}

	renderTraitSection(&b, "Skills", char.Skills)
	renderTraitSection(&b, "Backgrounds", char.Backgrounds)
	renderTraitSection(&b, "Disciplines", char.Disciplines)

	b.WriteString("\n== Merits and Flaws ==\n")
	for _, merit := range sortedKeys(char.MeritsAndFlaws.Merits) {
		fmt.Fprintf(&b, "%s (%d)\n", titleCaser.String(merit), char.MeritsAndFlaws.Merits[merit])
	}
	for _, flaw := range sortedKeys(char.MeritsAndFlaws.Flaws) {
		fmt.Fprintf(&b, "%s (-%d)\n", titleCaser.String(flaw), char.MeritsAndFlaws.Flaws[flaw])
	}
	derangements := append([]string{}, char.MeritsAndFlaws.Derangements...)
	sort.Slice(derangements, func(i, j int) bool {
		return strings.ToLower(derangements[i]) < strings.ToLower(derangements[j])
	})
	for _, derangement := range derangements {
		fmt.Fprintf(&b, "%s\n", titleCaser.String(derangement))
	}

	b.WriteString("\n== State ==\n")
	fmt.Fprintf(&b, "Blood (%d/round): %s\n", char.State.Blood.Rate,
		renderPool(char.State.Blood.Current, char.State.Blood.Max))
	fmt.Fprintf(&b, "Willpower: %s\n",
		renderPool(char.State.Willpower.Current, char.State.Willpower.Max))
	fmt.Fprintf(&b, "Morality: %s\n",
		renderPool(char.State.Morality.Current, char.State.Morality.Max))
	if char.State.Morality.BeastTraits > 0 {
		fmt.Fprintf(&b, "Beast traits: %d\n", char.State.Morality.BeastTraits)
	}
	fmt.Fprintf(&b, "Health (%s):\n%s", char.HealthLevel(), renderHealth(char.State.Health))

	return b.String()
}

// renderAttribute draws ten base dots, split for readability, then the
// bonus dots above ten.
func renderAttribute(attr Attribute) string {
	base := attr.Value
	if base > 10 {
		base = 10
	}
	var dots string
	for pos := 0; pos < 10; pos++ {
		if pos == 5 {
			dots += " "
		}
		if pos < base {
			dots += dotFilled
		} else {
			dots += dotEmpty
		}
	}

	bonus := attr.Value - 10
	if bonus < 0 {
		bonus = 0
	}
	return dots + "  Bonus: " +
		strings.Repeat(dotFilled, bonus) + strings.Repeat(dotEmpty, 5-bonus)
}

func renderTraitSection(b *strings.Builder, section string, entries map[string]int) {
	fmt.Fprintf(b, "\n== %s ==\n", section)
	for _, name := range sortedKeys(entries) {
		fmt.Fprintf(b, "%s\n", renderDotted(name, entries[name]))
	}
}

// renderDotted draws up to five rating dots plus any points beyond five.
func renderDotted(name string, value int) string {
	base := value
	if base > 5 {
		base = 5
	}
	rating := strings.Repeat(dotFilled, base) + strings.Repeat(dotEmpty, 5-base)
	if extra := value - 5; extra > 0 {
		rating += " " + strings.Repeat(dotFilled, extra)
	}
	return fmt.Sprintf("%s: %s", titleCaser.String(name), rating)
}

// renderPool draws a resource pool, spaced every five and wrapped every
// fifteen.
func renderPool(current, max int) string {
	var b strings.Builder
	for pos := 0; pos < max; pos++ {
		if pos%15 == 0 && pos > 0 {
			b.WriteString("\n")
		} else if pos%5 == 0 && pos > 0 {
			b.WriteString(" ")
		}
		if pos < current {
			b.WriteString(dotFilled)
		} else {
			b.WriteString(dotEmpty)
		}
	}
	return b.String()
}

// renderHealth overlays the damage track onto the wound boxes, normal
// damage as an empty dot and aggravated as a skull.
func renderHealth(health Health) string {
	var b strings.Builder
	damageApplied := 0

	for _, level := range []struct {
		name  string
		count int
	}{
		{"Healthy", health.Levels.Healthy},
		{"Injured", health.Levels.Injured},
		{"Incapacitated", health.Levels.Incapacitated},
	} {
		fmt.Fprintf(&b, "%s: ", level.name)
		for pos := 0; pos < level.count; pos++ {
			if damageApplied < len(health.Damage) {
				if health.Damage[damageApplied] == DamageNormal {
					b.WriteString(dotEmpty)
				} else {
					b.WriteString(skull)
				}
				damageApplied++
			} else {
				b.WriteString(dotFilled)
			}
		}
		b.WriteString("\n")
	}

	if damageApplied < len(health.Damage) {
		b.WriteString("Excess: ")
		for _, damageType := range health.Damage[damageApplied:] {
			if damageType == DamageNormal {
				b.WriteString(dotEmpty)
			} else {
				b.WriteString(skull)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func sortedKeys(entries map[string]int) []string {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})
	return keys
}
