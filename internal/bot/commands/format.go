package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jensholdgaard/league-auction/internal/event"
	"github.com/jensholdgaard/league-auction/internal/ledger"
	"github.com/jensholdgaard/league-auction/internal/scoring"
	"github.com/jensholdgaard/league-auction/internal/store"
)

// maxMessageLen is Discord's limit on message content.
const maxMessageLen = 2000

func formatLot(p *store.Player) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Up for auction: %s** (Flat %s)\n", p.Name, p.FlatNo)
	fmt.Fprintf(&b, "Skill: %s | Position: %s\n", orDash(p.Skill), orDash(p.Position))
	fmt.Fprintf(&b, "Batting: %s | Bowling: %s (%s) | Keeper: %s\n",
		orDash(p.BattingLevel), orDash(p.BowlingLevel), orDash(p.BowlingStyle), orDash(p.Wicketkeeper))
	fmt.Fprintf(&b, "Tier: %s | Base price: **%d**", p.Tier, p.Points)
	return b.String()
}

func formatSummaries(summaries []ledger.Summary) string {
	lines := make([]string, 0, len(summaries))
	for _, s := range summaries {
		lines = append(lines, fmt.Sprintf("**%s**: %d players, spent %d of %d, **%d** remaining",
			s.Team, s.Players, s.Spent, s.Budget, s.Remaining))
	}
	return clip("**Teams:**", lines)
}

func formatRoster(s ledger.Summary, players []store.Player) string {
	header := fmt.Sprintf("**%s** (%d players, %d remaining):", s.Team, s.Players, s.Remaining)
	if len(players) == 0 {
		return header + "\nNo players bought yet."
	}
	lines := make([]string, 0, len(players))
	for _, p := range players {
		lines = append(lines, fmt.Sprintf("%s (%s) for %d", p.Name, orDash(p.Skill), p.Price))
	}
	return clip(header, lines)
}

func formatPlayers(header string, players []store.Player, withOwner bool) string {
	lines := make([]string, 0, len(players))
	for _, p := range players {
		if withOwner {
			lines = append(lines, fmt.Sprintf("%s (%s) to %s for %d", p.Name, orDash(p.Skill), p.Owner, p.Price))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s (%s, %s) %d pts", p.Name, orDash(p.Skill), p.Tier, p.Points))
	}
	return clip(header, lines)
}

func formatHistory(name string, events []event.Event) string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("%s %s by %s%s",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Type, e.Actor, eventDetail(e)))
	}
	return clip(fmt.Sprintf("**History of %s:**", name), lines)
}

func eventDetail(e event.Event) string {
	switch e.Type {
	case event.PlayerAssigned:
		var d event.AssignedData
		if json.Unmarshal(e.Data, &d) == nil {
			return fmt.Sprintf(": %s for %d", d.Team, d.Price)
		}
	case event.PlayerUnassigned:
		var d event.UnassignedData
		if json.Unmarshal(e.Data, &d) == nil {
			return fmt.Sprintf(": from %s (was %d)", d.Team, d.Price)
		}
	case event.PlayerTierChanged:
		var d event.TierChangedData
		if json.Unmarshal(e.Data, &d) == nil {
			return fmt.Sprintf(": %s to %s", d.From, d.To)
		}
	}
	return ""
}

func formatPointsTable() string {
	var b strings.Builder
	b.WriteString("**Player valuation** (sum rounded to the nearest 100):\n")
	for _, t := range []struct {
		name   string
		points map[string]int
	}{
		{"Position", scoring.PositionPoints},
		{"Skill", scoring.SkillPoints},
		{"Batting", scoring.BattingPoints},
		{"Bowling", scoring.BowlingPoints},
		{"Bowling style", scoring.StylePoints},
		{"Wicket keeper", scoring.KeeperPoints},
	} {
		fmt.Fprintf(&b, "%s: %s\n", t.name, pointsList(t.points))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func pointsList(points map[string]int) string {
	keys := make([]string, 0, len(points))
	for k := range points {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if points[keys[i]] != points[keys[j]] {
			return points[keys[i]] > points[keys[j]]
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %d", k, points[k])
	}
	return strings.Join(parts, ", ")
}

// clip joins header and lines, dropping trailing lines that would push the
// message past Discord's limit.
func clip(header string, lines []string) string {
	var b strings.Builder
	b.WriteString(header)
	for i, line := range lines {
		more := fmt.Sprintf("\n…and %d more", len(lines)-i)
		if b.Len()+1+len(line)+len(more) > maxMessageLen && i < len(lines)-1 ||
			b.Len()+1+len(line) > maxMessageLen {
			b.WriteString(more)
			break
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
