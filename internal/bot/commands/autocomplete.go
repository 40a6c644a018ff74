package commands

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/sahilm/fuzzy"

	"github.com/jensholdgaard/league-auction/internal/store"
)

// maxChoices is the most autocomplete choices Discord accepts.
const maxChoices = 25

type names []string

func (n names) String(i int) string { return n[i] }
func (n names) Len() int            { return len(n) }

// Autocomplete suggests player or team names for the focused option.
func (h *Handlers) Autocomplete(ctx context.Context, data discordgo.ApplicationCommandInteractionData) []*discordgo.ApplicationCommandOptionChoice {
	var focused *discordgo.ApplicationCommandInteractionDataOption
	for _, opt := range data.Options {
		if opt.Focused {
			focused = opt
			break
		}
	}
	if focused == nil || focused.Type != discordgo.ApplicationCommandOptionString {
		return nil
	}

	candidates, err := h.candidates(ctx, data.Name, focused.Name)
	if err != nil {
		h.logger.WarnContext(ctx, "autocomplete lookup failed",
			slog.String("command", data.Name),
			slog.Any("error", err),
		)
		return nil
	}
	return rank(candidates, focused.StringValue())
}

func (h *Handlers) candidates(ctx context.Context, command, option string) (names, error) {
	switch option {
	case optTeam:
		teams, err := h.Ledger.Teams(ctx)
		if err != nil {
			return nil, err
		}
		out := make(names, len(teams))
		for i, t := range teams {
			out[i] = t.Name
		}
		return out, nil
	case optPlayer:
		var filter store.PlayerFilter
		switch command {
		case cmdLot, cmdAssign:
			filter.Status = store.StatusUnsold
		case cmdUndo:
			filter.Status = store.StatusSold
		}
		players, err := h.Ledger.Players(ctx, filter)
		if err != nil {
			return nil, err
		}
		out := make(names, len(players))
		for i, p := range players {
			out[i] = p.Name
		}
		return out, nil
	}
	return nil, nil
}

// rank orders candidates by fuzzy match against input. An empty input keeps
// the candidates in their stored order.
func rank(candidates names, input string) []*discordgo.ApplicationCommandOptionChoice {
	var picked []string
	if input == "" {
		picked = candidates
	} else {
		for _, m := range fuzzy.FindFrom(input, candidates) {
			picked = append(picked, m.Str)
		}
	}
	if len(picked) > maxChoices {
		picked = picked[:maxChoices]
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(picked))
	for i, name := range picked {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: name, Value: name}
	}
	return choices
}
