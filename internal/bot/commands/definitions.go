package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/jensholdgaard/league-auction/internal/store"
)

func playerOption(desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         optPlayer,
		Description:  desc,
		Required:     true,
		Autocomplete: true,
	}
}

func teamOption(desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         optTeam,
		Description:  desc,
		Required:     true,
		Autocomplete: true,
	}
}

func tierOption(required bool) *discordgo.ApplicationCommandOption {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(store.Tiers))
	for _, t := range store.Tiers {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: string(t), Value: string(t)})
	}
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        optTier,
		Description: "Draw tier",
		Required:    required,
		Choices:     choices,
	}
}

func categoryOption() *discordgo.ApplicationCommandOption {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(Categories))
	for _, c := range Categories {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: c, Value: c})
	}
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        optCategory,
		Description: "Skill category (default: All)",
		Choices:     choices,
	}
}

// SlashCommands returns the slash command definitions.
func SlashCommands() []*discordgo.ApplicationCommand {
	minPrice := float64(1)
	return []*discordgo.ApplicationCommand{
		{
			Name:        cmdLogin,
			Description: "Log in to run the auction",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: optUsername, Description: "Username", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: optPassword, Description: "Password", Required: true},
			},
		},
		{Name: cmdLogout, Description: "Log out"},
		{Name: cmdWhoami, Description: "Show who you are logged in as"},
		{
			Name:        cmdNext,
			Description: "Draw the next player to auction",
			Options:     []*discordgo.ApplicationCommandOption{tierOption(false), categoryOption()},
		},
		{
			Name:        cmdLot,
			Description: "Put a specific unsold player up for auction",
			Options:     []*discordgo.ApplicationCommandOption{playerOption("Player to auction")},
		},
		{
			Name:        cmdAssign,
			Description: "Sell a player to a team (auctioneer or admin)",
			Options: []*discordgo.ApplicationCommandOption{
				playerOption("Player sold"),
				teamOption("Buying team"),
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        optPrice,
					Description: "Winning bid",
					Required:    true,
					MinValue:    &minPrice,
				},
			},
		},
		{
			Name:        cmdUndo,
			Description: "Revert a sale (auctioneer or admin)",
			Options:     []*discordgo.ApplicationCommandOption{playerOption("Player to return to the pool")},
		},
		{
			Name:        cmdTier,
			Description: "Move a player to another draw tier (admin only)",
			Options:     []*discordgo.ApplicationCommandOption{playerOption("Player to move"), tierOption(true)},
		},
		{Name: cmdTeams, Description: "Show every team's spend and remaining budget"},
		{
			Name:        cmdRoster,
			Description: "List the players a team has bought",
			Options:     []*discordgo.ApplicationCommandOption{teamOption("Team")},
		},
		{
			Name:        cmdUnsold,
			Description: "List unsold players",
			Options:     []*discordgo.ApplicationCommandOption{categoryOption()},
		},
		{Name: cmdSold, Description: "List sold players"},
		{Name: cmdPoints, Description: "Show how player valuations are calculated"},
		{
			Name:        cmdHistory,
			Description: "Show the audit trail of a player",
			Options:     []*discordgo.ApplicationCommandOption{playerOption("Player")},
		},
		{Name: cmdReset, Description: "Reload players, teams and users from the dataset (admin only)"},
		{Name: cmdExport, Description: "Download the player ledger as CSV"},
	}
}
