// Package bootstrap loads the players, teams and users datasets and seeds
// or resets the ledger from them.
package bootstrap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jensholdgaard/league-auction/internal/scoring"
	"github.com/jensholdgaard/league-auction/internal/store"
)

// Dataset file names inside the data directory.
const (
	PlayersFile = "players.csv"
	TeamsFile   = "teams.csv"
	UsersFile   = "users.csv"
)

// Dataset is the bootstrap state of the ledger.
type Dataset struct {
	Players []store.Player
	Teams   []store.Team
	Users   []store.User
}

type playerRow struct {
	Name         string `validate:"required"`
	FlatNo       string
	Skill        string
	Position     string
	BattingLevel string
	BowlingLevel string
	BowlingStyle string
	Wicketkeeper string
	Tier         string `validate:"omitempty,oneof=prime regular end"`
}

type teamRow struct {
	Name   string `validate:"required"`
	Budget int    `validate:"gt=0"`
}

type userRow struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
	Role     string `validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadDir reads the three datasets from dir. Teams without a budget column
// get defaultBudget.
func LoadDir(dir string, defaultBudget int) (*Dataset, error) {
	var ds Dataset
	var err error

	if ds.Players, err = readFile(filepath.Join(dir, PlayersFile), ReadPlayers); err != nil {
		return nil, err
	}
	if ds.Teams, err = readFile(filepath.Join(dir, TeamsFile), func(r io.Reader) ([]store.Team, error) {
		return ReadTeams(r, defaultBudget)
	}); err != nil {
		return nil, err
	}
	if ds.Users, err = readFile(filepath.Join(dir, UsersFile), ReadUsers); err != nil {
		return nil, err
	}
	return &ds, nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	out, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

// ReadPlayers parses the players dataset. Auction columns are not expected;
// every player starts unsold with its computed score. An optional
// auction_status column carries the draw tier.
func ReadPlayers(r io.Reader) ([]store.Player, error) {
	records, err := readRecords(r, "name")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(records))
	players := make([]store.Player, 0, len(records))
	for i, rec := range records {
		row := playerRow{
			Name:         rec.get("name"),
			FlatNo:       rec.get("flat no"),
			Skill:        scoring.NormalizeSkill(rec.get("skill")),
			Position:     rec.get("preferred playing position"),
			BattingLevel: rec.get("batting skill level"),
			BowlingLevel: rec.get("bowler skill level"),
			BowlingStyle: rec.get("bowler type"),
			Wicketkeeper: rec.get("wicket keeper"),
			Tier:         strings.ToLower(rec.get("auction_status")),
		}
		if err := validate.Struct(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if _, dup := seen[row.Name]; dup {
			return nil, fmt.Errorf("row %d: duplicate player %q", i+2, row.Name)
		}
		seen[row.Name] = struct{}{}

		tier := store.Tier(row.Tier)
		if tier == "" {
			tier = store.TierRegular
		}
		p := store.Player{
			Name:         row.Name,
			FlatNo:       row.FlatNo,
			Skill:        row.Skill,
			Position:     row.Position,
			BattingLevel: row.BattingLevel,
			BowlingLevel: row.BowlingLevel,
			BowlingStyle: row.BowlingStyle,
			Wicketkeeper: row.Wicketkeeper,
			Tier:         tier,
			AuctionState: store.Unsold(),
		}
		p.Points = scoring.Score(p.Attributes())
		players = append(players, p)
	}
	return players, nil
}

// ReadTeams parses the teams dataset. The budget column is optional.
func ReadTeams(r io.Reader, defaultBudget int) ([]store.Team, error) {
	records, err := readRecords(r, "team_name")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(records))
	teams := make([]store.Team, 0, len(records))
	for i, rec := range records {
		row := teamRow{Name: rec.get("team_name"), Budget: defaultBudget}
		if raw := rec.get("budget"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d: budget %q: %w", i+2, raw, err)
			}
			row.Budget = n
		}
		if err := validate.Struct(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if _, dup := seen[row.Name]; dup {
			return nil, fmt.Errorf("row %d: duplicate team %q", i+2, row.Name)
		}
		seen[row.Name] = struct{}{}
		teams = append(teams, store.Team{Name: row.Name, Budget: row.Budget})
	}
	return teams, nil
}

// ReadUsers parses the users dataset.
func ReadUsers(r io.Reader) ([]store.User, error) {
	records, err := readRecords(r, "username")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(records))
	users := make([]store.User, 0, len(records))
	for i, rec := range records {
		row := userRow{
			Username: rec.get("username"),
			Password: rec.get("password"),
			Role:     strings.ToLower(rec.get("role")),
		}
		if err := validate.Struct(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if _, dup := seen[row.Username]; dup {
			return nil, fmt.Errorf("row %d: duplicate user %q", i+2, row.Username)
		}
		seen[row.Username] = struct{}{}
		users = append(users, store.User(row))
	}
	return users, nil
}

type record struct {
	index  map[string]int
	fields []string
}

func (r record) get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// readRecords reads a headed CSV. Header names are matched case-insensitively.
func readRecords(r io.Reader, required string) ([]record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty dataset")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		index[h] = i
	}
	if _, ok := index[required]; !ok {
		return nil, fmt.Errorf("missing %q column", required)
	}

	var out []record
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if blank(fields) {
			continue
		}
		out = append(out, record{index: index, fields: fields})
	}
	return out, nil
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
