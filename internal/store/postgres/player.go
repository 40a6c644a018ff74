package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/scoring"
	"github.com/jensholdgaard/league-auction/internal/store"
)

const playerColumns = `name, flat_no, skill, position, batting_level, bowling_level,
	bowling_style, wicketkeeper, points, tier, status, owner, auction_price, updated_at`

// PlayerRepo implements store.PlayerRepository with sqlx.
type PlayerRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewPlayerRepo returns a new PlayerRepo.
func NewPlayerRepo(db *sqlx.DB, clk clock.Clock) *PlayerRepo {
	return &PlayerRepo{db: db, clock: clk}
}

func (r *PlayerRepo) Get(ctx context.Context, name string) (*store.Player, error) {
	var p store.Player
	err := r.db.GetContext(ctx, &p, `SELECT `+playerColumns+` FROM players WHERE name = $1`, name)
	if err != nil {
		return nil, wrap(fmt.Sprintf("getting player %q", name), err)
	}
	return &p, nil
}

func (r *PlayerRepo) List(ctx context.Context, filter store.PlayerFilter) ([]store.Player, error) {
	var (
		where []string
		args  []any
	)
	add := func(expr string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s = $%d", expr, len(args)))
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}
	if filter.Owner != "" {
		add("owner", filter.Owner)
	}
	if filter.Skill != "" {
		add(`replace(lower(btrim(skill)), '-', ' ')`, scoring.SkillKey(filter.Skill))
	}
	if filter.Tier != "" {
		add("tier", filter.Tier)
	}

	query := `SELECT ` + playerColumns + ` FROM players`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY points DESC, name ASC`

	var players []store.Player
	if err := r.db.SelectContext(ctx, &players, query, args...); err != nil {
		return nil, wrap("listing players", err)
	}
	return players, nil
}

func (r *PlayerRepo) Insert(ctx context.Context, players ...store.Player) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := r.clock.Now().UTC()
	for _, p := range players {
		p.UpdatedAt = now
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO players (`+playerColumns+`)
			 VALUES (:name, :flat_no, :skill, :position, :batting_level, :bowling_level,
			         :bowling_style, :wicketkeeper, :points, :tier, :status, :owner, :auction_price, :updated_at)`, p)
		if err != nil {
			return wrap(fmt.Sprintf("inserting player %q", p.Name), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrap("committing players", err)
	}
	return nil
}

// WritePlayer runs the status check and the update as a single UPDATE so two
// concurrent writers cannot both succeed.
func (r *PlayerRepo) WritePlayer(ctx context.Context, name string, expect store.Status, u store.PlayerUpdate) error {
	set := []string{"updated_at = $1"}
	args := []any{r.clock.Now().UTC()}
	if u.State != nil {
		args = append(args, u.State.Status, u.State.Owner, u.State.Price)
		n := len(args)
		set = append(set, fmt.Sprintf("status = $%d, owner = $%d, auction_price = $%d", n-2, n-1, n))
	}
	if u.Tier != nil {
		args = append(args, *u.Tier)
		set = append(set, fmt.Sprintf("tier = $%d", len(args)))
	}

	args = append(args, name)
	query := fmt.Sprintf(`UPDATE players SET %s WHERE name = $%d`, strings.Join(set, ", "), len(args))
	if expect != "" {
		args = append(args, expect)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap(fmt.Sprintf("writing player %q", name), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(fmt.Sprintf("writing player %q", name), err)
	}
	if n == 1 {
		return nil
	}

	// Nothing matched: the player is missing or its status moved on.
	if _, err := r.Get(ctx, name); err != nil {
		return err
	}
	return fmt.Errorf("player %q is not %s: %w", name, expect, store.ErrConflict)
}

func (r *PlayerRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT count(*) FROM players`); err != nil {
		return 0, wrap("counting players", err)
	}
	return n, nil
}

func (r *PlayerRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM players`); err != nil {
		return wrap("deleting players", err)
	}
	return nil
}
