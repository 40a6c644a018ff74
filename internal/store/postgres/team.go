package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/league-auction/internal/store"
)

// TeamRepo implements store.TeamRepository with sqlx.
type TeamRepo struct {
	db *sqlx.DB
}

// NewTeamRepo returns a new TeamRepo.
func NewTeamRepo(db *sqlx.DB) *TeamRepo {
	return &TeamRepo{db: db}
}

func (r *TeamRepo) Get(ctx context.Context, name string) (*store.Team, error) {
	var t store.Team
	if err := r.db.GetContext(ctx, &t, `SELECT name, budget FROM teams WHERE name = $1`, name); err != nil {
		return nil, wrap(fmt.Sprintf("getting team %q", name), err)
	}
	return &t, nil
}

func (r *TeamRepo) List(ctx context.Context) ([]store.Team, error) {
	var teams []store.Team
	if err := r.db.SelectContext(ctx, &teams, `SELECT name, budget FROM teams ORDER BY name`); err != nil {
		return nil, wrap("listing teams", err)
	}
	return teams, nil
}

func (r *TeamRepo) Insert(ctx context.Context, teams ...store.Team) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range teams {
		if _, err := tx.ExecContext(ctx, `INSERT INTO teams (name, budget) VALUES ($1, $2)`, t.Name, t.Budget); err != nil {
			return wrap(fmt.Sprintf("inserting team %q", t.Name), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrap("committing teams", err)
	}
	return nil
}

func (r *TeamRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT count(*) FROM teams`); err != nil {
		return 0, wrap("counting teams", err)
	}
	return n, nil
}

func (r *TeamRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM teams`); err != nil {
		return wrap("deleting teams", err)
	}
	return nil
}

// UserRepo implements store.UserRepository with sqlx.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo returns a new UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Get(ctx context.Context, username string) (*store.User, error) {
	var u store.User
	err := r.db.GetContext(ctx, &u, `SELECT username, password, role FROM users WHERE username = $1`, username)
	if err != nil {
		return nil, wrap(fmt.Sprintf("getting user %q", username), err)
	}
	return &u, nil
}

func (r *UserRepo) Insert(ctx context.Context, users ...store.User) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range users {
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO users (username, password, role) VALUES (:username, :password, :role)`, u)
		if err != nil {
			return wrap(fmt.Sprintf("inserting user %q", u.Username), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrap("committing users", err)
	}
	return nil
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT count(*) FROM users`); err != nil {
		return 0, wrap("counting users", err)
	}
	return n, nil
}

func (r *UserRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return wrap("deleting users", err)
	}
	return nil
}
