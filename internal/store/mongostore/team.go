package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jensholdgaard/league-auction/internal/store"
)

type teamDoc struct {
	Name   text `bson:"team_name"`
	Budget int  `bson:"budget"`
}

// TeamRepo implements store.TeamRepository over a MongoDB collection.
type TeamRepo struct {
	coll *mongo.Collection
}

// NewTeamRepo returns a new TeamRepo.
func NewTeamRepo(db *mongo.Database) *TeamRepo {
	return &TeamRepo{coll: db.Collection(teamsCollection)}
}

func (r *TeamRepo) Get(ctx context.Context, name string) (*store.Team, error) {
	var d teamDoc
	if err := r.coll.FindOne(ctx, bson.M{"team_name": name}).Decode(&d); err != nil {
		return nil, wrap(fmt.Sprintf("getting team %q", name), err)
	}
	return &store.Team{Name: string(d.Name), Budget: d.Budget}, nil
}

func (r *TeamRepo) List(ctx context.Context) ([]store.Team, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "team_name", Value: 1}}))
	if err != nil {
		return nil, wrap("listing teams", err)
	}
	var docs []teamDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap("decoding teams", err)
	}
	teams := make([]store.Team, 0, len(docs))
	for _, d := range docs {
		teams = append(teams, store.Team{Name: string(d.Name), Budget: d.Budget})
	}
	return teams, nil
}

func (r *TeamRepo) Insert(ctx context.Context, teams ...store.Team) error {
	if len(teams) == 0 {
		return nil
	}
	docs := make([]any, 0, len(teams))
	for _, t := range teams {
		docs = append(docs, teamDoc{Name: text(t.Name), Budget: t.Budget})
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return wrap("inserting teams", err)
	}
	return nil
}

func (r *TeamRepo) Count(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, wrap("counting teams", err)
	}
	return int(n), nil
}

func (r *TeamRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return wrap("deleting teams", err)
	}
	return nil
}

type userDoc struct {
	Username text `bson:"username"`
	Password text `bson:"password"`
	Role     text `bson:"role"`
}

// UserRepo implements store.UserRepository over a MongoDB collection.
type UserRepo struct {
	coll *mongo.Collection
}

// NewUserRepo returns a new UserRepo.
func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{coll: db.Collection(usersCollection)}
}

func (r *UserRepo) Get(ctx context.Context, username string) (*store.User, error) {
	var d userDoc
	if err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&d); err != nil {
		return nil, wrap(fmt.Sprintf("getting user %q", username), err)
	}
	return &store.User{Username: string(d.Username), Password: string(d.Password), Role: string(d.Role)}, nil
}

func (r *UserRepo) Insert(ctx context.Context, users ...store.User) error {
	if len(users) == 0 {
		return nil
	}
	docs := make([]any, 0, len(users))
	for _, u := range users {
		docs = append(docs, userDoc{Username: text(u.Username), Password: text(u.Password), Role: text(u.Role)})
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return wrap("inserting users", err)
	}
	return nil
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, wrap("counting users", err)
	}
	return int(n), nil
}

func (r *UserRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return wrap("deleting users", err)
	}
	return nil
}
