package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jensholdgaard/league-auction/internal/scoring"
)

// legacyBudget is the purse of teams stored before budgets were recorded.
const legacyBudget = 20000

type migration struct {
	version int
	name    string
	up      func(ctx context.Context, db *mongo.Database) error
}

var migrations = []migration{
	{version: 1, name: "indexes", up: createIndexes},
	{version: 2, name: "backfill tiers and budgets", up: backfill},
	{version: 3, name: "rescore players", up: rescore},
}

// LatestVersion is the schema version Migrate converges on.
func LatestVersion() int { return migrations[len(migrations)-1].version }

// Migrate applies every migration newer than the recorded schema version.
// Each step is idempotent, so a crash between a step and its version bump
// is safe to rerun.
func Migrate(ctx context.Context, db *mongo.Database) error {
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := m.up(ctx, db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		_, err := db.Collection(schemaCollection).UpdateOne(ctx,
			bson.M{"_id": "version"},
			bson.M{"$set": bson.M{"version": m.version}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return wrap("recording schema version", err)
		}
		slog.InfoContext(ctx, "applied mongo migration",
			slog.Int("version", m.version),
			slog.String("name", m.name),
		)
	}
	return nil
}

// SchemaVersion returns the recorded schema version, or zero for a fresh
// database.
func SchemaVersion(ctx context.Context, db *mongo.Database) (int, error) {
	var doc struct {
		Version int `bson:"version"`
	}
	err := db.Collection(schemaCollection).FindOne(ctx, bson.M{"_id": "version"}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, wrap("reading schema version", err)
	}
	return doc.Version, nil
}

func createIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	specs := map[string][]mongo.IndexModel{
		playersCollection: {
			{Keys: bson.D{{Key: fieldName, Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: fieldOwner, Value: 1}, {Key: fieldTier, Value: 1}}},
		},
		teamsCollection: {
			{Keys: bson.D{{Key: "team_name", Value: 1}}, Options: unique},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		},
		eventsCollection: {
			{Keys: bson.D{{Key: "event_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "aggregate_id", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "_id", Value: 1}}},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return wrap(fmt.Sprintf("creating %s indexes", coll), err)
		}
	}
	return nil
}

// backfill gives every player a draw tier and every team a budget.
func backfill(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(playersCollection).UpdateMany(ctx,
		bson.M{fieldTier: bson.M{"$exists": false}},
		bson.M{"$set": bson.M{fieldTier: "regular"}},
	)
	if err != nil {
		return wrap("backfilling player tiers", err)
	}
	_, err = db.Collection(teamsCollection).UpdateMany(ctx,
		bson.M{"budget": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"budget": legacyBudget}},
	)
	if err != nil {
		return wrap("backfilling team budgets", err)
	}
	return nil
}

// rescore rewrites points as the rounded score and skills in their canonical
// spelling, replacing the raw sums stored by earlier loaders.
func rescore(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(playersCollection)
	cur, err := coll.Find(ctx, bson.M{})
	if err != nil {
		return wrap("listing players", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var d playerDoc
		if err := cur.Decode(&d); err != nil {
			return wrap("decoding player", err)
		}
		p := d.player()
		p.Skill = scoring.NormalizeSkill(p.Skill)
		points := scoring.Score(p.Attributes())
		if d.Points == points && string(d.Skill) == p.Skill {
			continue
		}
		_, err := coll.UpdateOne(ctx,
			bson.M{fieldName: p.Name},
			bson.M{"$set": bson.M{fieldPoints: points, fieldSkill: p.Skill}},
		)
		if err != nil {
			return wrap(fmt.Sprintf("rescoring %q", p.Name), err)
		}
	}
	if err := cur.Err(); err != nil {
		return wrap("iterating players", err)
	}
	return nil
}
