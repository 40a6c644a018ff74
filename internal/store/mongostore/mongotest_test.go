package mongostore_test

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/config"
	"github.com/jensholdgaard/league-auction/internal/store"
	"github.com/jensholdgaard/league-auction/internal/store/mongostore"
)

var testClk = clock.Mock{T: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

// newTestDB starts a MongoDB container and returns a migrated database plus
// the repositories over it. The container is terminated when the test ends.
func newTestDB(t *testing.T) (*mongo.Database, *store.Repositories) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	ctr, err := tcmongo.Run(ctx, "mongo:7")
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting mongo container: %v", err)
	}

	uri, err := ctr.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	cfg := config.DatabaseConfig{
		Driver:         "mongo",
		MongoURI:       uri,
		DBName:         "auction_test",
		ConnectTimeout: 10 * time.Second,
	}
	client, err := mongostore.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database(cfg.DBName)
	repos := mongostore.New(db, testClk)
	if err := repos.Migrate(ctx); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return db, repos
}
