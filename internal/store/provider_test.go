package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/config"
	"github.com/jensholdgaard/league-auction/internal/store"

	// Import drivers so their init() functions register them.
	_ "github.com/jensholdgaard/league-auction/internal/store/memory"
	_ "github.com/jensholdgaard/league-auction/internal/store/mongostore"
	_ "github.com/jensholdgaard/league-auction/internal/store/postgres"
)

// fakeDriver is a store.Driver that always succeeds without connecting to a DB.
func fakeDriver(_ context.Context, _ config.DatabaseConfig, _ clock.Clock) (*store.Repositories, error) {
	return &store.Repositories{}, nil
}

func TestOpen(t *testing.T) {
	store.Register("test-driver", fakeDriver)

	tests := []struct {
		name    string
		driver  string
		wantErr bool
	}{
		{
			name:    "registered driver succeeds",
			driver:  "test-driver",
			wantErr: false,
		},
		{
			name:    "memory driver succeeds",
			driver:  "memory",
			wantErr: false,
		},
		{
			name:    "unknown driver fails",
			driver:  "nonexistent",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DatabaseConfig{Driver: tt.driver}
			_, err := store.Open(context.Background(), cfg, clock.Real{})
			if (err != nil) != tt.wantErr {
				t.Errorf("Open(driver=%q) error = %v, wantErr %v", tt.driver, err, tt.wantErr)
			}
		})
	}
}

func TestOpen_UnknownDriverListsRegistered(t *testing.T) {
	_, err := store.Open(context.Background(), config.DatabaseConfig{Driver: "nope"}, clock.Real{})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{"memory", "mongo", "sqlx"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not list driver %q", err, name)
		}
	}
}

func TestRegister(t *testing.T) {
	// The network drivers are registered via init() imports. Nothing listens
	// on the port below, so Open must fail with an outage rather than an
	// unknown-driver error.
	for _, driver := range []string{"sqlx", "mongo"} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.DatabaseConfig{
				Driver:         driver,
				Host:           "127.0.0.1",
				Port:           1,
				DBName:         "auction",
				SSLMode:        "disable",
				ConnectTimeout: 500 * time.Millisecond,
			}
			_, err := store.Open(context.Background(), cfg, clock.Real{})
			if err == nil {
				t.Fatal("expected error (no DB running), got nil")
			}
			if strings.Contains(err.Error(), "unknown store driver") {
				t.Errorf("expected connection error, got unknown driver error: %v", err)
			}
			if !errors.Is(err, store.ErrStorageUnavailable) {
				t.Errorf("expected ErrStorageUnavailable, got %v", err)
			}
		})
	}
}
