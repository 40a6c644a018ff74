// Package leader provides Kubernetes Lease-based leader election so that
// only one replica writes to the ledger. Standby replicas keep serving
// probes and exports but do not connect the bot.
package leader

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/jensholdgaard/league-auction/internal/config"
)

// Callbacks are invoked as leadership changes hands.
type Callbacks struct {
	// OnStartedLeading runs when this replica becomes the writer. It should
	// block until ctx is done.
	OnStartedLeading func(ctx context.Context)
	// OnStoppedLeading runs when leadership is lost or released.
	OnStoppedLeading func()
	// OnNewLeader runs when another replica takes the lease. Optional.
	OnNewLeader func(identity string)
}

// identity returns a unique identity for this instance.
// It uses the POD_NAME env var if set, otherwise the hostname.
func identity() string {
	if name := os.Getenv("POD_NAME"); name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// ClientFactory creates a Kubernetes clientset.
// Extracted as a variable for testing.
var ClientFactory = func() (kubernetes.Interface, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("building in-cluster config: %w", err)
	}
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return client, nil
}

// Run blocks until ctx is done. With election disabled this replica leads
// unconditionally; otherwise it campaigns for the configured Lease.
func Run(ctx context.Context, cfg config.LeaderElectionConfig, logger *slog.Logger, cb Callbacks) error {
	if !cfg.Enabled {
		logger.InfoContext(ctx, "leader election disabled, running as sole writer")
		cb.OnStartedLeading(ctx)
		cb.OnStoppedLeading()
		return nil
	}

	id := identity()
	logger.InfoContext(ctx, "starting leader election",
		slog.String("identity", id),
		slog.String("lease", cfg.LeaseName),
		slog.String("namespace", cfg.LeaseNamespace),
	)

	client, err := ClientFactory()
	if err != nil {
		return fmt.Errorf("leader election client: %w", err)
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      cfg.LeaseName,
			Namespace: cfg.LeaseNamespace,
		},
		Client: client.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: id,
		},
	}

	elector, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
		Lock:            lock,
		LeaseDuration:   cfg.LeaseDuration,
		RenewDeadline:   cfg.RenewDeadline,
		RetryPeriod:     cfg.RetryPeriod,
		ReleaseOnCancel: true,
		Name:            cfg.LeaseName,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(ctx context.Context) {
				logger.InfoContext(ctx, "acquired leadership", slog.String("identity", id))
				cb.OnStartedLeading(ctx)
			},
			OnStoppedLeading: func() {
				logger.Info("lost leadership", slog.String("identity", id))
				cb.OnStoppedLeading()
			},
			OnNewLeader: func(newID string) {
				if newID == id {
					return
				}
				logger.Info("new leader elected", slog.String("leader", newID))
				if cb.OnNewLeader != nil {
					cb.OnNewLeader(newID)
				}
			},
		},
	})
	if err != nil {
		return fmt.Errorf("configuring leader election: %w", err)
	}

	// Re-campaign after a lost lease until the process shuts down.
	for ctx.Err() == nil {
		elector.Run(ctx)
	}
	return nil
}
