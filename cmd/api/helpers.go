package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lebroads/pothole-map/internal/awsutil"
	"github.com/lebroads/pothole-map/internal/boundary"
	"github.com/lebroads/pothole-map/internal/cache"
	"github.com/lebroads/pothole-map/internal/config"
	"github.com/lebroads/pothole-map/internal/models"
)

func getContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// newBoundarySource only builds an S3 client when the source needs one
func newBoundarySource(ctx context.Context, cfg *config.Config) (boundary.Source, error) {
	location := cfg.Boundary.Source
	if !strings.HasPrefix(location, "s3://") {
		return boundary.ParseSource(location, nil)
	}

	awsCfg, err := awsutil.Load(ctx, cfg.AWS.Region, cfg.AWS.Endpoint)
	if err != nil {
		return nil, err
	}
	return boundary.ParseSource(location, awsutil.NewS3Client(awsCfg, cfg.AWS.Endpoint))
}

type reportLister interface {
	List(ctx context.Context) ([]models.Report, error)
}

type settledBoundary interface {
	Settled() <-chan struct{}
	State() boundary.State
}

// reloadReports refreshes the cache from the store. It does nothing until
// the boundary is ready, since the cache filters by it. On failure the
// cache keeps what it had.
func reloadReports(ctx context.Context, b settledBoundary, reports reportLister, c *cache.Cache) {
	select {
	case <-b.Settled():
	default:
		slog.Info("Skipping report reload, boundary not loaded yet")
		return
	}
	if b.State() != boundary.StateReady {
		slog.Warn("Skipping report reload, boundary unavailable")
		return
	}

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	since := c.Version()
	records, err := reports.List(loadCtx)
	if err != nil {
		slog.Error("Failed to load reports", "error", err)
		return
	}
	c.Reload(records, since)
}
