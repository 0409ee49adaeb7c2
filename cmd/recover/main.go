// Command recover periodically restores the catalog from the latest manifest
// into a scratch store and reports recovery metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"gearsel/internal/config"
	"gearsel/internal/manifest"
	"gearsel/internal/metrics"
	"gearsel/internal/observability"
	"gearsel/internal/restore"
	"gearsel/internal/snapshot"
	"gearsel/internal/state"
)

func main() {
	var (
		configPath      string
		changelogSource string
		poll            time.Duration
		once            bool
	)
	flag.StringVar(&configPath, "config", "", "path to YAML config")
	flag.StringVar(&changelogSource, "changelog-source", "file", "file|kafka")
	flag.DurationVar(&poll, "poll", 10*time.Second, "manifest poll interval")
	flag.BoolVar(&once, "once", false, "run a single recovery cycle")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	cfg.Log.ServiceName = "gearsel-recover"
	log := observability.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mreg := metrics.NewRegistry()
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mreg.Handler()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server")
		}
	}()
	defer srv.Close()

	var mReader manifest.Reader = manifest.NewFilesystemManifest(cfg.Snapshot.Dir)
	if cfg.Manifest.Source == "kafka" {
		mReader = manifest.NewKafkaReader(manifest.Brokers(cfg.Kafka.Bootstrap), cfg.Manifest.Topic, cfg.Manifest.Key)
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		cycle(ctx, cfg, changelogSource, mReader, mreg, log)
		if once {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// cycle restores into a fresh in-memory store.
func cycle(ctx context.Context, cfg *config.Config, source string, mReader manifest.Reader, mreg *metrics.Registry, log zerolog.Logger) {
	t1 := time.Now()
	m, err := mReader.ReadLatest(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("read manifest")
		return
	}
	r := restore.NewRestorer(state.NewInMemoryStore(), snapshot.NewFilesystemSnapshotter(cfg.Snapshot.Dir), mReader,
		restore.WithChangelogPath(filepath.Join(cfg.Changelog.Dir, cfg.Changelog.File)),
		restore.WithLogger(log),
	)
	if _, err := r.RestoreFromSnapshot(m.SnapshotID); err != nil {
		log.Error().Err(err).Msg("restore snapshot")
		return
	}

	var res restore.Result
	if source == "kafka" {
		rctx, cancel := context.WithTimeout(ctx, 20*time.Second)
		res = r.ReplayKafkaTopic(rctx, manifest.Brokers(cfg.Kafka.Bootstrap), cfg.Changelog.Topic, m.LastChangelogOffset)
		cancel()
	} else {
		res = r.ReplayChangelog(filepath.Join(cfg.Changelog.Dir, cfg.Changelog.File), m.LastChangelogOffset)
	}
	if res.Error != nil {
		log.Error().Err(res.Error).Msg("replay")
		return
	}

	mreg.Applied.Add(float64(res.Applied))
	mreg.Skipped.Add(float64(res.Skipped))
	mreg.ReplayBytes.Add(float64(res.Bytes))
	mreg.TTRSec.Set(time.Since(t1).Seconds())
	if source == "kafka" {
		// kafka offsets are 0-based, replay offsets count messages
		if head := headOffset(ctx, cfg.Changelog.Topic, cfg.Kafka.Bootstrap); head >= 0 {
			mreg.Lag.Set(float64(head + 1 - res.LastAppliedOffset))
		}
	}
	mreg.LastManifestAgeSec.Set(m.Age(time.Now()).Seconds())
	log.Info().
		Str("snapshot_id", m.SnapshotID).
		Int("applied", res.Applied).
		Int("skipped", res.Skipped).
		Int64("last_offset", res.LastAppliedOffset).
		Dur("ttr", time.Since(t1)).
		Msg("recovery cycle")
}

// headOffset returns the last (high-watermark - 1) offset of partition 0 for a topic
func headOffset(ctx context.Context, topic string, bootstrap string) int64 {
	brokers := manifest.Brokers(bootstrap)
	if len(brokers) == 0 {
		return -1
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, err := kafka.DialLeader(ctx, "tcp", brokers[0], topic, 0)
	if err != nil {
		return -1
	}
	defer conn.Close()
	off, err := conn.ReadLastOffset()
	if err != nil {
		return -1
	}
	return off - 1
}
