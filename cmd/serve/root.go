package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cmdUtil "github.com/weightgate/weightgate/cmd/util"
	"github.com/weightgate/weightgate/config"
	"github.com/weightgate/weightgate/httpapi"
	"github.com/weightgate/weightgate/internal/logx"
	"github.com/weightgate/weightgate/lib/counters"
	"github.com/weightgate/weightgate/lib/counters/memstore"
	"github.com/weightgate/weightgate/lib/counters/redisstore"
	"github.com/weightgate/weightgate/lib/datafiles"
	"github.com/weightgate/weightgate/lib/lockmgr"
	"github.com/weightgate/weightgate/lib/scheduler"
)

var log = logx.GetLogger("serve")

var ServeCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the weightgate server",
	Long:    `Start the weightgate server with the specified configuration. The configuration can be set via command line flags or environment variables, e.g. --redis-host/REDIS_HOST, --port/PORT.`,
	PreRunE: bindFlags,
	RunE:    run,
}

func init() {
	cobra.OnInitialize(cmdUtil.InitEnv)

	flags := ServeCmd.Flags()
	flags.String("redis-host", "localhost", cmdUtil.WrapString("Hostname of the Redis instance backing the counter store"))
	flags.Int("redis-port", 6379, cmdUtil.WrapString("Port of the Redis instance"))
	flags.Int("redis-db", 0, cmdUtil.WrapString("Redis logical database index"))
	flags.String("redis-password", "", cmdUtil.WrapString("Redis password, empty for none"))
	flags.Int("counter-ttl-seconds", 0, cmdUtil.WrapString("TTL applied to counter records on every write; 0 disables expiry"))
	flags.Bool("in-memory-store", false, cmdUtil.WrapString("Use an in-process counter store instead of Redis (for local testing)"))

	flags.String("datafiles-dir", "./dist", cmdUtil.WrapString("Root directory of datafiles to load"))
	flags.String("variants-key", "variations", cmdUtil.WrapString("Object key under each feature that holds its variant array"))

	flags.Int("update-interval-minutes", 30, cmdUtil.WrapString("Minutes between recalculation cycles"))
	flags.Uint64("min-exposures-for-update", 100, cmdUtil.WrapString("Minimum exposures every variant in a group needs before a cycle touches it"))

	flags.String("host", "0.0.0.0", cmdUtil.WrapString("HTTP bind host"))
	flags.Int("port", 5050, cmdUtil.WrapString("HTTP bind port"))

	flags.String("log-level", "info", cmdUtil.WrapString("Log level (debug, info, warn, error)"))
}

func bindFlags(cmd *cobra.Command, _ []string) error {
	return cmdUtil.BindCommandFlags(cmd)
}

func loadConfig() config.Config {
	return config.Config{
		RedisHost:             viper.GetString("redis-host"),
		RedisPort:             viper.GetInt("redis-port"),
		RedisDB:               viper.GetInt("redis-db"),
		RedisPassword:         viper.GetString("redis-password"),
		CounterTTL:            time.Duration(viper.GetInt64("counter-ttl-seconds")) * time.Second,
		DatafilesDir:          viper.GetString("datafiles-dir"),
		VariantsKey:           viper.GetString("variants-key"),
		UpdateInterval:        time.Duration(viper.GetInt64("update-interval-minutes")) * time.Minute,
		MinExposuresForUpdate: viper.GetUint64("min-exposures-for-update"),
		SamplerTrials:         0, // sampler.DefaultTrials
		LockTTL:               0, // 4x base cycle estimate
		Host:                  viper.GetString("host"),
		Port:                  viper.GetInt("port"),
		LogLevel:              viper.GetString("log-level"),
	}
}

func run(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	logx.SetLevel(logx.ParseLevel(cfg.LogLevel))
	log.Infof("starting weightgate with configuration:%s", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := datafiles.NewRepository(cfg.DatafilesDir, cfg.VariantsKey)
	if err := repo.Load(); err != nil {
		return fmt.Errorf("serve: loading datafiles: %w", err)
	}

	store, closeStore, err := connectStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	lockMgr := lockmgr.NewManager(store.(lockmgr.KV))

	sched := scheduler.New(store, repo, lockMgr, scheduler.Config{
		Interval:              cfg.UpdateInterval,
		MinExposuresForUpdate: cfg.MinExposuresForUpdate,
		VariantsKey:           cfg.VariantsKey,
		LockTTL:               cfg.LockTTL,
		Trials:                cfg.SamplerTrials,
	})
	sched.Start(ctx)
	defer sched.Stop()

	server := httpapi.New(cfg.Addr(), store, repo, sched)

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		log.Infof("shutdown signal received, draining in-flight requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("graceful shutdown: %v", err)
		}
		return nil
	case err := <-serveErr:
		return err
	}
}

// connectStore constructs the counter store configured by cfg. For Redis it
// retries connectivity with exponential backoff up to a bounded window
// before giving up, per the error taxonomy's "store-fatal at boot" class —
// generalizing the original service's fail-on-first-PING startup into a
// bounded retry loop.
func connectStore(ctx context.Context, cfg config.Config) (counters.Store, func(), error) {
	if viper.GetBool("in-memory-store") {
		store := memstore.New(cfg.CounterTTL)
		return store, func() { _ = store.Close() }, nil
	}

	const (
		maxAttempts  = 6
		initialDelay = 500 * time.Millisecond
	)

	redisCfg := redisstore.Config{
		Host:       cfg.RedisHost,
		Port:       cfg.RedisPort,
		DB:         cfg.RedisDB,
		Password:   cfg.RedisPassword,
		CounterTTL: cfg.CounterTTL,
	}

	delay := initialDelay
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		store, err := redisstore.New(ctx, redisCfg)
		if err == nil {
			return store, func() { _ = store.Close() }, nil
		}
		lastErr = err
		log.Warnf("redis connection attempt %d/%d failed: %v", attempt, maxAttempts, err)

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, nil, fmt.Errorf("serve: could not connect to redis after %d attempts: %w", maxAttempts, lastErr)
}
