package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pddg/sparkly/internal/bridge"
	"github.com/pddg/sparkly/internal/engine"
	"github.com/pddg/sparkly/internal/extractor"
	"github.com/pddg/sparkly/internal/logging"
	"github.com/pddg/sparkly/internal/metrics"
	"github.com/pddg/sparkly/internal/mockengine"
	"github.com/pddg/sparkly/internal/policy"
	"github.com/pddg/sparkly/internal/releasenotes"
	"github.com/pddg/sparkly/internal/server"
	"github.com/pddg/sparkly/internal/settings"
	"github.com/pddg/sparkly/internal/vtime"
)

var (
	port                          int
	logLevel                      string
	logFormat                     string
	policyFile                    string
	updateVersion                 string
	updateSize                    string
	releaseNotesURL               string
	updateArchive                 string
	workDir                       string
	downloadSpeedLimitBytesPerSec string
	extractSpeedLimitBytesPerSec  string
	stepInterval                  time.Duration
	failAfter                     time.Duration
	askPermission                 bool
	disableMetrics                bool
)

func main() {
	flag.StringVar(&logLevel, "log-level", getEnv("SPARKLY_AGENT_LOG_LEVEL", "info"), "log level")
	flag.StringVar(&logFormat, "log-format", getEnv("SPARKLY_AGENT_LOG_FORMAT", "json"), "log format")
	// Agent server options
	flag.IntVar(&port, "port", 8080, "port to listen on")
	flag.BoolVar(&disableMetrics, "disable-metrics", false, "disable bridge metrics (/metrics only provide go runtime information)")
	flag.StringVar(&policyFile, "policy", getEnv("SPARKLY_AGENT_POLICY", ""), "path to the policy file (yaml, toml or json). If empty, the default policy is used")

	// Simulated engine options
	flag.StringVar(&updateVersion, "update-version", getEnv("SPARKLY_AGENT_UPDATE_VERSION", mockengine.MockItem.VersionString), "version of the simulated update")
	flag.StringVar(&updateSize, "update-size", getEnv("SPARKLY_AGENT_UPDATE_SIZE", "24MB"), "size of the simulated update (e.g. 24MB)")
	flag.StringVar(&releaseNotesURL, "release-notes-url", getEnv("SPARKLY_AGENT_RELEASE_NOTES_URL", ""), "URL of the release notes of the simulated update. If empty, no release notes are shown")
	flag.StringVar(&updateArchive, "update-archive", getEnv("SPARKLY_AGENT_UPDATE_ARCHIVE", ""), "path to a tar or tar.bz2 archive extracted while installing. Its size overrides -update-size")
	flag.StringVar(&workDir, "work-dir", getEnv("SPARKLY_AGENT_WORK_DIR", filepath.Join(os.TempDir(), "sparkly")), "directory the update archive is extracted into")
	flag.DurationVar(&stepInterval, "step-interval", durationEnv("SPARKLY_AGENT_STEP_INTERVAL", time.Second), "time between two steps of the simulated engine")
	flag.DurationVar(&failAfter, "fail-after", durationEnv("SPARKLY_AGENT_FAIL_AFTER", 0), "make every check fail after this delay. 0 disables failures")
	flag.BoolVar(&askPermission, "ask-permission", getEnv("SPARKLY_AGENT_ASK_PERMISSION", "false") == "true", "ask for permission to check automatically after start, if the policy wants a prompt")

	// Speed limit options
	flag.StringVar(&downloadSpeedLimitBytesPerSec, "download-speed-limit", getEnv("SPARKLY_AGENT_DOWNLOAD_SPEED_LIMIT", ""), "release notes download speed limit in bytes per second (e.g. 10MB). default is unlimited")
	flag.StringVar(&extractSpeedLimitBytesPerSec, "extract-speed-limit", getEnv("SPARKLY_AGENT_EXTRACT_SPEED_LIMIT", ""), "update archive extraction speed limit in bytes per second (e.g. 10MB). default is unlimited")
	flag.Parse()

	logger, err := logging.Configure(logLevel, logFormat, os.Stderr)
	if err != nil {
		log.Fatalf("failed to setup logger: %v", err)
	}
	ctx := logging.NewContext(context.Background(), logger)
	if err := innerMain(ctx); err != nil {
		logger.ErrorContext(ctx, "failed", "error", err)
		os.Exit(1)
	}
}

func innerMain(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	logger := logging.FromContext(ctx)
	accessLogger, err := logging.Configure("info", logFormat, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to setup access logger: %w", err)
	}

	p := policy.Default()
	store := settings.NewMemoryStore()
	if policyFile != "" {
		f, err := policy.Load(policyFile)
		if err != nil {
			return fmt.Errorf("failed to load policy: %w", err)
		}
		p = f.Policy
		settings.Save(store, *f.Settings)
		logger.InfoContext(ctx, "policy loaded", "file", policyFile)
	}

	engineOptions, err := initEngineOptions()
	if err != nil {
		return err
	}
	scheduler := vtime.New(vtime.WithTick(stepInterval))
	eng := mockengine.New(ctx, scheduler, engineOptions...)
	b := bridge.New(ctx, eng,
		bridge.WithPolicy(p),
		bridge.WithSettingsStore(store),
	)
	defer b.Close()
	go scheduler.Pump(ctx, min(stepInterval, 100*time.Millisecond))

	if !disableMetrics {
		prometheus.MustRegister(metrics.NewStatusMetrics(b))
		prometheus.MustRegister(metrics.NewEventMetrics(ctx, b.Subscribe()))
	}

	apiHandler := server.NewAPIServer(ctx, b)
	accessLogMw := logging.NewAccessLogMiddleware(accessLogger, logging.WithIgnorePathPrefixes("/healthz", "/metrics"))
	srv := http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: accessLogMw.Use(apiHandler),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx := context.WithoutCancel(ctx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorContext(shutdownCtx, "failed to shutdown server", "error", err)
		}
	}()
	logger.InfoContext(ctx, "starting server", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func initEngineOptions() ([]mockengine.Option, error) {
	size, err := humanize.ParseBytes(updateSize)
	if err != nil {
		return nil, fmt.Errorf("failed to parse update size: %w", err)
	}
	item := mockengine.MockItem
	item.VersionString = updateVersion
	item.DisplayVersionString = updateVersion
	item.Title = "Version " + updateVersion
	item.ContentLength = size
	item.ReleaseNotesURL = releaseNotesURL
	var options []mockengine.Option

	if updateArchive != "" {
		if _, err := extractor.IsCompressed(updateArchive); err != nil {
			return nil, err
		}
		stat, err := os.Stat(updateArchive)
		if err != nil {
			return nil, fmt.Errorf("failed to stat update archive: %w", err)
		}
		item.ContentLength = uint64(stat.Size())
		item.FileURL = "file://" + updateArchive
		var extractorOptions []extractor.Option
		if extractSpeedLimitBytesPerSec != "" {
			limit, err := parseSpeedLimit(extractSpeedLimitBytesPerSec)
			if err != nil {
				return nil, fmt.Errorf("failed to parse extract speed limit: %w", err)
			}
			extractorOptions = append(extractorOptions, extractor.WithExtractSpeedLimit(limit))
		}
		options = append(options, mockengine.WithArchive(updateArchive, workDir, extractor.New(extractorOptions...)))
	}
	options = append(options, mockengine.WithItem(item))

	if releaseNotesURL != "" {
		var fetcherOptions []releasenotes.Option
		if downloadSpeedLimitBytesPerSec != "" {
			limit, err := parseSpeedLimit(downloadSpeedLimitBytesPerSec)
			if err != nil {
				return nil, fmt.Errorf("failed to parse download speed limit: %w", err)
			}
			fetcherOptions = append(fetcherOptions, releasenotes.WithDownloadSpeedLimit(limit))
		}
		options = append(options, mockengine.WithReleaseNotes(releasenotes.New(cleanhttp.DefaultClient(), fetcherOptions...)))
	}
	if failAfter > 0 {
		options = append(options, mockengine.WithFailure(failAfter, &engine.Error{
			Domain:  "SUSparkleErrorDomain",
			Code:    2001,
			Message: "An error occurred in retrieving update information. Please try again later.",
		}))
	}
	if askPermission {
		options = append(options, mockengine.WithPermissionRequest())
	}
	return options, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func durationEnv(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, defaultValue.String()))
	if err != nil {
		return defaultValue
	}
	return d
}

func parseSpeedLimit(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	speed, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w", err)
	}
	return float64(speed), nil
}
