// Command iioview decodes and displays the sample stream of a Linux IIO
// device: local sysfs, a remote board over SSH, an IIOD server, or a
// recorded capture file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rjboer/iioview/iiod"
	"github.com/rjboer/iioview/internal/app"
	"github.com/rjboer/iioview/internal/logging"
	"github.com/rjboer/iioview/internal/mdns"
	"github.com/rjboer/iioview/internal/source"
	"github.com/rjboer/iioview/internal/stats"
	"github.com/rjboer/iioview/internal/telemetry"
	"github.com/rjboer/iioview/internal/tui"
)

func main() {
	const configPath = "iioview.toml"

	persistent, err := loadOrCreateConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	cfg, err := parseConfig(os.Args[1:], os.LookupEnv, persistent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse config: %v\n", err)
		os.Exit(1)
	}
	if err := saveConfig(configPath, persistentFromCLI(cfg)); err != nil {
		fmt.Fprintf(os.Stderr, "save config: %v\n", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	logger := logging.New(level, cfg.logJSON, os.Stderr)
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	descriptors, chunks, cleanup, err := buildSource(ctx, cfg, logger)
	if err != nil {
		logger.Error("select source", logging.Field{Key: "error", Value: err})
		os.Exit(1)
	}
	defer cleanup()

	var reporters telemetry.MultiReporter

	var metrics *telemetry.Metrics
	if cfg.webAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = telemetry.NewMetrics(reg)
		hub := telemetry.NewHub(cfg.historyLimit, metrics)
		reporters = append(reporters, hub)
		go telemetry.NewWebServer(cfg.webAddr, hub, reg, logger).Start(ctx)
		logger.Info("web interface listening", logging.Field{Key: "addr", Value: cfg.webAddr})
	}

	collector := stats.NewCollector(cfg.statsWindow)
	reporters = append(reporters, collector)

	var ui *tui.UI
	if cfg.tui {
		ui = tui.New(cfg.device)
		reporters = append(reporters, ui)
	} else {
		reporters = append(reporters, telemetry.NewStdoutReporter(os.Stdout))
	}

	viewer := app.NewViewer(descriptors, chunks, reporters, metrics, logger, app.Config{
		ContinueOnShortRead: cfg.keepGoing,
	})
	if err := viewer.Init(ctx); err != nil {
		logger.Error("init viewer", logging.Field{Key: "error", Value: err})
		os.Exit(1)
	}

	if ui != nil {
		go func() {
			if err := viewer.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("run viewer", logging.Field{Key: "error", Value: err})
			}
			ui.Quit()
		}()
		if err := ui.Run(); err != nil {
			logger.Error("terminal ui", logging.Field{Key: "error", Value: err})
		}
	} else {
		if err := viewer.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("run viewer", logging.Field{Key: "error", Value: err})
			fmt.Println()
			fmt.Println(collector.String())
			os.Exit(1)
		}
	}

	fmt.Println()
	fmt.Println(collector.String())
}

// buildSource assembles the descriptor and chunk backends for the configured
// source kind.
func buildSource(ctx context.Context, cfg cliConfig, logger logging.Logger) (source.Descriptors, source.ChunkSource, func(), error) {
	switch cfg.source {
	case "sysfs":
		s, err := source.OpenSysfs(cfg.device, cfg.sysfsRoot)
		if err != nil {
			return nil, nil, nil, err
		}
		dev, err := source.OpenDeviceFile(s.DevicePath())
		if err != nil {
			return nil, nil, nil, err
		}
		return s, dev, func() { dev.Close() }, nil

	case "ssh":
		s, err := source.NewSSHSource(source.SSHConfig{
			Host:      cfg.sshHost,
			User:      cfg.sshUser,
			Password:  cfg.sshPassword,
			KeyPath:   cfg.sshKeyPath,
			Port:      cfg.sshPort,
			SysfsRoot: cfg.sysfsRoot,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		if err := s.Connect(ctx, cfg.device); err != nil {
			return nil, nil, nil, err
		}
		if err := s.StartStream(ctx); err != nil {
			s.Close()
			return nil, nil, nil, err
		}
		return s, s, func() { s.Close() }, nil

	case "iiod":
		uri := cfg.iiodURI
		if uri == "" && cfg.iiodDiscover {
			hosts, err := mdns.Discover(ctx, 5*time.Second)
			if err != nil {
				return nil, nil, nil, err
			}
			if len(hosts) == 0 {
				return nil, nil, nil, fmt.Errorf("no IIOD servers found via mDNS")
			}
			uri = hosts[0].Addr()
			logger.Info("discovered IIOD server",
				logging.Field{Key: "instance", Value: hosts[0].Instance},
				logging.Field{Key: "addr", Value: uri})
		}
		if uri == "" {
			return nil, nil, nil, fmt.Errorf("an IIOD URI is required (-iiod-uri or -iiod-discover)")
		}
		s := iiod.NewSource(uri, cfg.device)
		if cfg.iiodSamples > 0 {
			s.Samples = cfg.iiodSamples
		}
		return s, s, func() { s.Close() }, nil

	case "replay":
		if cfg.replayFile == "" || cfg.replayManifest == "" {
			return nil, nil, nil, fmt.Errorf("replay needs -replay-file and -replay-manifest")
		}
		raws, err := loadManifest(cfg.replayManifest)
		if err != nil {
			return nil, nil, nil, err
		}
		dev, err := source.OpenDeviceFile(cfg.replayFile)
		if err != nil {
			return nil, nil, nil, err
		}
		return source.NewReplay(raws, nil), dev, func() { dev.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown source %q", cfg.source)
	}
}
