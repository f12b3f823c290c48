package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/rjboer/iioview/scan"
)

type cliConfig struct {
	source    string
	device    string
	sysfsRoot string

	sshHost     string
	sshUser     string
	sshPassword string
	sshKeyPath  string
	sshPort     int

	iiodURI      string
	iiodDiscover bool
	iiodSamples  int

	replayFile     string
	replayManifest string

	webAddr      string
	historyLimit int
	statsWindow  int

	logLevel  string
	logJSON   bool
	tui       bool
	keepGoing bool
}

// persistentConfig is what gets written back to iioview.toml so the next run
// starts from the last used settings.
type persistentConfig struct {
	Source    string `toml:"source"`
	Device    string `toml:"device"`
	SysfsRoot string `toml:"sysfs_root"`

	SSHHost    string `toml:"ssh_host"`
	SSHUser    string `toml:"ssh_user"`
	SSHKeyPath string `toml:"ssh_key_path"`
	SSHPort    int    `toml:"ssh_port"`

	IIODURI     string `toml:"iiod_uri"`
	IIODSamples int    `toml:"iiod_samples"`

	WebAddr      string `toml:"web_addr"`
	HistoryLimit int    `toml:"history_limit"`
	StatsWindow  int    `toml:"stats_window"`

	LogLevel string `toml:"log_level"`
	LogJSON  bool   `toml:"log_json"`
}

func parseConfig(args []string, lookup func(string) (string, bool), defaults persistentConfig) (cliConfig, error) {
	cfg := cliConfig{}
	fs := flag.NewFlagSet("iioview", flag.ContinueOnError)
	fs.StringVar(&cfg.source, "source", envString(lookup, "IIOVIEW_SOURCE", defaults.Source), "Capture source (sysfs|ssh|iiod|replay)")
	fs.StringVar(&cfg.device, "device", envString(lookup, "IIOVIEW_DEVICE", defaults.Device), "IIO device name, e.g. icm20602")
	fs.StringVar(&cfg.sysfsRoot, "sysfs-root", envString(lookup, "IIOVIEW_SYSFS_ROOT", defaults.SysfsRoot), "Sysfs IIO base directory")
	fs.StringVar(&cfg.sshHost, "ssh-host", envString(lookup, "IIOVIEW_SSH_HOST", defaults.SSHHost), "Remote board hostname for the ssh source")
	fs.StringVar(&cfg.sshUser, "ssh-user", envString(lookup, "IIOVIEW_SSH_USER", defaults.SSHUser), "SSH user")
	fs.StringVar(&cfg.sshPassword, "ssh-password", envString(lookup, "IIOVIEW_SSH_PASSWORD", ""), "SSH password (not persisted)")
	fs.StringVar(&cfg.sshKeyPath, "ssh-key", envString(lookup, "IIOVIEW_SSH_KEY", defaults.SSHKeyPath), "SSH private key path")
	fs.IntVar(&cfg.sshPort, "ssh-port", envInt(lookup, "IIOVIEW_SSH_PORT", defaults.SSHPort), "SSH port")
	fs.StringVar(&cfg.iiodURI, "iiod-uri", envString(lookup, "IIOVIEW_IIOD_URI", defaults.IIODURI), "IIOD server address, e.g. 192.168.2.1:30431")
	fs.BoolVar(&cfg.iiodDiscover, "iiod-discover", false, "Discover IIOD servers via mDNS when no URI is set")
	fs.IntVar(&cfg.iiodSamples, "iiod-samples", envInt(lookup, "IIOVIEW_IIOD_SAMPLES", defaults.IIODSamples), "IIOD buffer size in samples")
	fs.StringVar(&cfg.replayFile, "replay-file", envString(lookup, "IIOVIEW_REPLAY_FILE", ""), "Raw capture file for the replay source")
	fs.StringVar(&cfg.replayManifest, "replay-manifest", envString(lookup, "IIOVIEW_REPLAY_MANIFEST", ""), "TOML channel manifest for the replay source")
	fs.StringVar(&cfg.webAddr, "web-addr", envString(lookup, "IIOVIEW_WEB_ADDR", defaults.WebAddr), "Optional web telemetry listen address (e.g. :8080)")
	fs.IntVar(&cfg.historyLimit, "history-limit", envInt(lookup, "IIOVIEW_HISTORY_LIMIT", defaults.HistoryLimit), "Maximum rows to keep in telemetry history")
	fs.IntVar(&cfg.statsWindow, "stats-window", envInt(lookup, "IIOVIEW_STATS_WINDOW", defaults.StatsWindow), "Rolling window for per-channel statistics (0 = unbounded)")
	fs.StringVar(&cfg.logLevel, "log-level", envString(lookup, "IIOVIEW_LOG_LEVEL", defaults.LogLevel), "Log level (debug|info|warn|error)")
	fs.BoolVar(&cfg.logJSON, "log-json", defaults.LogJSON, "Emit JSON log lines")
	fs.BoolVar(&cfg.tui, "tui", false, "Full-screen terminal UI instead of the plain live row")
	fs.BoolVar(&cfg.keepGoing, "keep-going", false, "Keep streaming after a truncated record instead of stopping")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}
	if cfg.device == "" && cfg.source != "replay" {
		return cliConfig{}, fmt.Errorf("a device name is required (-device)")
	}
	return cfg, nil
}

func persistentFromCLI(cfg cliConfig) persistentConfig {
	return persistentConfig{
		Source:       cfg.source,
		Device:       cfg.device,
		SysfsRoot:    cfg.sysfsRoot,
		SSHHost:      cfg.sshHost,
		SSHUser:      cfg.sshUser,
		SSHKeyPath:   cfg.sshKeyPath,
		SSHPort:      cfg.sshPort,
		IIODURI:      cfg.iiodURI,
		IIODSamples:  cfg.iiodSamples,
		WebAddr:      cfg.webAddr,
		HistoryLimit: cfg.historyLimit,
		StatsWindow:  cfg.statsWindow,
		LogLevel:     cfg.logLevel,
		LogJSON:      cfg.logJSON,
	}
}

func loadOrCreateConfig(path string) (persistentConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := defaultPersistentConfig()
		if saveErr := saveConfig(path, cfg); saveErr != nil {
			return persistentConfig{}, saveErr
		}
		return cfg, nil
	}

	var cfg persistentConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return persistentConfig{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

func saveConfig(path string, cfg persistentConfig) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultPersistentConfig() persistentConfig {
	return persistentConfig{
		Source:       "sysfs",
		Device:       "",
		SysfsRoot:    "/sys/bus/iio/devices",
		SSHUser:      "root",
		SSHPort:      22,
		IIODSamples:  1,
		WebAddr:      "",
		HistoryLimit: 500,
		StatsWindow:  10_000,
		LogLevel:     "info",
	}
}

// replayManifest describes the channel set of a capture file, standing in
// for the sysfs attributes the original board would have provided.
type replayManifest struct {
	Channels []manifestChannel `toml:"channel"`
}

type manifestChannel struct {
	Name      string `toml:"name"`
	Direction string `toml:"direction"`
	Enabled   string `toml:"enabled"`
	Index     string `toml:"index"`
	Type      string `toml:"type"`
	Offset    string `toml:"offset"`
	Scale     string `toml:"scale"`
}

func loadManifest(path string) ([]scan.RawChannel, error) {
	var m replayManifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if len(m.Channels) == 0 {
		return nil, fmt.Errorf("manifest %s defines no channels", path)
	}
	raws := make([]scan.RawChannel, 0, len(m.Channels))
	for _, ch := range m.Channels {
		enabled := ch.Enabled
		if enabled == "" {
			enabled = "1"
		}
		raws = append(raws, scan.RawChannel{
			Name:      ch.Name,
			Direction: ch.Direction,
			Enabled:   enabled,
			Index:     ch.Index,
			Type:      ch.Type,
			Offset:    ch.Offset,
			Scale:     ch.Scale,
		})
	}
	return raws, nil
}

func envInt(lookup func(string) (string, bool), key string, def int) int {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envString(lookup func(string) (string, bool), key, def string) string {
	if val, ok := lookup(key); ok {
		return val
	}
	return def
}
