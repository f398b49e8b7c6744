// Command macwatch keeps an inventory of the devices on a network: it
// records who answers each scan, names them after the IEEE registry
// organization owning their hardware address, and answers presence
// history queries.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"macwatch/internal/adapter"
	"macwatch/internal/config"
	"macwatch/internal/registry"
	"macwatch/internal/repository/sqlite"
	"macwatch/internal/service"
	"macwatch/internal/telemetry"
)

// errUsage reports a command line mistake after usage was printed
var errUsage = errors.New("invalid usage")

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"scan":    {"run one scan cycle and record who answered", runScan},
	"ingest":  {"load IEEE registry feed files", runIngest},
	"fetch":   {"download the IEEE registry feeds", runFetch},
	"resolve": {"show the organizations owning addresses", runResolve},
	"devices": {"list known devices", runDevices},
	"name":    {"set or clear a device name", runName},
	"history": {"show the presence timeline of a device", runHistory},
	"export":  {"write every device timeline as JSON or YAML", runExport},
	"serve":   {"serve the HTTP API, event stream and metrics", runServe},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()

	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "macwatch: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("macwatch", flag.ContinueOnError)
	configPath := global.String("config", "", "config file (default: $MACWATCH_CONFIG, ./macwatch.yaml, ~/.config/macwatch/config.yaml)")
	logLevel := global.String("log-level", "", "log level override: debug, info, warn, error")
	global.Usage = func() { usage(global) }

	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if global.NArg() == 0 {
		usage(global)
		return errUsage
	}

	name := global.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(global.Output(), "unknown command %q\n\n", name)
		usage(global)
		return errUsage
	}

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)
	if path != "" {
		slog.Debug("config loaded", "path", path)
	}

	a := &app{cfg: cfg, out: stdout}
	defer a.Close()

	return cmd.run(ctx, a, global.Args()[1:])
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintf(w, "Usage: macwatch [flags] <command> [command flags]\n\nCommands:\n")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}

	fmt.Fprintf(w, "\nFlags:\n")
	fs.PrintDefaults()
}

// app holds the stores and services a command needs, opened on first use
type app struct {
	cfg *config.Config
	out io.Writer

	ranges  *sqlite.RangeRepository
	devices *sqlite.DeviceRepository
}

func (a *app) rangeStore() (*sqlite.RangeRepository, error) {
	if a.ranges == nil {
		repo, err := sqlite.OpenRangeRepository(a.cfg.Database.Ranges)
		if err != nil {
			return nil, err
		}
		slog.Debug("range store opened", "path", a.cfg.Database.Ranges)
		a.ranges = repo
	}
	return a.ranges, nil
}

func (a *app) deviceStore() (*sqlite.DeviceRepository, error) {
	if a.devices == nil {
		repo, err := sqlite.OpenDeviceRepository(a.cfg.Database.Devices)
		if err != nil {
			return nil, err
		}
		slog.Debug("device store opened", "path", a.cfg.Database.Devices)
		a.devices = repo
	}
	return a.devices, nil
}

// Close closes whichever stores were opened
func (a *app) Close() {
	if a.devices != nil {
		if err := a.devices.Close(); err != nil {
			slog.Warn("failed to close device store", "error", err)
		}
	}
	if a.ranges != nil {
		if err := a.ranges.Close(); err != nil {
			slog.Warn("failed to close range store", "error", err)
		}
	}
}

func (a *app) resolver() (*service.Resolver, error) {
	ranges, err := a.rangeStore()
	if err != nil {
		return nil, err
	}
	return service.NewResolver(ranges), nil
}

// inventory builds the inventory service; withOrgs attaches the resolver
func (a *app) inventory(withOrgs bool, opts ...service.InventoryOption) (*service.Inventory, error) {
	devices, err := a.deviceStore()
	if err != nil {
		return nil, err
	}
	if withOrgs {
		resolver, err := a.resolver()
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithResolver(resolver))
	}
	return service.NewInventory(devices, opts...), nil
}

func (a *app) registrySync(force bool, bus *service.EventBus) (*service.RegistrySync, error) {
	ranges, err := a.rangeStore()
	if err != nil {
		return nil, err
	}
	ingestor := registry.NewIngestor(ranges, registry.WithForce(force || a.cfg.Registry.Force))
	return service.NewRegistrySync(ingestor, a.cfg.FeedPaths(), bus), nil
}

// scanner builds the configured scanner, or nil when no targets are set
func (a *app) scanner() (service.Scanner, error) {
	sc := a.cfg.Scan
	if len(sc.Targets) == 0 && sc.AutoTargets {
		targets, err := adapter.LocalTargets()
		if err != nil {
			return nil, err
		}
		slog.Info("scan targets detected", "targets", targets)
		sc.Targets = targets
	}
	if len(sc.Targets) == 0 {
		return nil, nil
	}

	switch sc.Method {
	case adapter.MethodNmap:
		opts := []adapter.NmapOption{
			adapter.WithTimeout(sc.Timeout.Duration()),
			adapter.WithPrivileged(sc.Privileged),
			adapter.WithNameResolution(a.cfg.ResolveNames()),
		}
		if sc.Binary != "" {
			opts = append(opts, adapter.WithBinaryPath(sc.Binary))
		}
		return adapter.NewNmapScanner(sc.Targets, opts...), nil

	case adapter.MethodSweep:
		return adapter.NewSweepScanner(adapter.SweepConfig{
			Targets:     sc.Targets,
			ProbePorts:  sc.ProbePorts,
			ScanTimeout: sc.Timeout.Duration(),
			ARPTable:    sc.ARPTable,
		}), nil
	}
	return nil, fmt.Errorf("unknown scan method %q", sc.Method)
}

// splitList splits a comma separated flag value
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
