package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"

	"routescope/internal/adapter"
	"routescope/internal/codec"
	"routescope/internal/config"
	"routescope/internal/daemon"
	"routescope/internal/discovery"
	"routescope/internal/domain"
	"routescope/internal/handler"
	"routescope/internal/hlog"
	"routescope/internal/observability"
	"routescope/internal/snmp"
	"routescope/internal/watcher"
)

const seedPrompt = "Type IP address of the first router: "

// app holds what one invocation needs. The assembler and verifier are
// built from cfg unless already set.
type app struct {
	cfg     *config.Config
	cfgPath string
	log     logr.Logger
	in      io.Reader
	out     io.Writer

	registry  *prometheus.Registry
	assembler discovery.Assembler
	verifier  discovery.HostVerifier

	// interactive is false under a service manager
	interactive bool
}

func newApp(cfg *config.Config, log logr.Logger, in io.Reader, out io.Writer) *app {
	return &app{
		cfg:         cfg,
		log:         log,
		in:          in,
		out:         out,
		registry:    prometheus.NewRegistry(),
		interactive: daemon.Interactive(),
	}
}

func run(ctx context.Context, a *app) error {
	// The address is checked separately so a bad one can still be prompted for
	rest := *a.cfg
	rest.Address = ""
	if err := rest.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	seed, err := a.seed()
	if err != nil {
		return err
	}

	exporter, err := codec.ForFormat(a.cfg.Format)
	if err != nil {
		return err
	}

	coordinator, collector, err := a.coordinator(ctx)
	if err != nil {
		return err
	}

	if a.cfg.Service {
		return a.runService(ctx, coordinator, collector, seed, exporter)
	}
	return a.runOnce(ctx, coordinator, seed, exporter)
}

// seed returns the configured first router address. An interactive run
// with a missing or invalid address asks for one once.
func (a *app) seed() (netip.Addr, error) {
	addr, err := a.cfg.Seed()
	if err == nil {
		return addr, nil
	}
	if a.cfg.Service {
		return netip.Addr{}, fmt.Errorf("service mode requires a valid --address: %w", err)
	}
	if !a.interactive {
		return netip.Addr{}, err
	}

	fmt.Fprint(a.out, seedPrompt)
	line, readErr := bufio.NewReader(a.in).ReadString('\n')
	if readErr != nil && !errors.Is(readErr, io.EOF) {
		return netip.Addr{}, fmt.Errorf("read address: %w", readErr)
	}
	addr, err = config.ParseAddress(line)
	if err != nil {
		return netip.Addr{}, err
	}
	a.cfg.Address = addr.String()
	return addr, nil
}

// coordinator wires the SNMP client, fact mapper and router builder into a
// discovery coordinator that reports to a fresh metrics collector.
func (a *app) coordinator(ctx context.Context) (*discovery.Coordinator, *observability.DiscoveryCollector, error) {
	collector, err := observability.NewDiscoveryCollector(a.registry)
	if err != nil {
		return nil, nil, err
	}

	if a.assembler == nil {
		filter, err := adapter.FilterByName(a.cfg.HostFilter)
		if err != nil {
			return nil, nil, err
		}
		client := snmp.NewClient(
			snmp.NewGoSNMPTransport(),
			snmp.WithBatchSize(a.cfg.BatchSize),
			snmp.WithLogger(a.log.WithName("snmp")),
		)
		source := adapter.NewSNMPSource(client, a.cfg.Target(netip.Addr{}), a.log.WithName("adapter"))
		builder, err := adapter.NewRouterBuilder(source,
			adapter.WithArpFilter(filter),
			adapter.WithBuilderLogger(a.log.WithName("adapter.builder")),
		)
		if err != nil {
			return nil, nil, err
		}
		a.assembler = builder
	}

	opts := []discovery.Option{
		discovery.WithLogger(a.log.WithName("discovery")),
		discovery.WithRecorder(collector),
		discovery.WithMaxConcurrent(a.cfg.MaxConcurrent),
	}
	if verifier := a.hostVerifier(ctx); verifier != nil {
		opts = append(opts, discovery.WithHostVerifier(verifier))
	}

	coordinator, err := discovery.NewCoordinator(a.assembler, opts...)
	if err != nil {
		return nil, nil, err
	}
	return coordinator, collector, nil
}

func (a *app) hostVerifier(ctx context.Context) discovery.HostVerifier {
	if !a.cfg.VerifyHosts {
		return nil
	}
	if a.verifier != nil {
		return a.verifier
	}
	verifier := adapter.NewHostVerifier(adapter.WithVerifierLogger(a.log.WithName("adapter.nmap")))
	if !verifier.Available(ctx) {
		a.log.Info("nmap not available, hosts will not be verified")
		return nil
	}
	return verifier
}

// runOnce discovers the network from seed and prints the topology. Branch
// failures are logged; they only make the topology smaller.
func (a *app) runOnce(ctx context.Context, coordinator *discovery.Coordinator, seed netip.Addr, exporter codec.Exporter) error {
	registry := adapter.NewRegistry(func(ctx context.Context, source string, topo *domain.Topology) error {
		return exporter.Export(topo, a.out)
	}, a.log)

	oneShot := discovery.NewOneShotAdapter(coordinator, seed)
	if err := registry.Register(oneShot, adapter.AdapterConfig{Enabled: true}); err != nil {
		return err
	}

	if err := registry.TriggerSync(ctx, oneShot.Name()); err != nil {
		if hlog.IsContextCancellation(err) {
			return err
		}
		a.log.Error(err, "Discovery incomplete", "seed", seed)
	}
	return nil
}

// runService re-runs discovery every interval under the platform service
// manager until stopped. Each topology is logged in the configured format
// and served over HTTP when metrics_addr is set.
func (a *app) runService(ctx context.Context, coordinator *discovery.Coordinator, collector *observability.DiscoveryCollector, seed netip.Addr, exporter codec.Exporter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	log := a.log.WithName("service")
	api := handler.NewTopologyHandler(ctx, a.log)
	registry := adapter.NewRegistry(func(ctx context.Context, source string, topo *domain.Topology) error {
		var buf bytes.Buffer
		if err := exporter.Export(topo, &buf); err != nil {
			return err
		}
		log.Info("Topology discovered", "source", source, "format", exporter.Format(),
			"topology", strings.TrimRight(buf.String(), "\n"))
		return api.Publish(ctx, source, topo)
	}, a.log)

	disc := discovery.NewAdapter(coordinator, seed)
	if err := registry.Register(disc, adapter.AdapterConfig{
		Enabled:      true,
		PollInterval: a.cfg.Interval.Duration(),
	}); err != nil {
		return err
	}
	api.SetDiscoveryTrigger(registry, disc.Name())

	if a.cfgPath != "" {
		w := watcher.New(a.cfgPath, func() { a.reloadSeed(ctx, registry, disc) }).WithLogger(a.log)
		go func() {
			hlog.ErrorIfNotCanceled(a.log, w.Watch(ctx), "Config watcher stopped", "path", a.cfgPath)
		}()
	}

	program := daemon.NewProgram(ctx, registry,
		daemon.WithLogger(a.log),
		daemon.WithMetrics(a.cfg.MetricsAddr, collector.Handler()),
		daemon.WithRoutes(api.Register),
		daemon.WithMiddleware(func(h http.Handler) http.Handler {
			return handler.Chain(h, handler.Recover(a.log), handler.Logger(a.log.WithName("http")))
		}),
	)
	s, err := daemon.New(program, nil)
	if err != nil {
		return err
	}
	return s.Run()
}

// reloadSeed rereads the config file after it changed. A new valid address
// becomes the seed and triggers a run right away; other settings need a
// restart.
func (a *app) reloadSeed(ctx context.Context, registry *adapter.Registry, disc *discovery.Adapter) {
	v := viper.New()
	v.Set(config.KeyConfig, a.cfgPath)
	loaded, _, err := config.Load(v)
	if err != nil {
		a.log.Error(err, "Ignoring config change", "path", a.cfgPath)
		return
	}
	seed, err := loaded.Seed()
	if err != nil {
		a.log.Error(err, "Ignoring config change", "path", a.cfgPath)
		return
	}
	if seed == disc.Seed() {
		a.log.Info("Config changed; settings other than address apply after restart")
		return
	}

	a.log.Info("Seed changed", "from", disc.Seed(), "to", seed)
	disc.SetSeed(seed)
	hlog.ErrorIfNotCanceled(a.log, registry.TriggerSync(ctx, disc.Name()), "Discovery incomplete", "seed", seed)
}
