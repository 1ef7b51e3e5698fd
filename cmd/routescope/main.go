package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"routescope/internal/config"
	"routescope/internal/daemon"
	"routescope/internal/hlog"
)

// v holds flags, environment and config file values for every command
var v = viper.New()

// cfg is the effective configuration, loaded before any command runs
var cfg *config.Config

// cfgPath is the config file cfg was read from, if any
var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "routescope",
	Short: "Discover the L3 topology of a network over SNMP",
	Long: `routescope queries a first router over SNMP, follows its routing table
next hops to every reachable router and prints the routers, the PC hosts found
in their ARP caches and the links between them.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, path, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg, cfgPath = loaded, path

		interactive := !cfg.Service || daemon.Interactive()
		w, err := hlog.Writer(interactive, cfg.ResolvedLogFile())
		if err != nil {
			return err
		}
		log := hlog.Init(cfg.LogLevel, w)
		if path != "" {
			log.V(1).Info("Loaded config", "path", path)
		}

		cmd.SetContext(logr.NewContext(cmd.Context(), log))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg, logr.FromContextOrDiscard(cmd.Context()), cmd.InOrStdin(), cmd.OutOrStdout())
		a.cfgPath = cfgPath
		return run(cmd.Context(), a)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config `file` (default: search "+config.ConfigFileName+", XDG and /etc)")
	flags.StringP("address", "a", "", "IPv4 `address` of the first router")
	flags.StringP("log-level", "l", "error", "log verbosity: info, error or debug")
	flags.BoolP("service", "s", false, "run discovery periodically as a background service")
	flags.String("community", "public", "SNMP community")
	flags.Int("port", 161, "SNMP UDP port")
	flags.String("snmp-version", "2c", "SNMP version: 1 or 2c")
	flags.Duration("timeout", 0, "per-request SNMP timeout (default 2s)")
	flags.Int("retries", 0, "SNMP retries per request")
	flags.Int("batch-size", 100, "GetBulk max-repetitions per table walk request")
	flags.Int("max-concurrent", 16, "maximum routers queried at the same time")
	flags.String("format", "text", "output format: text, json or yaml")
	flags.Duration("interval", 0, "re-discovery period in service mode (default 10m)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this `address` in service mode")
	flags.Bool("verify-hosts", false, "ping-scan discovered hosts with nmap")
	flags.String("host-filter", "pc-mac", "ARP records kept as hosts: pc-mac or any")
	flags.String("log-file", "", "log `file` in service mode")

	bind := map[string]string{
		config.KeyConfig:        "config",
		config.KeyAddress:       "address",
		config.KeyLogLevel:      "log-level",
		config.KeyService:       "service",
		config.KeyCommunity:     "community",
		config.KeyPort:          "port",
		config.KeyVersion:       "snmp-version",
		config.KeyTimeout:       "timeout",
		config.KeyRetries:       "retries",
		config.KeyBatchSize:     "batch-size",
		config.KeyMaxConcurrent: "max-concurrent",
		config.KeyFormat:        "format",
		config.KeyInterval:      "interval",
		config.KeyMetricsAddr:   "metrics-addr",
		config.KeyVerifyHosts:   "verify-hosts",
		config.KeyHostFilter:    "host-filter",
		config.KeyLogFile:       "log-file",
	}
	for key, name := range bind {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "routescope:", err)
		os.Exit(1)
	}
}
