package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/chuangbo/socksd/internal/config"
	"github.com/chuangbo/socksd/internal/dialer"
	"github.com/chuangbo/socksd/internal/proxy"
	"github.com/chuangbo/socksd/internal/resolver"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = pflag.String("config", "", "Path to YAML config file. Flags set on the command line override file values.")

		listen       = pflag.String("listen", ":1080", "SOCKS5 listen address (e.g. 127.0.0.1:1080)")
		dnsServer    = pflag.String("dns-server", "", "DNS server for domain destinations (host:port). Empty uses the system resolver.")
		dialTimeout  = pflag.Duration("dial-timeout", 10*time.Second, "Timeout for outbound TCP connect. 0 disables.")
		tcpKeepAlive = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		debugListen  = pflag.String("debug-listen", "", "Debug HTTP listen address exposing /debug/pprof (e.g. 127.0.0.1:6060). Empty disables.")
		verbose      = pflag.Bool("verbose", false, "Enable per-connection debug logging")
	)

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	// Command-line flags win over file values.
	if pflag.CommandLine.Changed("listen") {
		cfg.Listen = *listen
	}
	if pflag.CommandLine.Changed("dns-server") {
		cfg.DNSServer = *dnsServer
	}
	if pflag.CommandLine.Changed("dial-timeout") {
		cfg.DialTimeout = dialTimeout.String()
	}
	if pflag.CommandLine.Changed("tcp-keepalive") {
		cfg.TCPKeepAlive = *tcpKeepAlive
	}
	if pflag.CommandLine.Changed("debug-listen") {
		cfg.DebugListen = *debugListen
	}
	if pflag.CommandLine.Changed("verbose") {
		cfg.Verbose = *verbose
	}

	ka, err := parseTCPKeepAlive(cfg.TCPKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid tcp-keepalive: %w", err)
	}

	dt, err := cfg.ParseDialTimeout()
	if err != nil {
		return fmt.Errorf("invalid dial-timeout: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	proxyCfg := proxy.Config{
		Dialer:    dialer.NewDirectDialer(dialer.Config{DialTimeout: dt, KeepAlive: ka}),
		Resolver:  resolver.New(resolver.Config{DNSServer: cfg.DNSServer, Timeout: dt}),
		KeepAlive: ka,
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DebugListen != "" {
		debugSrv := &http.Server{Handler: http.DefaultServeMux} //nolint:gosec // Not concerned about timeouts on debug port.
		lc := net.ListenConfig{KeepAliveConfig: ka}
		debugLn, err := lc.Listen(ctx, "tcp", cfg.DebugListen)
		if err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
			_ = debugLn.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		log.Info("debug listening", "address", cfg.DebugListen)
	}

	ln, err := proxy.ListenTCP("tcp", cfg.Listen, ka)
	if err != nil {
		return fmt.Errorf("socks5 listen: %w", err)
	}
	srv := proxy.NewServer(ctx, proxyCfg, log)
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil {
			return fmt.Errorf("socks5 serve: %w", err)
		}
		return nil
	})
	log.Info("socks5 proxy listening", "address", cfg.Listen)

	err = g.Wait()
	if errors.Is(err, net.ErrClosed) || errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	log.Info("shutting down")
	return err
}

func loadConfig(path string) (*config.Config, error) {
	cfg := &config.Config{}
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// parseTCPKeepAlive parses "on", "off", or "keepidle:keepintvl:keepcnt"
// (seconds, seconds, count).
func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	switch s = strings.TrimSpace(strings.ToLower(s)); s {
	case "":
		return net.KeepAliveConfig{}, errors.New("empty")
	case "on":
		return net.KeepAliveConfig{Enable: true}, nil
	case "off":
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return net.KeepAliveConfig{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		if n <= 0 {
			return net.KeepAliveConfig{}, fmt.Errorf("field %d: must be > 0", i+1)
		}
		nums[i] = n
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     time.Duration(nums[0]) * time.Second,
		Interval: time.Duration(nums[1]) * time.Second,
		Count:    nums[2],
	}, nil
}
