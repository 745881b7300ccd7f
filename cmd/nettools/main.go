package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sloppy/nettools/internal/db"
	"github.com/sloppy/nettools/internal/geo"
	"github.com/sloppy/nettools/internal/runs"
	"github.com/sloppy/nettools/internal/sim"
	"github.com/sloppy/nettools/internal/web"
)

const (
	defaultDBPath   = "nettools.db"
	shutdownTimeout = 5 * time.Second
)

// Swapped by tests.
var (
	newRand   = sim.NewRand
	newClock  = func() sim.Clock { return sim.RealClock }
	newClient = func() *geo.Client { return geo.NewClient(nil) }
)

func usage() string {
	return "Usage: nettools <serve|scan|ping|speedtest|mac|dns|whois|myip|history|export>"
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(out, usage())
		return 1
	}

	command := strings.ToLower(args[1])
	switch command {
	case "serve":
		return runServe(args[2:], out, errOut)
	case "scan":
		return runScan(args[2:], out, errOut)
	case "ping":
		return runPing(args[2:], out, errOut)
	case "speedtest":
		return runSpeedTest(args[2:], out, errOut)
	case "mac":
		return runMAC(args[2:], out, errOut)
	case "dns":
		return runDNS(args[2:], out, errOut)
	case "whois":
		return runWhois(args[2:], out, errOut)
	case "myip":
		return runMyIP(args[2:], out, errOut)
	case "history":
		return runHistory(args[2:], out, errOut)
	case "export":
		return runExport(args[2:], out, errOut)
	case "help", "-h", "--help":
		fmt.Fprintln(out, usage())
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n", command)
		fmt.Fprintln(out, usage())
		return 1
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func runServe(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(errOut)
	dbPath := fs.String("db", defaultDBPath, "path to database file")
	port := fs.Int("port", 8080, "port to listen on")
	cityPath := fs.String("geoip-city", "", "GeoLite2 City database for offline WHOIS")
	asnPath := fs.String("geoip-asn", "", "GeoLite2 ASN database (requires --geoip-city)")
	logLevel := fs.String("log-level", "info", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	level, err := parseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if *asnPath != "" && *cityPath == "" {
		fmt.Fprintln(errOut, "--geoip-asn requires --geoip-city")
		return 1
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	database, err := db.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(errOut, "open db: %v\n", err)
		return 1
	}
	defer database.Close()

	client := newClient()
	var resolver geo.Resolver = client
	if *cityPath != "" {
		mmdb, err := geo.OpenMMDB(*cityPath, *asnPath)
		if err != nil {
			fmt.Fprintf(errOut, "open geoip: %v\n", err)
			return 1
		}
		defer mmdb.Close()
		resolver = mmdb
		logger.Info("using offline geoip", "city", *cityPath, "asn", *asnPath)
	}

	manager := runs.NewManager(newRand(), newClock(), runs.NewDBStore(database), logger)
	server := web.NewServer(database, manager, resolver, client, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(out, "listening on http://localhost:%d\n", *port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		manager.Close()
		return err
	})
	if err := g.Wait(); err != nil {
		fmt.Fprintf(errOut, "serve: %v\n", err)
		return 1
	}
	return 0
}

// extractFlag finds a string flag (e.g., --db value) anywhere in args and returns its value and remaining args.
func extractFlag(args []string, name string, defaultVal string) (string, []string, error) {
	val := defaultVal
	var remaining []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--"+name || arg == "-"+name {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("%s flag requires a value", arg)
			}
			val = args[i+1]
			i++
			continue
		}
		remaining = append(remaining, arg)
	}
	return val, remaining, nil
}

// extractFlags pulls several flags at once, in order, with their defaults.
func extractFlags(args []string, names []string, defaults []string) ([]string, []string, error) {
	values := make([]string, len(names))
	remaining := args
	for i, name := range names {
		val, rest, err := extractFlag(remaining, name, defaults[i])
		if err != nil {
			return nil, nil, err
		}
		values[i] = val
		remaining = rest
	}
	return values, remaining, nil
}
