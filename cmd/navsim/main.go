package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"voxelnav/internal/config"
)

func main() {
	var (
		cfgPath  string
		opts     options
		duration time.Duration
	)
	flag.StringVar(&cfgPath, "config", "", "path to navigation configuration file")
	flag.IntVar(&opts.fromX, "fromx", 0, "spawn column X")
	flag.IntVar(&opts.fromZ, "fromz", 0, "spawn column Z")
	flag.IntVar(&opts.toX, "tox", 24, "destination column X")
	flag.IntVar(&opts.toZ, "toz", 24, "destination column Z")
	flag.StringVar(&opts.command, "command", "", "pathfind command to run instead of navigating to the destination column")
	flag.StringVar(&opts.listen, "listen", "", "address for /metrics and /status (overrides telemetry.listen)")
	flag.StringVar(&opts.traceDir, "trace", "", "directory for compressed navigation traces (overrides telemetry.trace_dir)")
	flag.BoolVar(&opts.stay, "stay", false, "keep running after the avatar settles")
	flag.DurationVar(&duration, "duration", time.Minute, "maximum run time")
	flag.Parse()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	if duration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, duration)
		defer stop()
	}

	logger := log.New(os.Stderr, "navsim ", log.LstdFlags|log.Lmicroseconds)
	rep, err := run(ctx, cfg, opts, logger)
	if err != nil {
		log.Fatalf("navsim: %v", err)
	}

	fmt.Printf("Spawn: %v\n", rep.Spawn)
	fmt.Printf("Destination: %v\n", rep.Destination)
	fmt.Printf("Arrived: %t after %d ticks\n", rep.Arrived, rep.Ticks)
	fmt.Printf("Final position: (%.2f, %.2f, %.2f)\n", rep.Final.X, rep.Final.Y, rep.Final.Z)
	if rep.Outcome != "" {
		fmt.Printf("Search outcome: %s\n", rep.Outcome)
	}
	names := make([]string, 0, len(rep.Variables))
	for name := range rep.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  $%s = %s\n", name, rep.Variables[name])
	}
}

// loadConfig prefers a configuration handed over through the environment.
func loadConfig(path string) (*config.Config, error) {
	cfg, ok, err := config.FromEnv()
	if ok {
		return cfg, err
	}
	return config.Load(path)
}

func splitCommand(command string) []string {
	fields := strings.Fields(command)
	if len(fields) > 0 && strings.EqualFold(fields[0], "pathfind") {
		fields = fields[1:]
	}
	return fields
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			return
		}

		time.AfterFunc(10*time.Second, func() {
			log.Printf("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
