package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	synapse "github.com/dlorp/synapse-engine-sub010"
	"github.com/dlorp/synapse-engine-sub010/persona"
)

// =============================================================================
// 🏥 health 命令
// =============================================================================

func runHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	timeout := fs.Duration("timeout", 10*time.Second, "Probe timeout")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	// 探测命令只输出探测结果，压掉装配日志
	cfg.Log.Level = "error"

	eng, err := synapse.FromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build engine: %v\n", err)
		os.Exit(1)
	}
	defer eng.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	statuses := eng.Health(ctx)
	if len(statuses) == 0 {
		fmt.Fprintln(os.Stderr, "No backends configured")
		os.Exit(1)
	}

	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := false
	for _, name := range names {
		status := statuses[name]
		state := "OK"
		if !status.Healthy {
			state = "FAIL"
			failed = true
		}
		fmt.Printf("%-24s %-5s %s\n", name, state, status.Latency.Round(time.Millisecond))
	}
	if failed {
		os.Exit(1)
	}
}

// =============================================================================
// 🎭 profiles 命令
// =============================================================================

func runProfiles(args []string) {
	fs := flag.NewFlagSet("profiles", flag.ExitOnError)
	file := fs.String("file", "", "Additional persona profile YAML")
	fs.Parse(args)

	reg := persona.DefaultRegistry(nil)
	if *file != "" {
		loaded, err := persona.LoadFile(*file, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load persona file: %v\n", err)
			os.Exit(1)
		}
		reg = loaded
	}

	for _, name := range reg.List() {
		p, ok := reg.Get(name)
		if !ok {
			continue
		}
		fmt.Printf("%-16s %-12s %s\n", p.Name, p.Mode, p.Description)
	}
}
