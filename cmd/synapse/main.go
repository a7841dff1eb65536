// =============================================================================
// Synapse 主入口
// =============================================================================
// 多模型顺序对话编排引擎的命令行入口
//
// 使用方法:
//
//	synapse run --topic "Should tabs beat spaces?"   # 运行一场辩论
//	synapse run --config config.yaml --mode consensus --panel a,b,c
//	synapse health                                   # 探测后端可用性
//	synapse profiles                                 # 列出画像档案
//	synapse version                                  # 显示版本信息
// =============================================================================

package main

import (
	"fmt"
	"os"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runDialogue(os.Args[2:])
	case "health":
		runHealth(os.Args[2:])
	case "profiles":
		runProfiles(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("Synapse %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`Synapse - Multi-Model Dialogue Engine

Usage:
  synapse <command> [options]

Commands:
  run       Run one dialogue session in the foreground
  health    Probe every configured backend
  profiles  List available persona profiles
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>        Path to configuration file (YAML)
  --topic <text>         Dialogue topic (required)
  --mode <mode>          adversarial (default) or consensus
  --pro <backend>        PRO-side backend, adversarial mode (default "pro")
  --con <backend>        CON-side backend, adversarial mode (default "con")
  --panel <a,b,c>        Panelist backends, consensus mode (at least 3)
  --max-turns <n>        Turn budget (0 = mode default)
  --dynamic-termination  Stop early on concession or stalemate
  --profile <name>       Persona profile to apply
  --context-file <path>  File injected as external context
  --temperature <f>      Sampling temperature (0 = engine default)
  --max-tokens <n>       Per-turn token cap (0 = engine default)
  --timeout <dur>        Overall run timeout, e.g. 10m (0 = none)
  --metrics              Serve Prometheus metrics during the run
  --json                 Print the result as JSON

Examples:
  synapse run --topic "Should serverless replace containers?"
  synapse run --config synapse.yaml --topic "Monorepo or polyrepo?" --profile steelman
  synapse run --mode consensus --panel optimist,skeptic,pragmatist --topic "Adopt Rust?"
  synapse health --config synapse.yaml
  synapse profiles --file personas.yaml`)
}
