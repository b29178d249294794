// toolwitness is the control CLI for the tool execution verifier.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"toolwitness/internal/certificate"
	"toolwitness/internal/config"
	"toolwitness/internal/logging"
	"toolwitness/internal/monitor"
	"toolwitness/internal/signer"
	"toolwitness/internal/store"
)

var (
	configPath = flag.String("config", "", "path to config file")
	strictMode = flag.Bool("strict", false, "block fabricated results")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)

	switch cmd {
	case "run":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: toolwitness run <command> [args...]")
			os.Exit(1)
		}
		cmdRun(flag.Args()[1:])
	case "history":
		cmdHistory()
	case "stats":
		cmdStats()
	case "verify":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: toolwitness verify <certificate.json>")
			os.Exit(1)
		}
		cmdVerify(flag.Arg(1))
	case "keygen":
		cmdKeygen()
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `toolwitness - Tool execution authenticity verifier

Usage: toolwitness [options] <command> [args]

Commands:
  run <cmd> [args]  Run a command under monitoring and print its certificate
  history           Print recent certificates from the audit store
  stats             Print verdict statistics from the audit store
  verify <file>     Check an exported certificate and its signature
  keygen            Generate a certificate signing key
  help              Show this help message

Options:
  -config <path>    Path to config file (default: ~/.toolwitness/config.toml)
  -strict           Block fabricated results (exit non-zero)`)
}

func loadConfig() *config.Config {
	cfg, _, err := config.LoadOrCreate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) *logging.Logger {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		format = logging.FormatText
	}
	log, err := logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "toolwitness",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(log)
	return log
}

func monitorConfig(cfg *config.Config) monitor.Config {
	mc := monitor.DefaultConfig()
	mc.StrictMode = cfg.Monitor.StrictMode || *strictMode
	mc.ScanRoot = cfg.Monitor.ScanRoot
	mc.MaxScanDepth = cfg.Monitor.MaxScanDepth
	mc.FabricationPatterns = cfg.Monitor.FabricationPatterns
	mc.Weights = cfg.Scoring.Weights()

	if cfg.Signing.Enabled {
		key, err := signer.LoadPrivateKey(cfg.Signing.KeyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading signing key: %v\n", err)
			os.Exit(1)
		}
		mc.SigningKey = key
	}
	return mc
}

func cmdRun(args []string) {
	cfg := loadConfig()
	log := setupLogging(cfg)
	defer log.Close()

	mc := monitorConfig(cfg)

	tool := func(ctx context.Context) (string, error) {
		c := exec.CommandContext(ctx, args[0], args[1:]...)
		out, err := c.CombinedOutput()
		return string(out), err
	}

	toolName := strings.Join(args, " ")
	result, cert, err := monitor.Verify(context.Background(), toolName, tool, mc)

	if cert != nil {
		persistCertificate(cfg, cert)
		printCertificate(cert)
	}

	if result != "" {
		fmt.Println()
		fmt.Println("Output:")
		fmt.Print(result)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}
}

func persistCertificate(cfg *config.Config, cert *certificate.Certificate) {
	if !cfg.Storage.Enabled {
		return
	}
	s, err := store.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: audit store unavailable: %v\n", err)
		return
	}
	defer s.Close()
	if _, err := s.Insert(cert); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: store certificate: %v\n", err)
	}
}

func printCertificate(cert *certificate.Certificate) {
	fmt.Println("=== Execution Certificate ===")
	fmt.Printf("Tool:        %s\n", cert.ToolName)
	fmt.Printf("Verdict:     %s\n", cert.AuthenticityLevel)
	fmt.Printf("Confidence:  %.2f\n", cert.ConfidenceScore)
	fmt.Printf("Subprocess:  %d spawned\n", cert.Evidence.SubprocessSpawned)
	fmt.Printf("Filesystem:  %d changes\n", len(cert.Evidence.FilesystemChanges))
	fmt.Printf("Elapsed:     %s\n", cert.Evidence.ExecutionTime)
	if len(cert.FabricationIndicators) > 0 {
		fmt.Println("Indicators:")
		for _, ind := range cert.FabricationIndicators {
			fmt.Printf("  - %q\n", ind)
		}
	}
	if cert.Signature != "" {
		fmt.Printf("Signature:   %s...\n", cert.Signature[:32])
	}
}

func cmdHistory() {
	cfg := loadConfig()

	s, err := store.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audit store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	records, err := s.Recent(100)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Println("No certificates recorded.")
		return
	}

	fmt.Println("=== Certificate History ===")
	fmt.Printf("%-6s %-30s %-18s %-10s %s\n", "ID", "Tool", "Verdict", "Score", "Verified At")
	fmt.Println(strings.Repeat("-", 90))
	for _, r := range records {
		cert := r.Certificate
		tool := cert.ToolName
		if len(tool) > 28 {
			tool = tool[:25] + "..."
		}
		fmt.Printf("%-6d %-30s %-18s %-10.2f %s\n",
			r.ID, tool, cert.AuthenticityLevel, cert.ConfidenceScore,
			cert.VerifiedAt.Format(time.RFC3339))
	}
}

func cmdStats() {
	cfg := loadConfig()

	s, err := store.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audit store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	counts, err := s.LevelCounts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading statistics: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Verdict Statistics ===")
	fmt.Printf("Total certificates: %d\n", counts.Total)
	if counts.Total == 0 {
		return
	}
	for _, level := range []string{"authentic", "likely_authentic", "suspicious", "fabricated"} {
		if n, ok := counts.ByLevel[level]; ok {
			fmt.Printf("  %-18s %d\n", level+":", n)
		}
	}
	fmt.Printf("Fabrication rate:   %.1f%%\n", counts.FabricationRate*100)
}

func cmdVerify(path string) {
	cfg := loadConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading certificate: %v\n", err)
		os.Exit(1)
	}

	cert, err := certificate.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Certificate INVALID: %v\n", err)
		os.Exit(1)
	}

	printCertificate(cert)
	fmt.Println()

	if cert.Signature == "" {
		fmt.Println("Certificate is well-formed (unsigned).")
		return
	}

	pubKey, err := signer.LoadPublicKey(cfg.Signing.KeyPath + ".pub")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading public key: %v\n", err)
		os.Exit(1)
	}

	if cert.VerifySignature(pubKey) {
		fmt.Println("Signature VALID")
	} else {
		fmt.Println("Signature INVALID")
		os.Exit(1)
	}
}

func cmdKeygen() {
	cfg := loadConfig()

	if _, err := os.Stat(cfg.Signing.KeyPath); err == nil {
		fmt.Fprintf(os.Stderr, "Key already exists: %s\n", cfg.Signing.KeyPath)
		os.Exit(1)
	}

	if _, err := signer.GenerateKey(cfg.Signing.KeyPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating key: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Signing key written to: %s\n", cfg.Signing.KeyPath)
}
