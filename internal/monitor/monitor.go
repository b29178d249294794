// Package monitor certifies whether a monitored tool call genuinely
// performed work or fabricated a plausible-sounding result.
//
// A Session brackets one call with environment snapshots and folds the
// observed deltas, together with fabrication markers in the result text,
// into an authenticity certificate. Sessions are single-use and
// single-owner: nested or concurrent monitoring requires one Session per
// call. The higher-level Verify wraps the whole start/invoke/stop cycle
// and enforces strict mode.
package monitor

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"toolwitness/internal/certificate"
	"toolwitness/internal/evidence"
	"toolwitness/internal/logging"
	"toolwitness/internal/scanner"
	"toolwitness/internal/scorer"
	"toolwitness/internal/snapshot"
	"toolwitness/internal/stats"
)

// DefaultMaxScanDepth bounds filesystem traversal when the caller does
// not configure a depth.
const DefaultMaxScanDepth = 2

// capture is replaced in tests to feed sessions deterministic snapshots.
var capture = snapshot.Capture

// State tags the session lifecycle.
type State int

const (
	StateIdle State = iota
	StateMonitoring
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMonitoring:
		return "monitoring"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// InvalidStateError reports a session API call made in the wrong state.
// Sessions are single-use; this is a programmer error, not a runtime
// condition to retry.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("monitor: cannot %s in state %s", e.Op, e.State)
}

// Config holds per-session monitoring options.
type Config struct {
	// StrictMode converts a fabricated verdict into a hard failure in
	// Verify instead of an advisory certificate.
	StrictMode bool

	// FabricationPatterns are additional phrases merged into the default
	// pattern set. Additive only; defaults are never replaced.
	FabricationPatterns []string

	// MaxScanDepth bounds the filesystem snapshot traversal. Zero scans
	// only the root's immediate entries; a negative value means unset and
	// falls back to the default.
	MaxScanDepth int

	// ScanRoot is the directory observed for filesystem evidence.
	// Defaults to the working directory.
	ScanRoot string

	// Weights are the scoring coefficients. Zero value means defaults.
	Weights scorer.Weights

	// SigningKey, when set, signs every issued certificate.
	SigningKey ed25519.PrivateKey

	// Register, when set, receives every issued certificate. Injected
	// explicitly; there is no ambient global register.
	Register *stats.Register

	// Logger for verdict logging. Nil means the default logger.
	Logger *logging.Logger
}

// DefaultConfig returns the documented defaults: advisory mode, default
// patterns, scan depth 2, working-directory scan root.
func DefaultConfig() Config {
	return Config{
		MaxScanDepth: DefaultMaxScanDepth,
		ScanRoot:     ".",
		Weights:      scorer.DefaultWeights(),
	}
}

// normalized fills unset fields with defaults.
func (c Config) normalized() Config {
	if c.MaxScanDepth < 0 {
		c.MaxScanDepth = DefaultMaxScanDepth
	}
	if c.ScanRoot == "" {
		c.ScanRoot = "."
	}
	if c.Weights == (scorer.Weights{}) {
		c.Weights = scorer.DefaultWeights()
	}
	if c.Logger == nil {
		c.Logger = logging.Default()
	}
	return c
}

// Session is a single-use evidence collector around one tool call.
type Session struct {
	mu      sync.Mutex
	cfg     Config
	scanner *scanner.Scanner
	state   State
	before  *snapshot.Snapshot
}

// NewSession creates an idle session with the given configuration.
func NewSession(cfg Config) *Session {
	cfg = cfg.normalized()
	return &Session{
		cfg:     cfg,
		scanner: scanner.New(cfg.FabricationPatterns...),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start captures the "before" snapshot and transitions to monitoring.
// Valid only from the idle state.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return &InvalidStateError{Op: "start monitoring", State: s.state}
	}
	s.before = capture(s.cfg.ScanRoot, s.cfg.MaxScanDepth)
	s.state = StateMonitoring
	return nil
}

// StopAndVerify captures the "after" snapshot, derives execution
// evidence, scans the result text for fabrication markers, and issues the
// certificate. Valid only while monitoring; the session is spent
// afterwards.
func (s *Session) StopAndVerify(toolName, resultText string) (*certificate.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateMonitoring {
		return nil, &InvalidStateError{Op: "stop monitoring", State: s.state}
	}

	after := capture(s.cfg.ScanRoot, s.cfg.MaxScanDepth)
	ev := evidence.Diff(s.before, after)
	s.before = nil
	s.state = StateStopped

	indicators := s.scanner.Scan(resultText)
	score, level := scorer.Score(s.cfg.Weights, ev, indicators)

	cert := certificate.New(toolName, ev, indicators, score, level)
	if s.cfg.SigningKey != nil {
		cert.Sign(s.cfg.SigningKey)
	}
	if s.cfg.Register != nil {
		s.cfg.Register.Record(cert)
	}

	s.logVerdict(cert)
	return cert, nil
}

func (s *Session) logVerdict(cert *certificate.Certificate) {
	log := s.cfg.Logger
	if cert.IsFabricated() {
		log.Warn("fabrication detected",
			"tool", cert.ToolName,
			"level", cert.AuthenticityLevel.String(),
			"confidence", cert.ConfidenceScore,
			"indicators", len(cert.FabricationIndicators))
		return
	}
	log.Debug("tool execution verified",
		"tool", cert.ToolName,
		"level", cert.AuthenticityLevel.String(),
		"confidence", cert.ConfidenceScore,
		"elapsed", cert.Evidence.ExecutionTime)
}
