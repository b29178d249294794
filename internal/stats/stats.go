// Package stats keeps running tallies of issued authenticity certificates.
//
// The register is purely additive bookkeeping: it never feeds back into
// scoring. It is an explicit, constructor-injected dependency — callers
// that want process-wide statistics share one Register across their
// monitors; record calls are serialized internally so concurrent sessions
// may complete at the same time.
package stats

import (
	"sync"
	"time"

	"toolwitness/internal/certificate"
)

// HistoryEntry summarizes one recorded certificate.
type HistoryEntry struct {
	ToolName          string    `json:"tool_name"`
	AuthenticityLevel string    `json:"authenticity_level"`
	ConfidenceScore   float64   `json:"confidence_score"`
	VerifiedAt        time.Time `json:"verified_at"`
}

// Statistics is a point-in-time snapshot of the register.
type Statistics struct {
	Total            int            `json:"total"`
	FabricationCount int            `json:"fabrication_count"`
	AuthenticCount   int            `json:"authentic_count"`
	FabricationRate  float64        `json:"fabrication_rate"`
	AuthenticRate    float64        `json:"authentic_rate"`
	History          []HistoryEntry `json:"history"`
}

// Register tallies certificates. The zero value is not usable; use New.
type Register struct {
	mu               sync.Mutex
	history          []*certificate.Certificate
	fabricationCount int
	authenticCount   int
}

// New creates an empty register.
func New() *Register {
	return &Register{}
}

// Record appends a certificate to the history and updates the counters.
// Suspicious verdicts are counted in the total but increment neither the
// fabrication nor the authentic tally.
func (r *Register) Record(cert *certificate.Certificate) {
	if cert == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, cert)
	switch {
	case cert.IsFabricated():
		r.fabricationCount++
	case cert.IsAuthentic():
		r.authenticCount++
	}
}

// Statistics returns totals, rates, and a copy of the history. Rates are
// zero when nothing has been recorded.
func (r *Register) Statistics() Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Statistics{
		Total:            len(r.history),
		FabricationCount: r.fabricationCount,
		AuthenticCount:   r.authenticCount,
	}
	if s.Total > 0 {
		s.FabricationRate = float64(r.fabricationCount) / float64(s.Total)
		s.AuthenticRate = float64(r.authenticCount) / float64(s.Total)
	}

	s.History = make([]HistoryEntry, 0, len(r.history))
	for _, cert := range r.history {
		s.History = append(s.History, HistoryEntry{
			ToolName:          cert.ToolName,
			AuthenticityLevel: cert.AuthenticityLevel.String(),
			ConfidenceScore:   cert.ConfidenceScore,
			VerifiedAt:        cert.VerifiedAt,
		})
	}
	return s
}

// Certificates returns a copy of the recorded certificate history in
// record order.
func (r *Register) Certificates() []*certificate.Certificate {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*certificate.Certificate, len(r.history))
	copy(out, r.history)
	return out
}
