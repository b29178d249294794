package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"toolwitness/internal/certificate"
	"toolwitness/internal/evidence"
	"toolwitness/internal/scorer"
)

func cert(name string, level scorer.Level) *certificate.Certificate {
	return certificate.New(name, evidence.Evidence{}, nil, 0.5, level)
}

func TestEmptyRegisterHasZeroRates(t *testing.T) {
	s := New().Statistics()
	assert.Zero(t, s.Total)
	assert.Zero(t, s.FabricationRate)
	assert.Zero(t, s.AuthenticRate)
	assert.Empty(t, s.History)
}

func TestRatesWithOneOfEach(t *testing.T) {
	r := New()
	r.Record(cert("real", scorer.Authentic))
	r.Record(cert("fake", scorer.Fabricated))

	s := r.Statistics()
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.FabricationCount)
	assert.Equal(t, 1, s.AuthenticCount)
	assert.Equal(t, 0.5, s.FabricationRate)
	assert.Equal(t, 0.5, s.AuthenticRate)
}

func TestSuspiciousIncrementsNeitherCounter(t *testing.T) {
	r := New()
	r.Record(cert("meh", scorer.Suspicious))
	r.Record(cert("ok", scorer.LikelyAuthentic))

	s := r.Statistics()
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 0, s.FabricationCount)
	assert.Equal(t, 1, s.AuthenticCount, "likely_authentic counts as authentic")
	assert.Equal(t, 0.5, s.AuthenticRate)
}

func TestHistoryPreservesRecordOrder(t *testing.T) {
	r := New()
	r.Record(cert("first", scorer.Authentic))
	r.Record(cert("second", scorer.Fabricated))
	r.Record(cert("third", scorer.Suspicious))

	s := r.Statistics()
	assert.Equal(t, []string{"first", "second", "third"}, []string{
		s.History[0].ToolName, s.History[1].ToolName, s.History[2].ToolName,
	})
	assert.Equal(t, "fabricated", s.History[1].AuthenticityLevel)

	certs := r.Certificates()
	assert.Len(t, certs, 3)
	assert.Equal(t, "second", certs[1].ToolName)
}

func TestNilCertificateIgnored(t *testing.T) {
	r := New()
	r.Record(nil)
	assert.Zero(t, r.Statistics().Total)
}

func TestConcurrentRecording(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Record(cert("worker", scorer.Authentic))
			r.Record(cert("worker", scorer.Fabricated))
		}()
	}
	wg.Wait()

	s := r.Statistics()
	assert.Equal(t, 100, s.Total)
	assert.Equal(t, 50, s.FabricationCount)
	assert.Equal(t, 50, s.AuthenticCount)
}
