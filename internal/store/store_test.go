package store

import (
	"crypto/ed25519"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolwitness/internal/certificate"
	"toolwitness/internal/evidence"
	"toolwitness/internal/scorer"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "certs", "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testCert(tool string, level scorer.Level, at time.Time) *certificate.Certificate {
	ev := evidence.Evidence{
		SubprocessSpawned: 1,
		FilesystemChanges: []evidence.Change{
			{Kind: evidence.ChangeAdded, Path: "out.txt", SizeDelta: 12},
		},
		ExecutionTime: 42 * time.Millisecond,
	}
	cert := certificate.New(tool, ev, nil, 0.8, level)
	cert.VerifiedAt = at
	return cert
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	want := testCert("FileWriter", scorer.Authentic, time.Now().UTC())
	id, err := s.Insert(want)
	require.NoError(t, err)
	require.Positive(t, id)

	rec, err := s.Get(id)
	require.NoError(t, err)
	require.NotNil(t, rec)

	got := rec.Certificate
	assert.Equal(t, "FileWriter", got.ToolName)
	assert.Equal(t, scorer.Authentic, got.AuthenticityLevel)
	assert.Equal(t, 0.8, got.ConfidenceScore)
	assert.Equal(t, 1, got.Evidence.SubprocessSpawned)
	require.Len(t, got.Evidence.FilesystemChanges, 1)
	assert.Equal(t, "out.txt", got.Evidence.FilesystemChanges[0].Path)
	assert.Equal(t, 42*time.Millisecond, got.Evidence.ExecutionTime)
}

func TestGetMissingRowReturnsNil(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.Get(999)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestInsertNilRejected(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Insert(nil)
	assert.Error(t, err)
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, tool := range []string{"old", "mid", "new"} {
		_, err := s.Insert(testCert(tool, scorer.Authentic, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	records, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].Certificate.ToolName)
	assert.Equal(t, "mid", records[1].Certificate.ToolName)
}

func TestListByToolHonorsTimeRange(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := s.Insert(testCert("ShellTool", scorer.LikelyAuthentic, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}
	_, err := s.Insert(testCert("OtherTool", scorer.Authentic, base))
	require.NoError(t, err)

	records, err := s.ListByTool("ShellTool", base.Add(time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Certificate.VerifiedAt.Before(records[1].Certificate.VerifiedAt))
	for _, r := range records {
		assert.Equal(t, "ShellTool", r.Certificate.ToolName)
	}
}

func TestLevelCounts(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC()
	levels := []scorer.Level{
		scorer.Authentic, scorer.Authentic, scorer.Fabricated, scorer.Suspicious,
	}
	for _, level := range levels {
		_, err := s.Insert(testCert("tool", level, now))
		require.NoError(t, err)
	}

	counts, err := s.LevelCounts()
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Total)
	assert.Equal(t, 2, counts.ByLevel["authentic"])
	assert.Equal(t, 1, counts.ByLevel["fabricated"])
	assert.Equal(t, 1, counts.ByLevel["suspicious"])
	assert.Equal(t, 0.25, counts.FabricationRate)
}

func TestSignedCertificateSurvivesStorage(t *testing.T) {
	s := openTestStore(t)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	cert := testCert("FileWriter", scorer.Authentic, time.Now().UTC())
	cert.Sign(priv)
	id, err := s.Insert(cert)
	require.NoError(t, err)

	rec, err := s.Get(id)
	require.NoError(t, err)
	assert.True(t, rec.Certificate.VerifySignature(pub),
		"signature must survive the storage round trip")
}
