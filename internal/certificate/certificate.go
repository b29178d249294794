// Package certificate implements the tool execution certificate, the
// immutable verdict object issued for one monitored call.
//
// A certificate combines the environmental evidence, the matched
// fabrication phrases, a confidence score, and a discretized authenticity
// level. It is created exactly once per monitored call and outlives the
// monitoring session; callers may retain a history. Certificates can be
// signed with the issuer's Ed25519 key so a verdict can be checked after
// export.
package certificate

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"toolwitness/internal/evidence"
	"toolwitness/internal/scorer"
	"toolwitness/internal/signer"
)

// Version is the current certificate format version.
const Version = 1

// Certificate is the authenticity verdict for one monitored tool call.
type Certificate struct {
	Version  int               `json:"version"`
	ToolName string            `json:"tool_name"`
	Evidence evidence.Evidence `json:"evidence"`

	// FabricationIndicators are the matched pattern phrases in scan
	// order, duplicates removed.
	FabricationIndicators []string `json:"fabrication_indicators,omitempty"`

	ConfidenceScore   float64      `json:"confidence_score"`
	AuthenticityLevel scorer.Level `json:"authenticity_level"`
	VerifiedAt        time.Time    `json:"verified_at"`

	// Signature is a hex-encoded Ed25519 signature over Hash(), present
	// when the issuing monitor was configured with a signing key.
	Signature string `json:"signature,omitempty"`
}

// New builds a certificate from scored evidence. The confidence score and
// level must come from the scorer; the verdict stays a pure function of
// evidence and indicators.
func New(toolName string, ev evidence.Evidence, indicators []string, score float64, level scorer.Level) *Certificate {
	return &Certificate{
		Version:               Version,
		ToolName:              toolName,
		Evidence:              ev,
		FabricationIndicators: indicators,
		ConfidenceScore:       score,
		AuthenticityLevel:     level,
		VerifiedAt:            time.Now(),
	}
}

// IsFabricated reports whether the verdict is Fabricated.
func (c *Certificate) IsFabricated() bool {
	return c.AuthenticityLevel == scorer.Fabricated
}

// IsAuthentic reports whether the verdict is Authentic or LikelyAuthentic.
func (c *Certificate) IsAuthentic() bool {
	return c.AuthenticityLevel == scorer.Authentic || c.AuthenticityLevel == scorer.LikelyAuthentic
}

// Hash returns the sha256 digest of the certificate's signing payload.
// The signature field is excluded so signing does not change the digest.
func (c *Certificate) Hash() [32]byte {
	unsigned := *c
	unsigned.Signature = ""
	data, _ := json.Marshal(&unsigned)
	return sha256.Sum256(data)
}

// Sign attaches an Ed25519 signature over the certificate digest. Part of
// certificate creation; a certificate must not be re-signed after it has
// been handed to callers.
func (c *Certificate) Sign(privKey ed25519.PrivateKey) {
	digest := c.Hash()
	c.Signature = hex.EncodeToString(signer.Sign(privKey, digest[:]))
}

// VerifySignature checks the attached signature against a public key.
func (c *Certificate) VerifySignature(pubKey ed25519.PublicKey) bool {
	if c.Signature == "" {
		return false
	}
	sig, err := hex.DecodeString(c.Signature)
	if err != nil {
		return false
	}
	digest := c.Hash()
	return signer.Verify(pubKey, digest[:], sig)
}

// Encode serializes the certificate to JSON.
func (c *Certificate) Encode() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Decode deserializes a certificate from JSON, validating it against the
// certificate schema first so malformed or truncated exports are rejected
// with a useful error.
func Decode(data []byte) (*Certificate, error) {
	if err := ValidateEncoded(data); err != nil {
		return nil, fmt.Errorf("certificate schema: %w", err)
	}
	var c Certificate
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
