package monitor

import (
	"context"
	"fmt"

	"toolwitness/internal/certificate"
)

// Tool is a monitored operation. The returned string is the result text
// that gets scanned for fabrication markers.
type Tool func(ctx context.Context) (string, error)

// FabricationBlockedError is returned by Verify in strict mode when the
// issued certificate carries a fabricated verdict. The certificate is
// attached so callers can still inspect and persist the evidence.
type FabricationBlockedError struct {
	ToolName    string
	Indicators  []string
	Certificate *certificate.Certificate
}

func (e *FabricationBlockedError) Error() string {
	return fmt.Sprintf("monitor: fabricated result blocked for tool %q (%d indicators)",
		e.ToolName, len(e.Indicators))
}

// Verify runs a tool under a fresh monitoring session and returns its
// result text together with the authenticity certificate.
//
// A tool failure is still certified: the error text is scanned and the
// certificate issued before the original error is returned. In strict
// mode a successful call whose certificate is fabricated yields a
// FabricationBlockedError instead of the result.
func Verify(ctx context.Context, toolName string, tool Tool, cfg Config) (string, *certificate.Certificate, error) {
	s := NewSession(cfg)
	if err := s.Start(); err != nil {
		return "", nil, err
	}

	result, toolErr := tool(ctx)

	text := result
	if toolErr != nil {
		text = fmt.Sprintf("Tool execution failed: %v", toolErr)
	}

	cert, err := s.StopAndVerify(toolName, text)
	if err != nil {
		return "", nil, err
	}
	if toolErr != nil {
		return "", cert, toolErr
	}

	if cfg.StrictMode && cert.IsFabricated() {
		return "", cert, &FabricationBlockedError{
			ToolName:    toolName,
			Indicators:  cert.FabricationIndicators,
			Certificate: cert,
		}
	}
	return result, cert, nil
}
