// Package keystore resolves the taxpayer's credential material for the
// ARCA clients.
//
// Certificate and private key each arrive either as inline PEM content
// (typically injected through an environment variable) or as a file
// path. Inline content takes precedence, matching how deployments
// without a writable filesystem are configured.
package keystore

import (
	"os"
	"strings"
	"sync"

	"github.com/ObregonJeronimo/GestionAR/internal/config"
	"github.com/ObregonJeronimo/GestionAR/pkg/arca"
)

// Provider supplies arca.Credentials resolved from configuration. Safe
// for concurrent use; the resolved material is cached after the first
// successful load.
type Provider struct {
	cfg config.ARCAConfig

	mu    sync.Mutex
	creds *arca.Credentials
}

// NewProvider creates a credential provider for the given ARCA
// configuration.
func NewProvider(cfg config.ARCAConfig) *Provider {
	return &Provider{cfg: cfg}
}

// Credentials resolves and returns the credential material.
func (p *Provider) Credentials() (*arca.Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.creds != nil {
		return p.creds, nil
	}

	certPEM, err := resolve(p.cfg.Certificate, "certificate")
	if err != nil {
		return nil, err
	}
	keyPEM, err := resolve(p.cfg.PrivateKey, "private key")
	if err != nil {
		return nil, err
	}

	creds := &arca.Credentials{
		CertPEM: certPEM,
		KeyPEM:  keyPEM,
		CUIT:    p.cfg.CUIT,
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	p.creds = creds
	return creds, nil
}

// Invalidate drops the cached material so the next call re-resolves
// it, e.g. after a certificate rotation on disk.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creds = nil
}

func resolve(m config.Material, what string) ([]byte, error) {
	if m.Content != "" {
		// Inline PEM often arrives with literal \n sequences when set
		// through an environment variable.
		return []byte(strings.ReplaceAll(m.Content, `\n`, "\n")), nil
	}
	if m.Path != "" {
		data, err := os.ReadFile(m.Path)
		if err != nil {
			return nil, &arca.ConfigurationError{Reason: "reading " + what, Err: err}
		}
		return data, nil
	}
	return nil, &arca.ConfigurationError{Reason: what + " is not configured"}
}
