package mcp

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/mcpbroker/config"
)

// TLSConfig loads the server certificate and, when configured, the client CA.
func TLSConfig(ctx context.Context, cfg *config.TLS) (*tls.Config, error) {
	fs := afs.New()
	certPEM, err := fs.DownloadWithURL(ctx, cfg.CertFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate %v: %w", cfg.CertFile, err)
	}
	keyPEM, err := fs.DownloadWithURL(ctx, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load key %v: %w", cfg.KeyFile, err)
	}
	certificate, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("invalid certificate pair: %w", err)
	}
	ret := &tls.Config{
		Certificates: []tls.Certificate{certificate},
		MinVersion:   tls.VersionTLS12,
	}
	if cfg.CAFile == "" {
		return ret, nil
	}
	caPEM, err := fs.DownloadWithURL(ctx, cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client CA %v: %w", cfg.CAFile, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("no certificates found in %v", cfg.CAFile)
	}
	ret.ClientCAs = pool
	ret.ClientAuth = tls.VerifyClientCertIfGiven
	if cfg.RequireClientCert {
		ret.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return ret, nil
}
