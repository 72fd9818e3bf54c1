package api

import (
	"crypto/tls"
	"fmt"
	"os"
)

// TLSConfig holds certificate paths. A nil TLSConfig serves plain HTTP.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

// TLSFromEnv reads LORECRAFTER_TLS_CERT and LORECRAFTER_TLS_KEY. It returns
// nil unless both are set.
func TLSFromEnv() *TLSConfig {
	cert := os.Getenv("LORECRAFTER_TLS_CERT")
	key := os.Getenv("LORECRAFTER_TLS_KEY")
	if cert == "" || key == "" {
		return nil
	}
	return &TLSConfig{CertFile: cert, KeyFile: key}
}

func (c *TLSConfig) Enabled() bool {
	return c != nil && c.CertFile != "" && c.KeyFile != ""
}

// Load reads the key pair into a tls.Config with a TLS 1.2 floor.
func (c *TLSConfig) Load() (*tls.Config, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("tls not configured")
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load tls certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
