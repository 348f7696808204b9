// Package cert provides the TLS certificate for the HTTP/3 listener: either
// a configured key pair or a self-signed Ed25519 certificate.
package cert

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"
)

// DefaultValidityPeriod is used when Config.CertValidityPeriod is zero.
const DefaultValidityPeriod = 365 * 24 * time.Hour

// Generator creates self-signed TLS certificates with Ed25519 keys.
type Generator struct {
	config Config
}

// Config contains the parameters needed for certificate generation.
type Config struct {
	// CommonName is the certificate subject
	CommonName string
	// Hosts are DNS names or IP addresses the certificate is valid for
	Hosts []string
	// CertValidityPeriod defines how long the certificate remains valid
	CertValidityPeriod time.Duration
}

// NewGenerator creates a new certificate generator with the given configuration.
func NewGenerator(config Config) *Generator {
	if config.CertValidityPeriod <= 0 {
		config.CertValidityPeriod = DefaultValidityPeriod
	}
	return &Generator{config: config}
}

// GenerateCertificate creates a new self-signed server certificate signed
// by a freshly generated Ed25519 key.
func (g *Generator) GenerateCertificate() (*tls.Certificate, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName: g.config.CommonName,
		},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(g.config.CertValidityPeriod),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		SignatureAlgorithm:    x509.PureEd25519,
		PublicKeyAlgorithm:    x509.Ed25519,
		BasicConstraintsValid: true,
	}
	for _, h := range g.config.Hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// Load reads a PEM key pair from disk.
func Load(certFile, keyFile string) (*tls.Certificate, error) {
	pair, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load key pair: %w", err)
	}
	return &pair, nil
}

// HostsFor returns the names a self-signed certificate should cover for a
// listen address such as "127.0.0.1:8443" or ":8443".
func HostsFor(addr string) []string {
	host, _, err := net.SplitHostPort(addr)
	switch {
	case err != nil, host == "", host == "0.0.0.0", host == "::", host == "localhost":
		return []string{"localhost", "127.0.0.1", "::1"}
	default:
		return []string{host}
	}
}
