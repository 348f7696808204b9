package cert

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCertificateSuccess(t *testing.T) {
	generator := NewGenerator(Config{
		CommonName:         "homestore",
		Hosts:              []string{"localhost", "127.0.0.1"},
		CertValidityPeriod: 24 * time.Hour,
	})
	cert, err := generator.GenerateCertificate()
	require.NoError(t, err, "Failed to generate certificate")
	require.NotNil(t, cert.Leaf)

	assert.Equal(t, "homestore", cert.Leaf.Subject.CommonName)
	assert.Equal(t, []string{"localhost"}, cert.Leaf.DNSNames)
	require.Len(t, cert.Leaf.IPAddresses, 1)
	assert.True(t, cert.Leaf.IPAddresses[0].Equal(net.ParseIP("127.0.0.1")))
	assert.Equal(t, x509.PureEd25519, cert.Leaf.SignatureAlgorithm)
	assert.True(t, cert.Leaf.NotAfter.After(time.Now().Add(23*time.Hour)))

	assert.NoError(t, cert.Leaf.VerifyHostname("localhost"))
	assert.Error(t, cert.Leaf.VerifyHostname("example.com"))
}

func TestGenerateCertificateDefaultValidity(t *testing.T) {
	cert, err := NewGenerator(Config{CommonName: "x"}).GenerateCertificate()
	require.NoError(t, err)
	assert.True(t, cert.Leaf.NotAfter.After(time.Now().Add(DefaultValidityPeriod-time.Hour)))
}

func TestLoad(t *testing.T) {
	cert, err := NewGenerator(Config{CommonName: "homestore", Hosts: []string{"localhost"}}).GenerateCertificate()
	require.NoError(t, err)

	keyDER, err := x509.MarshalPKCS8PrivateKey(cert.PrivateKey.(ed25519.PrivateKey))
	require.NoError(t, err)

	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Certificate[0]}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0o600))

	loaded, err := Load(certFile, keyFile)
	require.NoError(t, err)
	assert.Equal(t, cert.Certificate[0], loaded.Certificate[0])

	_, err = Load(filepath.Join(dir, "missing.pem"), keyFile)
	assert.Error(t, err)
}

func TestHostsFor(t *testing.T) {
	assert.Equal(t, []string{"localhost", "127.0.0.1", "::1"}, HostsFor(":8443"))
	assert.Equal(t, []string{"localhost", "127.0.0.1", "::1"}, HostsFor("0.0.0.0:8443"))
	assert.Equal(t, []string{"10.0.0.5"}, HostsFor("10.0.0.5:8443"))
	assert.Equal(t, []string{"kv.example.org"}, HostsFor("kv.example.org:443"))
}
