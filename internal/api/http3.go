package api

import (
	"crypto/tls"
	"fmt"

	"github.com/quic-go/quic-go/http3"

	"github.com/eigerco/homestore/pkg/log"
	"github.com/eigerco/homestore/pkg/network/cert"
)

// newHTTP3Server prepares the QUIC listener. The handler is attached once
// the router exists.
func (s *Server) newHTTP3Server() (*http3.Server, error) {
	h3 := s.config.Server.HTTP3

	var (
		pair *tls.Certificate
		err  error
	)
	if h3.CertFile != "" {
		pair, err = cert.Load(h3.CertFile, h3.KeyFile)
	} else {
		pair, err = cert.NewGenerator(cert.Config{
			CommonName: s.config.General.ServerName,
			Hosts:      cert.HostsFor(h3.ListenSocket),
		}).GenerateCertificate()
		if err == nil {
			log.HTTP.Warn().Msg("HTTP/3 is using a self-signed certificate")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("HTTP/3 certificate: %w", err)
	}

	return &http3.Server{
		Addr: h3.ListenSocket,
		TLSConfig: &tls.Config{
			MinVersion:   tls.VersionTLS13,
			Certificates: []tls.Certificate{*pair},
		},
	}, nil
}
