// Package security builds the server-side TLS configuration for the
// bridge's HTTP listener.
//
//	cfg := security.TLSConfig{
//	    CertFile:     "/etc/speechbridge/tls/cert.pem",
//	    KeyFile:      "/etc/speechbridge/tls/key.pem",
//	    ClientCAFile: "/etc/speechbridge/tls/host-ca.pem", // optional, enables mTLS
//	}
//	tlsConfig, err := cfg.Build()
//
// A zero TLSConfig builds to nil and the server stays on plain HTTP/h2c.
package security
