package adapter

import (
	"time"

	"github.com/go-logr/logr"
)

// NmapOption is a functional option for configuring HostVerifier
type NmapOption func(*HostVerifier)

// WithTimeout sets the timeout for the entire nmap scan
func WithTimeout(d time.Duration) NmapOption {
	return func(v *HostVerifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithVerifierLogger sets the verifier logger
func WithVerifierLogger(log logr.Logger) NmapOption {
	return func(v *HostVerifier) {
		v.log = log
	}
}
