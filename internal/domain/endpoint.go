package domain

import (
	"fmt"
	"strings"
)

// Platform identifies the device family behind a push endpoint.
type Platform string

const (
	PlatformAndroid Platform = "ANDROID"
	PlatformIOS     Platform = "IOS"
	PlatformWeb     Platform = "WEB"
)

func (p Platform) String() string { return string(p) }

func (p Platform) IsValid() bool {
	switch p {
	case PlatformAndroid, PlatformIOS, PlatformWeb:
		return true
	}
	return false
}

func ParsePlatformFromString(s string) (Platform, error) {
	p := Platform(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: invalid platform %q", ErrValidation, s)
	}
	return p, nil
}

// DeviceEndpoint is one installed client instance reachable for push delivery.
// The token is provider-issued and opaque; once the provider reports it as
// unregistered it must never be reused.
type DeviceEndpoint struct {
	Token    string
	UserID   string
	Platform Platform
}

func (e DeviceEndpoint) Validate() error {
	if strings.TrimSpace(e.Token) == "" {
		return fmt.Errorf("%w: endpoint token is required", ErrValidation)
	}
	if !e.Platform.IsValid() {
		return fmt.Errorf("%w: invalid platform %q", ErrValidation, e.Platform)
	}
	return nil
}

// EndpointTokens extracts the raw provider tokens in input order.
func EndpointTokens(endpoints []DeviceEndpoint) []string {
	tokens := make([]string, 0, len(endpoints))
	for _, endpoint := range endpoints {
		tokens = append(tokens, endpoint.Token)
	}
	return tokens
}
