package oauth

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider holds the static OAuth endpoints and scopes for one provider.
type Provider struct {
	Name     string   `yaml:"-"`
	AuthURL  string   `yaml:"auth_url"`
	TokenURL string   `yaml:"token_url"`
	Scopes   []string `yaml:"scopes"`
	// ExtraAuthParams are appended to the authorization URL verbatim
	// (e.g. access_type=offline for Google).
	ExtraAuthParams map[string]string `yaml:"extra_auth_params,omitempty"`
}

// Registry maps provider names to their configuration, loaded from a YAML
// file at startup.
type Registry struct {
	providers map[string]Provider
}

type registryFile struct {
	Providers map[string]Provider `yaml:"providers"`
}

// LoadRegistry reads the provider registry from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry parses registry YAML.
func ParseRegistry(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse providers yaml: %w", err)
	}

	providers := make(map[string]Provider, len(f.Providers))
	for name, p := range f.Providers {
		p.Name = name
		if p.AuthURL == "" || p.TokenURL == "" {
			return nil, fmt.Errorf("provider %s: auth_url and token_url are required", name)
		}
		if len(p.Scopes) == 0 {
			return nil, fmt.Errorf("provider %s: at least one scope is required", name)
		}
		providers[name] = p
	}

	return &Registry{providers: providers}, nil
}

// Get returns the named provider or a ConfigError.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return Provider{}, &ConfigError{Reason: fmt.Sprintf("unknown provider %q", name)}
	}
	return p, nil
}

// AuthorizationURL builds the provider authorization URL for one request.
func (p Provider) AuthorizationURL(clientID, redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(p.Scopes, " "))
	q.Set("state", state)
	for k, v := range p.ExtraAuthParams {
		q.Set(k, v)
	}
	return p.AuthURL + "?" + q.Encode()
}
