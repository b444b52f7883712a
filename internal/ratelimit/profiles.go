package ratelimit

import "fmt"

// Profile names an endpoint class. Call sites pick a profile by intent
// instead of hand-picking numbers.
type Profile string

const (
	ProfileAuth          Profile = "auth"
	ProfilePublic        Profile = "public"
	ProfileAuthenticated Profile = "authenticated"
	ProfileUpload        Profile = "upload"
	ProfileAnalytics     Profile = "analytics"
	ProfileWebhook       Profile = "webhook"
	ProfileBillingPortal Profile = "billing_portal"
)

// Registry maps profiles to validated configs. It is built once at startup
// and read-only afterwards; a malformed profile aborts construction because
// it would silently disable protection.
type Registry struct {
	configs map[Profile]Config
}

// DefaultProfiles returns the shipped profile table. Auth is stricter than
// public, uploads stay single-digit because each accepted call does
// expensive work downstream, and the billing portal is tight because it
// mints a privileged externally-redirecting session.
func DefaultProfiles() map[Profile]Config {
	return map[Profile]Config{
		ProfileAuth:          {MaxRequests: 20, WindowSeconds: 3600},
		ProfilePublic:        {MaxRequests: 600, WindowSeconds: 3600},
		ProfileAuthenticated: {MaxRequests: 240, WindowSeconds: 3600},
		ProfileUpload:        {MaxRequests: 8, WindowSeconds: 3600},
		ProfileAnalytics:     {MaxRequests: 600, WindowSeconds: 3600},
		ProfileWebhook:       {MaxRequests: 900, WindowSeconds: 3600},
		ProfileBillingPortal: {MaxRequests: 5, WindowSeconds: 60},
	}
}

// NewRegistry validates every profile eagerly and enforces the relative
// ordering between profiles before any request is served.
func NewRegistry(configs map[Profile]Config) (*Registry, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: no profiles configured", ErrInvalidConfig)
	}
	for name, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
	}
	auth, hasAuth := configs[ProfileAuth]
	public, hasPublic := configs[ProfilePublic]
	if hasAuth && hasPublic && auth.MaxRequests >= public.MaxRequests {
		return nil, fmt.Errorf("%w: auth profile (%d) must be stricter than public (%d)",
			ErrInvalidConfig, auth.MaxRequests, public.MaxRequests)
	}
	if upload, ok := configs[ProfileUpload]; ok && upload.MaxRequests > 20 {
		return nil, fmt.Errorf("%w: upload profile (%d) must stay small, uploads are expensive",
			ErrInvalidConfig, upload.MaxRequests)
	}
	held := make(map[Profile]Config, len(configs))
	for name, cfg := range configs {
		held[name] = cfg
	}
	return &Registry{configs: held}, nil
}

// MustRegistry is NewRegistry for static tables known valid at compile time.
func MustRegistry(configs map[Profile]Config) *Registry {
	reg, err := NewRegistry(configs)
	if err != nil {
		panic(err)
	}
	return reg
}

// Lookup returns the config for a profile.
func (r *Registry) Lookup(name Profile) (Config, bool) {
	cfg, ok := r.configs[name]
	return cfg, ok
}

// Profiles lists the registered profile names.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, 0, len(r.configs))
	for name := range r.configs {
		out = append(out, name)
	}
	return out
}
