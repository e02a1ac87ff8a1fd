package partials

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/goliatone/go-partials/pkg/activity"
	"github.com/google/uuid"
)

// DefaultNamespace prefixes every unit identifier unless overridden.
const DefaultNamespace = "site"

// CollisionPolicy decides what happens when two fragments derive the same
// unit identifier.
type CollisionPolicy int

const (
	// CollisionReject fails registration and names both fragments.
	CollisionReject CollisionPolicy = iota
	// CollisionFirstWins keeps the earlier fragment and skips the later one.
	CollisionFirstWins
	// CollisionLastWins replaces the earlier fragment with the later one.
	CollisionLastWins
)

func (p CollisionPolicy) String() string {
	switch p {
	case CollisionReject:
		return "reject"
	case CollisionFirstWins:
		return "first-wins"
	case CollisionLastWins:
		return "last-wins"
	default:
		return "unknown"
	}
}

// ParseCollisionPolicy converts a textual policy. An empty string selects
// CollisionReject.
func ParseCollisionPolicy(value string) (CollisionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "reject":
		return CollisionReject, nil
	case "first-wins", "first":
		return CollisionFirstWins, nil
	case "last-wins", "last":
		return CollisionLastWins, nil
	default:
		return CollisionReject, fmt.Errorf("partials: unknown collision policy %q", value)
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	namespace string
	policy    CollisionPolicy
	logger    *slog.Logger
	emitter   *activity.Emitter
	newID     func() string
}

func applyRegistryOptions(opts []RegistryOption) registryConfig {
	cfg := registryConfig{
		namespace: DefaultNamespace,
		policy:    CollisionReject,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}

// WithNamespace overrides the identifier prefix. An empty namespace registers
// units under their bare fragment name.
func WithNamespace(namespace string) RegistryOption {
	return func(cfg *registryConfig) {
		cfg.namespace = strings.TrimSpace(namespace)
	}
}

// WithCollisionPolicy selects how identifier collisions are resolved.
func WithCollisionPolicy(policy CollisionPolicy) RegistryOption {
	return func(cfg *registryConfig) {
		cfg.policy = policy
	}
}

// WithLogger sets the structured logger used for registration diagnostics.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(cfg *registryConfig) {
		cfg.logger = logger
	}
}

// WithActivityEmitter emits unit.registered events through emitter.
func WithActivityEmitter(emitter *activity.Emitter) RegistryOption {
	return func(cfg *registryConfig) {
		cfg.emitter = emitter
	}
}

// WithInstanceIDs overrides the generator used for instance identifiers.
func WithInstanceIDs(fn func() string) RegistryOption {
	return func(cfg *registryConfig) {
		if fn != nil {
			cfg.newID = fn
		}
	}
}
