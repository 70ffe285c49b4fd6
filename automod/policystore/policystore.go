package policystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// Returned (wrapped) when the durable write of the policy map failed. The in-memory value has still been updated.
	ErrPersistence      = errors.New("policy not persisted")
	ErrUnknownFeature   = errors.New("unknown policy feature")
	ErrInvalidCommunity = errors.New("invalid community identifier")
)

// Per-community moderation configuration. Serialized field names match the durable layout.
type CommunityPolicy struct {
	WordFilterEnabled bool    `json:"wordFilterEnabled"`
	ModLogChannelID   *string `json:"modLogChannelId"`
}

func DefaultPolicy() CommunityPolicy {
	return CommunityPolicy{
		WordFilterEnabled: true,
		ModLogChannelID:   nil,
	}
}

// Returns the configured log channel, if any.
func (p CommunityPolicy) LogChannel() (string, bool) {
	if p.ModLogChannelID == nil || *p.ModLogChannelID == "" {
		return "", false
	}
	return *p.ModLogChannelID, true
}

// Flips the named boolean feature, returning the new value.
//
// Accepts both the command choice name ("wordfilter") and the stored field name ("wordFilterEnabled").
func (p *CommunityPolicy) Toggle(feature string) (bool, error) {
	switch feature {
	case "wordfilter", "wordFilterEnabled":
		p.WordFilterEnabled = !p.WordFilterEnabled
		return p.WordFilterEnabled, nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownFeature, feature)
	}
}

func (p *CommunityPolicy) SetLogChannel(channelID string) {
	p.ModLogChannelID = &channelID
}

func (p CommunityPolicy) clone() CommunityPolicy {
	out := p
	if p.ModLogChannelID != nil {
		v := *p.ModLogChannelID
		out.ModLogChannelID = &v
	}
	return out
}

type PolicyStore interface {
	// Returns the policy for the community, creating and persisting the default policy on first access.
	GetOrCreate(ctx context.Context, communityID string) (CommunityPolicy, error)
	// Applies the mutation and persists the full store before returning. On persistence failure the returned policy is the new in-memory value and the error wraps ErrPersistence.
	Update(ctx context.Context, communityID string, mutate func(p *CommunityPolicy) error) (CommunityPolicy, error)
}

// Durability dependency of the policy store. Every save rewrites the entire mapping.
type Backend interface {
	Load(ctx context.Context) (map[string]CommunityPolicy, error)
	Save(ctx context.Context, policies map[string]CommunityPolicy) error
}

// In-process policy store over a pluggable durability backend.
//
// A single lock covers read-modify-persist, so concurrent updates never interleave their whole-store writes.
type Store struct {
	Logger *slog.Logger

	mu       sync.Mutex
	backend  Backend
	policies map[string]CommunityPolicy
}

var _ PolicyStore = (*Store)(nil)

// Loads existing policies from the backend.
func NewStore(ctx context.Context, backend Backend, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	policies, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading community policies: %w", err)
	}
	if policies == nil {
		policies = make(map[string]CommunityPolicy)
	}
	return &Store{
		Logger:   logger.With("system", "policystore"),
		backend:  backend,
		policies: policies,
	}, nil
}

func (s *Store) GetOrCreate(ctx context.Context, communityID string) (CommunityPolicy, error) {
	if communityID == "" {
		return CommunityPolicy{}, ErrInvalidCommunity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[communityID]
	if ok {
		return p.clone(), nil
	}
	p = DefaultPolicy()
	s.policies[communityID] = p
	// the default is usable even if it could not be written; the next successful save will include it
	if err := s.save(ctx); err != nil {
		s.Logger.Error("failed to persist default community policy", "community", communityID, "err", err)
	}
	return p.clone(), nil
}

func (s *Store) Update(ctx context.Context, communityID string, mutate func(p *CommunityPolicy) error) (CommunityPolicy, error) {
	if communityID == "" {
		return CommunityPolicy{}, ErrInvalidCommunity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[communityID]
	if !ok {
		p = DefaultPolicy()
	}
	p = p.clone()
	if err := mutate(&p); err != nil {
		return CommunityPolicy{}, err
	}
	// NOTE: not rolled back if the save fails
	s.policies[communityID] = p
	if err := s.save(ctx); err != nil {
		return p.clone(), fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return p.clone(), nil
}

// Number of communities with a policy. Mostly useful for metrics and tests.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.policies)
}

// caller must hold s.mu
func (s *Store) save(ctx context.Context) error {
	snapshot := make(map[string]CommunityPolicy, len(s.policies))
	for k, v := range s.policies {
		snapshot[k] = v.clone()
	}
	return s.backend.Save(ctx, snapshot)
}
