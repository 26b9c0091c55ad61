package lifecycle

import (
	"context"

	"github.com/wassette-dev/wassette/internal/domain/policy"
	"github.com/wassette-dev/wassette/internal/domain/sandbox"
	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

const opMutate = "lifecycle.mutatePolicy"

// mutate applies edit to id's policy under the record's exclusive
// lock, rebuilds the SandboxRecipe, and validates the result with a
// trial instantiation; on any failure the prior policy and recipe are
// restored untouched. Every grant-*/revoke-*/attach-policy operation
// is a thin wrapper around this one rollback-safe primitive.
func (m *Manager) mutate(ctx context.Context, id ComponentID, edit func(*policy.Policy) error) (*policy.Policy, error) {
	rec, ok := m.table.get(id)
	if !ok {
		return nil, wassetteerr.New(wassetteerr.NotFound, opMutate, "NoSuchComponent", "no component loaded for id "+string(id), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	rec.mu.Lock()
	defer rec.mu.Unlock()

	priorPolicy := rec.policy.Clone()
	priorRecipe := rec.recipe

	candidate := rec.policy.Clone()
	if err := edit(candidate); err != nil {
		return nil, err
	}

	recipe, err := sandbox.Build(candidate)
	if err != nil {
		return nil, wassetteerr.New(wassetteerr.Validation, opMutate, "InvalidPolicy", "building sandbox recipe", err)
	}

	rec.policy = candidate
	rec.recipe = recipe

	trialCtx, trial, cancel, err := m.instantiate(ctx, rec)
	defer cancel()
	if err != nil {
		rec.policy = priorPolicy
		rec.recipe = priorRecipe
		return nil, wassetteerr.New(wassetteerr.Instantiate, opMutate, "RollbackInstantiateFailed", "validating policy change", err)
	}
	_ = trial.Close(trialCtx)

	result := rec.policy.Clone()
	_ = m.policies.Save(string(id), result) // best-effort: in-memory policy is authoritative regardless
	return result, nil
}

// GetPolicy returns a copy of id's attached policy.
func (m *Manager) GetPolicy(id ComponentID) (*policy.Policy, error) {
	rec, ok := m.table.get(id)
	if !ok {
		return nil, wassetteerr.New(wassetteerr.NotFound, opMutate, "NoSuchComponent", "no component loaded for id "+string(id), nil)
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.policy.Clone(), nil
}

// AttachPolicy replaces id's policy outright.
func (m *Manager) AttachPolicy(ctx context.Context, id ComponentID, text []byte) (*policy.Policy, error) {
	parsed, err := policy.Parse(text)
	if err != nil {
		return nil, err
	}
	return m.mutate(ctx, id, func(p *policy.Policy) error {
		*p = *parsed
		return nil
	})
}

func (m *Manager) GrantStorage(ctx context.Context, id ComponentID, uri string, access []string) (*policy.Policy, error) {
	return m.mutate(ctx, id, func(p *policy.Policy) error { return p.GrantStorage(uri, access) })
}

func (m *Manager) RevokeStorage(ctx context.Context, id ComponentID, uri string, access []string) (*policy.Policy, error) {
	return m.mutate(ctx, id, func(p *policy.Policy) error { return p.RevokeStorage(uri, access) })
}

func (m *Manager) GrantNetworkHost(ctx context.Context, id ComponentID, host string) (*policy.Policy, error) {
	return m.mutate(ctx, id, func(p *policy.Policy) error { return p.GrantNetworkHost(host) })
}

func (m *Manager) RevokeNetworkHost(ctx context.Context, id ComponentID, host string) (*policy.Policy, error) {
	return m.mutate(ctx, id, func(p *policy.Policy) error { return p.RevokeNetworkHost(host) })
}

func (m *Manager) GrantEnvironmentKey(ctx context.Context, id ComponentID, key string) (*policy.Policy, error) {
	return m.mutate(ctx, id, func(p *policy.Policy) error { return p.GrantEnvironmentKey(key) })
}

func (m *Manager) RevokeEnvironmentKey(ctx context.Context, id ComponentID, key string) (*policy.Policy, error) {
	return m.mutate(ctx, id, func(p *policy.Policy) error { return p.RevokeEnvironmentKey(key) })
}

func (m *Manager) GrantMemory(ctx context.Context, id ComponentID, limit string) (*policy.Policy, error) {
	return m.mutate(ctx, id, func(p *policy.Policy) error { return p.GrantMemory(limit) })
}

func (m *Manager) RevokeMemory(ctx context.Context, id ComponentID) (*policy.Policy, error) {
	return m.mutate(ctx, id, func(p *policy.Policy) error { return p.RevokeMemory() })
}

// ResetPermission clears id's policy back to the empty default.
func (m *Manager) ResetPermission(ctx context.Context, id ComponentID) (*policy.Policy, error) {
	return m.mutate(ctx, id, func(p *policy.Policy) error {
		p.Reset()
		return nil
	})
}
