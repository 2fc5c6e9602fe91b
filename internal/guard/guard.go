package guard

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sige-edu/sige/internal/identity"
	"github.com/sige-edu/sige/internal/observability"
	"github.com/sige-edu/sige/internal/policy"
)

// Guard evaluates the visibility predicate for protected records:
// self-access, then national administrator, then hierarchy scope, each
// short-circuiting in that order. Anything else is a deny.
type Guard struct {
	eval    *policy.Evaluator
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New constructs a Guard.
func New(eval *policy.Evaluator, logger *slog.Logger, metrics *observability.Metrics) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{eval: eval, logger: logger, metrics: metrics}
}

// Evaluator exposes the underlying policy evaluator for entity-specific
// predicate extensions.
func (g *Guard) Evaluator() *policy.Evaluator {
	return g.eval
}

// CanViewRecord decides whether principalID may see a record owned by
// ownerPrincipalID under schoolID. Denials are ordinary false results, not
// errors, so callers can present a uniform not-found response.
func (g *Guard) CanViewRecord(ctx context.Context, principalID, ownerPrincipalID string, schoolID uuid.UUID) (bool, error) {
	if principalID == "" {
		g.metrics.IncAuthzDecision("deny")
		return false, nil
	}
	if ownerPrincipalID != "" && principalID == ownerPrincipalID {
		g.metrics.IncAuthzDecision("allow")
		return true, nil
	}
	national, err := g.eval.IsRole(ctx, principalID, identity.RoleNationalAdmin)
	if err != nil {
		return false, err
	}
	if national {
		g.metrics.IncAuthzDecision("allow")
		return true, nil
	}
	inScope, err := g.eval.SchoolInScope(ctx, principalID, schoolID)
	if err != nil {
		return false, err
	}
	g.metrics.IncAuthzDecision(outcome(inScope))
	return inScope, nil
}

// CanViewSchool decides plain school visibility without an owner dimension.
func (g *Guard) CanViewSchool(ctx context.Context, principalID string, schoolID uuid.UUID) (bool, error) {
	if principalID == "" {
		g.metrics.IncAuthzDecision("deny")
		return false, nil
	}
	inScope, err := g.eval.SchoolInScope(ctx, principalID, schoolID)
	if err != nil {
		return false, err
	}
	g.metrics.IncAuthzDecision(outcome(inScope))
	return inScope, nil
}

func outcome(allowed bool) string {
	if allowed {
		return "allow"
	}
	return "deny"
}
