package gatekeeper

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SubmitSignupMessage carries a signup form submission into the
// orchestrator. It maps one to one onto SignupDraft.
type SubmitSignupMessage struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	BillingCycle string `json:"billing_cycle"`
}

func (e SubmitSignupMessage) Type() string { return "signup.submit" }

func (e SubmitSignupMessage) toDraft() SignupDraft {
	return SignupDraft{
		Username:     e.Username,
		Email:        e.Email,
		Password:     e.Password,
		Role:         Role(e.Role),
		BillingCycle: BillingCycle(e.BillingCycle),
	}
}

// SubmitSignupHandler executes signup submissions against an orchestrator.
type SubmitSignupHandler struct {
	Orchestrator *SignupOrchestrator
	Timeout      time.Duration
}

func (h *SubmitSignupHandler) Execute(ctx context.Context, event SubmitSignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup submission",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SubmitSignupHandler) execute(ctx context.Context, event SubmitSignupMessage) error {
	timeout := h.Timeout
	if timeout == 0 {
		timeout = time.Second * 10
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := h.Orchestrator.Submit(ctx, event.toDraft()); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "signup submission failed")
	}

	return nil
}
