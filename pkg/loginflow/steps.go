package loginflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tendant/trustgate/pkg/externalprovider"
	"github.com/tendant/trustgate/pkg/identity"
)

// ResolveIdentityStep turns the request into a local user
type ResolveIdentityStep struct{}

func NewResolveIdentityStep() *ResolveIdentityStep {
	return &ResolveIdentityStep{}
}

func (s *ResolveIdentityStep) Name() string {
	return "resolve_identity"
}

func (s *ResolveIdentityStep) Order() int {
	return OrderResolveIdentity
}

func (s *ResolveIdentityStep) ShouldSkip(ctx context.Context, flowContext *FlowContext) bool {
	return false
}

func (s *ResolveIdentityStep) Execute(ctx context.Context, flowContext *FlowContext) (*StepResult, error) {
	services := flowContext.Services
	request := flowContext.Request

	var (
		user *identity.User
		err  error
	)

	switch id := request.Identity.(type) {
	case nil:
		if services.Credentials == nil {
			return &StepResult{Error: &Error{Type: ErrorTypeUnsupported, Message: "Password login is not enabled"}}, nil
		}
		if request.Email == "" || request.Password == "" {
			return &StepResult{Error: invalidCredentials()}, nil
		}
		user, err = services.Credentials.Verify(ctx, request.Email, request.Password)
		if errors.Is(err, identity.ErrInvalidCredentials) || errors.Is(err, identity.ErrUserNotFound) {
			slog.Info("Password login rejected", "reason", "credentials")
			return &StepResult{Error: invalidCredentials()}, nil
		}
		flowContext.Provider = identity.PasswordIdentity{}.Provider()

	case identity.PasswordIdentity:
		user, err = services.Users.FindByID(ctx, id.UserID)
		if errors.Is(err, identity.ErrUserNotFound) {
			return &StepResult{Error: invalidCredentials()}, nil
		}
		flowContext.Provider = id.Provider()

	case identity.OAuthIdentity:
		if services.Links == nil {
			return &StepResult{Error: &Error{Type: ErrorTypeUnsupported, Message: "OAuth login is not enabled"}}, nil
		}
		user, err = services.Links.Reconcile(ctx, id)
		if errors.Is(err, externalprovider.ErrUnverifiedEmail) ||
			errors.Is(err, externalprovider.ErrAccountAlreadyLinked) ||
			errors.Is(err, externalprovider.ErrMissingAccountID) {
			slog.Warn("OAuth account linking refused", "provider", id.ProviderName, "error", err)
			return &StepResult{Error: &Error{Type: ErrorTypeAccessDenied, Message: "Sign-in with this provider was refused", Err: err}}, nil
		}
		flowContext.Provider = id.Provider()

	default:
		return &StepResult{Error: &Error{Type: ErrorTypeUnsupported, Message: "Unsupported identity"}}, nil
	}

	if err != nil {
		return nil, err
	}

	flowContext.User = user
	flowContext.Result.User = user
	return &StepResult{Continue: true}, nil
}

// ErrNoTrustGate is returned when a flow reaches the device trust step
// without a gate. The login is denied.
var ErrNoTrustGate = errors.New("device trust gate is not configured")

// DeviceTrustStep asks the device trust gate for a verdict
type DeviceTrustStep struct{}

func NewDeviceTrustStep() *DeviceTrustStep {
	return &DeviceTrustStep{}
}

func (s *DeviceTrustStep) Name() string {
	return "device_trust"
}

func (s *DeviceTrustStep) Order() int {
	return OrderDeviceTrust
}

func (s *DeviceTrustStep) ShouldSkip(ctx context.Context, flowContext *FlowContext) bool {
	return false
}

func (s *DeviceTrustStep) Execute(ctx context.Context, flowContext *FlowContext) (*StepResult, error) {
	if flowContext.Services.Gate == nil {
		return nil, ErrNoTrustGate
	}
	verdict, err := flowContext.Services.Gate.Evaluate(ctx, *flowContext.User, flowContext.Provider, flowContext.Request.RequestContext)
	if err != nil {
		return nil, err
	}

	flowContext.Result.Verdict = verdict
	if !verdict.Allowed() {
		slog.Info("Login denied by device trust", "user_id", flowContext.User.ID, "state", verdict.State)
		return &StepResult{Error: invalidCredentials()}, nil
	}
	return &StepResult{Continue: true}, nil
}

// SessionClaimsStep builds and signs the session
type SessionClaimsStep struct{}

func NewSessionClaimsStep() *SessionClaimsStep {
	return &SessionClaimsStep{}
}

func (s *SessionClaimsStep) Name() string {
	return "session_claims"
}

func (s *SessionClaimsStep) Order() int {
	return OrderSessionClaims
}

func (s *SessionClaimsStep) ShouldSkip(ctx context.Context, flowContext *FlowContext) bool {
	return false
}

func (s *SessionClaimsStep) Execute(ctx context.Context, flowContext *FlowContext) (*StepResult, error) {
	claims := flowContext.Services.Enricher.Enrich(*flowContext.User, flowContext.Provider)
	flowContext.Result.Claims = claims

	if flowContext.Services.Signer != nil {
		token, expires, err := flowContext.Services.Signer.Sign(claims)
		if err != nil {
			return nil, err
		}
		flowContext.Result.Token = token
		flowContext.Result.ExpiresAt = expires
	}

	flowContext.Result.Success = true
	return &StepResult{Continue: true}, nil
}
