package loginflow

import (
	"context"
	"time"

	"github.com/tendant/trustgate/pkg/device"
	"github.com/tendant/trustgate/pkg/devicetrust"
	"github.com/tendant/trustgate/pkg/identity"
	"github.com/tendant/trustgate/pkg/session"
)

const (
	ErrorTypeInvalidCredentials = "invalid_credentials"
	ErrorTypeAccessDenied       = "access_denied"
	ErrorTypeUnsupported        = "unsupported_login"
	ErrorTypeInternal           = "internal_error"
)

// Request is one login attempt. Identity is nil for email/password logins.
type Request struct {
	Identity       identity.Identity
	Email          string
	Password       string
	RequestContext device.RequestContext
}

// Result is the outcome of a login flow
type Result struct {
	Success       bool
	User          *identity.User
	Verdict       devicetrust.Verdict
	Claims        session.Claims
	Token         string
	ExpiresAt     time.Time
	ErrorResponse *Error
}

// Error represents structured errors from the login flow
type Error struct {
	Type    string
	Message string
	Step    string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalidCredentials() *Error {
	return &Error{Type: ErrorTypeInvalidCredentials, Message: "Invalid email or password"}
}

// AuthService is the entry point for logins that pass through the device trust gate
type AuthService struct {
	flow *FlowExecutor
}

// NewAuthService builds the default resolve_identity, device_trust, session_claims flow
func NewAuthService(deps ServiceDependencies) *AuthService {
	return &AuthService{flow: NewDefaultFlow(&deps)}
}

// NewAuthServiceWithFlow uses a custom flow
func NewAuthServiceWithFlow(flow *FlowExecutor) *AuthService {
	return &AuthService{flow: flow}
}

func NewDefaultFlow(deps *ServiceDependencies) *FlowExecutor {
	return NewFlowBuilder().
		AddStep(NewResolveIdentityStep()).
		AddStep(NewDeviceTrustStep()).
		AddStep(NewSessionClaimsStep()).
		Build(deps)
}

// LoginWithPassword verifies credentials and evaluates the device
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string, rc device.RequestContext) (Result, error) {
	return s.run(ctx, Request{Email: email, Password: password, RequestContext: rc})
}

// Authorize evaluates an identity that was authenticated elsewhere
func (s *AuthService) Authorize(ctx context.Context, id identity.Identity, rc device.RequestContext) (Result, error) {
	if id == nil {
		return Result{}, &Error{Type: ErrorTypeUnsupported, Message: "Identity is required"}
	}
	return s.run(ctx, Request{Identity: id, RequestContext: rc})
}

func (s *AuthService) run(ctx context.Context, request Request) (Result, error) {
	result := s.flow.Execute(ctx, request)
	if result.ErrorResponse != nil {
		return result, result.ErrorResponse
	}
	return result, nil
}

// PasswordEnabled reports whether a CredentialVerifier is configured
func (s *AuthService) PasswordEnabled() bool {
	return s.flow.services != nil && s.flow.services.Credentials != nil
}
