package loginflow

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/tendant/trustgate/pkg/device"
	"github.com/tendant/trustgate/pkg/devicetrust"
	"github.com/tendant/trustgate/pkg/identity"
	"github.com/tendant/trustgate/pkg/session"
)

// LoginFlowStep represents a single step in the login flow
type LoginFlowStep interface {
	// Name returns the unique name of this step
	Name() string

	// Order returns the execution order (lower numbers execute first)
	Order() int

	// Execute performs the step's logic
	Execute(ctx context.Context, flowContext *FlowContext) (*StepResult, error)

	// ShouldSkip determines if this step should be skipped based on current context
	ShouldSkip(ctx context.Context, flowContext *FlowContext) bool
}

// FlowContext carries state between login flow steps
type FlowContext struct {
	Request Request
	Result  *Result

	// Set by resolve_identity
	User     *identity.User
	Provider string

	StepData map[string]interface{}
	Services *ServiceDependencies
}

// StepResult represents the result of executing a login flow step
type StepResult struct {
	// Continue indicates whether the flow should continue to the next step
	Continue bool

	// Error ends the flow with a caller-facing error
	Error *Error

	// Data is merged into FlowContext.StepData
	Data map[string]interface{}
}

// AccountLinker resolves an OAuth profile to a local user
type AccountLinker interface {
	Reconcile(ctx context.Context, o identity.OAuthIdentity) (*identity.User, error)
}

// TrustGate decides whether the login device may proceed
type TrustGate interface {
	Evaluate(ctx context.Context, user identity.User, provider string, rc device.RequestContext) (devicetrust.Verdict, error)
}

// TokenSigner signs session claims
type TokenSigner interface {
	Sign(claims session.Claims) (string, time.Time, error)
}

// ServiceDependencies contains all the services needed by login flow steps
type ServiceDependencies struct {
	Users       identity.UserDirectory
	Credentials identity.CredentialVerifier
	Links       AccountLinker
	Gate        TrustGate
	Enricher    session.Enricher
	Signer      TokenSigner
}

// StepRegistry manages and orders login flow steps
type StepRegistry struct {
	steps []LoginFlowStep
}

func NewStepRegistry() *StepRegistry {
	return &StepRegistry{
		steps: make([]LoginFlowStep, 0),
	}
}

func (r *StepRegistry) AddStep(step LoginFlowStep) *StepRegistry {
	r.steps = append(r.steps, step)
	return r
}

// GetOrderedSteps returns steps sorted by their order
func (r *StepRegistry) GetOrderedSteps() []LoginFlowStep {
	orderedSteps := make([]LoginFlowStep, len(r.steps))
	copy(orderedSteps, r.steps)

	sort.SliceStable(orderedSteps, func(i, j int) bool {
		return orderedSteps[i].Order() < orderedSteps[j].Order()
	})

	return orderedSteps
}

// FlowExecutor orchestrates the execution of login flow steps
type FlowExecutor struct {
	registry *StepRegistry
	services *ServiceDependencies
}

func NewFlowExecutor(registry *StepRegistry, services *ServiceDependencies) *FlowExecutor {
	return &FlowExecutor{
		registry: registry,
		services: services,
	}
}

// Execute runs the steps in order until one fails or stops the flow. A step
// returning a Go error ends the flow with an internal_error; the cause is
// only logged.
func (e *FlowExecutor) Execute(ctx context.Context, request Request) Result {
	flowContext := &FlowContext{
		Request:  request,
		Result:   &Result{},
		StepData: make(map[string]interface{}),
		Services: e.services,
	}

	for _, step := range e.registry.GetOrderedSteps() {
		if step.ShouldSkip(ctx, flowContext) {
			continue
		}

		stepResult, err := step.Execute(ctx, flowContext)
		if err != nil {
			slog.Error("Login flow step failed", "step", step.Name(), "error", err)
			flowContext.Result.ErrorResponse = &Error{
				Type:    ErrorTypeInternal,
				Message: "Login could not be completed",
				Step:    step.Name(),
				Err:     err,
			}
			return *flowContext.Result
		}

		if stepResult.Error != nil {
			stepResult.Error.Step = step.Name()
			flowContext.Result.ErrorResponse = stepResult.Error
			return *flowContext.Result
		}

		for key, value := range stepResult.Data {
			flowContext.StepData[key] = value
		}

		if !stepResult.Continue {
			break
		}
	}

	return *flowContext.Result
}

// FlowBuilder provides a fluent interface for building login flows
type FlowBuilder struct {
	registry *StepRegistry
}

func NewFlowBuilder() *FlowBuilder {
	return &FlowBuilder{
		registry: NewStepRegistry(),
	}
}

func (b *FlowBuilder) AddStep(step LoginFlowStep) *FlowBuilder {
	b.registry.AddStep(step)
	return b
}

// Build creates a flow executor with the configured steps
func (b *FlowBuilder) Build(services *ServiceDependencies) *FlowExecutor {
	return NewFlowExecutor(b.registry, services)
}

// Predefined step orders
const (
	OrderResolveIdentity = 100
	OrderDeviceTrust     = 200
	OrderSessionClaims   = 300
)
