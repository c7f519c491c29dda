// Package loginflow runs a login through an ordered pipeline of steps.
//
// The default flow has three steps:
//
//	resolve_identity  credentials, a verified user id, or an OAuth profile -> identity.User
//	device_trust      devicetrust.Gate verdict; deny ends the flow
//	session_claims    session.Enricher claims signed into a session token
//
// Every failure is reported as an *Error. A revoked device and a wrong
// password both surface as invalid_credentials so callers cannot tell them
// apart:
//
//	auth := loginflow.NewAuthService(loginflow.ServiceDependencies{
//		Users:       users,
//		Credentials: verifier,
//		Links:       linkService,
//		Gate:        gate,
//		Signer:      signer,
//	})
//	result, err := auth.LoginWithPassword(ctx, email, password, device.ExtractRequestContext(r))
//
// Additional steps can be slotted in with FlowBuilder using the Order* constants.
package loginflow
