// Package externalprovider links OAuth provider accounts to local users.
//
// The OAuth exchange itself happens upstream. This package receives the
// resulting profile (an identity.OAuthIdentity, or a raw userinfo payload
// parsed with ParseUserInfo) and reconciles it with the user directory before
// the device trust gate runs:
//
//	links := externalprovider.NewLinkService(accounts, users, securityLogger)
//	user, err := links.Reconcile(ctx, oauthIdentity)
//	if errors.Is(err, externalprovider.ErrUnverifiedEmail) {
//		// refuse the login; the address belongs to another account
//	}
//
// An existing link always wins. A verified email that matches an existing
// user is linked to that user and recorded as OAUTH_ACCOUNT_LINKED. An
// unverified email that collides with an existing user is refused. Anything
// else signs the user up through UserDirectory.CreateFromOAuth.
package externalprovider
