package externalprovider

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tendant/trustgate/pkg/identity"
)

// ParseUserInfo converts a provider userinfo response into an OAuthIdentity.
// Known providers use their own field names, anything else is read as OIDC.
func ParseUserInfo(provider string, data []byte) (identity.OAuthIdentity, error) {
	var raw map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return identity.OAuthIdentity{}, fmt.Errorf("failed to unmarshal user info: %w", err)
	}

	o := identity.OAuthIdentity{ProviderName: provider}
	var picture string

	switch provider {
	case "google":
		o.ProviderAccountID = getStringValue(raw, "id")
		if o.ProviderAccountID == "" {
			o.ProviderAccountID = getStringValue(raw, "sub")
		}
		o.Email = getStringValue(raw, "email")
		o.EmailVerified = getBoolValue(raw, "verified_email") || getBoolValue(raw, "email_verified")
		o.Name = getStringValue(raw, "name")
		picture = getStringValue(raw, "picture")

	case "microsoft":
		o.ProviderAccountID = getStringValue(raw, "id")
		o.Email = getStringValue(raw, "mail")
		if o.Email == "" {
			o.Email = getStringValue(raw, "userPrincipalName")
		}
		// Graph only returns tenant-managed addresses
		o.EmailVerified = true
		o.Name = getStringValue(raw, "displayName")

	case "github":
		if id, ok := raw["id"].(json.Number); ok {
			o.ProviderAccountID = id.String()
		}
		o.Email = getStringValue(raw, "email")
		// the public profile email must be verified on GitHub
		o.EmailVerified = o.Email != ""
		o.Name = getStringValue(raw, "name")
		if o.Name == "" {
			o.Name = getStringValue(raw, "login")
		}
		picture = getStringValue(raw, "avatar_url")

	default:
		o.ProviderAccountID = getStringValue(raw, "sub")
		if o.ProviderAccountID == "" {
			o.ProviderAccountID = getStringValue(raw, "id")
		}
		o.Email = getStringValue(raw, "email")
		o.EmailVerified = getBoolValue(raw, "email_verified")
		o.Name = getStringValue(raw, "name")
		picture = getStringValue(raw, "picture")
	}

	if o.ProviderAccountID == "" {
		return identity.OAuthIdentity{}, ErrMissingAccountID
	}
	if o.Email == "" {
		return identity.OAuthIdentity{}, fmt.Errorf("no email found in user info")
	}
	if picture != "" {
		o.Image = &picture
	}
	return o, nil
}

func getStringValue(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getBoolValue(data map[string]interface{}, key string) bool {
	if val, ok := data[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}
