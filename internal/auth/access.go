package auth

import "github.com/omerfarukdemiral/wallet-auth/internal/wallet"

// Platforms a caller can authenticate through.
const (
	PlatformAdmin  = "admin"
	PlatformClient = "client"
)

// loginAccess maps a role to the platforms it may authenticate through.
var loginAccess = map[string][]string{
	wallet.RoleAdmin: {PlatformAdmin, PlatformClient},
	wallet.RoleUser:  {PlatformClient},
}

// KnownPlatform reports whether the platform identifier is recognised.
func KnownPlatform(platform string) bool {
	return platform == PlatformAdmin || platform == PlatformClient
}

// PlatformsForRole returns the platform access summary for a role.
func PlatformsForRole(role string) []string {
	platforms := loginAccess[role]
	out := make([]string, len(platforms))
	copy(out, platforms)
	return out
}

func roleCanAccess(role, platform string) bool {
	for _, p := range loginAccess[role] {
		if p == platform {
			return true
		}
	}
	return false
}
