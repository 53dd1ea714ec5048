package service

import (
	"cohort/internal/identity"
	"cohort/internal/idp/models"
)

// Destination names for issued claims.
const destinationIDToken = "id_token"

// claimDestinations is the explicit allowlist table routing claim types to
// issued tokens. Claim types absent from this table route nowhere and are
// dropped at issuance, whatever the principal carries.
var claimDestinations = map[string][]string{
	identity.ClaimSubject:           {destinationIDToken},
	identity.ClaimObjectID:          {destinationIDToken},
	identity.ClaimTenantID:          {destinationIDToken},
	identity.ClaimVersion:           {destinationIDToken},
	identity.ClaimName:              {destinationIDToken},
	identity.ClaimPreferredUsername: {destinationIDToken},
	identity.ClaimEmail:             {destinationIDToken},
	identity.ClaimGivenName:         {destinationIDToken},
	identity.ClaimFamilyName:        {destinationIDToken},
	identity.ClaimEmpID:             {destinationIDToken},
}

// IssueClaims assembles the ordered claim set for an authenticated user,
// Entra-style: oid duplicates the subject, tid carries the tenant (all-zero
// GUID sentinel when unconfigured), ver is pinned to "2.0".
func IssueClaims(user *models.User, tenantID string) []identity.Claim {
	preferred := user.PreferredUsername()

	claims := []identity.Claim{
		{Type: identity.ClaimSubject, Value: user.ID},
		{Type: identity.ClaimObjectID, Value: user.ID},
		{Type: identity.ClaimTenantID, Value: tenantID},
		{Type: identity.ClaimVersion, Value: "2.0"},
		{Type: identity.ClaimPreferredUsername, Value: preferred},
		{Type: identity.ClaimName, Value: preferred},
	}
	if user.Email != "" {
		claims = append(claims, identity.Claim{Type: identity.ClaimEmail, Value: user.Email})
	}
	if user.FirstName != "" {
		claims = append(claims, identity.Claim{Type: identity.ClaimGivenName, Value: user.FirstName})
	}
	if user.LastName != "" {
		claims = append(claims, identity.Claim{Type: identity.ClaimFamilyName, Value: user.LastName})
	}
	if user.EmpID != "" {
		claims = append(claims, identity.Claim{Type: identity.ClaimEmpID, Value: user.EmpID})
	}
	return claims
}

// FilterForIDToken keeps only the claims whose destination table routes them
// to the identity token, preserving order.
func FilterForIDToken(claims []identity.Claim) []identity.Claim {
	var filtered []identity.Claim
	for _, c := range claims {
		for _, dest := range claimDestinations[c.Type] {
			if dest == destinationIDToken {
				filtered = append(filtered, c)
				break
			}
		}
	}
	return filtered
}
