package auth

// Guards run after the strict verifier. A nil AuthContext means the route was
// wired without Protected and is reported as a missing token.

// RequireSuperAdmin passes only for super admins
func RequireSuperAdmin(ac *AuthContext) error {
	if ac == nil {
		return ErrMissingToken
	}
	if ac.IsSuperAdmin() {
		return nil
	}
	return forbidden(ac, map[string]any{"required_role": string(RoleSuperAdmin)})
}

// RequirePermission passes for super admins and for callers holding the
// capability, directly or through the all wildcard
func RequirePermission(ac *AuthContext, c Capability) error {
	if ac == nil {
		return ErrMissingToken
	}
	if ac.Can(c) {
		return nil
	}
	return forbidden(ac, map[string]any{"required_permission": c.String()})
}

// RequireRole passes when the caller's role is listed. Super admins always pass.
func RequireRole(ac *AuthContext, roles ...Role) error {
	if ac == nil {
		return ErrMissingToken
	}
	if ac.IsSuperAdmin() {
		return nil
	}
	for _, r := range roles {
		if ac.Role == r {
			return nil
		}
	}

	required := make([]string, 0, len(roles))
	for _, r := range roles {
		required = append(required, string(r))
	}
	return forbidden(ac, map[string]any{"required_roles": required})
}

func forbidden(ac *AuthContext, meta map[string]any) error {
	meta["role"] = string(ac.Role)
	meta["account_id"] = ac.AccountID()
	return ErrForbidden.Clone().WithMetadata(meta)
}
