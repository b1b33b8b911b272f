package sender

import "strings"

// ParseImportance normalises an importance level.
func ParseImportance(s string) (Importance, error) {
	switch i := Importance(strings.ToLower(strings.TrimSpace(s))); i {
	case ImportanceHigh, ImportanceNormal, ImportanceLow:
		return i, nil
	}
	return "", ErrInvalidImportance
}

// ParseRole normalises a role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleCollaborator, RoleAdmin, RoleFamily, RoleNotification, RoleOther:
		return r, nil
	}
	return "", ErrInvalidRole
}

// ValidateAddress checks that an address is usable as a directory key.
func ValidateAddress(addr string) error {
	a := NormalizeAddress(addr)
	at := strings.LastIndex(a, "@")
	if at <= 0 || at == len(a)-1 || strings.ContainsAny(a, " <>") {
		return ErrInvalidAddress
	}
	return nil
}

// ValidatePatch checks an upsert patch.
func ValidatePatch(p Patch) error {
	if err := ValidateAddress(p.Email); err != nil {
		return err
	}
	if p.Importance != nil {
		if i, err := ParseImportance(string(*p.Importance)); err != nil || i != *p.Importance {
			return ErrInvalidImportance
		}
	}
	if p.Role != nil {
		if r, err := ParseRole(string(*p.Role)); err != nil || r != *p.Role {
			return ErrInvalidRole
		}
	}
	return nil
}
