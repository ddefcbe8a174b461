package password

import "unicode"

// Strength is a password strength predicate.
// The zero value accepts any non-empty password.
type Strength struct {
	MinLength     int
	RequireLower  bool
	RequireUpper  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultStrength requires eight characters with lower and upper case letters,
// a digit and a symbol.
var DefaultStrength = Strength{
	MinLength:     8,
	RequireLower:  true,
	RequireUpper:  true,
	RequireDigit:  true,
	RequireSymbol: true,
}

// IsStrong reports whether password satisfies every configured requirement.
func (s Strength) IsStrong(password string) bool {
	if password == "" {
		return false
	}

	var n int
	var lower, upper, digit, symbol bool
	for _, r := range password {
		n++
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			symbol = true
		}
	}

	return n >= s.MinLength &&
		(!s.RequireLower || lower) &&
		(!s.RequireUpper || upper) &&
		(!s.RequireDigit || digit) &&
		(!s.RequireSymbol || symbol)
}
