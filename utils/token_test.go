package utils

import "testing"

func TestJwtGenerateAndParse(t *testing.T) {
	token, claim, err := JwtGenerate("user-1", "cook@example.com", true)
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	if claim.Id == "" {
		t.Fatalf("expected a jti on the generated claim")
	}

	parsed, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("ParseClaims: %v", err)
	}
	if parsed.UserId != "user-1" || parsed.Email != "cook@example.com" || !parsed.Admin {
		t.Fatalf("unexpected claims %+v", parsed)
	}
	if parsed.Id != claim.Id {
		t.Fatalf("jti expected %s, got %s", claim.Id, parsed.Id)
	}
}

func TestParseClaimsRejectsGarbage(t *testing.T) {
	if _, err := ParseClaims("not-a-token"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestPhoneAndEmailHelpers(t *testing.T) {
	if !IsValidEmail("a.b@example.com") {
		t.Fatalf("IsValidEmail rejected a valid address")
	}
	if IsValidEmail("nope") {
		t.Fatalf("IsValidEmail accepted %q", "nope")
	}
	if err := ValidatePhoneNumber("+55 11 91234-5678", CountryCode); err != nil {
		t.Fatalf("ValidatePhoneNumber: %v", err)
	}
	if err := ValidatePhoneNumber("123", CountryCode); err == nil {
		t.Fatalf("ValidatePhoneNumber accepted %q", "123")
	}
}
