package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"canonical short", "a@b.co", true},
		{"typical address", "dave@test.com", true},
		{"subdomain", "dave.smith@mail.test.co.uk", true},
		{"local specials", "d_a-v.e%97+x@test.com", true},
		{"empty", "", false},
		{"missing at", "dave.test.com", false},
		{"missing tld", "dave@test", false},
		{"one letter tld", "dave@test.c", false},
		{"digit tld", "dave@test.c0", false},
		{"spaces", "dave smith@test.com", false},
		{"double at", "dave@@test.com", false},
		{"trailing dot", "dave@test.com.", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateEmail(tt.email))
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     bool
	}{
		{"minimum length", "ab1", true},
		{"typical", "dave_97", true},
		{"separators in body", "d.a-v_e", true},
		{"maximum length", strings.Repeat("a", 18), true},
		{"too short", "ab", false},
		{"two alphanumerics", "a1", false},
		{"single character", "a", false},
		{"too long", strings.Repeat("a", 19), false},
		{"leading separator", "_dave", false},
		{"trailing separator", "dave.", false},
		{"illegal character", "dave!97", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateUsername(tt.username))
		})
	}
}

func TestValidatePasswordSubRules(t *testing.T) {
	tests := []struct {
		name     string
		password string
		rule     PasswordRule
		want     bool
	}{
		{"has upper", "Abc", RuleUpper, true},
		{"no upper", "abc", RuleUpper, false},
		{"has lower", "aBC", RuleLower, true},
		{"no lower", "ABC", RuleLower, false},
		{"has number", "ab1", RuleNumber, true},
		{"no number", "abc", RuleNumber, false},
		{"has special", "ab!", RuleSpecial, true},
		{"no special", "abc", RuleSpecial, false},
		{"length ok", "12345678", RuleLength, true},
		{"length short", "1234567", RuleLength, false},
		{"length long", "12345678901234567", RuleLength, false},
		{"unknown rule", "Abc12345!", PasswordRule("bogus"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePassword(tt.password, tt.rule))
		})
	}
}

func TestValidatePasswordAll(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"valid", "Abc12345!", true},
		{"valid upper bound", "Abc12345!Abc123?", true},
		{"too short", "Ab1!abc", false},
		{"too long", "Abc12345!Abc1234?", false},
		{"no uppercase", "abc12345!", false},
		{"no lowercase", "ABC12345!", false},
		{"no number", "Abcdefgh!", false},
		{"no special", "Abc123456", false},
		{"disallowed character", "Abc12345!#", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePassword(tt.password, RuleAll))
		})
	}
}

func TestValidatePasswordAllLengthDominates(t *testing.T) {
	// Length violations fail regardless of character content.
	for _, p := range []string{"Ab1!", "A1!" + strings.Repeat("a", 20)} {
		assert.False(t, ValidatePassword(p, RuleAll), p)
	}
}

func TestPasswordFailures(t *testing.T) {
	failures := PasswordFailures("abc")
	assert.Contains(t, failures, "at least one uppercase letter")
	assert.Contains(t, failures, "at least one number")
	assert.Contains(t, failures, "at least one special character (@$!%*?&)")
	assert.Contains(t, failures, "a length between 8 and 16 characters")
	assert.NotContains(t, failures, "at least one lowercase letter")

	assert.Empty(t, PasswordFailures("Abc12345!"))

	// Every requirement met but an illegal character present.
	failures = PasswordFailures("Abc12345!#")
	assert.Equal(t, []string{"only letters, numbers and @$!%*?& are allowed"}, failures)
}
