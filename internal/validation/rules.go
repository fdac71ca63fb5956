// Package validation implements the stateless rule checks for email,
// username and password input. All functions are total over string input:
// malformed values return false, nothing panics or errors.
package validation

import "regexp"

// PasswordRule names one password requirement. RuleAll is the composite rule
// used by registration and password reset.
type PasswordRule string

const (
	RuleUpper   PasswordRule = "upper"
	RuleLower   PasswordRule = "lower"
	RuleNumber  PasswordRule = "number"
	RuleSpecial PasswordRule = "special"
	RuleLength  PasswordRule = "length"
	RuleAll     PasswordRule = "all"
)

var (
	// Local part allows letters/digits/._%+-, domain labels allow letters,
	// digits and hyphens, final label is at least two letters.
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)*\.[a-zA-Z]{2,}$`)

	// 3-18 characters, alphanumeric at both ends, body may contain ._-
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{1,16}[A-Za-z0-9]$`)

	passwordRes = map[PasswordRule]*regexp.Regexp{
		RuleUpper:   regexp.MustCompile(`[A-Z]`),
		RuleLower:   regexp.MustCompile(`[a-z]`),
		RuleNumber:  regexp.MustCompile(`\d`),
		RuleSpecial: regexp.MustCompile(`[@$!%*?&]`),
		RuleLength:  regexp.MustCompile(`^.{8,16}$`),
	}

	// RE2 has no lookahead, so the composite rule checks the allowed charset
	// here and the individual requirements separately.
	passwordCharsetRe = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]{8,16}$`)
)

// passwordRequirements drives both RuleAll evaluation and the per-requirement
// failure messages, in a fixed order so messages are stable.
var passwordRequirements = []struct {
	rule   PasswordRule
	reason string
}{
	{RuleUpper, "at least one uppercase letter"},
	{RuleLower, "at least one lowercase letter"},
	{RuleNumber, "at least one number"},
	{RuleSpecial, "at least one special character (@$!%*?&)"},
	{RuleLength, "a length between 8 and 16 characters"},
}

// ValidateEmail reports whether s looks like local@domain.tld.
func ValidateEmail(s string) bool {
	return emailRe.MatchString(s)
}

// ValidateUsername reports whether s is a well-formed username: 3-18
// characters, starting and ending alphanumeric, with ._- allowed in between.
func ValidateUsername(s string) bool {
	return usernameRe.MatchString(s)
}

// ValidatePassword checks s against a single named rule. RuleAll requires
// every sub-rule simultaneously plus the restricted character set.
func ValidatePassword(s string, rule PasswordRule) bool {
	if rule == RuleAll {
		if !passwordCharsetRe.MatchString(s) {
			return false
		}
		for _, req := range passwordRequirements {
			if !passwordRes[req.rule].MatchString(s) {
				return false
			}
		}
		return true
	}
	re, ok := passwordRes[rule]
	if !ok {
		return false
	}
	return re.MatchString(s)
}

// PasswordFailures returns the human-readable requirements s does not meet,
// in a stable order. Empty means s satisfies RuleAll apart from the charset
// restriction, which is reported last.
func PasswordFailures(s string) []string {
	var failures []string
	for _, req := range passwordRequirements {
		if !passwordRes[req.rule].MatchString(s) {
			failures = append(failures, req.reason)
		}
	}
	if len(failures) == 0 && !passwordCharsetRe.MatchString(s) {
		failures = append(failures, "only letters, numbers and @$!%*?& are allowed")
	}
	return failures
}
