package credentials

import "regexp"

var (
	clientSecretPattern = regexp.MustCompile(`(?i)(client_secret=)[^&\s"]*`)
	passwordPattern     = regexp.MustCompile(`(?i)(password=)[^&\s"]*`)
	passwordTailPattern = regexp.MustCompile(`(?i)(password is invalid)[:\s].*`)
)

// RedactSecrets strips credential-bearing substrings from a string before it
// is logged or surfaced in an error.
func RedactSecrets(s string) string {
	s = clientSecretPattern.ReplaceAllString(s, "${1}***")
	s = passwordPattern.ReplaceAllString(s, "${1}***")
	s = passwordTailPattern.ReplaceAllString(s, "${1}: ***")
	return s
}
