package credentials

import "strings"

// Substrings that mark a token-endpoint failure as a credential problem
// regardless of the status code the upstream chose. Some deployments answer
// bad logins with a 500 and only the body gives the game away.
var authFailureMarkers = []string{
	"invalid_client",
	"invalid_grant",
	"password is invalid",
	"no user found",
	"invalid credentials",
}

// ClassifyOAuthFailure maps an upstream token-endpoint response to the
// status the caller should surface: 401 for credential rejections, 502 for
// everything else. Pure function, independent of any transport.
func ClassifyOAuthFailure(status int, body string) int {
	if IsAuthFailureText(body) {
		return 401
	}
	if status == 400 || status == 401 {
		return 401
	}
	return 502
}

// IsAuthFailureText reports whether the body text matches a known
// credential-failure marker.
func IsAuthFailureText(body string) bool {
	lowered := strings.ToLower(body)
	for _, marker := range authFailureMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
