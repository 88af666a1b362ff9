package credentials

import "fmt"

// AuthFailure reports an upstream credential rejection together with the
// status the boundary layer should answer with (401 for credential problems,
// 502 for upstream faults).
type AuthFailure struct {
	SuggestedStatus int
	Reason          string
}

func (e *AuthFailure) Error() string {
	return fmt.Sprintf("upstream auth failure (%d): %s", e.SuggestedStatus, e.Reason)
}

// MissingCredentials marks a profile with no usable client id/secret. No
// network call is made in this case.
func MissingCredentials(profileID string) *AuthFailure {
	return &AuthFailure{
		SuggestedStatus: 401,
		Reason:          fmt.Sprintf("profile %q has no client credentials configured", profileID),
	}
}
