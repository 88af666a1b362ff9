package crm

import "strings"

// webRoot derives the CRM portal root from the profile's API base URL by
// stripping the API path suffix, e.g. "https://crm.acme.test/api/v1" →
// "https://crm.acme.test".
func (a *Adapter) webRoot() string {
	base := strings.TrimRight(a.profile.BaseURL, "/")
	if idx := strings.Index(base, "/api/"); idx > 0 {
		return base[:idx]
	}
	if trimmed, ok := strings.CutSuffix(base, "/api"); ok {
		return trimmed
	}
	return base
}

// deepLink is the portal view link for one record.
func (a *Adapter) deepLink(module, id string) string {
	if id == "" {
		return ""
	}
	return a.webRoot() + "/#/" + module + "/view/" + id
}

// listLink is the portal "view all" link for a record's related list.
func (a *Adapter) listLink(module, id, relation string) string {
	if id == "" {
		return ""
	}
	return a.webRoot() + "/#/" + module + "/view/" + id + "?relation=" + relation
}
