package server

const (
	RouteLogin         = "/api/login"
	RouteLogout        = "/api/logout"
	RouteContactLookup = "/api/contacts/lookup"
	RouteContacts      = "/api/contacts"
	RouteLeads         = "/api/leads"
	RouteLogEmail      = "/api/emails/log"
	RouteTaskFromEmail = "/api/tasks/from-email"
	RouteOpportunities = "/api/opportunities"
	RouteHealth        = "/healthz"
)

const (
	// ProfileHeader carries an explicit profile id; the "profile" query
	// parameter is the other explicit channel.
	ProfileHeader     = "X-Crm-Profile"
	ProfileQueryParam = "profile"
	CorrelationHeader = "X-Correlation-Id"
	forwardedHostHdr  = "X-Forwarded-Host"
	authorizationHdr  = "Authorization"
	bearerScheme      = "Bearer "
)
