package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// Session lifecycle
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// CRM operations, session token or service flow
	s.RegisterRouteHandler("GET "+RouteContactLookup, ChainMiddleware(s.ContactLookupHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteContacts, ChainMiddleware(s.CreateContactHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLeads, ChainMiddleware(s.CreateLeadHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogEmail, ChainMiddleware(s.LogEmailHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteTaskFromEmail, ChainMiddleware(s.TaskFromEmailHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteOpportunities, ChainMiddleware(s.OpportunitiesHandler(), s.APIMiddleware()...))
}

// APIMiddleware is the chain every /api route runs through.
func (s *Server) APIMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.CorrelationMiddleware,
		s.RecoverMiddleware,
		s.LoggingMiddleware,
		s.CorsMiddleware,
	}
}
