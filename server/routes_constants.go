package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteAPIPrefix = "/api"

	// Auth Routes
	RouteAuthLogin   = RouteAPIPrefix + "/auth/login"
	RouteAuthSignup  = RouteAPIPrefix + "/auth/signup"
	RouteAuthRefresh = RouteAPIPrefix + "/auth/refresh"
	RouteAuthLogout  = RouteAPIPrefix + "/auth/logout"
	RouteAuthMe      = RouteAPIPrefix + "/auth/me"

	// Admin Routes
	RouteAdminUsers       = RouteAPIPrefix + "/admin/users"
	RouteAdminUser        = RouteAdminUsers + "/{id}"
	RouteAdminUserStatus  = RouteAdminUser + "/status"
	RouteAdminUserPromote = RouteAdminUser + "/promote"

	// Operational Routes
	RouteHealth  = "/health"
	RouteMetrics = "/metrics"
)
