package routes

const (
	// Health
	Health = "/health"

	// Auth endpoints (public)
	AuthLogin    = "/api/v1/auth/login"
	AuthRegister = "/api/v1/auth/register"
	AuthRefresh  = "/api/v1/auth/refresh"
	AuthLogout   = "/api/v1/auth/logout"

	// Complaint endpoints (protected)
	Complaints      = "/api/v1/complaints"
	ComplaintByID   = "/api/v1/complaints/{id}"
	ComplaintStatus = "/api/v1/complaints/{id}/status"
)
