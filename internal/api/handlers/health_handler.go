package handlers

import "net/http"

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Health reports that the API is up.
func Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "Task Manager API is running",
	})
}

// Index lists the available endpoints.
func Index(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Task Manager API",
		"version": Version,
		"endpoints": []string{
			"GET /api/health",
			"POST /api/auth/signup",
			"POST /api/auth/login",
			"GET /api/tasks",
			"POST /api/tasks",
			"GET /api/tasks/:id",
			"PUT /api/tasks/:id",
			"DELETE /api/tasks/:id",
			"GET /api/stats",
			"GET /api/ws",
		},
	})
}
