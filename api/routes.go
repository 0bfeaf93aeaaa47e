package main

import (
	"net/http"
)

func composeRoutes(app *application) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", app.rootHandler)
	mux.HandleFunc("GET /healthcheck", app.healthCheckHandler)

	mux.HandleFunc("POST /auth/register", app.registerUserHandler)
	mux.HandleFunc("GET /auth/verify", app.verifyEmailHandler)
	mux.HandleFunc("POST /auth/login", app.loginHandler)
	mux.HandleFunc("GET /auth/me", app.requireUser(app.showCurrentUserHandler))
	mux.HandleFunc("DELETE /auth/me", app.requireUser(app.deleteCurrentUserHandler))

	mux.HandleFunc("GET /projects", app.requireUser(app.listProjectsHandler))
	mux.HandleFunc("POST /projects", app.requireUser(app.createProjectHandler))
	mux.HandleFunc("GET /projects/recent-tasks", app.requireUser(app.recentTasksHandler))
	mux.HandleFunc("GET /projects/{project_id}", app.requireUser(app.showProjectHandler))
	mux.HandleFunc("PUT /projects/{project_id}", app.requireUser(app.updateProjectHandler))
	mux.HandleFunc("DELETE /projects/{project_id}", app.requireUser(app.deleteProjectHandler))

	mux.HandleFunc("GET /projects/{project_id}/tasks", app.requireUser(app.listTasksHandler))
	mux.HandleFunc("POST /projects/{project_id}/tasks", app.requireUser(app.createTaskHandler))
	mux.HandleFunc("GET /projects/{project_id}/tasks/{task_id}", app.requireUser(app.showTaskHandler))
	mux.HandleFunc("PUT /projects/{project_id}/tasks/{task_id}", app.requireUser(app.updateTaskHandler))
	mux.HandleFunc("DELETE /projects/{project_id}/tasks/{task_id}", app.requireUser(app.deleteTaskHandler))

	var handler http.Handler = mux
	if app.config.Limiter.Enabled {
		handler = app.rateLimit(handler)
	}
	return app.logRequests(app.enableCORS(handler))
}
