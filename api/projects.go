package main

import (
	"net/http"
	"strconv"
)

const (
	defaultRecentTasks = 5
	maxRecentTasks     = 50
)

func (app *application) listProjectsHandler(w http.ResponseWriter, r *http.Request, u *user) {
	projects, err := app.storage.listProjects(r.Context(), u.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	err = writeJSON(w, http.StatusOK, projects, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) createProjectHandler(w http.ResponseWriter, r *http.Request, u *user) {
	var input struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
	}
	err := readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	v := newValidator()
	v.checkTitle(input.Title)
	if v.hasErrors() {
		app.failedValidationResponse(w, r, v.errors)
		return
	}

	p := &project{
		OwnerID:     u.ID,
		Title:       input.Title,
		Description: input.Description,
	}
	err = app.storage.insertProject(r.Context(), p)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	err = writeJSON(w, http.StatusCreated, p, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) showProjectHandler(w http.ResponseWriter, r *http.Request, u *user) {
	id, err := readIDParam(r, "project_id")
	if err != nil {
		app.handleError(w, r, errProjectNotFound)
		return
	}
	p, err := app.ownedProject(r.Context(), id, u.ID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	tasks, err := app.storage.listTasks(r.Context(), p.ID, "")
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	err = writeJSON(w, http.StatusOK, projectWithTasks{project: *p, Tasks: tasks}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) updateProjectHandler(w http.ResponseWriter, r *http.Request, u *user) {
	id, err := readIDParam(r, "project_id")
	if err != nil {
		app.handleError(w, r, errProjectNotFound)
		return
	}
	var input struct {
		Title       optional[string] `json:"title"`
		Description optional[string] `json:"description"`
	}
	err = readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	v := newValidator()
	if input.Title.Set {
		v.checkCond(input.Title.Value != nil, "title", "must not be null")
		if input.Title.Value != nil {
			v.checkTitle(*input.Title.Value)
		}
	}
	if v.hasErrors() {
		app.failedValidationResponse(w, r, v.errors)
		return
	}

	p, err := app.storage.updateProject(r.Context(), id, u.ID, func(p *project) {
		if input.Title.Set {
			p.Title = *input.Title.Value
		}
		if input.Description.Set {
			p.Description = input.Description.Value
		}
	})
	if err != nil {
		app.handleError(w, r, notFoundAs(err, errProjectNotFound))
		return
	}
	err = writeJSON(w, http.StatusOK, p, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deleteProjectHandler(w http.ResponseWriter, r *http.Request, u *user) {
	id, err := readIDParam(r, "project_id")
	if err != nil {
		app.handleError(w, r, errProjectNotFound)
		return
	}
	err = app.storage.deleteProject(r.Context(), id, u.ID)
	if err != nil {
		app.handleError(w, r, notFoundAs(err, errProjectNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// recentTasksHandler lists the caller's most recently updated tasks across
// all of their projects.
func (app *application) recentTasksHandler(w http.ResponseWriter, r *http.Request, u *user) {
	limit := defaultRecentTasks
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		v := newValidator()
		v.checkCond(err == nil && n >= 1 && n <= maxRecentTasks, "limit", "must be an integer between 1 and 50")
		if v.hasErrors() {
			app.failedValidationResponse(w, r, v.errors)
			return
		}
		limit = n
	}
	tasks, err := app.storage.recentTasks(r.Context(), u.ID, limit)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	err = writeJSON(w, http.StatusOK, tasks, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
