package main

import (
	"net/http"
)

// taskProject resolves the {project_id} of a task route through the
// ownership check, writing the error response itself when it fails.
func (app *application) taskProject(w http.ResponseWriter, r *http.Request, u *user) (*project, bool) {
	projectID, err := readIDParam(r, "project_id")
	if err != nil {
		app.handleError(w, r, errProjectNotFound)
		return nil, false
	}
	p, err := app.ownedProject(r.Context(), projectID, u.ID)
	if err != nil {
		app.handleError(w, r, err)
		return nil, false
	}
	return p, true
}

func (app *application) listTasksHandler(w http.ResponseWriter, r *http.Request, u *user) {
	p, ok := app.taskProject(w, r, u)
	if !ok {
		return
	}
	status := taskStatus(r.URL.Query().Get("status"))
	if status != "" {
		v := newValidator()
		v.checkStatus(status)
		if v.hasErrors() {
			app.failedValidationResponse(w, r, v.errors)
			return
		}
	}
	tasks, err := app.storage.listTasks(r.Context(), p.ID, status)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	err = writeJSON(w, http.StatusOK, tasks, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) createTaskHandler(w http.ResponseWriter, r *http.Request, u *user) {
	p, ok := app.taskProject(w, r, u)
	if !ok {
		return
	}
	var input struct {
		Title       string     `json:"title"`
		Description *string    `json:"description"`
		Status      taskStatus `json:"status"`
	}
	err := readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if input.Status == "" {
		input.Status = taskStatusTodo
	}
	v := newValidator()
	v.checkTitle(input.Title)
	v.checkStatus(input.Status)
	if v.hasErrors() {
		app.failedValidationResponse(w, r, v.errors)
		return
	}

	t := &task{
		ProjectID:   p.ID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
	}
	err = app.storage.insertTask(r.Context(), t)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	err = writeJSON(w, http.StatusCreated, t, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) showTaskHandler(w http.ResponseWriter, r *http.Request, u *user) {
	p, ok := app.taskProject(w, r, u)
	if !ok {
		return
	}
	taskID, err := readIDParam(r, "task_id")
	if err != nil {
		app.handleError(w, r, errTaskNotFound)
		return
	}
	t, err := app.projectTask(r.Context(), taskID, p.ID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	err = writeJSON(w, http.StatusOK, t, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) updateTaskHandler(w http.ResponseWriter, r *http.Request, u *user) {
	p, ok := app.taskProject(w, r, u)
	if !ok {
		return
	}
	taskID, err := readIDParam(r, "task_id")
	if err != nil {
		app.handleError(w, r, errTaskNotFound)
		return
	}
	var input struct {
		Title       optional[string]     `json:"title"`
		Description optional[string]     `json:"description"`
		Status      optional[taskStatus] `json:"status"`
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
	if input.Status.Set {
		v.checkCond(input.Status.Value != nil, "status", "must not be null")
		if input.Status.Value != nil {
			v.checkStatus(*input.Status.Value)
		}
	}
	if v.hasErrors() {
		app.failedValidationResponse(w, r, v.errors)
		return
	}

	t, err := app.storage.updateTask(r.Context(), taskID, p.ID, func(t *task) {
		if input.Title.Set {
			t.Title = *input.Title.Value
		}
		if input.Description.Set {
			t.Description = input.Description.Value
		}
		if input.Status.Set {
			t.Status = *input.Status.Value
		}
	})
	if err != nil {
		app.handleError(w, r, notFoundAs(err, errTaskNotFound))
		return
	}
	err = writeJSON(w, http.StatusOK, t, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deleteTaskHandler(w http.ResponseWriter, r *http.Request, u *user) {
	p, ok := app.taskProject(w, r, u)
	if !ok {
		return
	}
	taskID, err := readIDParam(r, "task_id")
	if err != nil {
		app.handleError(w, r, errTaskNotFound)
		return
	}
	err = app.storage.deleteTask(r.Context(), taskID, p.ID)
	if err != nil {
		app.handleError(w, r, notFoundAs(err, errTaskNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
