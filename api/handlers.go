package main

import (
	"errors"
	"net/http"
)

var (
	errInvalidCredentials = newAPIError(errUnauthorized, "invalid username or password")
	errEmailNotVerified   = newAPIError(errForbidden, "email not verified, please check your inbox")
)

func (app *application) rootHandler(w http.ResponseWriter, r *http.Request) {
	err := writeJSON(w, http.StatusOK, envelope{"message": "Task Management App is running"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	status, database := "available", "ok"
	if err := app.storage.ping(r.Context()); err != nil {
		app.logger.Error("database ping failed", "error", err)
		status, database = "degraded", "unreachable"
	}
	healthCheck := struct {
		Status      string `json:"status"`
		Environment string `json:"environment"`
		Version     string `json:"version"`
		Database    string `json:"database"`
	}{
		Status:      status,
		Environment: app.config.Env,
		Version:     version,
		Database:    database,
	}
	code := http.StatusOK
	if status != "available" {
		code = http.StatusServiceUnavailable
	}
	err := writeJSON(w, code, healthCheck, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username" validate:"required,max=50"`
		Email    string `json:"email" validate:"required,email,max=100"`
		Password string `json:"password"`
	}
	err := readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	v := newValidator()
	v.checkStruct(input)
	v.checkPassword(input.Password)
	if v.hasErrors() {
		app.failedValidationResponse(w, r, v.errors)
		return
	}

	ctx := r.Context()
	err = app.storage.checkUserAvailable(ctx, input.Username, input.Email)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	hash, err := hashPassword(input.Password)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	u := &user{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		IsActive:     false,
	}
	err = app.storage.insertUser(ctx, u)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	token, err := app.tokens.issueVerificationToken(u.Email)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	// The user row is already committed; a failed delivery is only logged.
	err = app.notifier.sendVerificationEmail(u.Email, u.Username, token)
	if err != nil {
		app.logger.Error("sending verification email failed", "user_id", u.ID, "error", err)
	}

	err = writeJSON(w, http.StatusCreated, envelope{
		"message": "Registration successful. Please check your email to verify your account.",
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) verifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	email, err := app.tokens.decode(r.URL.Query().Get("token"), tokenTypeEmailVerification)
	if err != nil {
		app.errorResponse(w, r, http.StatusBadRequest, "invalid or expired verification token")
		return
	}

	alreadyActive, err := app.storage.activateUser(r.Context(), email)
	if err != nil {
		app.handleError(w, r, notFoundAs(err, errUserNotFound))
		return
	}

	message := "Email verified successfully. You can now log in."
	if alreadyActive {
		message = "Email already verified. You can log in."
	}
	err = writeJSON(w, http.StatusOK, envelope{"message": message}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	err := readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	v := newValidator()
	v.checkStruct(input)
	if v.hasErrors() {
		app.failedValidationResponse(w, r, v.errors)
		return
	}

	u, err := app.storage.getUserByUsername(r.Context(), input.Username)
	if err != nil && !errors.Is(err, errRecordNotFound) {
		app.serverErrorResponse(w, r, err)
		return
	}
	if u == nil || !verifyPassword(input.Password, u.PasswordHash) {
		app.handleError(w, r, errInvalidCredentials)
		return
	}
	if !u.IsActive {
		app.handleError(w, r, errEmailNotVerified)
		return
	}

	token, err := app.tokens.issueAccessToken(u.Username)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	err = writeJSON(w, http.StatusOK, envelope{"access_token": token, "token_type": "bearer"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) showCurrentUserHandler(w http.ResponseWriter, r *http.Request, u *user) {
	err := writeJSON(w, http.StatusOK, u, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteCurrentUserHandler removes the account. Its projects and their tasks
// go with it through the foreign keys.
func (app *application) deleteCurrentUserHandler(w http.ResponseWriter, r *http.Request, u *user) {
	err := app.storage.deleteUser(r.Context(), u.ID)
	if err != nil {
		app.handleError(w, r, notFoundAs(err, errUserNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
