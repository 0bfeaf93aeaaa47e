package main

import (
	"context"
	"errors"
	"strings"
)

var (
	errProjectNotFound = newAPIError(errNotFound, "project not found")
	errTaskNotFound    = newAPIError(errNotFound, "task not found")
	errUserNotFound    = newAPIError(errNotFound, "user not found")
	errInvalidAuth     = newAPIError(errUnauthorized, "invalid or missing authentication token")
)

// resolveUser returns the user a bearer Authorization header authenticates.
// Only access tokens are accepted. The active flag is not checked here since
// login never issues a token to an inactive user.
func (app *application) resolveUser(ctx context.Context, authHeader string) (*user, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errInvalidAuth
	}
	username, err := app.tokens.decode(parts[1], tokenTypeAccess)
	if err != nil {
		return nil, errInvalidAuth
	}
	u, err := app.storage.getUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errRecordNotFound) {
			return nil, errInvalidAuth
		}
		return nil, err
	}
	return u, nil
}

// ownedProject loads a project only if it belongs to ownerID. A project owned
// by someone else is reported exactly like a missing one.
func (app *application) ownedProject(ctx context.Context, projectID, ownerID int64) (*project, error) {
	p, err := app.storage.getOwnedProject(ctx, projectID, ownerID)
	if err != nil {
		return nil, notFoundAs(err, errProjectNotFound)
	}
	return p, nil
}

// projectTask loads a task of a project whose ownership was already checked.
func (app *application) projectTask(ctx context.Context, taskID, projectID int64) (*task, error) {
	t, err := app.storage.getProjectTask(ctx, taskID, projectID)
	if err != nil {
		return nil, notFoundAs(err, errTaskNotFound)
	}
	return t, nil
}

func notFoundAs(err error, notFound error) error {
	if errors.Is(err, errRecordNotFound) {
		return notFound
	}
	return err
}
