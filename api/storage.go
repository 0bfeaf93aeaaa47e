package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const queryTimeout = 5 * time.Second

// dataStore is the record store the handlers work against. Read-modify-write
// operations take a mutate callback that runs inside one transaction between
// loading the row and persisting it.
type dataStore interface {
	ping(ctx context.Context) error

	checkUserAvailable(ctx context.Context, username, email string) error
	insertUser(ctx context.Context, u *user) error
	getUserByUsername(ctx context.Context, username string) (*user, error)
	activateUser(ctx context.Context, email string) (alreadyActive bool, err error)
	deleteUser(ctx context.Context, id int64) error

	listProjects(ctx context.Context, ownerID int64) ([]projectSummary, error)
	insertProject(ctx context.Context, p *project) error
	getOwnedProject(ctx context.Context, projectID, ownerID int64) (*project, error)
	updateProject(ctx context.Context, projectID, ownerID int64, mutate func(*project)) (*project, error)
	deleteProject(ctx context.Context, projectID, ownerID int64) error

	listTasks(ctx context.Context, projectID int64, status taskStatus) ([]task, error)
	recentTasks(ctx context.Context, ownerID int64, limit int) ([]task, error)
	insertTask(ctx context.Context, t *task) error
	getProjectTask(ctx context.Context, taskID, projectID int64) (*task, error)
	updateTask(ctx context.Context, taskID, projectID int64, mutate func(*task)) (*task, error)
	deleteTask(ctx context.Context, taskID, projectID int64) error
}

func openDB(cfg dbConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

type storage struct {
	db *sql.DB
}

func newStorage(db *sql.DB) *storage {
	return &storage{db: db}
}

// withTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (s *storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *storage) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

// users

const userColumns = `id, created_at, username, email, password_hash, is_active`

func scanUser(row rowScanner) (*user, error) {
	var u user
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errRecordNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *storage) checkUserAvailable(ctx context.Context, username, email string) error {
	query := `SELECT
				EXISTS(SELECT 1 FROM users WHERE username = $1) AS username_exists,
				EXISTS(SELECT 1 FROM users WHERE email = $2) AS email_exists`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var usernameExists, emailExists bool
	err := s.db.QueryRowContext(ctx, query, username, email).Scan(&usernameExists, &emailExists)
	if err != nil {
		return err
	}
	switch {
	case usernameExists:
		return errDuplicateUsername
	case emailExists:
		return errDuplicateEmail
	}
	return nil
}

func (s *storage) insertUser(ctx context.Context, u *user) error {
	query := `INSERT INTO users (username, email, password_hash, is_active)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id, created_at`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, query, u.Username, u.Email, u.PasswordHash, u.IsActive)
	err := row.Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return translateUniqueViolation(err)
	}
	return nil
}

// translateUniqueViolation maps a unique constraint violation on users to
// the matching conflict error. Two concurrent registrations that both pass
// checkUserAvailable end up here.
func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return err
	}
	switch pqErr.Constraint {
	case "users_username_key":
		return errDuplicateUsername
	case "users_email_key":
		return errDuplicateEmail
	}
	return fmt.Errorf("%w: %s", errConflict, pqErr.Message)
}

func (s *storage) getUserByUsername(ctx context.Context, username string) (*user, error) {
	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE username = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(s.db.QueryRowContext(ctx, query, username))
}

func (s *storage) activateUser(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	alreadyActive := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + userColumns + `
				  FROM users
				  WHERE email = $1
				  FOR UPDATE`
		u, err := scanUser(tx.QueryRowContext(ctx, query, email))
		if err != nil {
			return err
		}
		if u.IsActive {
			alreadyActive = true
			return nil
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET is_active = true WHERE id = $1`, u.ID)
		return err
	})
	return alreadyActive, err
}

func (s *storage) deleteUser(ctx context.Context, id int64) error {
	query := `DELETE FROM users
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return expectAffected(s.db.ExecContext(ctx, query, id))
}

func expectAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errRecordNotFound
	}
	return nil
}

// projects

const projectColumns = `id, created_at, owner_id, title, description`

func scanProject(row rowScanner) (*project, error) {
	var p project
	err := row.Scan(&p.ID, &p.CreatedAt, &p.OwnerID, &p.Title, &p.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errRecordNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *storage) listProjects(ctx context.Context, ownerID int64) ([]projectSummary, error) {
	query := `SELECT p.id, p.created_at, p.owner_id, p.title, p.description, COUNT(t.id)
			  FROM projects p
			  LEFT JOIN tasks t ON t.project_id = p.id
			  WHERE p.owner_id = $1
			  GROUP BY p.id
			  ORDER BY p.id`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []projectSummary{}
	for rows.Next() {
		var p projectSummary
		err := rows.Scan(&p.ID, &p.CreatedAt, &p.OwnerID, &p.Title, &p.Description, &p.TaskCount)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *storage) insertProject(ctx context.Context, p *project) error {
	query := `INSERT INTO projects (owner_id, title, description)
			  VALUES ($1, $2, $3)
			  RETURNING id, created_at`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return s.db.QueryRowContext(ctx, query, p.OwnerID, p.Title, p.Description).Scan(&p.ID, &p.CreatedAt)
}

func (s *storage) getOwnedProject(ctx context.Context, projectID, ownerID int64) (*project, error) {
	query := `SELECT ` + projectColumns + `
			  FROM projects
			  WHERE id = $1 AND owner_id = $2`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanProject(s.db.QueryRowContext(ctx, query, projectID, ownerID))
}

func (s *storage) updateProject(ctx context.Context, projectID, ownerID int64, mutate func(*project)) (*project, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p *project
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + projectColumns + `
				  FROM projects
				  WHERE id = $1 AND owner_id = $2
				  FOR UPDATE`
		var err error
		p, err = scanProject(tx.QueryRowContext(ctx, query, projectID, ownerID))
		if err != nil {
			return err
		}
		mutate(p)
		_, err = tx.ExecContext(ctx, `UPDATE projects SET title = $1, description = $2 WHERE id = $3`,
			p.Title, p.Description, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *storage) deleteProject(ctx context.Context, projectID, ownerID int64) error {
	query := `DELETE FROM projects
			  WHERE id = $1 AND owner_id = $2`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return expectAffected(s.db.ExecContext(ctx, query, projectID, ownerID))
}

// tasks

const taskColumns = `id, created_at, updated_at, project_id, title, description, status`

func scanTask(row rowScanner) (*task, error) {
	var t task
	err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt, &t.ProjectID, &t.Title, &t.Description, &t.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errRecordNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *storage) queryTasks(ctx context.Context, query string, args ...any) ([]task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// listTasks returns the tasks of a project. An empty status matches all.
func (s *storage) listTasks(ctx context.Context, projectID int64, status taskStatus) ([]task, error) {
	query := `SELECT ` + taskColumns + `
			  FROM tasks
			  WHERE project_id = $1 AND ($2 = '' OR status = $2)
			  ORDER BY id`
	return s.queryTasks(ctx, query, projectID, string(status))
}

func (s *storage) recentTasks(ctx context.Context, ownerID int64, limit int) ([]task, error) {
	query := `SELECT t.id, t.created_at, t.updated_at, t.project_id, t.title, t.description, t.status
			  FROM tasks t
			  JOIN projects p ON p.id = t.project_id
			  WHERE p.owner_id = $1
			  ORDER BY t.updated_at DESC, t.id DESC
			  LIMIT $2`
	return s.queryTasks(ctx, query, ownerID, limit)
}

func (s *storage) insertTask(ctx context.Context, t *task) error {
	query := `INSERT INTO tasks (project_id, title, description, status)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id, created_at, updated_at`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, t.ProjectID, t.Title, t.Description, t.Status)
	return row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (s *storage) getProjectTask(ctx context.Context, taskID, projectID int64) (*task, error) {
	query := `SELECT ` + taskColumns + `
			  FROM tasks
			  WHERE id = $1 AND project_id = $2`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanTask(s.db.QueryRowContext(ctx, query, taskID, projectID))
}

func (s *storage) updateTask(ctx context.Context, taskID, projectID int64, mutate func(*task)) (*task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t *task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + taskColumns + `
				  FROM tasks
				  WHERE id = $1 AND project_id = $2
				  FOR UPDATE`
		var err error
		t, err = scanTask(tx.QueryRowContext(ctx, query, taskID, projectID))
		if err != nil {
			return err
		}
		mutate(t)
		query = `UPDATE tasks SET title = $1, description = $2, status = $3, updated_at = now()
				 WHERE id = $4
				 RETURNING updated_at`
		return tx.QueryRowContext(ctx, query, t.Title, t.Description, t.Status, t.ID).Scan(&t.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *storage) deleteTask(ctx context.Context, taskID, projectID int64) error {
	query := `DELETE FROM tasks
			  WHERE id = $1 AND project_id = $2`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return expectAffected(s.db.ExecContext(ctx, query, taskID, projectID))
}
