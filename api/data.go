package main

import (
	"time"
)

type user struct {
	ID           int64     `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	IsActive     bool      `json:"is_active"`
}

type project struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	OwnerID     int64     `json:"owner_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
}

// projectSummary is a project as listed, with the number of tasks it holds.
type projectSummary struct {
	project
	TaskCount int `json:"task_count"`
}

type projectWithTasks struct {
	project
	Tasks []task `json:"tasks"`
}

type taskStatus string

const (
	taskStatusTodo       taskStatus = "todo"
	taskStatusInProgress taskStatus = "in_progress"
	taskStatusDone       taskStatus = "done"
)

var taskStatuses = []taskStatus{taskStatusTodo, taskStatusInProgress, taskStatusDone}

func (s taskStatus) valid() bool {
	for _, v := range taskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type task struct {
	ID          int64      `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProjectID   int64      `json:"project_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      taskStatus `json:"status"`
}
