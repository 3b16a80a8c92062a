package models

import "time"

// TaskType is the single-letter category code of a task.
type TaskType string

const (
	TaskTypePersonal TaskType = "P"
	TaskTypeCollege  TaskType = "C"
	TaskTypeWork     TaskType = "W"
	TaskTypeOther    TaskType = "O"
)

// TaskTypes lists the valid category codes.
var TaskTypes = []TaskType{TaskTypePersonal, TaskTypeCollege, TaskTypeWork, TaskTypeOther}

// TaskStatus is the single-letter progress code of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "P"
	TaskStatusInProgress TaskStatus = "I"
	TaskStatusCompleted  TaskStatus = "C"
)

// Task is a unit of work shared by its assigned users. CompletedAt is not
// derived from Status; callers own keeping the two consistent.
type Task struct {
	ID            int64
	Name          string
	Description   *string
	CreatedAt     time.Time
	Type          TaskType
	Status        TaskStatus
	CompletedAt   *time.Time
	AssignedUsers []User
}
