package service

import (
	"context"
	"strings"

	"github.com/CHUDOAL/Valve-sait/internal/apperr"
	"github.com/CHUDOAL/Valve-sait/internal/ids"
	"github.com/CHUDOAL/Valve-sait/internal/models"
)

type TaskService struct {
	tasks TaskStore
	users UserStore
}

func NewTaskService(tasks TaskStore, users UserStore) *TaskService {
	return &TaskService{tasks: tasks, users: users}
}

type CreateTaskInput struct {
	Title       string
	Description string
	AssigneeID  string
}

// Create lets a manager hand a new pending task to an employee.
func (s *TaskService) Create(ctx context.Context, creator models.User, in CreateTaskInput) (models.Task, error) {
	if err := RequireRole(creator, models.UserRoleManager); err != nil {
		return models.Task{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return models.Task{}, apperr.Validation("title_required", "task title is required")
	}

	assignee, err := s.users.GetByID(ctx, in.AssigneeID)
	if err != nil {
		return models.Task{}, translate("load assignee", err)
	}
	if assignee.Role != models.UserRoleEmployee || assignee.Status != models.UserStatusActive {
		return models.Task{}, apperr.Validation("assignee_not_employee", "tasks can only be assigned to employees")
	}

	task, err := s.tasks.Create(ctx, models.Task{
		ID:          ids.New(),
		Title:       in.Title,
		Description: in.Description,
		Status:      models.TaskStatusPending,
		CreatorID:   creator.ID,
		AssigneeID:  assignee.ID,
	})
	if err != nil {
		return models.Task{}, translate("create task", err)
	}
	return task, nil
}

// List returns the tasks a manager created or the tasks assigned to an employee.
func (s *TaskService) List(ctx context.Context, user models.User) ([]models.Task, error) {
	var (
		tasks []models.Task
		err   error
	)
	if user.Role == models.UserRoleManager {
		tasks, err = s.tasks.ListByCreator(ctx, user.ID)
	} else {
		tasks, err = s.tasks.ListByAssignee(ctx, user.ID)
	}
	if err != nil {
		return nil, translate("list tasks", err)
	}
	return tasks, nil
}

// UpdateStatus lets the assignee or the creating manager set any status.
func (s *TaskService) UpdateStatus(ctx context.Context, user models.User, taskID string, status models.TaskStatus) (models.Task, error) {
	if !status.Valid() {
		return models.Task{}, apperr.Validation("invalid_status", "status must be pending, in_progress or completed")
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return models.Task{}, translate("load task", err)
	}

	switch user.Role {
	case models.UserRoleEmployee:
		if task.AssigneeID != user.ID {
			return models.Task{}, apperr.Forbidden("task is not assigned to you")
		}
	case models.UserRoleManager:
		if task.CreatorID != user.ID {
			return models.Task{}, apperr.Forbidden("task was created by another manager")
		}
	default:
		return models.Task{}, apperr.Forbidden("insufficient permissions")
	}

	updated, err := s.tasks.UpdateStatus(ctx, task.ID, status)
	if err != nil {
		return models.Task{}, translate("update task", err)
	}
	return updated, nil
}
