package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CHUDOAL/Valve-sait/internal/apperr"
	"github.com/CHUDOAL/Valve-sait/internal/middleware"
	"github.com/CHUDOAL/Valve-sait/internal/models"
	"github.com/CHUDOAL/Valve-sait/internal/service"
)

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssigneeID  string `json:"assigneeId"`
}

type updateTaskRequest struct {
	Status string `json:"status"`
}

type taskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatorID   string    `json:"creatorId"`
	AssigneeID  string    `json:"assigneeId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newTaskResponse(task models.Task) taskResponse {
	return taskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		CreatorID:   task.CreatorID,
		AssigneeID:  task.AssigneeID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func (h HandlerSet) CreateTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, apperr.Validation("invalid_body", "request body must be JSON"))
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), user, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, newTaskResponse(task))
}

func (h HandlerSet) ListTasks(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), user)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	resp := make([]taskResponse, 0, len(tasks))
	for _, task := range tasks {
		resp = append(resp, newTaskResponse(task))
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) UpdateTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, apperr.Validation("invalid_body", "request body must be JSON"))
		return
	}

	task, err := h.tasks.UpdateStatus(c.Request.Context(), user, c.Param("id"), models.TaskStatus(req.Status))
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}
