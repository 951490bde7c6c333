package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CHUDOAL/Valve-sait/internal/models"
)

const taskColumns = `id, title, description, status, creator_id, assignee_id, created_at, updated_at`

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) Create(ctx context.Context, task models.Task) (models.Task, error) {
	query := `
		INSERT INTO tasks (id, title, description, status, creator_id, assignee_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING ` + taskColumns

	return scanTask(r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.CreatorID,
		task.AssigneeID,
	))
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

func (r *TaskRepository) ListByCreator(ctx context.Context, creatorID string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE creator_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, creatorID)
}

func (r *TaskRepository) ListByAssignee(ctx context.Context, assigneeID string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assignee_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, assigneeID)
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, status models.TaskStatus) (models.Task, error) {
	query := `
		UPDATE tasks SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + taskColumns
	return scanTask(r.pool.QueryRow(ctx, query, id, status))
}

func (r *TaskRepository) list(ctx context.Context, query string, arg string) ([]models.Task, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (models.Task, error) {
	var task models.Task
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.CreatorID,
		&task.AssigneeID,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}
