package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/iota-uz/projecthub/modules/requests/domain/entities/task"
	"github.com/iota-uz/projecthub/pkg/apiclient"
)

type TaskRepository struct {
	client *apiclient.Client
}

func NewTaskRepository(client *apiclient.Client) task.Repository {
	return &TaskRepository{client: client}
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (task.Task, error) {
	var row Task
	if err := r.client.DoJSON(ctx, http.MethodGet, fmt.Sprintf("/tasks/%d", id), nil, &row); err != nil {
		return task.Task{}, errors.Wrapf(err, "get task %d", id)
	}
	if row.TaskID == 0 {
		row.TaskID = id
	}
	return ToDomainTask(row), nil
}
