package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/request"
	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
	"github.com/iota-uz/projecthub/pkg/apiclient"
)

type RequestRepository struct {
	client *apiclient.Client
}

func NewRequestRepository(client *apiclient.Client) request.Repository {
	return &RequestRepository{client: client}
}

func (r *RequestRepository) ListByTask(ctx context.Context, taskID int64) ([]request.Request, error) {
	var rows []Request
	if err := r.client.DoJSON(ctx, http.MethodGet, fmt.Sprintf("/tasks/%d/requests", taskID), nil, &rows); err != nil {
		return nil, errors.Wrapf(err, "list requests for task %d", taskID)
	}
	out := make([]request.Request, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToDomainRequest(row))
	}
	return out, nil
}

func (r *RequestRepository) Create(ctx context.Context, req request.Request) (int64, error) {
	body := CreateRequestBody{
		Title:     req.Title(),
		Content:   req.Content(),
		ProjectID: req.ProjectID(),
		StageID:   req.StageID(),
		TaskID:    req.TaskID(),
		Links:     FromDomainLinks(req.Attachments().Links()),
	}
	var created CreatedRequest
	if err := r.client.DoJSON(ctx, http.MethodPost, "/requests", body, &created); err != nil {
		return 0, errors.Wrap(err, "create request")
	}
	if created.RequestID == 0 {
		return 0, errors.Wrap(apiclient.ErrMissingID, "create request: requestId")
	}
	return created.RequestID, nil
}

func (r *RequestRepository) Update(ctx context.Context, id int64, title, content string, newLinks []attachment.Link) error {
	body := UpdateRequestBody{Title: title, Content: content, Links: FromDomainLinks(newLinks)}
	if err := r.client.DoJSON(ctx, http.MethodPut, fmt.Sprintf("/requests/%d", id), body, nil); err != nil {
		return errors.Wrapf(err, "update request %d", id)
	}
	return nil
}

func (r *RequestRepository) Delete(ctx context.Context, id int64) error {
	if err := r.client.DoJSON(ctx, http.MethodDelete, fmt.Sprintf("/requests/%d", id), nil, nil); err != nil {
		return errors.Wrapf(err, "delete request %d", id)
	}
	return nil
}

func (r *RequestRepository) UploadFiles(ctx context.Context, id int64, files []attachment.Upload) error {
	if err := r.client.Upload(ctx, fmt.Sprintf("/requests/%d/files", id), toFileParts(files), nil); err != nil {
		return errors.Wrapf(err, "upload files to request %d", id)
	}
	return nil
}

func (r *RequestRepository) DeleteLink(ctx context.Context, id, linkID int64) error {
	if err := r.client.DoJSON(ctx, http.MethodDelete, fmt.Sprintf("/requests/%d/links/%d", id, linkID), nil, nil); err != nil {
		return errors.Wrapf(err, "delete link %d of request %d", linkID, id)
	}
	return nil
}

func (r *RequestRepository) DeleteFile(ctx context.Context, id, fileID int64) error {
	if err := r.client.DoJSON(ctx, http.MethodDelete, fmt.Sprintf("/requests/%d/files/%d", id, fileID), nil, nil); err != nil {
		return errors.Wrapf(err, "delete file %d of request %d", fileID, id)
	}
	return nil
}
