package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/response"
	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
	"github.com/iota-uz/projecthub/pkg/apiclient"
)

type ResponseRepository struct {
	client *apiclient.Client
}

func NewResponseRepository(client *apiclient.Client) response.Repository {
	return &ResponseRepository{client: client}
}

func decisionPath(decision response.Decision, requestID int64) (string, error) {
	switch decision {
	case response.DecisionApproved:
		return fmt.Sprintf("/requests/%d/approval", requestID), nil
	case response.DecisionRejected:
		return fmt.Sprintf("/requests/%d/rejection", requestID), nil
	default:
		return "", errors.Errorf("unknown decision %q", decision)
	}
}

func (r *ResponseRepository) ListByRequest(ctx context.Context, requestID int64) ([]response.Response, error) {
	var rows []Response
	if err := r.client.DoJSON(ctx, http.MethodGet, fmt.Sprintf("/requests/%d/responses", requestID), nil, &rows); err != nil {
		return nil, errors.Wrapf(err, "list responses for request %d", requestID)
	}
	out := make([]response.Response, 0, len(rows))
	for _, row := range rows {
		if row.RequestID == 0 {
			row.RequestID = requestID
		}
		out = append(out, ToDomainResponse(row))
	}
	return out, nil
}

func (r *ResponseRepository) Decide(
	ctx context.Context,
	decision response.Decision,
	requestID, projectID int64,
	comment string,
	links []attachment.Link,
) (int64, error) {
	path, err := decisionPath(decision, requestID)
	if err != nil {
		return 0, err
	}
	body := DecideBody{Comment: comment, Links: FromDomainLinks(links)}
	if decision == response.DecisionRejected {
		body.ProjectID = projectID
	}
	var created CreatedResponse
	if err := r.client.DoJSON(ctx, http.MethodPost, path, body, &created); err != nil {
		return 0, errors.Wrapf(err, "%s request %d", decision, requestID)
	}
	if created.ResponseID == 0 {
		return 0, errors.Wrapf(apiclient.ErrMissingID, "%s request %d: responseId", decision, requestID)
	}
	return created.ResponseID, nil
}

func (r *ResponseRepository) Update(ctx context.Context, id int64, comment string, newLinks []attachment.Link) error {
	body := UpdateResponseBody{Comment: comment, Links: FromDomainLinks(newLinks)}
	if err := r.client.DoJSON(ctx, http.MethodPut, fmt.Sprintf("/responses/%d", id), body, nil); err != nil {
		return errors.Wrapf(err, "update response %d", id)
	}
	return nil
}

func (r *ResponseRepository) Delete(ctx context.Context, id int64) error {
	if err := r.client.DoJSON(ctx, http.MethodDelete, fmt.Sprintf("/responses/%d", id), nil, nil); err != nil {
		return errors.Wrapf(err, "delete response %d", id)
	}
	return nil
}

func (r *ResponseRepository) UploadFiles(ctx context.Context, id int64, files []attachment.Upload) error {
	if err := r.client.Upload(ctx, fmt.Sprintf("/responses/%d/files", id), toFileParts(files), nil); err != nil {
		return errors.Wrapf(err, "upload files to response %d", id)
	}
	return nil
}

func (r *ResponseRepository) DeleteLink(ctx context.Context, id, linkID int64) error {
	if err := r.client.DoJSON(ctx, http.MethodDelete, fmt.Sprintf("/responses/%d/links/%d", id, linkID), nil, nil); err != nil {
		return errors.Wrapf(err, "delete link %d of response %d", linkID, id)
	}
	return nil
}

func (r *ResponseRepository) DeleteFile(ctx context.Context, id, fileID int64) error {
	if err := r.client.DoJSON(ctx, http.MethodDelete, fmt.Sprintf("/responses/%d/files/%d", id, fileID), nil, nil); err != nil {
		return errors.Wrapf(err, "delete file %d of response %d", fileID, id)
	}
	return nil
}
