package response

import (
	"context"

	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
)

type Repository interface {
	ListByRequest(ctx context.Context, requestID int64) ([]Response, error)
	// Decide records the decision on the request and returns the new response id.
	Decide(ctx context.Context, decision Decision, requestID, projectID int64, comment string, links []attachment.Link) (int64, error)
	Update(ctx context.Context, id int64, comment string, newLinks []attachment.Link) error
	Delete(ctx context.Context, id int64) error
	UploadFiles(ctx context.Context, id int64, files []attachment.Upload) error
	DeleteLink(ctx context.Context, id, linkID int64) error
	DeleteFile(ctx context.Context, id, fileID int64) error
}
