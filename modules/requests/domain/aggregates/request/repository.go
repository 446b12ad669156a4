package request

import (
	"context"

	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
)

type Repository interface {
	ListByTask(ctx context.Context, taskID int64) ([]Request, error)
	// Create stores scalar fields and links and returns the new request id.
	Create(ctx context.Context, r Request) (int64, error)
	// Update overwrites title and content and appends newLinks.
	Update(ctx context.Context, id int64, title, content string, newLinks []attachment.Link) error
	Delete(ctx context.Context, id int64) error
	UploadFiles(ctx context.Context, id int64, files []attachment.Upload) error
	DeleteLink(ctx context.Context, id, linkID int64) error
	DeleteFile(ctx context.Context, id, fileID int64) error
}
