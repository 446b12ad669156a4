package events

import (
	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/response"
	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
)

// Owner names the entity an attachment or upload belongs to.
type Owner string

const (
	OwnerRequest  Owner = "request"
	OwnerResponse Owner = "response"
)

// RequestCreatedEvent is published once the backend has assigned an id.
type RequestCreatedEvent struct {
	RequestID int64
	TaskID    int64
}

type RequestUpdatedEvent struct {
	RequestID int64
	TaskID    int64
}

type RequestDeletedEvent struct {
	RequestID int64
	TaskID    int64
}

// RequestDecidedEvent is published after an approval or a rejection is confirmed.
type RequestDecidedEvent struct {
	RequestID  int64
	TaskID     int64
	ResponseID int64
	Decision   response.Decision
}

type ResponseUpdatedEvent struct {
	ResponseID int64
	RequestID  int64
	TaskID     int64
}

type ResponseDeletedEvent struct {
	ResponseID int64
	RequestID  int64
	TaskID     int64
}

// AttachmentDeletedEvent carries a confirmed per-item delete.
type AttachmentDeletedEvent struct {
	Owner     Owner
	OwnerID   int64
	RequestID int64
	TaskID    int64
	Kind      attachment.Kind
	ItemID    int64
}

// FilesUploadedEvent is published when a retried upload succeeds.
type FilesUploadedEvent struct {
	Owner     Owner
	OwnerID   int64
	RequestID int64
	TaskID    int64
}

// StaleStateEvent asks read models to refetch after the backend reported
// that local state no longer matches.
type StaleStateEvent struct {
	RequestID int64
	TaskID    int64
}
