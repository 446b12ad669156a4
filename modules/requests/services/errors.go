package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
	"github.com/iota-uz/projecthub/modules/requests/domain/events"
	"github.com/iota-uz/projecthub/pkg/apiclient"
	"github.com/iota-uz/projecthub/pkg/serrors"
)

var (
	ErrForbidden     = serrors.NewError("REQUESTS_FORBIDDEN", "not allowed to perform this action", "Requests.Errors.Forbidden")
	ErrTransport     = serrors.NewError("REQUESTS_TRANSPORT", "backend call failed, nothing was saved", "Requests.Errors.Transport")
	ErrRejected      = serrors.NewError("REQUESTS_REJECTED", "backend rejected the submitted data", "Requests.Errors.Rejected")
	ErrStale         = serrors.NewError("REQUESTS_STALE", "the item changed since it was loaded", "Requests.Errors.Stale")
	ErrInFlight      = serrors.NewError("REQUESTS_IN_FLIGHT", "the same action is already in progress", "Requests.Errors.InFlight")
	ErrTaskApproved  = serrors.NewError("REQUESTS_TASK_APPROVED", "the task is already approved", "Requests.Errors.TaskApproved")
	ErrPartialUpload = serrors.NewError("REQUESTS_PARTIAL_UPLOAD", "saved, but files were not uploaded", "Requests.Errors.PartialUpload")
	ErrNotLoaded     = serrors.NewError("REQUESTS_NOT_LOADED", "the item is not loaded; list its task first", "Requests.Errors.NotLoaded")
	ErrClosed        = serrors.NewError("REQUESTS_PROJECTION_CLOSED", "the view was closed", "Requests.Errors.Closed")
)

// PendingUpload identifies files that still have to be sent to an entity
// that already exists on the backend.
type PendingUpload struct {
	Owner     events.Owner
	OwnerID   int64
	RequestID int64
	TaskID    int64
	Files     []attachment.Upload
}

// PartialFailureError reports that phase one succeeded and the upload did not.
// Upload can be passed to WorkflowService.RetryUpload.
type PartialFailureError struct {
	Upload PendingUpload
	Err    error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s %d saved, %d file(s) not uploaded: %v",
		e.Upload.Owner, e.Upload.OwnerID, len(e.Upload.Files), e.Err)
}

func (e *PartialFailureError) Unwrap() []error {
	return []error{ErrPartialUpload, e.Err}
}

// classify maps a repository error onto the workflow taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apiclient.ErrMissingID) {
		return fmt.Errorf("%w: %w", ErrStale, err)
	}
	var be *serrors.BaseError
	if errors.As(err, &be) {
		return err
	}
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrForbidden, err)
		case http.StatusNotFound, http.StatusConflict:
			return fmt.Errorf("%w: %w", ErrStale, err)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %w", ErrRejected, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
