package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/request"
	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/response"
	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
	"github.com/iota-uz/projecthub/modules/requests/domain/entities/task"
	"github.com/iota-uz/projecthub/modules/requests/domain/events"
	"github.com/iota-uz/projecthub/modules/requests/permissions"
	"github.com/iota-uz/projecthub/pkg/composables"
	"github.com/iota-uz/projecthub/pkg/eventbus"
	"github.com/iota-uz/projecthub/pkg/serrors"
)

// StateReader is the cached read side the workflow checks preconditions against.
type StateReader interface {
	Request(id int64) (request.Request, bool)
	Response(id int64) (response.Response, bool)
}

// Submission identifies what a write created.
type Submission struct {
	RequestID  int64
	ResponseID int64
}

// WorkflowService runs the request approval state machine against the backend.
// Every entity write is confirmed before files are sent, and every confirmed
// write is announced on the event bus so read models refetch.
type WorkflowService struct {
	requests  request.Repository
	responses response.Repository
	tasks     task.Repository
	state     StateReader
	publisher eventbus.EventBus
	guard     *inflight
	now       func() time.Time
}

func NewWorkflowService(
	requests request.Repository,
	responses response.Repository,
	tasks task.Repository,
	state StateReader,
	publisher eventbus.EventBus,
) *WorkflowService {
	return &WorkflowService{
		requests:  requests,
		responses: responses,
		tasks:     tasks,
		state:     state,
		publisher: publisher,
		guard:     newInflight(),
		now:       time.Now,
	}
}

// InFlight reports whether action on the given owner is currently running.
// Front ends use it to disable the matching control.
func (s *WorkflowService) InFlight(action string, owner events.Owner, id int64) bool {
	return s.guard.busy(inflightKey(action, string(owner), id))
}

func (s *WorkflowService) logger(ctx context.Context, operation string) *logrus.Entry {
	entry := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"component": "requests.workflow",
		"operation": operation,
	})
	if id, err := composables.UseRequestID(ctx); err == nil {
		entry = entry.WithField("request-id", id)
	}
	return entry
}

func actorFrom(ctx context.Context) (permissions.Actor, error) {
	actor, err := permissions.UseActor(ctx)
	if err != nil {
		return permissions.Actor{}, fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	return actor, nil
}

func (s *WorkflowService) publish(ctx context.Context, log *logrus.Entry, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishE(ctx, event); err != nil && !errors.Is(err, eventbus.ErrNoSubscribers) {
		log.WithError(err).Warn("refresh after write failed")
	}
}

func (s *WorkflowService) cachedRequest(id int64) (request.Request, error) {
	r, ok := s.state.Request(id)
	if !ok {
		return request.Request{}, ErrNotLoaded.WithTemplateData(map[string]string{"ID": fmt.Sprint(id)})
	}
	return r, nil
}

func (s *WorkflowService) cachedResponse(id int64) (response.Response, error) {
	r, ok := s.state.Response(id)
	if !ok {
		return response.Response{}, ErrNotLoaded.WithTemplateData(map[string]string{"ID": fmt.Sprint(id)})
	}
	return r, nil
}

func stale(err error) error {
	return fmt.Errorf("%w: %w", ErrStale, err)
}

// backendFailed classifies err and, when the backend reported a state
// mismatch, asks read models to refetch the request.
func (s *WorkflowService) backendFailed(ctx context.Context, log *logrus.Entry, err error, requestID, taskID int64) error {
	err = classify(err)
	log.WithError(err).Warn("backend write failed")
	if errors.Is(err, ErrStale) {
		s.publish(ctx, log, &events.StaleStateEvent{RequestID: requestID, TaskID: taskID})
	}
	return err
}

// uploadPhase sends files for an entity that phase one already created.
func (s *WorkflowService) uploadPhase(ctx context.Context, log *logrus.Entry, pending PendingUpload) error {
	if len(pending.Files) == 0 {
		return nil
	}
	var err error
	switch pending.Owner {
	case events.OwnerResponse:
		err = s.responses.UploadFiles(ctx, pending.OwnerID, pending.Files)
	default:
		err = s.requests.UploadFiles(ctx, pending.OwnerID, pending.Files)
	}
	if err == nil {
		return nil
	}
	log.WithError(err).WithFields(logrus.Fields{
		"owner":    pending.Owner,
		"owner_id": pending.OwnerID,
		"files":    len(pending.Files),
	}).Warn("file upload failed after entity was saved")
	return &PartialFailureError{Upload: pending, Err: classify(err)}
}

// Create files a new PENDING request against a task that is not approved yet.
// A *PartialFailureError means the request exists without its files.
func (s *WorkflowService) Create(ctx context.Context, dto request.CreateDTO) (sub Submission, err error) {
	start := time.Now()
	defer func() { recordOperation("create", start, err) }()
	log := s.logger(ctx, "create")

	actor, err := actorFrom(ctx)
	if err != nil {
		return Submission{}, err
	}
	if err := dto.Validate(); err != nil {
		return Submission{}, err
	}

	release, err := s.guard.acquire(inflightKey("create", "task", dto.TaskID))
	if err != nil {
		return Submission{}, err
	}
	defer release()

	t, err := s.tasks.GetByID(ctx, dto.TaskID)
	if err != nil {
		return Submission{}, s.backendFailed(ctx, log, err, 0, dto.TaskID)
	}
	if !t.AcceptsRequests() {
		return Submission{}, ErrTaskApproved.WithTemplateData(map[string]string{"TaskID": fmt.Sprint(t.ID)})
	}

	id, err := s.requests.Create(ctx, dto.ToEntity(actor.MemberID))
	if err != nil {
		return Submission{}, s.backendFailed(ctx, log, err, 0, dto.TaskID)
	}
	sub = Submission{RequestID: id}
	log = log.WithField("request_id", id)

	err = s.uploadPhase(ctx, log, PendingUpload{
		Owner:     events.OwnerRequest,
		OwnerID:   id,
		RequestID: id,
		TaskID:    dto.TaskID,
		Files:     dto.Files,
	})
	s.publish(ctx, log, &events.RequestCreatedEvent{RequestID: id, TaskID: dto.TaskID})
	log.Info("request created")
	return sub, err
}

// Edit overwrites title and content of the caller's PENDING request and
// appends new links and files.
func (s *WorkflowService) Edit(ctx context.Context, dto request.EditDTO) (err error) {
	start := time.Now()
	defer func() { recordOperation("edit", start, err) }()
	log := s.logger(ctx, "edit").WithField("request_id", dto.RequestID)

	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	if err := dto.Validate(); err != nil {
		return err
	}
	current, err := s.cachedRequest(dto.RequestID)
	if err != nil {
		return err
	}
	if !permissions.CanEdit(actor, current.Ownership()) {
		return ErrForbidden
	}
	if err := current.EnsurePending(); err != nil {
		return stale(err)
	}
	if err := current.Attachments().CheckAdd(len(dto.Links), len(dto.Files)); err != nil {
		return err
	}

	release, err := s.guard.acquire(inflightKey("edit", "request", dto.RequestID))
	if err != nil {
		return err
	}
	defer release()

	if err := s.requests.Update(ctx, dto.RequestID, dto.Title, dto.Content, request.LinksFromDTO(dto.Links)); err != nil {
		return s.backendFailed(ctx, log, err, dto.RequestID, current.TaskID())
	}

	err = s.uploadPhase(ctx, log, PendingUpload{
		Owner:     events.OwnerRequest,
		OwnerID:   dto.RequestID,
		RequestID: dto.RequestID,
		TaskID:    current.TaskID(),
		Files:     dto.Files,
	})
	s.publish(ctx, log, &events.RequestUpdatedEvent{RequestID: dto.RequestID, TaskID: current.TaskID()})
	log.Info("request updated")
	return err
}

// Delete removes a PENDING request together with its attachments.
func (s *WorkflowService) Delete(ctx context.Context, requestID int64) (err error) {
	start := time.Now()
	defer func() { recordOperation("delete", start, err) }()
	log := s.logger(ctx, "delete").WithField("request_id", requestID)

	if _, err := actorFrom(ctx); err != nil {
		return err
	}
	current, err := s.cachedRequest(requestID)
	if err != nil {
		return err
	}
	if err := current.EnsurePending(); err != nil {
		return stale(err)
	}

	release, err := s.guard.acquire(inflightKey("delete", "request", requestID))
	if err != nil {
		return err
	}
	defer release()

	if err := s.requests.Delete(ctx, requestID); err != nil {
		return s.backendFailed(ctx, log, err, requestID, current.TaskID())
	}
	s.publish(ctx, log, &events.RequestDeletedEvent{RequestID: requestID, TaskID: current.TaskID()})
	log.Info("request deleted")
	return nil
}

// Approve records an approval with the caller's comment and evidence.
func (s *WorkflowService) Approve(ctx context.Context, dto response.DecideDTO) (Submission, error) {
	return s.decide(ctx, response.DecisionApproved, dto)
}

// Reject records a rejection. The comment is the rejection reason.
func (s *WorkflowService) Reject(ctx context.Context, dto response.DecideDTO) (Submission, error) {
	return s.decide(ctx, response.DecisionRejected, dto)
}

func (s *WorkflowService) decide(ctx context.Context, decision response.Decision, dto response.DecideDTO) (sub Submission, err error) {
	operation := "approve"
	if decision == response.DecisionRejected {
		operation = "reject"
	}
	start := time.Now()
	defer func() { recordOperation(operation, start, err) }()
	log := s.logger(ctx, operation).WithField("request_id", dto.RequestID)

	actor, err := actorFrom(ctx)
	if err != nil {
		return Submission{}, err
	}
	if err := dto.Validate(); err != nil {
		return Submission{}, err
	}
	current, err := s.cachedRequest(dto.RequestID)
	if err != nil {
		return Submission{}, err
	}
	if !permissions.CanDecide(actor, current.Ownership()) {
		log.WithFields(logrus.Fields{
			"member_id":  actor.MemberID,
			"company_id": actor.CompanyID,
		}).Info("decision denied by gate")
		return Submission{}, ErrForbidden
	}
	if err := current.EnsurePending(); err != nil {
		return Submission{}, stale(err)
	}

	// approve and reject share one key so they cannot race each other.
	release, err := s.guard.acquire(inflightKey("decide", "request", dto.RequestID))
	if err != nil {
		return Submission{}, err
	}
	defer release()

	projectID := dto.ProjectID
	if projectID == 0 {
		projectID = current.ProjectID()
	}
	responseID, err := s.responses.Decide(ctx, decision, dto.RequestID, projectID, dto.Comment, response.LinksFromDTO(dto.Links))
	if err != nil {
		return Submission{}, s.backendFailed(ctx, log, err, dto.RequestID, current.TaskID())
	}
	sub = Submission{RequestID: dto.RequestID, ResponseID: responseID}
	log = log.WithField("response_id", responseID)

	err = s.uploadPhase(ctx, log, PendingUpload{
		Owner:     events.OwnerResponse,
		OwnerID:   responseID,
		RequestID: dto.RequestID,
		TaskID:    current.TaskID(),
		Files:     dto.Files,
	})
	s.publish(ctx, log, &events.RequestDecidedEvent{
		RequestID:  dto.RequestID,
		TaskID:     current.TaskID(),
		ResponseID: responseID,
		Decision:   decision,
	})
	log.Info("request decided")
	return sub, err
}

// EditResponse overwrites the comment of the caller's own response and
// appends new links and files.
func (s *WorkflowService) EditResponse(ctx context.Context, dto response.EditDTO) (err error) {
	start := time.Now()
	defer func() { recordOperation("edit_response", start, err) }()
	log := s.logger(ctx, "edit_response").WithField("response_id", dto.ResponseID)

	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	if err := dto.Validate(); err != nil {
		return err
	}
	current, err := s.cachedResponse(dto.ResponseID)
	if err != nil {
		return err
	}
	if !permissions.CanEdit(actor, current.Ownership()) {
		return ErrForbidden
	}
	if err := current.Attachments().CheckAdd(len(dto.Links), len(dto.Files)); err != nil {
		return err
	}

	release, err := s.guard.acquire(inflightKey("edit", "response", dto.ResponseID))
	if err != nil {
		return err
	}
	defer release()

	taskID := s.taskOf(current.RequestID())
	if err := s.responses.Update(ctx, dto.ResponseID, dto.Comment, response.LinksFromDTO(dto.Links)); err != nil {
		return s.backendFailed(ctx, log, err, current.RequestID(), taskID)
	}

	err = s.uploadPhase(ctx, log, PendingUpload{
		Owner:     events.OwnerResponse,
		OwnerID:   dto.ResponseID,
		RequestID: current.RequestID(),
		TaskID:    taskID,
		Files:     dto.Files,
	})
	s.publish(ctx, log, &events.ResponseUpdatedEvent{
		ResponseID: dto.ResponseID,
		RequestID:  current.RequestID(),
		TaskID:     taskID,
	})
	log.Info("response updated")
	return err
}

// DeleteResponse removes the caller's own response. The request keeps its
// decided status.
func (s *WorkflowService) DeleteResponse(ctx context.Context, responseID int64) (err error) {
	start := time.Now()
	defer func() { recordOperation("delete_response", start, err) }()
	log := s.logger(ctx, "delete_response").WithField("response_id", responseID)

	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	current, err := s.cachedResponse(responseID)
	if err != nil {
		return err
	}
	if !permissions.CanEdit(actor, current.Ownership()) {
		return ErrForbidden
	}

	release, err := s.guard.acquire(inflightKey("delete", "response", responseID))
	if err != nil {
		return err
	}
	defer release()

	taskID := s.taskOf(current.RequestID())
	if err := s.responses.Delete(ctx, responseID); err != nil {
		return s.backendFailed(ctx, log, err, current.RequestID(), taskID)
	}
	s.publish(ctx, log, &events.ResponseDeletedEvent{
		ResponseID: responseID,
		RequestID:  current.RequestID(),
		TaskID:     taskID,
	})
	log.Info("response deleted")
	return nil
}

func (s *WorkflowService) DeleteRequestLink(ctx context.Context, requestID, linkID int64) error {
	return s.deleteRequestAttachment(ctx, requestID, attachment.KindLink, linkID)
}

func (s *WorkflowService) DeleteRequestFile(ctx context.Context, requestID, fileID int64) error {
	return s.deleteRequestAttachment(ctx, requestID, attachment.KindFile, fileID)
}

func (s *WorkflowService) DeleteResponseLink(ctx context.Context, responseID, linkID int64) error {
	return s.deleteResponseAttachment(ctx, responseID, attachment.KindLink, linkID)
}

func (s *WorkflowService) DeleteResponseFile(ctx context.Context, responseID, fileID int64) error {
	return s.deleteResponseAttachment(ctx, responseID, attachment.KindFile, fileID)
}

func missingItem(kind attachment.Kind, itemID int64) error {
	return ErrStale.WithTemplateData(map[string]string{"Kind": string(kind), "ID": fmt.Sprint(itemID)})
}

func (s *WorkflowService) deleteRequestAttachment(ctx context.Context, requestID int64, kind attachment.Kind, itemID int64) (err error) {
	start := time.Now()
	defer func() { recordOperation("delete_request_"+string(kind), start, err) }()
	log := s.logger(ctx, "delete_request_"+string(kind)).WithFields(logrus.Fields{
		"request_id": requestID,
		"item_id":    itemID,
	})

	if _, err := actorFrom(ctx); err != nil {
		return err
	}
	current, err := s.cachedRequest(requestID)
	if err != nil {
		return err
	}
	if _, ok := current.Attachments().Without(kind, itemID); !ok {
		s.publish(ctx, log, &events.StaleStateEvent{RequestID: requestID, TaskID: current.TaskID()})
		return missingItem(kind, itemID)
	}

	release, err := s.guard.acquire(fmt.Sprintf("delete:request:%d:%s:%d", requestID, kind, itemID))
	if err != nil {
		return err
	}
	defer release()

	if kind == attachment.KindFile {
		err = s.requests.DeleteFile(ctx, requestID, itemID)
	} else {
		err = s.requests.DeleteLink(ctx, requestID, itemID)
	}
	if err != nil {
		return s.backendFailed(ctx, log, err, requestID, current.TaskID())
	}
	s.publish(ctx, log, &events.AttachmentDeletedEvent{
		Owner:     events.OwnerRequest,
		OwnerID:   requestID,
		RequestID: requestID,
		TaskID:    current.TaskID(),
		Kind:      kind,
		ItemID:    itemID,
	})
	return nil
}

func (s *WorkflowService) deleteResponseAttachment(ctx context.Context, responseID int64, kind attachment.Kind, itemID int64) (err error) {
	start := time.Now()
	defer func() { recordOperation("delete_response_"+string(kind), start, err) }()
	log := s.logger(ctx, "delete_response_"+string(kind)).WithFields(logrus.Fields{
		"response_id": responseID,
		"item_id":     itemID,
	})

	if _, err := actorFrom(ctx); err != nil {
		return err
	}
	current, err := s.cachedResponse(responseID)
	if err != nil {
		return err
	}
	taskID := s.taskOf(current.RequestID())
	if _, ok := current.Attachments().Without(kind, itemID); !ok {
		s.publish(ctx, log, &events.StaleStateEvent{RequestID: current.RequestID(), TaskID: taskID})
		return missingItem(kind, itemID)
	}

	release, err := s.guard.acquire(fmt.Sprintf("delete:response:%d:%s:%d", responseID, kind, itemID))
	if err != nil {
		return err
	}
	defer release()

	if kind == attachment.KindFile {
		err = s.responses.DeleteFile(ctx, responseID, itemID)
	} else {
		err = s.responses.DeleteLink(ctx, responseID, itemID)
	}
	if err != nil {
		return s.backendFailed(ctx, log, err, current.RequestID(), taskID)
	}
	s.publish(ctx, log, &events.AttachmentDeletedEvent{
		Owner:     events.OwnerResponse,
		OwnerID:   responseID,
		RequestID: current.RequestID(),
		TaskID:    taskID,
		Kind:      kind,
		ItemID:    itemID,
	})
	return nil
}

// RetryUpload re-sends only the files of a partially failed write. The owner
// must be cached: a request has to be PENDING and authored by the caller, a
// response authored by the caller, and the files must fit under the caps
// together with what the owner already holds.
func (s *WorkflowService) RetryUpload(ctx context.Context, pending PendingUpload) (err error) {
	start := time.Now()
	defer func() { recordOperation("retry_upload", start, err) }()
	log := s.logger(ctx, "retry_upload").WithFields(logrus.Fields{
		"owner":    pending.Owner,
		"owner_id": pending.OwnerID,
	})

	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	if pending.OwnerID == 0 || len(pending.Files) == 0 {
		return serrors.ValidationErrors{
			"Files": serrors.NewFieldRequiredError("Files", "Requests.Fields.Files"),
		}
	}
	var (
		owner permissions.Resource
		set   attachment.Set
	)
	switch pending.Owner {
	case events.OwnerResponse:
		current, err := s.cachedResponse(pending.OwnerID)
		if err != nil {
			return err
		}
		owner, set = current.Ownership(), current.Attachments()
		pending.RequestID = current.RequestID()
		pending.TaskID = s.taskOf(current.RequestID())
	default:
		current, err := s.cachedRequest(pending.OwnerID)
		if err != nil {
			return err
		}
		if err := current.EnsurePending(); err != nil {
			return stale(err)
		}
		owner, set = current.Ownership(), current.Attachments()
		pending.Owner = events.OwnerRequest
		pending.RequestID = current.ID()
		pending.TaskID = current.TaskID()
	}
	if !permissions.CanEdit(actor, owner) {
		return ErrForbidden
	}
	if err := set.CheckAdd(0, len(pending.Files)); err != nil {
		return err
	}

	release, err := s.guard.acquire(inflightKey("upload", string(pending.Owner), pending.OwnerID))
	if err != nil {
		return err
	}
	defer release()

	if err := s.uploadPhase(ctx, log, pending); err != nil {
		return err
	}
	s.publish(ctx, log, &events.FilesUploadedEvent{
		Owner:     pending.Owner,
		OwnerID:   pending.OwnerID,
		RequestID: pending.RequestID,
		TaskID:    pending.TaskID,
	})
	log.Info("pending files uploaded")
	return nil
}

func (s *WorkflowService) taskOf(requestID int64) int64 {
	if r, ok := s.state.Request(requestID); ok {
		return r.TaskID()
	}
	return 0
}
