package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/sync/singleflight"

	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/request"
	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/response"
	"github.com/iota-uz/projecthub/modules/requests/domain/events"
	"github.com/iota-uz/projecthub/pkg/composables"
	"github.com/iota-uz/projecthub/pkg/eventbus"
)

// Filter narrows a cached request list. Zero values match everything.
type Filter struct {
	Status request.Status
	Query  string
}

func (f Filter) match(r request.Request) bool {
	if f.Status != "" && r.Status() != f.Status {
		return false
	}
	q := strings.TrimSpace(f.Query)
	if q == "" {
		return true
	}
	return fuzzy.MatchNormalizedFold(q, r.Title()) || fuzzy.MatchNormalizedFold(q, r.Content())
}

// ProjectionService caches the request list per task and the response list
// of the open detail view. It only ever stores what the backend returned,
// and refetches whenever the workflow publishes a confirmed write.
type ProjectionService struct {
	requests  request.Repository
	responses response.Repository
	group     singleflight.Group
	gen       atomic.Uint64

	mu           sync.RWMutex
	closed       bool
	applied      map[string]uint64
	byTask       map[int64][]request.Request
	byID         map[int64]request.Request
	byRequest    map[int64][]response.Response
	responseByID map[int64]response.Response
	detail       int64

	unsubscribe []func()
}

func NewProjectionService(requests request.Repository, responses response.Repository, publisher eventbus.EventBus) *ProjectionService {
	s := &ProjectionService{
		requests:     requests,
		responses:    responses,
		applied:      make(map[string]uint64),
		byTask:       make(map[int64][]request.Request),
		byID:         make(map[int64]request.Request),
		byRequest:    make(map[int64][]response.Response),
		responseByID: make(map[int64]response.Response),
	}
	if publisher != nil {
		s.unsubscribe = []func(){
			publisher.Subscribe(s.onRequestCreated),
			publisher.Subscribe(s.onRequestUpdated),
			publisher.Subscribe(s.onRequestDeleted),
			publisher.Subscribe(s.onRequestDecided),
			publisher.Subscribe(s.onResponseUpdated),
			publisher.Subscribe(s.onResponseDeleted),
			publisher.Subscribe(s.onAttachmentDeleted),
			publisher.Subscribe(s.onFilesUploaded),
			publisher.Subscribe(s.onStaleState),
		}
	}
	return s
}

// sortNewestFirst orders by createdAt descending, then by id descending.
func sortNewestFirst[T interface {
	ID() int64
	CreatedAt() time.Time
}](items []T) {
	slices.SortStableFunc(items, func(a, b T) int {
		if c := b.CreatedAt().Compare(a.CreatedAt()); c != 0 {
			return c
		}
		return cmp.Compare(b.ID(), a.ID())
	})
}

// fetched is one backend read tagged with the order in which it started.
type fetched[T any] struct {
	rows []T
	gen  uint64
}

// fetch runs list under key. Concurrent callers share one backend call
// unless fresh is set, in which case a call already in flight is not joined.
func fetch[T any](s *ProjectionService, key string, fresh bool, list func() ([]T, error)) (fetched[T], error) {
	if fresh {
		s.group.Forget(key)
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		gen := s.gen.Add(1)
		rows, err := list()
		if err != nil {
			return nil, err
		}
		return fetched[T]{rows: rows, gen: gen}, nil
	})
	if err != nil {
		return fetched[T]{}, err
	}
	return v.(fetched[T]), nil
}

// supersededLocked reports whether a read that started later than gen
// already replaced the cache under key.
func (s *ProjectionService) supersededLocked(key string, gen uint64) bool {
	if gen < s.applied[key] {
		return true
	}
	s.applied[key] = gen
	return false
}

// Load fetches the requests of a task and replaces the cached list.
// Concurrent loads of the same task share one backend call.
func (s *ProjectionService) Load(ctx context.Context, taskID int64) ([]request.Request, error) {
	return s.loadTask(ctx, taskID, false)
}

func (s *ProjectionService) loadTask(ctx context.Context, taskID int64, fresh bool) ([]request.Request, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	key := fmt.Sprintf("task:%d", taskID)
	res, err := fetch(s, key, fresh, func() ([]request.Request, error) {
		rows, err := s.requests.ListByTask(ctx, taskID)
		recordRefresh("requests", err)
		if err != nil {
			return nil, classify(err)
		}
		sortNewestFirst(rows)
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	rows := res.rows

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		composables.UseLogger(ctx).WithField("task_id", taskID).Debug("dropping request list loaded after close")
		return nil, ErrClosed
	}
	if s.supersededLocked(key, res.gen) {
		return slices.Clone(s.byTask[taskID]), nil
	}
	for _, old := range s.byTask[taskID] {
		delete(s.byID, old.ID())
	}
	s.byTask[taskID] = rows
	for _, r := range rows {
		s.byID[r.ID()] = r
	}
	return slices.Clone(rows), nil
}

// Requests returns the cached list for a task, newest first.
func (s *ProjectionService) Requests(taskID int64, filter Filter) []request.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]request.Request, 0, len(s.byTask[taskID]))
	for _, r := range s.byTask[taskID] {
		if filter.match(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *ProjectionService) Request(id int64) (request.Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	return r, ok
}

// OpenDetail marks the detail view of a request as open and fetches its responses.
func (s *ProjectionService) OpenDetail(ctx context.Context, requestID int64) ([]response.Response, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.detail = requestID
	s.mu.Unlock()
	return s.RefreshResponses(ctx, requestID)
}

func (s *ProjectionService) CloseDetail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detail = 0
}

// Detail returns the request whose detail view is open.
func (s *ProjectionService) Detail() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detail, s.detail != 0
}

// RefreshResponses refetches the responses of a request.
func (s *ProjectionService) RefreshResponses(ctx context.Context, requestID int64) ([]response.Response, error) {
	return s.loadResponses(ctx, requestID, false)
}

func (s *ProjectionService) loadResponses(ctx context.Context, requestID int64, fresh bool) ([]response.Response, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	key := fmt.Sprintf("responses:%d", requestID)
	res, err := fetch(s, key, fresh, func() ([]response.Response, error) {
		rows, err := s.responses.ListByRequest(ctx, requestID)
		recordRefresh("responses", err)
		if err != nil {
			return nil, classify(err)
		}
		sortNewestFirst(rows)
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	rows := res.rows

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.supersededLocked(key, res.gen) {
		return slices.Clone(s.byRequest[requestID]), nil
	}
	s.replaceResponsesLocked(requestID, rows)
	return slices.Clone(rows), nil
}

func (s *ProjectionService) replaceResponsesLocked(requestID int64, rows []response.Response) {
	for _, old := range s.byRequest[requestID] {
		delete(s.responseByID, old.ID())
	}
	if rows == nil {
		delete(s.byRequest, requestID)
		return
	}
	s.byRequest[requestID] = rows
	for _, r := range rows {
		s.responseByID[r.ID()] = r
	}
}

func (s *ProjectionService) Responses(requestID int64) []response.Response {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.byRequest[requestID])
}

func (s *ProjectionService) Response(id int64) (response.Response, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.responseByID[id]
	return r, ok
}

// Close detaches the projection from the event bus. Results of calls that
// are still running when Close returns are discarded.
func (s *ProjectionService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	for _, fn := range unsubscribe {
		fn()
	}
}

func (s *ProjectionService) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *ProjectionService) detailOpenFor(requestID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detail != 0 && s.detail == requestID
}

// refresh refetches the task list and, when its detail view is open, the
// responses of requestID. It never joins a read that started before the
// write that triggered it.
func (s *ProjectionService) refresh(ctx context.Context, taskID, requestID int64) error {
	if s.isClosed() {
		return nil
	}
	if taskID != 0 {
		if _, err := s.loadTask(ctx, taskID, true); err != nil {
			return err
		}
	}
	if requestID != 0 && s.detailOpenFor(requestID) {
		if _, err := s.loadResponses(ctx, requestID, true); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProjectionService) onRequestCreated(ctx context.Context, e *events.RequestCreatedEvent) error {
	return s.refresh(ctx, e.TaskID, 0)
}

func (s *ProjectionService) onRequestUpdated(ctx context.Context, e *events.RequestUpdatedEvent) error {
	return s.refresh(ctx, e.TaskID, e.RequestID)
}

func (s *ProjectionService) onRequestDeleted(ctx context.Context, e *events.RequestDeletedEvent) error {
	s.mu.Lock()
	s.replaceResponsesLocked(e.RequestID, nil)
	if s.detail == e.RequestID {
		s.detail = 0
	}
	s.mu.Unlock()
	return s.refresh(ctx, e.TaskID, 0)
}

func (s *ProjectionService) onRequestDecided(ctx context.Context, e *events.RequestDecidedEvent) error {
	return s.refresh(ctx, e.TaskID, e.RequestID)
}

func (s *ProjectionService) onResponseUpdated(ctx context.Context, e *events.ResponseUpdatedEvent) error {
	if s.isClosed() {
		return nil
	}
	_, err := s.loadResponses(ctx, e.RequestID, true)
	return err
}

func (s *ProjectionService) onResponseDeleted(ctx context.Context, e *events.ResponseDeletedEvent) error {
	if s.isClosed() {
		return nil
	}
	_, err := s.loadResponses(ctx, e.RequestID, true)
	return err
}

func (s *ProjectionService) onFilesUploaded(ctx context.Context, e *events.FilesUploadedEvent) error {
	if e.Owner == events.OwnerResponse {
		if s.isClosed() {
			return nil
		}
		_, err := s.loadResponses(ctx, e.RequestID, true)
		return err
	}
	return s.refresh(ctx, e.TaskID, 0)
}

func (s *ProjectionService) onStaleState(ctx context.Context, e *events.StaleStateEvent) error {
	if e.TaskID == 0 {
		if r, ok := s.Request(e.RequestID); ok {
			e.TaskID = r.TaskID()
		}
	}
	if err := s.refresh(ctx, e.TaskID, 0); err != nil {
		return err
	}
	s.mu.RLock()
	_, cached := s.byRequest[e.RequestID]
	s.mu.RUnlock()
	if e.RequestID != 0 && cached {
		_, err := s.loadResponses(ctx, e.RequestID, true)
		return err
	}
	return nil
}

// onAttachmentDeleted drops one confirmed-deleted item from the cached owner.
// Content, comment and status are left as they are.
func (s *ProjectionService) onAttachmentDeleted(_ context.Context, e *events.AttachmentDeletedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	switch e.Owner {
	case events.OwnerRequest:
		r, ok := s.byID[e.OwnerID]
		if !ok {
			return nil
		}
		set, _ := r.Attachments().Without(e.Kind, e.ItemID)
		r = r.SetAttachments(set)
		s.byID[r.ID()] = r
		rows := s.byTask[r.TaskID()]
		for i := range rows {
			if rows[i].ID() == r.ID() {
				rows[i] = r
			}
		}
	case events.OwnerResponse:
		r, ok := s.responseByID[e.OwnerID]
		if !ok {
			return nil
		}
		set, _ := r.Attachments().Without(e.Kind, e.ItemID)
		r = r.SetAttachments(set)
		s.responseByID[r.ID()] = r
		rows := s.byRequest[r.RequestID()]
		for i := range rows {
			if rows[i].ID() == r.ID() {
				rows[i] = r
			}
		}
	}
	return nil
}
