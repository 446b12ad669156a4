package testhelpers

import (
	"cmp"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/propagation"

	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/request"
	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/response"
	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
	"github.com/iota-uz/projecthub/modules/requests/domain/entities/task"
	"github.com/iota-uz/projecthub/modules/requests/infrastructure/api"
	"github.com/iota-uz/projecthub/modules/requests/permissions"
	"github.com/iota-uz/projecthub/pkg/apiclient"
	"github.com/iota-uz/projecthub/pkg/constants"
	"github.com/iota-uz/projecthub/pkg/httpapi"
)

// Call is one request received by the Backend.
type Call struct {
	Method      string
	Path        string
	RequestID   string
	TraceParent string
}

// Faults inject failures into the Backend.
type Faults struct {
	// FailUploads makes the next n file uploads answer 500.
	FailUploads int
	// FailWrites makes every scalar write answer 503.
	FailWrites bool
	// ForceConflict makes approve and reject answer 409.
	ForceConflict bool
	// ForceForbidden makes approve and reject answer 403.
	ForceForbidden bool
	// HoldDecisions, when set, parks approve and reject calls until it is closed.
	HoldDecisions chan struct{}
	// HoldList, when set, parks the next request list call after it has read
	// the current state, until it is closed.
	HoldList chan struct{}
	// OmitResponseID makes approve and reject succeed without a responseId.
	OmitResponseID bool
}

type taskRecord struct {
	task            task.Task
	clientCompanyID int64
}

// Backend is an in-memory implementation of the projecthub REST contract.
// It enforces the same rules as the real backend: status transitions, the
// decision gate, author-only edits and attachment caps.
type Backend struct {
	server *httptest.Server

	mu        sync.Mutex
	seq       int64
	clock     time.Time
	tasks     map[int64]taskRecord
	actors    map[string]permissions.Actor
	requests  map[int64]request.Request
	responses map[int64]response.Response
	faults    Faults
	calls     []Call
	heldLists int
}

func NewBackend() *Backend {
	b := &Backend{
		clock:     time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		tasks:     make(map[int64]taskRecord),
		actors:    make(map[string]permissions.Actor),
		requests:  make(map[int64]request.Request),
		responses: make(map[int64]response.Response),
	}
	b.server = httptest.NewServer(b.router())
	return b
}

// URL is the api base the client should be configured with.
func (b *Backend) URL() string {
	return b.server.URL + "/api"
}

func (b *Backend) Close() {
	b.server.Close()
}

// AddTask registers a task whose project belongs to clientCompanyID.
func (b *Backend) AddTask(id, clientCompanyID int64, status task.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks[id] = taskRecord{task: task.Task{ID: id, Status: status}, clientCompanyID: clientCompanyID}
}

// AddActor maps a bearer token to the member it authenticates.
func (b *Backend) AddActor(token string, actor permissions.Actor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actors[token] = actor
}

func (b *Backend) SetFaults(f Faults) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = f
}

// HeldLists counts list calls parked by Faults.HoldList.
func (b *Backend) HeldLists() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.heldLists
}

func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

func (b *Backend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

func (b *Backend) Request(id int64) (request.Request, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.requests[id]
	return r, ok
}

func (b *Backend) Responses(requestID int64) []response.Response {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.responsesForLocked(requestID)
}

// Decide records a decision outside the client, as another approver would.
func (b *Backend) Decide(requestID, approverID int64, decision response.Decision, comment string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.requests[requestID]
	if !ok {
		return 0, fmt.Errorf("request %d not found", requestID)
	}
	return b.decideLocked(r, approverID, decision, comment, nil)
}

func (b *Backend) nextID() int64 {
	b.seq++
	return b.seq
}

func (b *Backend) tick() time.Time {
	b.clock = b.clock.Add(time.Minute)
	return b.clock
}

func (b *Backend) responsesForLocked(requestID int64) []response.Response {
	var out []response.Response
	for _, r := range b.responses {
		if r.RequestID() == requestID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, c response.Response) int { return cmp.Compare(a.ID(), c.ID()) })
	return out
}

func (b *Backend) withIDs(links []api.Link) []attachment.Link {
	out := api.ToDomainLinks(links)
	for i := range out {
		out[i].ID = b.nextID()
	}
	return out
}

func (b *Backend) decideLocked(r request.Request, approverID int64, decision response.Decision, comment string, links []api.Link) (int64, error) {
	now := b.tick()
	decided, err := r.Decide(decision.Status(), now)
	if err != nil {
		return 0, err
	}
	resp := response.New(r.ID(), approverID, decision, comment, b.withIDs(links)).
		SetID(b.nextID()).
		SetTimestamps(now, now)
	b.requests[r.ID()] = decided
	b.responses[resp.ID()] = resp
	return resp.ID(), nil
}

// traced records each call together with its correlation headers.
func (b *Backend) traced(next http.Handler) http.Handler {
	propagator := propagation.TraceContext{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		carrier := propagation.HeaderCarrier(r.Header)
		ctx := propagator.Extract(r.Context(), carrier)
		b.mu.Lock()
		b.calls = append(b.calls, Call{
			Method:      r.Method,
			Path:        r.URL.Path,
			RequestID:   r.Header.Get("X-Request-ID"),
			TraceParent: r.Header.Get("traceparent"),
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type handler func(w http.ResponseWriter, r *http.Request, actor permissions.Actor)

// authenticated resolves the bearer token and serializes access to state.
func (b *Backend) authenticated(h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		defer b.mu.Unlock()
		actor, ok := b.actors[token]
		if !ok {
			_ = httpapi.WriteError(w, http.StatusUnauthorized, "unknown token")
			return
		}
		h(w, r, actor)
	}
}

func (b *Backend) router() http.Handler {
	r := mux.NewRouter()
	r.Use(b.traced)
	a := r.PathPrefix("/api").Subrouter()

	a.HandleFunc("/tasks/{taskId:[0-9]+}", b.authenticated(b.getTask)).Methods(http.MethodGet)
	a.HandleFunc("/tasks/{taskId:[0-9]+}/requests", b.authenticated(b.listRequests)).Methods(http.MethodGet)

	a.HandleFunc("/requests", b.authenticated(b.createRequest)).Methods(http.MethodPost)
	a.HandleFunc("/requests/{requestId:[0-9]+}", b.authenticated(b.updateRequest)).Methods(http.MethodPut)
	a.HandleFunc("/requests/{requestId:[0-9]+}", b.authenticated(b.deleteRequest)).Methods(http.MethodDelete)
	a.HandleFunc("/requests/{requestId:[0-9]+}/files", b.authenticated(b.uploadRequestFiles)).Methods(http.MethodPost)
	a.HandleFunc("/requests/{requestId:[0-9]+}/{kind:links|files}/{itemId:[0-9]+}", b.authenticated(b.deleteRequestItem)).Methods(http.MethodDelete)
	a.HandleFunc("/requests/{requestId:[0-9]+}/approval", b.authenticated(b.decide(response.DecisionApproved))).Methods(http.MethodPost)
	a.HandleFunc("/requests/{requestId:[0-9]+}/rejection", b.authenticated(b.decide(response.DecisionRejected))).Methods(http.MethodPost)
	a.HandleFunc("/requests/{requestId:[0-9]+}/responses", b.authenticated(b.listResponses)).Methods(http.MethodGet)

	a.HandleFunc("/responses/{responseId:[0-9]+}", b.authenticated(b.updateResponse)).Methods(http.MethodPut)
	a.HandleFunc("/responses/{responseId:[0-9]+}", b.authenticated(b.deleteResponse)).Methods(http.MethodDelete)
	a.HandleFunc("/responses/{responseId:[0-9]+}/files", b.authenticated(b.uploadResponseFiles)).Methods(http.MethodPost)
	a.HandleFunc("/responses/{responseId:[0-9]+}/{kind:links|files}/{itemId:[0-9]+}", b.authenticated(b.deleteResponseItem)).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "route not found")
	})
	return r
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id
}

func decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func (b *Backend) getTask(w http.ResponseWriter, r *http.Request, _ permissions.Actor) {
	rec, ok := b.tasks[pathID(r, "taskId")]
	if !ok {
		_ = httpapi.WriteError(w, http.StatusNotFound, "task not found")
		return
	}
	_ = httpapi.WriteSuccess(w, http.StatusOK, api.Task{TaskID: rec.task.ID, Status: string(rec.task.Status)})
}

// listRequests answers in id order; ordering for display is the client's job.
func (b *Backend) listRequests(w http.ResponseWriter, r *http.Request, _ permissions.Actor) {
	taskID := pathID(r, "taskId")
	if _, ok := b.tasks[taskID]; !ok {
		_ = httpapi.WriteError(w, http.StatusNotFound, "task not found")
		return
	}
	out := []api.Request{}
	for _, req := range b.requests {
		if req.TaskID() == taskID {
			out = append(out, api.FromDomainRequest(req))
		}
	}
	slices.SortFunc(out, func(a, c api.Request) int { return cmp.Compare(a.RequestID, c.RequestID) })
	if hold := b.faults.HoldList; hold != nil {
		b.faults.HoldList = nil
		b.heldLists++
		b.mu.Unlock()
		<-hold
		b.mu.Lock()
	}
	_ = httpapi.WriteSuccess(w, http.StatusOK, out)
}

func (b *Backend) createRequest(w http.ResponseWriter, r *http.Request, actor permissions.Actor) {
	var body api.CreateRequestBody
	if !decode(w, r, &body) {
		return
	}
	if b.faults.FailWrites {
		_ = httpapi.WriteError(w, http.StatusServiceUnavailable, "backend unavailable")
		return
	}
	if strings.TrimSpace(body.Title) == "" || strings.TrimSpace(body.Content) == "" {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "title and content are required")
		return
	}
	if err := attachment.CheckCaps(len(body.Links), 0); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, ok := b.tasks[body.TaskID]
	if !ok {
		_ = httpapi.WriteError(w, http.StatusNotFound, "task not found")
		return
	}
	if !rec.task.AcceptsRequests() {
		_ = httpapi.WriteError(w, http.StatusConflict, "task is already approved")
		return
	}
	now := b.tick()
	req := request.New(body.Title, body.Content, body.ProjectID, body.StageID, body.TaskID, actor.MemberID, b.withIDs(body.Links)).
		SetID(b.nextID()).
		SetClientCompanyID(rec.clientCompanyID).
		SetTimestamps(now, now)
	b.requests[req.ID()] = req
	_ = httpapi.WriteSuccess(w, http.StatusCreated, api.CreatedRequest{RequestID: req.ID()})
}

func (b *Backend) pendingRequest(w http.ResponseWriter, r *http.Request) (request.Request, bool) {
	req, ok := b.requests[pathID(r, "requestId")]
	if !ok {
		_ = httpapi.WriteError(w, http.StatusNotFound, "request not found")
		return request.Request{}, false
	}
	if !req.IsPending() {
		_ = httpapi.WriteError(w, http.StatusConflict, "request is not pending")
		return request.Request{}, false
	}
	return req, true
}

func (b *Backend) updateRequest(w http.ResponseWriter, r *http.Request, actor permissions.Actor) {
	var body api.UpdateRequestBody
	if !decode(w, r, &body) {
		return
	}
	if b.faults.FailWrites {
		_ = httpapi.WriteError(w, http.StatusServiceUnavailable, "backend unavailable")
		return
	}
	req, ok := b.pendingRequest(w, r)
	if !ok {
		return
	}
	if !permissions.CanEdit(actor, req.Ownership()) {
		_ = httpapi.WriteError(w, http.StatusForbidden, "only the author may edit")
		return
	}
	edited, err := req.Edit(body.Title, body.Content, b.withIDs(body.Links), b.tick())
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	b.requests[req.ID()] = edited
	_ = httpapi.WriteSuccess(w, http.StatusOK, nil)
}

func (b *Backend) deleteRequest(w http.ResponseWriter, r *http.Request, _ permissions.Actor) {
	if b.faults.FailWrites {
		_ = httpapi.WriteError(w, http.StatusServiceUnavailable, "backend unavailable")
		return
	}
	req, ok := b.pendingRequest(w, r)
	if !ok {
		return
	}
	delete(b.requests, req.ID())
	_ = httpapi.WriteSuccess(w, http.StatusOK, nil)
}

// receiveFiles parses the multipart body into stored file records.
func (b *Backend) receiveFiles(w http.ResponseWriter, r *http.Request, existing int) ([]attachment.File, bool) {
	if b.faults.FailUploads > 0 {
		b.faults.FailUploads--
		_ = httpapi.WriteError(w, http.StatusInternalServerError, "storage unavailable")
		return nil, false
	}
	if err := r.ParseMultipartForm(constants.MaxRequestMemory); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "invalid multipart body")
		return nil, false
	}
	headers := r.MultipartForm.File[apiclient.FilesField]
	if len(headers) == 0 {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "no files")
		return nil, false
	}
	if err := attachment.CheckCaps(0, existing+len(headers)); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	out := make([]attachment.File, 0, len(headers))
	for _, h := range headers {
		id := b.nextID()
		out = append(out, attachment.File{
			ID:   id,
			Name: h.Filename,
			URL:  fmt.Sprintf("https://cdn.projecthub.test/files/%d/%s", id, h.Filename),
		})
	}
	return out, true
}

func (b *Backend) uploadRequestFiles(w http.ResponseWriter, r *http.Request, _ permissions.Actor) {
	req, ok := b.requests[pathID(r, "requestId")]
	if !ok {
		_ = httpapi.WriteError(w, http.StatusNotFound, "request not found")
		return
	}
	files, ok := b.receiveFiles(w, r, len(req.Attachments().Files()))
	if !ok {
		return
	}
	set, err := req.Attachments().AppendFiles(files...)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	b.requests[req.ID()] = req.SetAttachments(set)
	_ = httpapi.WriteSuccess(w, http.StatusOK, nil)
}

func itemKind(r *http.Request) attachment.Kind {
	if mux.Vars(r)["kind"] == "files" {
		return attachment.KindFile
	}
	return attachment.KindLink
}

func (b *Backend) deleteRequestItem(w http.ResponseWriter, r *http.Request, _ permissions.Actor) {
	req, ok := b.requests[pathID(r, "requestId")]
	if !ok {
		_ = httpapi.WriteError(w, http.StatusNotFound, "request not found")
		return
	}
	set, ok := req.Attachments().Without(itemKind(r), pathID(r, "itemId"))
	if !ok {
		_ = httpapi.WriteError(w, http.StatusNotFound, "attachment not found")
		return
	}
	b.requests[req.ID()] = req.SetAttachments(set)
	_ = httpapi.WriteSuccess(w, http.StatusOK, nil)
}

func (b *Backend) decide(decision response.Decision) handler {
	return func(w http.ResponseWriter, r *http.Request, actor permissions.Actor) {
		var body api.DecideBody
		if !decode(w, r, &body) {
			return
		}
		if hold := b.faults.HoldDecisions; hold != nil {
			b.mu.Unlock()
			<-hold
			b.mu.Lock()
		}
		if b.faults.FailWrites {
			_ = httpapi.WriteError(w, http.StatusServiceUnavailable, "backend unavailable")
			return
		}
		req, ok := b.requests[pathID(r, "requestId")]
		if !ok {
			_ = httpapi.WriteError(w, http.StatusNotFound, "request not found")
			return
		}
		if b.faults.ForceForbidden || !permissions.CanDecide(actor, req.Ownership()) {
			_ = httpapi.WriteError(w, http.StatusForbidden, "no approval authority")
			return
		}
		if b.faults.ForceConflict || !req.IsPending() {
			_ = httpapi.WriteError(w, http.StatusConflict, "request is not pending")
			return
		}
		if err := attachment.CheckCaps(len(body.Links), 0); err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		id, err := b.decideLocked(req, actor.MemberID, decision, body.Comment, body.Links)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		if b.faults.OmitResponseID {
			id = 0
		}
		_ = httpapi.WriteSuccess(w, http.StatusCreated, api.CreatedResponse{ResponseID: id})
	}
}

func (b *Backend) listResponses(w http.ResponseWriter, r *http.Request, _ permissions.Actor) {
	requestID := pathID(r, "requestId")
	if _, ok := b.requests[requestID]; !ok {
		_ = httpapi.WriteError(w, http.StatusNotFound, "request not found")
		return
	}
	out := []api.Response{}
	for _, resp := range b.responsesForLocked(requestID) {
		out = append(out, api.FromDomainResponse(resp))
	}
	_ = httpapi.WriteSuccess(w, http.StatusOK, out)
}

func (b *Backend) ownResponse(w http.ResponseWriter, r *http.Request, actor permissions.Actor) (response.Response, bool) {
	resp, ok := b.responses[pathID(r, "responseId")]
	if !ok {
		_ = httpapi.WriteError(w, http.StatusNotFound, "response not found")
		return response.Response{}, false
	}
	if !permissions.CanEdit(actor, resp.Ownership()) {
		_ = httpapi.WriteError(w, http.StatusForbidden, "only the author may change a response")
		return response.Response{}, false
	}
	return resp, true
}

func (b *Backend) updateResponse(w http.ResponseWriter, r *http.Request, actor permissions.Actor) {
	var body api.UpdateResponseBody
	if !decode(w, r, &body) {
		return
	}
	resp, ok := b.ownResponse(w, r, actor)
	if !ok {
		return
	}
	edited, err := resp.Edit(body.Comment, b.withIDs(body.Links), b.tick())
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	b.responses[resp.ID()] = edited
	_ = httpapi.WriteSuccess(w, http.StatusOK, nil)
}

// deleteResponse leaves the request status untouched.
func (b *Backend) deleteResponse(w http.ResponseWriter, r *http.Request, actor permissions.Actor) {
	resp, ok := b.ownResponse(w, r, actor)
	if !ok {
		return
	}
	delete(b.responses, resp.ID())
	_ = httpapi.WriteSuccess(w, http.StatusOK, nil)
}

func (b *Backend) uploadResponseFiles(w http.ResponseWriter, r *http.Request, _ permissions.Actor) {
	resp, ok := b.responses[pathID(r, "responseId")]
	if !ok {
		_ = httpapi.WriteError(w, http.StatusNotFound, "response not found")
		return
	}
	files, ok := b.receiveFiles(w, r, len(resp.Attachments().Files()))
	if !ok {
		return
	}
	set, err := resp.Attachments().AppendFiles(files...)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	b.responses[resp.ID()] = resp.SetAttachments(set)
	_ = httpapi.WriteSuccess(w, http.StatusOK, nil)
}

func (b *Backend) deleteResponseItem(w http.ResponseWriter, r *http.Request, _ permissions.Actor) {
	resp, ok := b.responses[pathID(r, "responseId")]
	if !ok {
		_ = httpapi.WriteError(w, http.StatusNotFound, "response not found")
		return
	}
	set, ok := resp.Attachments().Without(itemKind(r), pathID(r, "itemId"))
	if !ok {
		_ = httpapi.WriteError(w, http.StatusNotFound, "attachment not found")
		return
	}
	b.responses[resp.ID()] = resp.SetAttachments(set)
	_ = httpapi.WriteSuccess(w, http.StatusOK, nil)
}
