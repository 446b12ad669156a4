package services_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/request"
	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/response"
	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
	"github.com/iota-uz/projecthub/modules/requests/domain/entities/task"
	"github.com/iota-uz/projecthub/modules/requests/domain/events"
	"github.com/iota-uz/projecthub/modules/requests/permissions"
	"github.com/iota-uz/projecthub/modules/requests/services"
	"github.com/iota-uz/projecthub/modules/requests/testhelpers"
	"github.com/iota-uz/projecthub/pkg/serrors"
)

const (
	taskID          int64 = 1
	approvedTaskID  int64 = 2
	clientCompanyID int64 = 3
)

var (
	author   = permissions.Actor{MemberID: 10, Role: permissions.RoleUser, CompanyID: 7}
	approver = permissions.Actor{MemberID: 20, Role: permissions.RoleUser, CompanyID: clientCompanyID}
	outsider = permissions.Actor{MemberID: 30, Role: permissions.RoleUser, CompanyID: 99}
	admin    = permissions.Actor{MemberID: 40, Role: permissions.RoleAdmin, CompanyID: 1}
)

type session struct {
	*testhelpers.Fixture
	ctx context.Context
}

// sessions returns one client session per actor sharing a single backend.
func sessions(t *testing.T, actors ...permissions.Actor) (*testhelpers.Backend, []session) {
	t.Helper()
	backend := testhelpers.NewBackend()
	t.Cleanup(backend.Close)
	backend.AddTask(taskID, clientCompanyID, task.StatusInProgress)
	backend.AddTask(approvedTaskID, clientCompanyID, task.StatusApproved)

	out := make([]session, 0, len(actors))
	for _, a := range actors {
		f, ctx := testhelpers.SetupWith(t, backend, a)
		_, err := f.Projection.Load(ctx, taskID)
		require.NoError(t, err)
		out = append(out, session{Fixture: f, ctx: ctx})
	}
	return backend, out
}

func createDTO(title string, links int, files int) request.CreateDTO {
	dto := request.CreateDTO{
		Title:     title,
		Content:   "please review",
		ProjectID: 100,
		StageID:   200,
		TaskID:    taskID,
	}
	for i := 0; i < links; i++ {
		dto.Links = append(dto.Links, attachment.LinkDTO{URLAddress: fmt.Sprintf("http://x.com/%d", i), URLDescription: "spec"})
	}
	for i := 0; i < files; i++ {
		dto.Files = append(dto.Files, attachment.Upload{Name: fmt.Sprintf("f%d.txt", i), Data: []byte("evidence")})
	}
	return dto
}

func mustCreate(t *testing.T, s session, dto request.CreateDTO) int64 {
	t.Helper()
	sub, err := s.Workflow.Create(s.ctx, dto)
	require.NoError(t, err)
	require.NotZero(t, sub.RequestID)
	return sub.RequestID
}

func TestCreate_ScenarioA_RoundTrip(t *testing.T) {
	_, ss := sessions(t, author)
	s := ss[0]

	dto := request.CreateDTO{
		Title:     "API 변경",
		Content:   "...",
		ProjectID: 100,
		StageID:   200,
		TaskID:    taskID,
		Links:     []attachment.LinkDTO{{URLAddress: "http://x.com", URLDescription: "spec"}},
	}
	sub, err := s.Workflow.Create(s.ctx, dto)
	require.NoError(t, err)
	require.NotZero(t, sub.RequestID)
	assert.Zero(t, sub.ResponseID)

	listed := s.Projection.Requests(taskID, services.Filter{})
	require.Len(t, listed, 1)
	got := listed[0]
	assert.Equal(t, sub.RequestID, got.ID())
	assert.Equal(t, request.StatusPending, got.Status())
	assert.Equal(t, "API 변경", got.Title())
	assert.Equal(t, "...", got.Content())
	assert.Equal(t, author.MemberID, got.AuthorMemberID())
	assert.Equal(t, clientCompanyID, got.ClientCompanyID())
	require.Len(t, got.Attachments().Links(), 1)
	assert.Equal(t, "http://x.com", got.Attachments().Links()[0].URLAddress)
	assert.Empty(t, s.Projection.Responses(sub.RequestID), "pending requests have no response")
}

func TestCreate_RoundTripWithNLinks(t *testing.T) {
	_, ss := sessions(t, author)
	s := ss[0]

	for n := 0; n <= attachment.MaxLinks; n += 5 {
		id := mustCreate(t, s, createDTO(fmt.Sprintf("n=%d", n), n, 0))
		r, ok := s.Projection.Request(id)
		require.True(t, ok)
		assert.Len(t, r.Attachments().Links(), n)
		assert.Equal(t, fmt.Sprintf("n=%d", n), r.Title())
	}
}

func TestCreate_KeepsFileNamesVerbatim(t *testing.T) {
	backend, ss := sessions(t, author)
	s := ss[0]
	dto := createDTO("names", 0, 0)
	dto.Files = []attachment.Upload{
		{Name: `보고서 "최종".txt`, Data: []byte("report")},
		{Name: `a\b.txt`, Data: []byte("slash")},
	}
	id := mustCreate(t, s, dto)

	stored, ok := backend.Request(id)
	require.True(t, ok)
	names := make([]string, 0, 2)
	for _, f := range stored.Attachments().Files() {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{`보고서 "최종".txt`, `a\b.txt`}, names)
}

func TestCreate_RejectsOverCapWithoutNetworkCall(t *testing.T) {
	backend, ss := sessions(t, author)
	s := ss[0]
	backend.ResetCalls()

	_, err := s.Workflow.Create(s.ctx, createDTO("too many links", attachment.MaxLinks+1, 0))
	var verrs serrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "Links")

	_, err = s.Workflow.Create(s.ctx, createDTO("too many files", 0, attachment.MaxFiles+1))
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "Files")

	_, err = s.Workflow.Create(s.ctx, request.CreateDTO{TaskID: taskID, ProjectID: 1, StageID: 1})
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "Title")
	assert.Contains(t, verrs, "Content")

	assert.Zero(t, backend.CallCount())
}

func TestCreate_TaskAlreadyApproved(t *testing.T) {
	backend, ss := sessions(t, author)
	s := ss[0]
	backend.ResetCalls()

	dto := createDTO("late", 0, 0)
	dto.TaskID = approvedTaskID
	_, err := s.Workflow.Create(s.ctx, dto)
	require.ErrorIs(t, err, services.ErrTaskApproved)

	for _, c := range backend.Calls() {
		assert.NotEqual(t, http.MethodPost, c.Method, "no write may be issued")
	}
}

func TestCreate_TransportFailureCreatesNothing(t *testing.T) {
	backend, ss := sessions(t, author)
	s := ss[0]
	backend.SetFaults(testhelpers.Faults{FailWrites: true})

	sub, err := s.Workflow.Create(s.ctx, createDTO("down", 1, 1))
	require.ErrorIs(t, err, services.ErrTransport)
	require.NotErrorIs(t, err, services.ErrPartialUpload)
	assert.Zero(t, sub.RequestID)
	assert.Empty(t, s.Projection.Requests(taskID, services.Filter{}))
}

func TestCreate_ScenarioD_PartialFailureAndRetry(t *testing.T) {
	backend, ss := sessions(t, author)
	s := ss[0]
	backend.SetFaults(testhelpers.Faults{FailUploads: 1})

	sub, err := s.Workflow.Create(s.ctx, createDTO("with files", 2, 2))
	require.Error(t, err)
	require.ErrorIs(t, err, services.ErrPartialUpload)
	require.NotZero(t, sub.RequestID, "the request exists despite the failed upload")

	var partial *services.PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, events.OwnerRequest, partial.Upload.Owner)
	assert.Equal(t, sub.RequestID, partial.Upload.OwnerID)
	assert.Len(t, partial.Upload.Files, 2)

	stored, ok := backend.Request(sub.RequestID)
	require.True(t, ok)
	assert.Equal(t, request.StatusPending, stored.Status())
	assert.Len(t, stored.Attachments().Links(), 2)
	assert.Empty(t, stored.Attachments().Files())

	cached, ok := s.Projection.Request(sub.RequestID)
	require.True(t, ok, "projection refreshed after phase one")
	assert.Empty(t, cached.Attachments().Files())

	backend.ResetCalls()
	require.NoError(t, s.Workflow.RetryUpload(s.ctx, partial.Upload))
	calls := backend.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, fmt.Sprintf("/api/requests/%d/files", sub.RequestID), calls[0].Path, "retry re-sends only the files")

	cached, _ = s.Projection.Request(sub.RequestID)
	assert.Len(t, cached.Attachments().Files(), 2)
	assert.Len(t, cached.Attachments().Links(), 2)
}

func TestRetryUpload_CountsExistingFiles(t *testing.T) {
	backend, ss := sessions(t, author)
	s := ss[0]
	id := mustCreate(t, s, createDTO("six files", 0, 6))
	backend.ResetCalls()

	err := s.Workflow.RetryUpload(s.ctx, services.PendingUpload{
		Owner:   events.OwnerRequest,
		OwnerID: id,
		Files:   createDTO("", 0, 6).Files,
	})
	var verrs serrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "Files")
	assert.Zero(t, backend.CallCount())
}

func TestRetryUpload_Preconditions(t *testing.T) {
	backend, ss := sessions(t, author, approver)
	requester, decider := ss[0], ss[1]
	id := mustCreate(t, requester, createDTO("owned", 0, 0))
	_, err := decider.Projection.Load(decider.ctx, taskID)
	require.NoError(t, err)
	files := []attachment.Upload{{Name: "late.txt", Data: []byte("late")}}
	backend.ResetCalls()

	err = requester.Workflow.RetryUpload(requester.ctx, services.PendingUpload{Owner: events.OwnerRequest, OwnerID: 9999, Files: files})
	require.ErrorIs(t, err, services.ErrNotLoaded)

	err = decider.Workflow.RetryUpload(decider.ctx, services.PendingUpload{Owner: events.OwnerRequest, OwnerID: id, Files: files})
	require.ErrorIs(t, err, services.ErrForbidden)
	assert.Zero(t, backend.CallCount())

	_, err = decider.Workflow.Approve(decider.ctx, response.DecideDTO{RequestID: id})
	require.NoError(t, err)
	_, err = requester.Projection.Load(requester.ctx, taskID)
	require.NoError(t, err)
	backend.ResetCalls()

	err = requester.Workflow.RetryUpload(requester.ctx, services.PendingUpload{Owner: events.OwnerRequest, OwnerID: id, Files: files})
	require.ErrorIs(t, err, services.ErrStale)
	require.ErrorIs(t, err, request.ErrNotPending)
	assert.Zero(t, backend.CallCount())
	stored, _ := backend.Request(id)
	assert.Empty(t, stored.Attachments().Files())
}

func TestApprove_ScenarioB_MatchingCompany(t *testing.T) {
	backend, ss := sessions(t, author, approver)
	requester, decider := ss[0], ss[1]
	id := mustCreate(t, requester, createDTO("API 변경", 1, 0))

	_, err := decider.Projection.Load(decider.ctx, taskID)
	require.NoError(t, err)
	_, err = decider.Projection.OpenDetail(decider.ctx, id)
	require.NoError(t, err)

	sub, err := decider.Workflow.Approve(decider.ctx, response.DecideDTO{RequestID: id, Comment: "확인했습니다"})
	require.NoError(t, err)
	require.NotZero(t, sub.ResponseID)

	stored, _ := backend.Request(id)
	assert.Equal(t, request.StatusApproved, stored.Status())

	cached, _ := decider.Projection.Request(id)
	assert.Equal(t, request.StatusApproved, cached.Status())
	responses := decider.Projection.Responses(id)
	require.Len(t, responses, 1, "open detail view is refreshed")
	assert.Equal(t, "확인했습니다", responses[0].Comment())
	assert.Equal(t, sub.ResponseID, responses[0].ID())
	assert.Equal(t, approver.MemberID, responses[0].AuthorMemberID())
	assert.Equal(t, response.DecisionApproved, responses[0].Decision())
}

func TestApprove_ScenarioC_NoAuthority(t *testing.T) {
	backend, ss := sessions(t, author, outsider)
	requester, other := ss[0], ss[1]
	id := mustCreate(t, requester, createDTO("needs approval", 0, 0))
	_, err := other.Projection.Load(other.ctx, taskID)
	require.NoError(t, err)

	cached, _ := other.Projection.Request(id)
	assert.False(t, permissions.CanDecide(outsider, cached.Ownership()))

	backend.ResetCalls()
	_, err = other.Workflow.Approve(other.ctx, response.DecideDTO{RequestID: id, Comment: "ok"})
	require.ErrorIs(t, err, services.ErrForbidden)
	_, err = other.Workflow.Reject(other.ctx, response.DecideDTO{RequestID: id, Comment: "no"})
	require.ErrorIs(t, err, services.ErrForbidden)
	assert.Zero(t, backend.CallCount(), "the gate blocks before any call")

	stored, _ := backend.Request(id)
	assert.Equal(t, request.StatusPending, stored.Status())
	assert.Empty(t, backend.Responses(id))
}

func TestApprove_BackendForbiddenIsNotRetried(t *testing.T) {
	backend, ss := sessions(t, author, admin)
	requester, boss := ss[0], ss[1]
	id := mustCreate(t, requester, createDTO("x", 0, 0))
	_, err := boss.Projection.Load(boss.ctx, taskID)
	require.NoError(t, err)

	backend.SetFaults(testhelpers.Faults{ForceForbidden: true})
	backend.ResetCalls()
	_, err = boss.Workflow.Approve(boss.ctx, response.DecideDTO{RequestID: id})
	require.ErrorIs(t, err, services.ErrForbidden)
	assert.Equal(t, 1, backend.CallCount())

	stored, _ := backend.Request(id)
	assert.Equal(t, request.StatusPending, stored.Status())
}

func TestDecide_TwiceFailsStale(t *testing.T) {
	backend, ss := sessions(t, author, admin)
	requester, boss := ss[0], ss[1]
	id := mustCreate(t, requester, createDTO("x", 0, 0))
	_, err := boss.Projection.Load(boss.ctx, taskID)
	require.NoError(t, err)

	_, err = boss.Workflow.Reject(boss.ctx, response.DecideDTO{RequestID: id, Comment: "missing data"})
	require.NoError(t, err)

	_, err = boss.Workflow.Reject(boss.ctx, response.DecideDTO{RequestID: id})
	require.ErrorIs(t, err, services.ErrStale)
	_, err = boss.Workflow.Approve(boss.ctx, response.DecideDTO{RequestID: id})
	require.ErrorIs(t, err, services.ErrStale)

	stored, _ := backend.Request(id)
	assert.Equal(t, request.StatusRejected, stored.Status())
	assert.Len(t, backend.Responses(id), 1, "exactly one response per decided request")
}

func TestDecide_ConcurrentApproverRefetches(t *testing.T) {
	backend, ss := sessions(t, author, approver)
	requester, decider := ss[0], ss[1]
	id := mustCreate(t, requester, createDTO("race", 0, 0))
	_, err := decider.Projection.Load(decider.ctx, taskID)
	require.NoError(t, err)

	_, err = backend.Decide(id, admin.MemberID, response.DecisionRejected, "rejected elsewhere")
	require.NoError(t, err)

	cached, _ := decider.Projection.Request(id)
	require.Equal(t, request.StatusPending, cached.Status(), "local cache is behind")

	_, err = decider.Workflow.Approve(decider.ctx, response.DecideDTO{RequestID: id, Comment: "ok"})
	require.ErrorIs(t, err, services.ErrStale)

	cached, _ = decider.Projection.Request(id)
	assert.Equal(t, request.StatusRejected, cached.Status(), "stale error triggers a refetch")
	assert.Len(t, backend.Responses(id), 1)
}

func TestDecide_UnidentifiedResponseRefetches(t *testing.T) {
	backend, ss := sessions(t, author, approver)
	requester, decider := ss[0], ss[1]
	id := mustCreate(t, requester, createDTO("silent", 0, 0))
	_, err := decider.Projection.Load(decider.ctx, taskID)
	require.NoError(t, err)

	backend.SetFaults(testhelpers.Faults{OmitResponseID: true})
	_, err = decider.Workflow.Approve(decider.ctx, response.DecideDTO{RequestID: id})
	require.ErrorIs(t, err, services.ErrStale)
	require.NotErrorIs(t, err, services.ErrTransport)

	cached, ok := decider.Projection.Request(id)
	require.True(t, ok)
	assert.Equal(t, request.StatusApproved, cached.Status(), "the applied decision is refetched")
}

func TestDecide_NoDoubleSubmit(t *testing.T) {
	backend, ss := sessions(t, author, approver)
	requester, decider := ss[0], ss[1]
	id := mustCreate(t, requester, createDTO("slow", 0, 0))
	_, err := decider.Projection.Load(decider.ctx, taskID)
	require.NoError(t, err)

	hold := make(chan struct{})
	backend.SetFaults(testhelpers.Faults{HoldDecisions: hold})
	backend.ResetCalls()

	done := make(chan error, 1)
	go func() {
		_, err := decider.Workflow.Approve(decider.ctx, response.DecideDTO{RequestID: id, Comment: "first"})
		done <- err
	}()
	require.Eventually(t, func() bool {
		return decider.Workflow.InFlight("decide", events.OwnerRequest, id) && backend.CallCount() > 0
	}, 5*time.Second, 5*time.Millisecond)

	_, err = decider.Workflow.Approve(decider.ctx, response.DecideDTO{RequestID: id, Comment: "second"})
	require.ErrorIs(t, err, services.ErrInFlight)
	_, err = decider.Workflow.Reject(decider.ctx, response.DecideDTO{RequestID: id, Comment: "third"})
	require.ErrorIs(t, err, services.ErrInFlight)

	close(hold)
	require.NoError(t, <-done)
	assert.False(t, decider.Workflow.InFlight("decide", events.OwnerRequest, id))
	assert.Len(t, backend.Responses(id), 1)
}

func TestApprove_UploadsFilesToResponse(t *testing.T) {
	backend, ss := sessions(t, author, approver)
	requester, decider := ss[0], ss[1]
	id := mustCreate(t, requester, createDTO("evidence", 0, 0))
	_, err := decider.Projection.Load(decider.ctx, taskID)
	require.NoError(t, err)

	backend.SetFaults(testhelpers.Faults{FailUploads: 1})
	sub, err := decider.Workflow.Approve(decider.ctx, response.DecideDTO{
		RequestID: id,
		Files:     []attachment.Upload{{Name: "proof.txt", Data: []byte("ok")}},
	})
	var partial *services.PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, events.OwnerResponse, partial.Upload.Owner)
	assert.Equal(t, sub.ResponseID, partial.Upload.OwnerID)

	stored, _ := backend.Request(id)
	assert.Equal(t, request.StatusApproved, stored.Status(), "decision stands without its files")

	require.ErrorIs(t, decider.Workflow.RetryUpload(decider.ctx, partial.Upload), services.ErrNotLoaded)
	_, err = decider.Projection.OpenDetail(decider.ctx, id)
	require.NoError(t, err)
	require.NoError(t, decider.Workflow.RetryUpload(decider.ctx, partial.Upload))
	responses := backend.Responses(id)
	require.Len(t, responses, 1)
	assert.Len(t, responses[0].Attachments().Files(), 1)
}

func TestEdit(t *testing.T) {
	_, ss := sessions(t, author, approver)
	requester, other := ss[0], ss[1]
	id := mustCreate(t, requester, createDTO("draft", 1, 0))
	_, err := other.Projection.Load(other.ctx, taskID)
	require.NoError(t, err)

	err = other.Workflow.Edit(other.ctx, request.EditDTO{RequestID: id, Title: "hijack", Content: "x"})
	require.ErrorIs(t, err, services.ErrForbidden)

	err = requester.Workflow.Edit(requester.ctx, request.EditDTO{
		RequestID: id,
		Title:     "final",
		Content:   "updated",
		Links:     []attachment.LinkDTO{{URLAddress: "http://y.com"}},
		Files:     []attachment.Upload{{Name: "a.txt", Data: []byte("a")}},
	})
	require.NoError(t, err)

	cached, _ := requester.Projection.Request(id)
	assert.Equal(t, "final", cached.Title())
	assert.Equal(t, "updated", cached.Content())
	assert.Len(t, cached.Attachments().Links(), 2, "existing links are kept")
	assert.Len(t, cached.Attachments().Files(), 1)
}

func TestEdit_CapsCountExistingAttachments(t *testing.T) {
	backend, ss := sessions(t, author)
	s := ss[0]
	id := mustCreate(t, s, createDTO("full", attachment.MaxLinks, 0))
	backend.ResetCalls()

	err := s.Workflow.Edit(s.ctx, request.EditDTO{
		RequestID: id,
		Title:     "full",
		Content:   "c",
		Links:     []attachment.LinkDTO{{URLAddress: "http://eleven.com"}},
	})
	var verrs serrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Zero(t, backend.CallCount())
}

func TestEdit_AfterDecisionIsStale(t *testing.T) {
	_, ss := sessions(t, author, admin)
	requester, boss := ss[0], ss[1]
	id := mustCreate(t, requester, createDTO("x", 0, 0))
	_, err := boss.Projection.Load(boss.ctx, taskID)
	require.NoError(t, err)
	_, err = boss.Workflow.Approve(boss.ctx, response.DecideDTO{RequestID: id})
	require.NoError(t, err)

	_, err = requester.Projection.Load(requester.ctx, taskID)
	require.NoError(t, err)
	err = requester.Workflow.Edit(requester.ctx, request.EditDTO{RequestID: id, Title: "t", Content: "c"})
	require.ErrorIs(t, err, services.ErrStale)
	require.ErrorIs(t, err, request.ErrNotPending)
	require.ErrorIs(t, requester.Workflow.Delete(requester.ctx, id), services.ErrStale)
}

func TestDelete(t *testing.T) {
	backend, ss := sessions(t, author)
	s := ss[0]
	keep := mustCreate(t, s, createDTO("keep", 0, 0))
	drop := mustCreate(t, s, createDTO("drop", 0, 0))

	require.NoError(t, s.Workflow.Delete(s.ctx, drop))

	_, ok := s.Projection.Request(drop)
	assert.False(t, ok)
	_, ok = backend.Request(drop)
	assert.False(t, ok)
	listed := s.Projection.Requests(taskID, services.Filter{})
	require.Len(t, listed, 1)
	assert.Equal(t, keep, listed[0].ID())

	require.ErrorIs(t, s.Workflow.Delete(s.ctx, drop), services.ErrNotLoaded)
}

func TestDeleteRequestAttachments(t *testing.T) {
	_, ss := sessions(t, author)
	s := ss[0]
	id := mustCreate(t, s, createDTO("attachments", 2, 1))
	cached, _ := s.Projection.Request(id)
	linkID := cached.Attachments().Links()[0].ID
	fileID := cached.Attachments().Files()[0].ID

	require.NoError(t, s.Workflow.DeleteRequestLink(s.ctx, id, linkID))
	require.NoError(t, s.Workflow.DeleteRequestFile(s.ctx, id, fileID))

	cached, _ = s.Projection.Request(id)
	assert.Len(t, cached.Attachments().Links(), 1)
	assert.False(t, cached.Attachments().HasLink(linkID))
	assert.Empty(t, cached.Attachments().Files())
	assert.Equal(t, "attachments", cached.Title())

	err := s.Workflow.DeleteRequestLink(s.ctx, id, linkID)
	require.ErrorIs(t, err, services.ErrStale)
}

func TestDeleteResponseLink_ScenarioE(t *testing.T) {
	backend, ss := sessions(t, author, approver)
	requester, decider := ss[0], ss[1]
	id := mustCreate(t, requester, createDTO("evidence", 0, 0))
	_, err := decider.Projection.Load(decider.ctx, taskID)
	require.NoError(t, err)

	sub, err := decider.Workflow.Approve(decider.ctx, response.DecideDTO{
		RequestID: id,
		Comment:   "looks good",
		Links: []attachment.LinkDTO{
			{URLAddress: "http://proof.com/1"},
			{URLAddress: "http://proof.com/2"},
		},
	})
	require.NoError(t, err)
	responses, err := decider.Projection.OpenDetail(decider.ctx, id)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	linkID := responses[0].Attachments().Links()[0].ID

	require.NoError(t, decider.Workflow.DeleteResponseLink(decider.ctx, sub.ResponseID, linkID))

	resp, ok := decider.Projection.Response(sub.ResponseID)
	require.True(t, ok)
	assert.False(t, resp.Attachments().HasLink(linkID))
	assert.Len(t, resp.Attachments().Links(), 1)
	assert.Equal(t, "looks good", resp.Comment())
	cached, _ := decider.Projection.Request(id)
	assert.Equal(t, request.StatusApproved, cached.Status())

	stored := backend.Responses(id)
	require.Len(t, stored, 1)
	assert.Len(t, stored[0].Attachments().Links(), 1)
	assert.Equal(t, "looks good", stored[0].Comment())
}

func TestEditAndDeleteResponse(t *testing.T) {
	backend, ss := sessions(t, author, approver, admin)
	requester, decider, boss := ss[0], ss[1], ss[2]
	id := mustCreate(t, requester, createDTO("x", 0, 0))
	_, err := decider.Projection.Load(decider.ctx, taskID)
	require.NoError(t, err)
	sub, err := decider.Workflow.Approve(decider.ctx, response.DecideDTO{RequestID: id, Comment: "first"})
	require.NoError(t, err)
	_, err = decider.Projection.OpenDetail(decider.ctx, id)
	require.NoError(t, err)

	err = decider.Workflow.EditResponse(decider.ctx, response.EditDTO{
		ResponseID: sub.ResponseID,
		Comment:    "second",
		Links:      []attachment.LinkDTO{{URLAddress: "http://z.com"}},
	})
	require.NoError(t, err)
	resp, _ := decider.Projection.Response(sub.ResponseID)
	assert.Equal(t, "second", resp.Comment())
	assert.Len(t, resp.Attachments().Links(), 1)

	_, err = boss.Projection.Load(boss.ctx, taskID)
	require.NoError(t, err)
	_, err = boss.Projection.OpenDetail(boss.ctx, id)
	require.NoError(t, err)
	require.ErrorIs(t, boss.Workflow.DeleteResponse(boss.ctx, sub.ResponseID), services.ErrForbidden)

	require.NoError(t, decider.Workflow.DeleteResponse(decider.ctx, sub.ResponseID))
	assert.Empty(t, decider.Projection.Responses(id))
	_, ok := decider.Projection.Response(sub.ResponseID)
	assert.False(t, ok)

	stored, _ := backend.Request(id)
	assert.Equal(t, request.StatusApproved, stored.Status(), "deleting a response does not revert the request")
}

func TestOperationsRequireActor(t *testing.T) {
	backend, ss := sessions(t, author)
	s := ss[0]
	backend.ResetCalls()

	_, err := s.Workflow.Create(context.Background(), createDTO("anon", 0, 0))
	require.ErrorIs(t, err, services.ErrForbidden)
	require.ErrorIs(t, err, permissions.ErrNoActor)
	assert.Zero(t, backend.CallCount())
}
