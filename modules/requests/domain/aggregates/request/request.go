package request

import (
	"strings"
	"time"

	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
	"github.com/iota-uz/projecthub/modules/requests/permissions"
	"github.com/iota-uz/projecthub/pkg/serrors"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

func (s Status) IsDecided() bool {
	return s == StatusApproved || s == StatusRejected
}

var (
	ErrNotPending        = serrors.NewError("REQUEST_NOT_PENDING", "request is no longer pending", "Requests.Errors.NotPending")
	ErrInvalidTransition = serrors.NewError("REQUEST_INVALID_TRANSITION", "request status transition not allowed", "Requests.Errors.InvalidTransition")
)

type Request struct {
	id              int64
	title           string
	content         string
	status          Status
	taskID          int64
	stageID         int64
	projectID       int64
	authorMemberID  int64
	clientCompanyID int64
	createdAt       time.Time
	updatedAt       time.Time
	attachments     attachment.Set
}

// New builds an unsaved PENDING request.
func New(title, content string, projectID, stageID, taskID, authorMemberID int64, links []attachment.Link) Request {
	return Request{
		title:          strings.TrimSpace(title),
		content:        strings.TrimSpace(content),
		status:         StatusPending,
		projectID:      projectID,
		stageID:        stageID,
		taskID:         taskID,
		authorMemberID: authorMemberID,
		attachments:    attachment.NewSet(links, nil),
	}
}

type HydrateParams struct {
	ID              int64
	Title           string
	Content         string
	Status          Status
	TaskID          int64
	StageID         int64
	ProjectID       int64
	AuthorMemberID  int64
	ClientCompanyID int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Links           []attachment.Link
	Files           []attachment.File
}

func Hydrate(p HydrateParams) Request {
	return Request{
		id:              p.ID,
		title:           p.Title,
		content:         p.Content,
		status:          p.Status,
		taskID:          p.TaskID,
		stageID:         p.StageID,
		projectID:       p.ProjectID,
		authorMemberID:  p.AuthorMemberID,
		clientCompanyID: p.ClientCompanyID,
		createdAt:       p.CreatedAt,
		updatedAt:       p.UpdatedAt,
		attachments:     attachment.NewSet(p.Links, p.Files),
	}
}

func (r Request) ID() int64                   { return r.id }
func (r Request) Title() string               { return r.title }
func (r Request) Content() string             { return r.content }
func (r Request) Status() Status              { return r.status }
func (r Request) TaskID() int64               { return r.taskID }
func (r Request) StageID() int64              { return r.stageID }
func (r Request) ProjectID() int64            { return r.projectID }
func (r Request) AuthorMemberID() int64       { return r.authorMemberID }
func (r Request) ClientCompanyID() int64      { return r.clientCompanyID }
func (r Request) CreatedAt() time.Time        { return r.createdAt }
func (r Request) UpdatedAt() time.Time        { return r.updatedAt }
func (r Request) Attachments() attachment.Set { return r.attachments }
func (r Request) IsPending() bool             { return r.status == StatusPending }
func (r Request) IsZero() bool                { return r.id == 0 && r.title == "" }

// Ownership exposes the attributes the authorization gate reads.
func (r Request) Ownership() permissions.Resource {
	return permissions.Resource{
		AuthorMemberID:  r.authorMemberID,
		ClientCompanyID: r.clientCompanyID,
	}
}

// EnsurePending returns ErrNotPending for decided requests.
func (r Request) EnsurePending() error {
	if r.status != StatusPending {
		return ErrNotPending.WithTemplateData(map[string]string{"Status": string(r.status)})
	}
	return nil
}

// Decide moves a PENDING request to the given terminal status.
func (r Request) Decide(to Status, at time.Time) (Request, error) {
	if !to.IsDecided() {
		return r, ErrInvalidTransition.WithTemplateData(map[string]string{"To": string(to)})
	}
	if err := r.EnsurePending(); err != nil {
		return r, err
	}
	r.status = to
	r.updatedAt = at
	return r, nil
}

// Edit overwrites title and content and appends newLinks. Existing links are
// kept; removing one is a separate operation.
func (r Request) Edit(title, content string, newLinks []attachment.Link, at time.Time) (Request, error) {
	if err := r.EnsurePending(); err != nil {
		return r, err
	}
	set, err := r.attachments.AppendLinks(newLinks...)
	if err != nil {
		return r, err
	}
	r.title = strings.TrimSpace(title)
	r.content = strings.TrimSpace(content)
	r.attachments = set
	r.updatedAt = at
	return r, nil
}

func (r Request) SetAttachments(set attachment.Set) Request {
	r.attachments = set
	return r
}

func (r Request) SetID(id int64) Request {
	r.id = id
	return r
}

func (r Request) SetClientCompanyID(id int64) Request {
	r.clientCompanyID = id
	return r
}

func (r Request) SetTimestamps(createdAt, updatedAt time.Time) Request {
	r.createdAt = createdAt
	r.updatedAt = updatedAt
	return r
}
