package response

import (
	"strings"
	"time"

	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/request"
	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
	"github.com/iota-uz/projecthub/modules/requests/permissions"
)

// Decision is the outcome a response records. It is implied by the call
// that created the response.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

func (d Decision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Status is the request status the decision moves to.
func (d Decision) Status() request.Status {
	if d == DecisionRejected {
		return request.StatusRejected
	}
	return request.StatusApproved
}

type Response struct {
	id             int64
	requestID      int64
	comment        string
	authorMemberID int64
	decision       Decision
	createdAt      time.Time
	updatedAt      time.Time
	attachments    attachment.Set
}

func New(requestID, authorMemberID int64, decision Decision, comment string, links []attachment.Link) Response {
	return Response{
		requestID:      requestID,
		authorMemberID: authorMemberID,
		decision:       decision,
		comment:        strings.TrimSpace(comment),
		attachments:    attachment.NewSet(links, nil),
	}
}

type HydrateParams struct {
	ID             int64
	RequestID      int64
	Comment        string
	AuthorMemberID int64
	Decision       Decision
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Links          []attachment.Link
	Files          []attachment.File
}

func Hydrate(p HydrateParams) Response {
	return Response{
		id:             p.ID,
		requestID:      p.RequestID,
		comment:        p.Comment,
		authorMemberID: p.AuthorMemberID,
		decision:       p.Decision,
		createdAt:      p.CreatedAt,
		updatedAt:      p.UpdatedAt,
		attachments:    attachment.NewSet(p.Links, p.Files),
	}
}

func (r Response) ID() int64                   { return r.id }
func (r Response) RequestID() int64            { return r.requestID }
func (r Response) Comment() string             { return r.comment }
func (r Response) AuthorMemberID() int64       { return r.authorMemberID }
func (r Response) Decision() Decision          { return r.decision }
func (r Response) CreatedAt() time.Time        { return r.createdAt }
func (r Response) UpdatedAt() time.Time        { return r.updatedAt }
func (r Response) Attachments() attachment.Set { return r.attachments }
func (r Response) IsZero() bool                { return r.id == 0 && r.requestID == 0 }

func (r Response) Ownership() permissions.Resource {
	return permissions.Resource{AuthorMemberID: r.authorMemberID}
}

// Edit overwrites the comment and appends newLinks.
func (r Response) Edit(comment string, newLinks []attachment.Link, at time.Time) (Response, error) {
	set, err := r.attachments.AppendLinks(newLinks...)
	if err != nil {
		return r, err
	}
	r.comment = strings.TrimSpace(comment)
	r.attachments = set
	r.updatedAt = at
	return r, nil
}

func (r Response) SetAttachments(set attachment.Set) Response {
	r.attachments = set
	return r
}

func (r Response) SetID(id int64) Response {
	r.id = id
	return r
}

func (r Response) SetTimestamps(createdAt, updatedAt time.Time) Response {
	r.createdAt = createdAt
	r.updatedAt = updatedAt
	return r
}
