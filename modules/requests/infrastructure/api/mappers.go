package api

import (
	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/request"
	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/response"
	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
	"github.com/iota-uz/projecthub/modules/requests/domain/entities/task"
	"github.com/iota-uz/projecthub/pkg/apiclient"
)

func ToDomainLinks(in []Link) []attachment.Link {
	out := make([]attachment.Link, 0, len(in))
	for _, l := range in {
		out = append(out, attachment.Link{ID: l.ID, URLAddress: l.URLAddress, URLDescription: l.URLDescription})
	}
	return out
}

func ToDomainFiles(in []File) []attachment.File {
	out := make([]attachment.File, 0, len(in))
	for _, f := range in {
		out = append(out, attachment.File{ID: f.ID, Name: f.Name, URL: f.URL})
	}
	return out
}

func FromDomainLinks(in []attachment.Link) []Link {
	out := make([]Link, 0, len(in))
	for _, l := range in {
		out = append(out, Link{ID: l.ID, URLAddress: l.URLAddress, URLDescription: l.URLDescription})
	}
	return out
}

func FromDomainFiles(in []attachment.File) []File {
	out := make([]File, 0, len(in))
	for _, f := range in {
		out = append(out, File{ID: f.ID, Name: f.Name, URL: f.URL})
	}
	return out
}

func ToDomainRequest(m Request) request.Request {
	return request.Hydrate(request.HydrateParams{
		ID:              m.RequestID,
		Title:           m.Title,
		Content:         m.Content,
		Status:          request.Status(m.Status),
		TaskID:          m.TaskID,
		StageID:         m.StageID,
		ProjectID:       m.ProjectID,
		AuthorMemberID:  m.AuthorMemberID,
		ClientCompanyID: m.ClientCompanyID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		Links:           ToDomainLinks(m.Links),
		Files:           ToDomainFiles(m.Files),
	})
}

func FromDomainRequest(r request.Request) Request {
	return Request{
		RequestID:       r.ID(),
		Title:           r.Title(),
		Content:         r.Content(),
		Status:          string(r.Status()),
		TaskID:          r.TaskID(),
		StageID:         r.StageID(),
		ProjectID:       r.ProjectID(),
		AuthorMemberID:  r.AuthorMemberID(),
		ClientCompanyID: r.ClientCompanyID(),
		CreatedAt:       r.CreatedAt(),
		UpdatedAt:       r.UpdatedAt(),
		Links:           FromDomainLinks(r.Attachments().Links()),
		Files:           FromDomainFiles(r.Attachments().Files()),
	}
}

func ToDomainResponse(m Response) response.Response {
	return response.Hydrate(response.HydrateParams{
		ID:             m.ResponseID,
		RequestID:      m.RequestID,
		Comment:        m.Comment,
		AuthorMemberID: m.AuthorMemberID,
		Decision:       response.Decision(m.Decision),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		Links:          ToDomainLinks(m.Links),
		Files:          ToDomainFiles(m.Files),
	})
}

func FromDomainResponse(r response.Response) Response {
	return Response{
		ResponseID:     r.ID(),
		RequestID:      r.RequestID(),
		Comment:        r.Comment(),
		AuthorMemberID: r.AuthorMemberID(),
		Decision:       string(r.Decision()),
		CreatedAt:      r.CreatedAt(),
		UpdatedAt:      r.UpdatedAt(),
		Links:          FromDomainLinks(r.Attachments().Links()),
		Files:          FromDomainFiles(r.Attachments().Files()),
	}
}

func ToDomainTask(m Task) task.Task {
	return task.Task{ID: m.TaskID, Status: task.Status(m.Status)}
}

func toFileParts(in []attachment.Upload) []apiclient.FilePart {
	out := make([]apiclient.FilePart, 0, len(in))
	for _, f := range in {
		out = append(out, apiclient.FilePart{Name: f.Name, Data: f.Data})
	}
	return out
}
