package request

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
	"github.com/iota-uz/projecthub/pkg/constants"
	"github.com/iota-uz/projecthub/pkg/serrors"
)

type CreateDTO struct {
	Title     string               `json:"title" validate:"required,max=200"`
	Content   string               `json:"content" validate:"required"`
	ProjectID int64                `json:"projectId" validate:"required,gt=0"`
	StageID   int64                `json:"stageId" validate:"required,gt=0"`
	TaskID    int64                `json:"taskId" validate:"required,gt=0"`
	Links     []attachment.LinkDTO `json:"links" validate:"max=10,dive"`
	Files     []attachment.Upload  `json:"-" validate:"max=10,dive"`
}

func (d *CreateDTO) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Content = strings.TrimSpace(d.Content)
	for i := range d.Links {
		d.Links[i].Normalize()
	}
}

// Validate normalizes d and returns serrors.ValidationErrors on failure.
func (d *CreateDTO) Validate() error {
	d.Normalize()
	return validate(d)
}

func (d *CreateDTO) ToEntity(authorMemberID int64) Request {
	return New(d.Title, d.Content, d.ProjectID, d.StageID, d.TaskID, authorMemberID, LinksFromDTO(d.Links))
}

type EditDTO struct {
	RequestID int64                `json:"-" validate:"required,gt=0"`
	Title     string               `json:"title" validate:"required,max=200"`
	Content   string               `json:"content" validate:"required"`
	Links     []attachment.LinkDTO `json:"links" validate:"max=10,dive"`
	Files     []attachment.Upload  `json:"-" validate:"max=10,dive"`
}

func (d *EditDTO) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Content = strings.TrimSpace(d.Content)
	for i := range d.Links {
		d.Links[i].Normalize()
	}
}

func (d *EditDTO) Validate() error {
	d.Normalize()
	return validate(d)
}

func LinksFromDTO(in []attachment.LinkDTO) []attachment.Link {
	out := make([]attachment.Link, 0, len(in))
	for _, l := range in {
		out = append(out, l.ToEntity())
	}
	return out
}

func fieldLocaleKey(field string) string {
	switch field {
	case "RequestID", "Title", "Content", "ProjectID", "StageID", "TaskID", "Links", "Files", "URLAddress", "URLDescription", "Name", "Data":
		return fmt.Sprintf("Requests.Fields.%s", field)
	default:
		return ""
	}
}

func validate(v any) error {
	err := constants.Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	return serrors.ProcessValidatorErrors(verrs, fieldLocaleKey)
}
