package response

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
	"github.com/iota-uz/projecthub/pkg/constants"
	"github.com/iota-uz/projecthub/pkg/serrors"
)

// DecideDTO carries an approval or a rejection. ProjectID is sent with
// rejections only.
type DecideDTO struct {
	RequestID int64                `json:"-" validate:"required,gt=0"`
	ProjectID int64                `json:"projectId,omitempty"`
	Comment   string               `json:"comment" validate:"max=2000"`
	Links     []attachment.LinkDTO `json:"links" validate:"max=10,dive"`
	Files     []attachment.Upload  `json:"-" validate:"max=10,dive"`
}

func (d *DecideDTO) Normalize() {
	d.Comment = strings.TrimSpace(d.Comment)
	for i := range d.Links {
		d.Links[i].Normalize()
	}
}

func (d *DecideDTO) Validate() error {
	d.Normalize()
	return validate(d)
}

type EditDTO struct {
	ResponseID int64                `json:"-" validate:"required,gt=0"`
	Comment    string               `json:"comment" validate:"max=2000"`
	Links      []attachment.LinkDTO `json:"links" validate:"max=10,dive"`
	Files      []attachment.Upload  `json:"-" validate:"max=10,dive"`
}

func (d *EditDTO) Normalize() {
	d.Comment = strings.TrimSpace(d.Comment)
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

func validate(v any) error {
	err := constants.Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	return serrors.ProcessValidatorErrors(verrs, func(field string) string {
		switch field {
		case "RequestID", "ResponseID", "Comment", "Links", "Files", "URLAddress", "URLDescription", "Name", "Data":
			return fmt.Sprintf("Requests.Fields.%s", field)
		default:
			return ""
		}
	})
}
