package attachment

import (
	"slices"
	"strings"

	"github.com/iota-uz/projecthub/pkg/serrors"
)

const (
	MaxLinks = 10
	MaxFiles = 10
)

type Link struct {
	ID             int64
	URLAddress     string
	URLDescription string
}

type File struct {
	ID   int64
	Name string
	URL  string
}

// Upload is a file held in memory until it is sent to its owner.
type Upload struct {
	Name string `validate:"required,max=255"`
	Data []byte `validate:"required"`
	// Source is the local path Data was read from, when there is one.
	Source string
}

// Kind names the two attachment flavours.
type Kind string

const (
	KindLink Kind = "link"
	KindFile Kind = "file"
)

// Set is the bounded collection of links and files owned by a request or a
// response. The zero value is an empty set.
type Set struct {
	links []Link
	files []File
}

func NewSet(links []Link, files []File) Set {
	return Set{
		links: slices.Clone(links),
		files: slices.Clone(files),
	}
}

func (s Set) Links() []Link { return slices.Clone(s.links) }
func (s Set) Files() []File { return slices.Clone(s.files) }
func (s Set) Len() int      { return len(s.links) + len(s.files) }

// CheckAdd reports a validation error when adding the given number of links
// and files would exceed the caps.
func (s Set) CheckAdd(newLinks, newFiles int) error {
	return CheckCaps(len(s.links)+newLinks, len(s.files)+newFiles)
}

// CheckCaps validates absolute counts against MaxLinks and MaxFiles.
func CheckCaps(links, files int) error {
	errs := serrors.ValidationErrors{}
	if links > MaxLinks {
		errs["Links"] = serrors.NewFieldMaxError("Links", "Requests.Fields.Links", MaxLinks)
	}
	if files > MaxFiles {
		errs["Files"] = serrors.NewFieldMaxError("Files", "Requests.Fields.Files", MaxFiles)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// AppendLinks returns a copy of s with links added, failing on cap overflow.
func (s Set) AppendLinks(links ...Link) (Set, error) {
	if err := s.CheckAdd(len(links), 0); err != nil {
		return s, err
	}
	return Set{links: append(slices.Clone(s.links), links...), files: slices.Clone(s.files)}, nil
}

// AppendFiles returns a copy of s with files added, failing on cap overflow.
func (s Set) AppendFiles(files ...File) (Set, error) {
	if err := s.CheckAdd(0, len(files)); err != nil {
		return s, err
	}
	return Set{links: slices.Clone(s.links), files: append(slices.Clone(s.files), files...)}, nil
}

func (s Set) HasLink(id int64) bool {
	return slices.ContainsFunc(s.links, func(l Link) bool { return l.ID == id })
}

func (s Set) HasFile(id int64) bool {
	return slices.ContainsFunc(s.files, func(f File) bool { return f.ID == id })
}

// WithoutLink returns a copy of s without the link id and whether it was present.
func (s Set) WithoutLink(id int64) (Set, bool) {
	if !s.HasLink(id) {
		return s, false
	}
	return Set{
		links: slices.DeleteFunc(slices.Clone(s.links), func(l Link) bool { return l.ID == id }),
		files: slices.Clone(s.files),
	}, true
}

// WithoutFile returns a copy of s without the file id and whether it was present.
func (s Set) WithoutFile(id int64) (Set, bool) {
	if !s.HasFile(id) {
		return s, false
	}
	return Set{
		links: slices.Clone(s.links),
		files: slices.DeleteFunc(slices.Clone(s.files), func(f File) bool { return f.ID == id }),
	}, true
}

// Without removes one item of the given kind.
func (s Set) Without(kind Kind, id int64) (Set, bool) {
	if kind == KindFile {
		return s.WithoutFile(id)
	}
	return s.WithoutLink(id)
}

// LinkDTO is a link submitted by the user; the backend assigns its id.
type LinkDTO struct {
	URLAddress     string `json:"urlAddress" validate:"required,url"`
	URLDescription string `json:"urlDescription" validate:"max=255"`
}

func (d *LinkDTO) Normalize() {
	d.URLAddress = strings.TrimSpace(d.URLAddress)
	d.URLDescription = strings.TrimSpace(d.URLDescription)
}

func (d LinkDTO) ToEntity() Link {
	return Link{URLAddress: d.URLAddress, URLDescription: d.URLDescription}
}
