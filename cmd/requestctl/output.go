package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/request"
	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/response"
	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
	"github.com/iota-uz/projecthub/modules/requests/presentation/notices"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

type linkView struct {
	ID          int64  `json:"id" yaml:"id"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type fileView struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

type requestView struct {
	ID              int64      `json:"id" yaml:"id"`
	TaskID          int64      `json:"taskId" yaml:"taskId"`
	Title           string     `json:"title" yaml:"title"`
	Content         string     `json:"content" yaml:"content"`
	Status          string     `json:"status" yaml:"status"`
	AuthorMemberID  int64      `json:"authorMemberId" yaml:"authorMemberId"`
	ClientCompanyID int64      `json:"clientCompanyId" yaml:"clientCompanyId"`
	CreatedAt       time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt" yaml:"updatedAt"`
	Links           []linkView `json:"links" yaml:"links"`
	Files           []fileView `json:"files" yaml:"files"`
}

type responseView struct {
	ID             int64      `json:"id" yaml:"id"`
	RequestID      int64      `json:"requestId" yaml:"requestId"`
	Decision       string     `json:"decision" yaml:"decision"`
	Comment        string     `json:"comment" yaml:"comment"`
	AuthorMemberID int64      `json:"authorMemberId" yaml:"authorMemberId"`
	CreatedAt      time.Time  `json:"createdAt" yaml:"createdAt"`
	Links          []linkView `json:"links" yaml:"links"`
	Files          []fileView `json:"files" yaml:"files"`
}

type detailView struct {
	Request   requestView    `json:"request" yaml:"request"`
	Responses []responseView `json:"responses" yaml:"responses"`
}

func attachmentViews(set attachment.Set) ([]linkView, []fileView) {
	links := make([]linkView, 0, len(set.Links()))
	for _, l := range set.Links() {
		links = append(links, linkView{ID: l.ID, URL: l.URLAddress, Description: l.URLDescription})
	}
	files := make([]fileView, 0, len(set.Files()))
	for _, f := range set.Files() {
		files = append(files, fileView{ID: f.ID, Name: f.Name, URL: f.URL})
	}
	return links, files
}

func toRequestView(r request.Request) requestView {
	links, files := attachmentViews(r.Attachments())
	return requestView{
		ID:              r.ID(),
		TaskID:          r.TaskID(),
		Title:           r.Title(),
		Content:         r.Content(),
		Status:          string(r.Status()),
		AuthorMemberID:  r.AuthorMemberID(),
		ClientCompanyID: r.ClientCompanyID(),
		CreatedAt:       r.CreatedAt(),
		UpdatedAt:       r.UpdatedAt(),
		Links:           links,
		Files:           files,
	}
}

func toResponseView(r response.Response) responseView {
	links, files := attachmentViews(r.Attachments())
	return responseView{
		ID:             r.ID(),
		RequestID:      r.RequestID(),
		Decision:       string(r.Decision()),
		Comment:        r.Comment(),
		AuthorMemberID: r.AuthorMemberID(),
		CreatedAt:      r.CreatedAt(),
		Links:          links,
		Files:          files,
	}
}

type printer struct {
	out    io.Writer
	format string
}

func (p printer) structured(v any) (bool, error) {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(p.out)
		defer enc.Close()
		return true, enc.Encode(v)
	case formatTable, "":
		return false, nil
	default:
		return true, withCode(exitUsage, fmt.Errorf("unknown output format %q (expected table|json|yaml)", p.format))
	}
}

func (p printer) requests(rows []request.Request) error {
	views := make([]requestView, 0, len(rows))
	for _, r := range rows {
		views = append(views, toRequestView(r))
	}
	if done, err := p.structured(views); done {
		return err
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tAUTHOR\tLINKS\tFILES\tCREATED")
	for _, v := range views {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
			v.ID, v.Status, v.Title, v.AuthorMemberID, len(v.Links), len(v.Files), v.CreatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

func (p printer) detail(r request.Request, responses []response.Response) error {
	view := detailView{Request: toRequestView(r), Responses: make([]responseView, 0, len(responses))}
	for _, resp := range responses {
		view.Responses = append(view.Responses, toResponseView(resp))
	}
	if done, err := p.structured(view); done {
		return err
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	rv := view.Request
	fmt.Fprintf(tw, "ID\t%d\n", rv.ID)
	fmt.Fprintf(tw, "STATUS\t%s\n", rv.Status)
	fmt.Fprintf(tw, "TITLE\t%s\n", rv.Title)
	fmt.Fprintf(tw, "CONTENT\t%s\n", strings.ReplaceAll(rv.Content, "\n", " "))
	fmt.Fprintf(tw, "AUTHOR\t%d\n", rv.AuthorMemberID)
	fmt.Fprintf(tw, "CREATED\t%s\n", rv.CreatedAt.Format(time.DateTime))
	writeAttachments(tw, "", rv.Links, rv.Files)
	for _, resp := range view.Responses {
		fmt.Fprintf(tw, "\nRESPONSE\t%d\n", resp.ID)
		fmt.Fprintf(tw, "DECISION\t%s\n", resp.Decision)
		fmt.Fprintf(tw, "COMMENT\t%s\n", resp.Comment)
		fmt.Fprintf(tw, "AUTHOR\t%d\n", resp.AuthorMemberID)
		writeAttachments(tw, "  ", resp.Links, resp.Files)
	}
	return tw.Flush()
}

func writeAttachments(w io.Writer, indent string, links []linkView, files []fileView) {
	for _, l := range links {
		fmt.Fprintf(w, "%sLINK %d\t%s %s\n", indent, l.ID, l.URL, l.Description)
	}
	for _, f := range files {
		fmt.Fprintf(w, "%sFILE %d\t%s %s\n", indent, f.ID, f.Name, f.URL)
	}
}

func (p printer) notice(n notices.Notice) error {
	if done, err := p.structured(n); done {
		return err
	}
	if n.Code != "" {
		fmt.Fprintf(p.out, "[%s] %s\n", n.Code, n.Message)
	} else {
		fmt.Fprintln(p.out, n.Message)
	}
	for _, field := range slices.Sorted(maps.Keys(n.Fields)) {
		fmt.Fprintf(p.out, "  %s: %s\n", field, n.Fields[field])
	}
	return nil
}

// resultView is printed after a successful write.
type resultView struct {
	notices.Notice `yaml:",inline"`
	RequestID      int64 `json:"requestId,omitempty" yaml:"requestId,omitempty"`
	ResponseID     int64 `json:"responseId,omitempty" yaml:"responseId,omitempty"`
}

func (p printer) result(r resultView) error {
	if done, err := p.structured(r); done {
		return err
	}
	fmt.Fprintln(p.out, r.Message)
	if r.RequestID != 0 {
		fmt.Fprintf(p.out, "request\t%d\n", r.RequestID)
	}
	if r.ResponseID != 0 {
		fmt.Fprintf(p.out, "response\t%d\n", r.ResponseID)
	}
	return nil
}
