package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"

	"github.com/iota-uz/projecthub/pkg/serrors"
)

// FilesField is the multipart field carrying uploaded files.
const FilesField = "files"

var ErrUploadTooLarge = serrors.NewError("UPLOAD_TOO_LARGE", "upload exceeds the size limit", "Errors.UploadTooLarge")

type FilePart struct {
	Name string
	Data []byte
}

// Upload posts files as one multipart request to path.
func (c *Client) Upload(ctx context.Context, path string, files []FilePart, out any) error {
	var total int64
	for _, f := range files {
		total += int64(len(f.Data))
	}
	if c.maxUploadSize > 0 && total > c.maxUploadSize {
		return ErrUploadTooLarge.WithTemplateData(map[string]string{
			"Size":  fmt.Sprint(total),
			"Limit": fmt.Sprint(c.maxUploadSize),
		})
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(FilesField), escapeQuotes(f.Name)))
		h.Set("Content-Type", mimetype.Detect(f.Data).String())
		part, err := w.CreatePart(h)
		if err != nil {
			return errors.Wrap(err, "create multipart part")
		}
		if _, err := part.Write(f.Data); err != nil {
			return errors.Wrapf(err, "write %s", f.Name)
		}
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "close multipart writer")
	}
	return c.do(ctx, http.MethodPost, path, buf, w.FormDataContentType(), out)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
