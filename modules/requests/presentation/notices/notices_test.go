package notices

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
	"github.com/iota-uz/projecthub/modules/requests/domain/events"
	"github.com/iota-uz/projecthub/modules/requests/presentation/locales"
	"github.com/iota-uz/projecthub/modules/requests/services"
	"github.com/iota-uz/projecthub/pkg/apiclient"
	"github.com/iota-uz/projecthub/pkg/intl"
	"github.com/iota-uz/projecthub/pkg/serrors"
)

func localizer(t *testing.T, lang string) *i18n.Localizer {
	t.Helper()
	bundle := intl.LoadBundle()
	require.NoError(t, intl.RegisterLocaleFiles(bundle, locales.FS, "."))
	return i18n.NewLocalizer(bundle, lang)
}

func TestFromError_Validation(t *testing.T) {
	err := attachment.CheckCaps(attachment.MaxLinks+1, 0)
	n := FromError(localizer(t, "en"), err)

	assert.Equal(t, SeverityInline, n.Severity)
	assert.Equal(t, ValidationCode, n.Code)
	assert.Equal(t, "Links allows at most 10.", n.Fields["Links"])
}

func TestFromError_PartialUploadOffersRetry(t *testing.T) {
	err := &services.PartialFailureError{
		Upload: services.PendingUpload{Owner: events.OwnerRequest, OwnerID: 5, Files: []attachment.Upload{{Name: "a"}}},
		Err:    errors.New("boom"),
	}
	n := FromError(localizer(t, "ko"), fmt.Errorf("create: %w", err))

	assert.Equal(t, SeverityWarning, n.Severity)
	require.NotNil(t, n.Retry)
	assert.Equal(t, int64(5), n.Retry.OwnerID)
	assert.Contains(t, n.Message, "첨부 파일")
}

func TestFromError_ForbiddenBlocksAndStaleRefetches(t *testing.T) {
	l := localizer(t, "en")

	forbidden := FromError(l, fmt.Errorf("%w: %w", services.ErrForbidden, &apiclient.Error{StatusCode: 403}))
	assert.Equal(t, SeverityBlocking, forbidden.Severity)
	assert.Equal(t, "You are not allowed to do this.", forbidden.Message)
	assert.False(t, forbidden.Refetch)

	stale := FromError(l, fmt.Errorf("%w: %w", services.ErrStale, errors.New("409")))
	assert.Equal(t, SeverityDismissible, stale.Severity)
	assert.True(t, stale.Refetch)
	assert.Equal(t, "REQUESTS_STALE", stale.Code)
}

func TestFromError_UnknownHidesDetail(t *testing.T) {
	n := FromError(nil, errors.New("dial tcp 10.0.0.1: connection refused"))
	assert.Equal(t, "something went wrong", n.Message)

	n = FromError(nil, serrors.NewError("X", "plain", "Missing"))
	assert.Equal(t, "plain", n.Message)
}

func TestSuccess(t *testing.T) {
	n := Success(localizer(t, "ko"), "Requests.Notices.Approved", "approved")
	assert.Equal(t, SeveritySuccess, n.Severity)
	assert.Equal(t, "요청을 승인했습니다.", n.Message)
}

func TestLog_IncludesBackendDetail(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	err := fmt.Errorf("%w: %w", services.ErrStale, &apiclient.Error{
		Method: "POST", Path: "/requests/1/approval", StatusCode: 409, Message: "not pending", RequestID: "rid",
	})
	Log(logrus.NewEntry(logger), "approve", err)

	out := buf.String()
	assert.Contains(t, out, `"backend_message":"not pending"`)
	assert.Contains(t, out, `"request-id":"rid"`)
	assert.Contains(t, out, `"code":"REQUESTS_STALE"`)
}
