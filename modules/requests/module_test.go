package requests_test

import (
	"testing"

	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/projecthub/modules"
	"github.com/iota-uz/projecthub/modules/requests"
	"github.com/iota-uz/projecthub/modules/requests/services"
	"github.com/iota-uz/projecthub/pkg/apiclient"
	"github.com/iota-uz/projecthub/pkg/application"
	"github.com/iota-uz/projecthub/pkg/credentials"
)

func TestModule_Register(t *testing.T) {
	client, err := apiclient.New("http://localhost:8080/api", credentials.Static("token"))
	require.NoError(t, err)
	app := application.New(&application.ApplicationOptions{Client: client})

	require.NoError(t, modules.Load(app, requests.NewModule()))

	workflow, ok := app.Service(services.WorkflowService{}).(*services.WorkflowService)
	require.True(t, ok)
	assert.NotNil(t, workflow)
	projection, ok := app.Service(services.ProjectionService{}).(*services.ProjectionService)
	require.True(t, ok)
	t.Cleanup(projection.Close)
	assert.Positive(t, app.EventPublisher().SubscribersCount(), "projection listens for workflow events")

	l := i18n.NewLocalizer(app.Bundle(), "en")
	msg, err := l.Localize(&i18n.LocalizeConfig{MessageID: "Requests.Notices.Approved"})
	require.NoError(t, err)
	assert.Equal(t, "Request approved.", msg)
}

func TestModule_RegisterNeedsClient(t *testing.T) {
	app := application.New(&application.ApplicationOptions{})
	require.Error(t, requests.NewModule().Register(app))
	assert.Equal(t, "requests", requests.NewModule().Name())
}
