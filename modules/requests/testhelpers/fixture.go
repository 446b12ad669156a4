package testhelpers

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/projecthub/modules/requests/infrastructure/api"
	"github.com/iota-uz/projecthub/modules/requests/permissions"
	"github.com/iota-uz/projecthub/modules/requests/services"
	"github.com/iota-uz/projecthub/pkg/apiclient"
	"github.com/iota-uz/projecthub/pkg/composables"
	"github.com/iota-uz/projecthub/pkg/credentials"
	"github.com/iota-uz/projecthub/pkg/eventbus"
)

// Fixture wires the workflow and projection services to a Backend the way
// the requests module does in production.
type Fixture struct {
	Backend    *Backend
	Client     *apiclient.Client
	Bus        eventbus.EventBus
	Workflow   *services.WorkflowService
	Projection *services.ProjectionService
	Logger     *logrus.Logger
}

func TokenFor(actor permissions.Actor) string {
	return fmt.Sprintf("token-%d", actor.MemberID)
}

// Setup starts a Backend and returns services acting as actor, plus a
// context carrying actor and a logger.
func Setup(t *testing.T, actor permissions.Actor) (*Fixture, context.Context) {
	t.Helper()
	backend := NewBackend()
	t.Cleanup(backend.Close)
	return SetupWith(t, backend, actor)
}

// SetupWith builds another client session against an existing Backend.
func SetupWith(t *testing.T, backend *Backend, actor permissions.Actor) (*Fixture, context.Context) {
	t.Helper()
	token := TokenFor(actor)
	backend.AddActor(token, actor)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	client, err := apiclient.New(backend.URL(), credentials.Static(token), apiclient.WithLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewEventPublisher(logger)
	requestRepo := api.NewRequestRepository(client)
	responseRepo := api.NewResponseRepository(client)
	projection := services.NewProjectionService(requestRepo, responseRepo, bus)
	t.Cleanup(projection.Close)
	workflow := services.NewWorkflowService(requestRepo, responseRepo, api.NewTaskRepository(client), projection, bus)

	ctx := permissions.WithActor(context.Background(), actor)
	ctx = composables.WithLogger(ctx, logrus.NewEntry(logger))

	return &Fixture{
		Backend:    backend,
		Client:     client,
		Bus:        bus,
		Workflow:   workflow,
		Projection: projection,
		Logger:     logger,
	}, ctx
}
