package requests

import (
	"errors"

	"github.com/iota-uz/projecthub/modules/requests/infrastructure/api"
	"github.com/iota-uz/projecthub/modules/requests/presentation/locales"
	"github.com/iota-uz/projecthub/modules/requests/services"
	"github.com/iota-uz/projecthub/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	if err := app.RegisterLocaleFiles(&locales.FS); err != nil {
		return err
	}
	client := app.Client()
	if client == nil {
		return errors.New("requests module needs an api client")
	}

	requestRepo := api.NewRequestRepository(client)
	responseRepo := api.NewResponseRepository(client)
	projection := services.NewProjectionService(requestRepo, responseRepo, app.EventPublisher())

	app.RegisterServices(
		projection,
		services.NewWorkflowService(
			requestRepo,
			responseRepo,
			api.NewTaskRepository(client),
			projection,
			app.EventPublisher(),
		),
	)
	return nil
}

func (m *Module) Name() string {
	return "requests"
}
