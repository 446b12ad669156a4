package application

import (
	"embed"
	"fmt"
	"reflect"

	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/projecthub/pkg/apiclient"
	"github.com/iota-uz/projecthub/pkg/eventbus"
	"github.com/iota-uz/projecthub/pkg/intl"
)

type ApplicationOptions struct {
	Client   *apiclient.Client
	EventBus eventbus.EventBus
	Logger   *logrus.Logger
	Bundle   *i18n.Bundle
}

func New(opts *ApplicationOptions) Application {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	bus := opts.EventBus
	if bus == nil {
		bus = eventbus.NewEventPublisher(logger)
	}
	bundle := opts.Bundle
	if bundle == nil {
		bundle = intl.LoadBundle()
	}
	return &application{
		client:         opts.Client,
		eventPublisher: bus,
		logger:         logger,
		bundle:         bundle,
		services:       make(map[reflect.Type]interface{}),
	}
}

// application with a dynamically extendable service registry
type application struct {
	client         *apiclient.Client
	eventPublisher eventbus.EventBus
	logger         *logrus.Logger
	bundle         *i18n.Bundle
	services       map[reflect.Type]interface{}
}

func (app *application) Client() *apiclient.Client {
	return app.client
}

func (app *application) EventPublisher() eventbus.EventBus {
	return app.eventPublisher
}

func (app *application) Logger() *logrus.Logger {
	return app.logger
}

func (app *application) Bundle() *i18n.Bundle {
	return app.bundle
}

func (app *application) RegisterLocaleFiles(fs ...*embed.FS) error {
	for _, localeFs := range fs {
		if err := intl.RegisterLocaleFiles(app.bundle, localeFs, "."); err != nil {
			return fmt.Errorf("register locale files: %w", err)
		}
	}
	return nil
}

// RegisterServices registers a new service in the application by its type
func (app *application) RegisterServices(services ...interface{}) {
	for _, service := range services {
		serviceType := reflect.TypeOf(service).Elem()
		app.services[serviceType] = service
	}
}

// Service retrieves a service by its type
func (app *application) Service(service interface{}) interface{} {
	serviceType := reflect.TypeOf(service)
	svc, exists := app.services[serviceType]
	if !exists {
		panic(fmt.Sprintf("service %s not found", serviceType.Name()))
	}
	return svc
}

func (app *application) Services() map[reflect.Type]interface{} {
	return app.services
}
