package main

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/projecthub/modules"
	"github.com/iota-uz/projecthub/modules/requests/permissions"
	"github.com/iota-uz/projecthub/modules/requests/services"
	"github.com/iota-uz/projecthub/pkg/apiclient"
	"github.com/iota-uz/projecthub/pkg/application"
	"github.com/iota-uz/projecthub/pkg/composables"
	"github.com/iota-uz/projecthub/pkg/configuration"
	"github.com/iota-uz/projecthub/pkg/credentials"
	"github.com/iota-uz/projecthub/pkg/intl"
	"github.com/iota-uz/projecthub/pkg/logging"
)

// session is everything one invocation needs: configuration, the wired
// requests module and a context carrying actor, logger and localizer.
type session struct {
	conf       *configuration.Configuration
	app        application.Application
	workflow   *services.WorkflowService
	projection *services.ProjectionService
	localizer  *i18n.Localizer
	ctx        context.Context

	shutdownTracing func()
}

func openSession(ctx context.Context, envFiles ...string) (*session, error) {
	conf, err := configuration.Load(envFiles...)
	if err != nil {
		return nil, withCode(exitUsage, errors.Wrap(err, "load configuration"))
	}

	s := &session{conf: conf, shutdownTracing: func() {}}
	if conf.OpenTelemetry.Enabled {
		s.shutdownTracing = logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
	}

	tokens, err := credentials.New(conf.API.AccessToken, conf.API.TokenFile)
	if err != nil {
		s.close()
		return nil, withCode(exitUsage, err)
	}
	client, err := apiclient.New(conf.API.URL, tokens,
		apiclient.WithTimeout(conf.API.Timeout),
		apiclient.WithRequestIDHeader(conf.RequestIDHeader),
		apiclient.WithMaxUploadSize(conf.MaxUploadSize),
		apiclient.WithLogger(conf.Logger()),
	)
	if err != nil {
		s.close()
		return nil, withCode(exitUsage, err)
	}

	app := application.New(&application.ApplicationOptions{
		Client: client,
		Logger: conf.Logger(),
		Bundle: intl.LoadBundle(),
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		s.close()
		return nil, errors.Wrap(err, "load modules")
	}
	s.app = app
	s.workflow = app.Service(services.WorkflowService{}).(*services.WorkflowService)
	s.projection = app.Service(services.ProjectionService{}).(*services.ProjectionService)

	tag := intl.MatchLanguage(conf.Locale)
	s.localizer = i18n.NewLocalizer(app.Bundle(), tag.String())

	ctx = composables.WithLogger(ctx, logrus.NewEntry(conf.Logger()))
	ctx = intl.WithLocale(ctx, tag)
	ctx = intl.WithLocalizer(ctx, s.localizer)
	actor := permissions.Actor{
		MemberID:  conf.Actor.MemberID,
		Role:      permissions.Role(conf.Actor.Role),
		CompanyID: conf.Actor.CompanyID,
	}
	if !actor.IsZero() {
		ctx = permissions.WithActor(ctx, actor)
	}
	s.ctx = ctx
	return s, nil
}

// close flushes traces and metrics and releases the log file.
func (s *session) close() {
	if s.projection != nil {
		s.projection.Close()
	}
	s.shutdownTracing()
	if url := s.conf.Prometheus.PushgatewayURL; url != "" {
		err := push.New(url, s.conf.Prometheus.Job).
			Gatherer(prometheus.DefaultGatherer).
			Push()
		if err != nil {
			s.conf.Logger().WithError(err).Warn("push metrics")
		}
	}
	s.conf.Unload()
}

func (s *session) logger(operation string) *logrus.Entry {
	return composables.UseLogger(s.ctx).WithField("command", operation)
}

// load fetches the request list of taskID so that writes can check their
// preconditions against it.
func (s *session) load(taskID int64) error {
	if taskID <= 0 {
		return withCode(exitUsage, fmt.Errorf("--task is required"))
	}
	_, err := s.projection.Load(s.ctx, taskID)
	return err
}
