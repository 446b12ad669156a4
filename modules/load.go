package modules

import (
	"github.com/iota-uz/projecthub/modules/requests"
	"github.com/iota-uz/projecthub/pkg/application"
)

var BuiltInModules = []application.Module{
	requests.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
