package scanfeed

import (
	"context"

	"github.com/drukhealth/ctgadmin/services/logging"
	"go.uber.org/fx"
)

func ProvideHub(lc fx.Lifecycle, logger *logging.Service) *Hub {
	hub := NewHub(logger.Named("scanfeed"))
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			hub.Close()
			return nil
		},
	})
	return hub
}

var Module = fx.Options(
	fx.Provide(ProvideHub),
)
