package metalrate

import (
	"github.com/smallbiznis/jewelbill/internal/metalrate/repository"
	"github.com/smallbiznis/jewelbill/internal/metalrate/service"
	"github.com/smallbiznis/jewelbill/internal/metalrate/source"
	"go.uber.org/fx"
)

var Module = fx.Module("metalrate.service",
	fx.Provide(repository.Provide),
	fx.Provide(source.New),
	fx.Provide(service.NewCacheFromConfig),
	fx.Provide(service.New),
)
