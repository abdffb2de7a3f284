package bill

import (
	"github.com/smallbiznis/jewelbill/internal/bill/render"
	"github.com/smallbiznis/jewelbill/internal/bill/repository"
	"github.com/smallbiznis/jewelbill/internal/bill/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bill.service",
	fx.Provide(repository.Provide),
	fx.Provide(render.NewRenderer),
	fx.Provide(service.New),
)
