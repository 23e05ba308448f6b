package discount

import (
	"github.com/meditrade/pricing/internal/discount/repository"
	"github.com/meditrade/pricing/internal/discount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("discount.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
