package pricing

import (
	"github.com/meditrade/pricing/internal/pricing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing",
	fx.Provide(service.New),
)
