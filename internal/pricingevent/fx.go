package pricingevent

import (
	"context"

	eventdomain "github.com/meditrade/pricing/internal/pricingevent/domain"
	"github.com/meditrade/pricing/internal/pricingevent/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("pricingevent.service",
	fx.Provide(service.New),
	fx.Provide(func(s *service.Service) eventdomain.Recorder { return s }),
	fx.Provide(func(s *service.Service) eventdomain.Repository { return s }),
	fx.Provide(NewLogNotifier),
)

// LogNotifier is the default delivery adapter: it logs the fact and reports
// success. Real delivery lives in the notification subsystem.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) eventdomain.Notifier {
	return &LogNotifier{log: log.Named("pricingevent.notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, event eventdomain.PricingEvent) error {
	n.log.Info("pricing event published",
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.ID.String()),
	)
	return nil
}
