package migration

import (
	"strings"

	catalogdomain "github.com/meditrade/pricing/internal/catalog/domain"
	"github.com/meditrade/pricing/internal/config"
	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	eventdomain "github.com/meditrade/pricing/internal/pricingevent/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// mysql and sqlite deployments rely on gorm's schema derivation.
		return conn.AutoMigrate(
			&catalogdomain.Dealer{},
			&catalogdomain.Variant{},
			&catalogdomain.VariantCategory{},
			&catalogdomain.DealerPrice{},
			&discountdomain.Discount{},
			&discountdomain.DiscountVariant{},
			&discountdomain.DiscountCategory{},
			&discountdomain.DiscountDealer{},
			&eventdomain.PricingEvent{},
		)
	}),
)
