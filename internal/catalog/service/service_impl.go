package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/meditrade/pricing/internal/catalog/domain"
	"github.com/meditrade/pricing/pkg/db/option"
	"github.com/meditrade/pricing/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	log *zap.Logger

	dealerRepo  repository.Repository[catalogdomain.Dealer]
	variantRepo repository.Repository[catalogdomain.Variant]
	priceRepo   repository.Repository[catalogdomain.DealerPrice]
}

func New(p Params) catalogdomain.Service {
	return &Service{
		log: p.Log.Named("catalog.service"),

		dealerRepo:  repository.ProvideStore[catalogdomain.Dealer](p.DB),
		variantRepo: repository.ProvideStore[catalogdomain.Variant](p.DB),
		priceRepo:   repository.ProvideStore[catalogdomain.DealerPrice](p.DB),
	}
}

func (s *Service) FindDealer(ctx context.Context, dealerID snowflake.ID) (*catalogdomain.Dealer, error) {
	if dealerID == 0 {
		return nil, catalogdomain.ErrInvalidReference
	}
	dealer, err := s.dealerRepo.FindOne(ctx, &catalogdomain.Dealer{ID: dealerID})
	if err != nil {
		return nil, err
	}
	if dealer == nil {
		return nil, catalogdomain.ErrDealerNotFound
	}
	if !dealer.Active {
		return nil, catalogdomain.ErrDealerInactive
	}
	return dealer, nil
}

func (s *Service) ResolveLineContext(ctx context.Context, dealerID, variantID snowflake.ID) (*catalogdomain.LineContext, error) {
	if dealerID == 0 || variantID == 0 {
		return nil, catalogdomain.ErrInvalidReference
	}

	variant, err := s.variantRepo.FindOne(ctx,
		&catalogdomain.Variant{ID: variantID},
		option.WithPreload("Categories"),
	)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		return nil, catalogdomain.ErrVariantNotFound
	}
	if !variant.Active {
		return nil, catalogdomain.ErrVariantInactive
	}

	price, err := s.findUnitPrice(ctx, dealerID, variantID)
	if err != nil {
		return nil, err
	}

	categoryIDs := make([]snowflake.ID, 0, len(variant.Categories))
	for _, c := range variant.Categories {
		categoryIDs = append(categoryIDs, c.CategoryID)
	}

	return &catalogdomain.LineContext{
		VariantID:   variant.ID,
		ProductID:   variant.ProductID,
		CategoryIDs: categoryIDs,
		UnitPrice:   price.UnitPrice,
		Currency:    price.Currency,
	}, nil
}

// findUnitPrice prefers the dealer-specific price-list row and falls back to
// the base list price.
func (s *Service) findUnitPrice(ctx context.Context, dealerID, variantID snowflake.ID) (*catalogdomain.DealerPrice, error) {
	row, err := s.priceRepo.FindOne(ctx, &catalogdomain.DealerPrice{
		VariantID: variantID,
		DealerID:  &dealerID,
	})
	if err != nil {
		return nil, err
	}
	if row != nil {
		return row, nil
	}

	row, err = s.priceRepo.FindOne(ctx,
		&catalogdomain.DealerPrice{VariantID: variantID},
		option.WithCondition("dealer_id IS NULL"),
	)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, catalogdomain.ErrPriceNotFound
	}
	return row, nil
}
