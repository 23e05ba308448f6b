package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/meditrade/pricing/internal/cache"
	"github.com/meditrade/pricing/internal/clock"
	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	eventdomain "github.com/meditrade/pricing/internal/pricingevent/domain"
	eventservice "github.com/meditrade/pricing/internal/pricingevent/service"
	pkgdb "github.com/meditrade/pricing/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      discountdomain.Repository
	Events    eventdomain.Recorder
	Snapshots cache.DiscountSnapshotCache
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      discountdomain.Repository
	events    eventdomain.Recorder
	snapshots cache.DiscountSnapshotCache
}

func New(p Params) discountdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("discount.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		events:    p.Events,
		snapshots: p.Snapshots,
	}
}

var oneHundred = decimal.NewFromInt(100)

func (s *Service) Create(ctx context.Context, req discountdomain.CreateRequest) (*discountdomain.Response, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	variantIDs, err := parseIDs(req.VariantIDs)
	if err != nil {
		return nil, discountdomain.ErrInvalidScopeID
	}
	categoryIDs, err := parseIDs(req.CategoryIDs)
	if err != nil {
		return nil, discountdomain.ErrInvalidScopeID
	}
	dealerIDs, err := parseIDs(req.DealerIDs)
	if err != nil {
		return nil, discountdomain.ErrInvalidScopeID
	}

	now := s.clock.Now()
	entity := &discountdomain.Discount{
		ID:                    s.genID.Generate(),
		Name:                  strings.TrimSpace(req.Name),
		Description:           strings.TrimSpace(req.Description),
		Type:                  req.Type,
		Value:                 req.Value,
		StartDate:             req.StartDate.UTC(),
		EndDate:               req.EndDate.UTC(),
		IsActive:              boolOrDefault(req.IsActive, true),
		MinimumOrderAmount:    req.MinimumOrderAmount,
		MaximumDiscountAmount: req.MaximumDiscountAmount,
		UsageLimit:            req.UsageLimit,
		UsageLimitPerCustomer: req.UsageLimitPerCustomer,
		AutoApply:             boolOrDefault(req.AutoApply, true),
		Priority:              req.Priority,
		Stackable:             req.Stackable,
		Status:                discountdomain.StatusActive,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if req.DiscountCode != nil {
		code := strings.TrimSpace(*req.DiscountCode)
		if code != "" {
			entity.DiscountCode = &code
		}
	}
	for _, id := range variantIDs {
		entity.Variants = append(entity.Variants, discountdomain.DiscountVariant{DiscountID: entity.ID, VariantID: id})
	}
	for _, id := range categoryIDs {
		entity.Categories = append(entity.Categories, discountdomain.DiscountCategory{DiscountID: entity.ID, CategoryID: id})
	}
	for _, id := range dealerIDs {
		entity.Dealers = append(entity.Dealers, discountdomain.DiscountDealer{DiscountID: entity.ID, DealerID: id})
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, entity); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return discountdomain.ErrDuplicateCode
			}
			return err
		}
		return s.events.Record(ctx, tx, eventdomain.EventDiscountCreated, eventservice.DiscountPayload(entity), nil)
	}); err != nil {
		return nil, err
	}
	s.snapshots.Invalidate()

	s.log.Info("discount created",
		zap.String("discount_id", entity.ID.String()),
		zap.String("type", string(entity.Type)),
		zap.String("scope", string(entity.Scope())),
	)

	return s.toResponse(entity), nil
}

func (s *Service) Update(ctx context.Context, id string, req discountdomain.UpdateRequest) (*discountdomain.Response, error) {
	discountID, err := parseID(id)
	if err != nil {
		return nil, discountdomain.ErrInvalidID
	}

	var updated *discountdomain.Discount
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entity, err := s.repo.FindByID(ctx, tx, discountID)
		if err != nil {
			return err
		}
		if entity == nil || entity.Status != discountdomain.StatusActive {
			return discountdomain.ErrNotFound
		}

		scheduleChanged := applyUpdate(entity, req)
		if err := validateEntity(entity); err != nil {
			return err
		}
		entity.UpdatedAt = s.clock.Now()

		if err := s.repo.Save(ctx, tx, entity); err != nil {
			return err
		}

		// Date and activation changes are the ones dealers need to hear
		// about; cosmetic edits stay quiet.
		if scheduleChanged {
			if err := s.events.Record(ctx, tx, eventdomain.EventDiscountUpdated, eventservice.DiscountPayload(entity), nil); err != nil {
				return err
			}
		}

		updated = entity
		return nil
	}); err != nil {
		return nil, err
	}
	s.snapshots.Invalidate()

	return s.toResponse(updated), nil
}

func (s *Service) Get(ctx context.Context, id string) (*discountdomain.Response, error) {
	discountID, err := parseID(id)
	if err != nil {
		return nil, discountdomain.ErrInvalidID
	}
	entity, err := s.repo.FindByID(ctx, s.db, discountID)
	if err != nil {
		return nil, err
	}
	if entity == nil || entity.Status != discountdomain.StatusActive {
		return nil, discountdomain.ErrNotFound
	}
	return s.toResponse(entity), nil
}

func (s *Service) List(ctx context.Context) ([]discountdomain.Response, error) {
	rows, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := make([]discountdomain.Response, 0, len(rows))
	for i := range rows {
		out = append(out, *s.toResponse(&rows[i]))
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	discountID, err := parseID(id)
	if err != nil {
		return discountdomain.ErrInvalidID
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entity, err := s.repo.FindByID(ctx, tx, discountID)
		if err != nil {
			return err
		}
		if entity == nil || entity.Status != discountdomain.StatusActive {
			return discountdomain.ErrNotFound
		}
		if err := s.repo.SoftDelete(ctx, tx, discountID, s.clock.Now()); err != nil {
			return err
		}
		return s.events.Record(ctx, tx, eventdomain.EventDiscountDeleted, eventservice.DiscountPayload(entity), nil)
	}); err != nil {
		return err
	}
	s.snapshots.Invalidate()
	return nil
}

func validateCreate(req discountdomain.CreateRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return discountdomain.ErrInvalidName
	}
	if req.Type != discountdomain.Percentage && req.Type != discountdomain.FixedAmount {
		return discountdomain.ErrInvalidType
	}
	if !req.Value.IsPositive() {
		return discountdomain.ErrInvalidValue
	}
	if req.Type == discountdomain.Percentage && req.Value.GreaterThan(oneHundred) {
		return discountdomain.ErrPercentageOutOfRange
	}
	if !req.StartDate.Before(req.EndDate) {
		return discountdomain.ErrInvalidDateRange
	}
	// A campaign targets variants or categories, never both.
	if len(req.VariantIDs) > 0 && len(req.CategoryIDs) > 0 {
		return discountdomain.ErrConflictingScope
	}
	if req.Priority < 0 || req.Priority > 100 {
		return discountdomain.ErrInvalidPriority
	}
	if req.MinimumOrderAmount != nil && req.MinimumOrderAmount.IsNegative() {
		return discountdomain.ErrInvalidMinimumOrder
	}
	if req.MaximumDiscountAmount != nil && !req.MaximumDiscountAmount.IsPositive() {
		return discountdomain.ErrInvalidMaximumDiscount
	}
	if req.UsageLimit != nil && *req.UsageLimit <= 0 {
		return discountdomain.ErrInvalidUsageLimit
	}
	if req.UsageLimitPerCustomer != nil && *req.UsageLimitPerCustomer <= 0 {
		return discountdomain.ErrInvalidUsageLimit
	}
	return nil
}

func validateEntity(d *discountdomain.Discount) error {
	if strings.TrimSpace(d.Name) == "" {
		return discountdomain.ErrInvalidName
	}
	if !d.Value.IsPositive() {
		return discountdomain.ErrInvalidValue
	}
	if d.Type == discountdomain.Percentage && d.Value.GreaterThan(oneHundred) {
		return discountdomain.ErrPercentageOutOfRange
	}
	if !d.StartDate.Before(d.EndDate) {
		return discountdomain.ErrInvalidDateRange
	}
	if d.Priority < 0 || d.Priority > 100 {
		return discountdomain.ErrInvalidPriority
	}
	if d.MinimumOrderAmount != nil && d.MinimumOrderAmount.IsNegative() {
		return discountdomain.ErrInvalidMinimumOrder
	}
	if d.MaximumDiscountAmount != nil && !d.MaximumDiscountAmount.IsPositive() {
		return discountdomain.ErrInvalidMaximumDiscount
	}
	if d.UsageLimit != nil && *d.UsageLimit <= 0 {
		return discountdomain.ErrInvalidUsageLimit
	}
	return nil
}

// applyUpdate mutates the entity and reports whether the schedule or
// activation changed.
func applyUpdate(d *discountdomain.Discount, req discountdomain.UpdateRequest) bool {
	scheduleChanged := false

	if req.Name != nil {
		d.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		d.Description = strings.TrimSpace(*req.Description)
	}
	if req.Value != nil {
		d.Value = *req.Value
	}
	if req.StartDate != nil && !req.StartDate.Equal(d.StartDate) {
		d.StartDate = req.StartDate.UTC()
		scheduleChanged = true
	}
	if req.EndDate != nil && !req.EndDate.Equal(d.EndDate) {
		d.EndDate = req.EndDate.UTC()
		scheduleChanged = true
	}
	if req.IsActive != nil && *req.IsActive != d.IsActive {
		d.IsActive = *req.IsActive
		scheduleChanged = true
	}
	if req.MinimumOrderAmount != nil {
		d.MinimumOrderAmount = req.MinimumOrderAmount
	}
	if req.MaximumDiscountAmount != nil {
		d.MaximumDiscountAmount = req.MaximumDiscountAmount
	}
	if req.UsageLimit != nil {
		d.UsageLimit = req.UsageLimit
	}
	if req.UsageLimitPerCustomer != nil {
		d.UsageLimitPerCustomer = req.UsageLimitPerCustomer
	}
	if req.AutoApply != nil {
		d.AutoApply = *req.AutoApply
	}
	if req.Priority != nil {
		d.Priority = *req.Priority
	}
	if req.Stackable != nil {
		d.Stackable = *req.Stackable
	}

	return scheduleChanged
}

func (s *Service) toResponse(d *discountdomain.Discount) *discountdomain.Response {
	resp := &discountdomain.Response{
		ID:                    d.ID,
		Name:                  d.Name,
		Description:           d.Description,
		Type:                  d.Type,
		Value:                 d.Value,
		StartDate:             d.StartDate,
		EndDate:               d.EndDate,
		IsActive:              d.IsActive,
		MinimumOrderAmount:    d.MinimumOrderAmount,
		MaximumDiscountAmount: d.MaximumDiscountAmount,
		UsageLimit:            d.UsageLimit,
		UsageCount:            d.UsageCount,
		UsageLimitPerCustomer: d.UsageLimitPerCustomer,
		DiscountCode:          d.DiscountCode,
		AutoApply:             d.AutoApply,
		Priority:              d.Priority,
		Stackable:             d.Stackable,
		Scope:                 d.Scope(),
		Validity:              d.Validity(s.clock.Now()),
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
	for _, v := range d.Variants {
		resp.VariantIDs = append(resp.VariantIDs, v.VariantID)
	}
	for _, c := range d.Categories {
		resp.CategoryIDs = append(resp.CategoryIDs, c.CategoryID)
	}
	for _, row := range d.Dealers {
		resp.DealerIDs = append(resp.DealerIDs, row.DealerID)
	}
	return resp
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}

func parseIDs(values []string) ([]snowflake.ID, error) {
	out := make([]snowflake.ID, 0, len(values))
	for _, value := range values {
		id, err := parseID(value)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
