package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	pricingdomain "github.com/meditrade/pricing/internal/pricing/domain"
	"github.com/shopspring/decimal"
)

type orderLineRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int64  `json:"quantity"`

	// UnitPrice overrides the dealer price list when set, for quotes
	// negotiated outside the catalog.
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type priceOrderRequest struct {
	OrderID            string             `json:"order_id"`
	DealerID           string             `json:"dealer_id"`
	Items              []orderLineRequest `json:"items"`
	DiscountCode       string             `json:"discount_code"`
	IncludeDiscountIDs []string           `json:"include_discount_ids"`
	ExcludeDiscountIDs []string           `json:"exclude_discount_ids"`
}

type calculateLineRequest struct {
	DealerID     string           `json:"dealer_id"`
	Item         orderLineRequest `json:"item"`
	DiscountCode string           `json:"discount_code"`
}

func (s *Server) PreviewOrder(c *gin.Context) {
	req, err := s.buildOrderRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pricingSvc.PriceOrder(c.Request.Context(), *req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CommitOrder(c *gin.Context) {
	req, err := s.buildOrderRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pricingSvc.CommitOrder(c.Request.Context(), *req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CalculateLine(c *gin.Context) {
	var body calculateLineRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dealerID, err := parseSnowflake(body.DealerID)
	if err != nil {
		AbortWithError(c, pricingdomain.ErrInvalidDealer)
		return
	}
	item, err := s.resolveLine(c, dealerID, body.Item)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pricingSvc.CalculateLineItem(c.Request.Context(), pricingdomain.LineItemRequest{
		DealerID:     dealerID,
		Item:         *item,
		DiscountCode: strings.TrimSpace(body.DiscountCode),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// buildOrderRequest binds the payload and enriches each line from the
// catalog: product and category scope ids plus the dealer's unit price.
func (s *Server) buildOrderRequest(c *gin.Context) (*pricingdomain.PriceOrderRequest, error) {
	var body priceOrderRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, invalidRequestError()
	}

	dealerID, err := parseSnowflake(body.DealerID)
	if err != nil {
		return nil, pricingdomain.ErrInvalidDealer
	}
	if _, err := s.catalogSvc.FindDealer(c.Request.Context(), dealerID); err != nil {
		return nil, err
	}

	req := &pricingdomain.PriceOrderRequest{
		OrderID:      strings.TrimSpace(body.OrderID),
		DealerID:     dealerID,
		DiscountCode: strings.TrimSpace(body.DiscountCode),
	}

	for _, line := range body.Items {
		item, err := s.resolveLine(c, dealerID, line)
		if err != nil {
			return nil, err
		}
		req.Items = append(req.Items, *item)
	}

	if req.IncludeDiscountIDs, err = parseSnowflakes(body.IncludeDiscountIDs); err != nil {
		return nil, invalidRequestError()
	}
	if req.ExcludeDiscountIDs, err = parseSnowflakes(body.ExcludeDiscountIDs); err != nil {
		return nil, invalidRequestError()
	}
	return req, nil
}

func (s *Server) resolveLine(c *gin.Context, dealerID snowflake.ID, line orderLineRequest) (*pricingdomain.LineItem, error) {
	variantID, err := parseSnowflake(line.VariantID)
	if err != nil {
		return nil, invalidRequestError()
	}
	if line.Quantity <= 0 {
		return nil, pricingdomain.ErrInvalidQuantity
	}

	lctx, err := s.catalogSvc.ResolveLineContext(c.Request.Context(), dealerID, variantID)
	if err != nil {
		return nil, err
	}

	unitPrice := lctx.UnitPrice
	if line.UnitPrice != nil {
		unitPrice = *line.UnitPrice
	}

	return &pricingdomain.LineItem{
		VariantID:   variantID,
		ProductID:   lctx.ProductID,
		CategoryIDs: lctx.CategoryIDs,
		Quantity:    line.Quantity,
		UnitPrice:   unitPrice,
	}, nil
}

func parseSnowflake(raw string) (snowflake.ID, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value <= 0 {
		return 0, ErrInvalidRequest
	}
	return snowflake.ID(value), nil
}

func parseSnowflakes(raw []string) ([]snowflake.ID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]snowflake.ID, 0, len(raw))
	for _, r := range raw {
		id, err := parseSnowflake(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
