// internal/services/pricing_service.go
package services

import (
	"fmt"
	"math"

	"github.com/tunesoko/tunesoko-backend/internal/config"
	"github.com/tunesoko/tunesoko-backend/internal/models"
)

// PricingService computes cart and order totals. It holds no database
// handle and performs no I/O: identical input always yields identical
// totals.
type PricingService struct {
	// creditsRateUGX is the published exchange rate (UGX per credit) used
	// to derive a credit price for products that only carry a money price.
	// Zero disables the fallback.
	creditsRateUGX float64
}

func NewPricingService(cfg config.PaymentConfig) *PricingService {
	return &PricingService{creditsRateUGX: cfg.CreditsRateUGX}
}

// PricedLine pairs a live product with the quantity being priced. Prices
// are read from the product at computation time, never from a snapshot.
type PricedLine struct {
	Product  *models.Product
	Quantity int
}

// Totals are expressed in the units of the requested domain: UGX for
// money, whole credits for credits.
type Totals struct {
	Domain   models.CurrencyDomain `json:"domain"`
	Subtotal float64               `json:"subtotal"`
	Shipping float64               `json:"shipping"`
	Total    float64               `json:"total"`
}

func (s *PricingService) ComputeTotals(lines []PricedLine, domain models.CurrencyDomain, shippingCost float64) (*Totals, error) {
	totals := &Totals{Domain: domain}

	switch domain {
	case models.CurrencyDomainMoney:
		for _, line := range lines {
			totals.Subtotal += float64(line.Quantity) * line.Product.PriceUGX
		}
		totals.Shipping = shippingCost

	case models.CurrencyDomainCredits:
		for _, line := range lines {
			unit, err := s.creditPrice(line.Product)
			if err != nil {
				return nil, err
			}
			totals.Subtotal += float64(line.Quantity * unit)
		}
		if shippingCost > 0 {
			if s.creditsRateUGX <= 0 {
				return nil, fmt.Errorf("%w: shipping cost has no credit conversion rate", ErrInvalidCurrencyDomain)
			}
			totals.Shipping = math.Round(shippingCost / s.creditsRateUGX)
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidCurrencyDomain, domain)
	}

	totals.Total = totals.Subtotal + totals.Shipping
	return totals, nil
}

func (s *PricingService) creditPrice(product *models.Product) (int, error) {
	if product.PriceCredits != nil {
		return int(*product.PriceCredits), nil
	}
	if s.creditsRateUGX > 0 {
		return int(math.Round(product.PriceUGX / s.creditsRateUGX)), nil
	}
	return 0, fmt.Errorf("%w: product %q has no credit price", ErrInvalidCurrencyDomain, product.Name)
}
