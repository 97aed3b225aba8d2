package cost

import "github.com/manash/hairtry/pkg/models"

const (
	CurrencyUSD = "USD"
)

type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

func (c *Calculator) Calculate(provider models.ProviderType, model, quality string, count int) *models.CostInfo {
	var perImage float64

	switch provider {
	case models.ProviderGemini:
		perImage = c.calculateGemini(model)
	case models.ProviderOpenAI:
		perImage = c.calculateOpenAI(model, quality)
	default:
		perImage = 0
	}

	return &models.CostInfo{
		PerImage: perImage,
		Total:    perImage * float64(count),
		Currency: CurrencyUSD,
	}
}

func (c *Calculator) calculateGemini(model string) float64 {
	if price, ok := GetImagePrice(model, ""); ok {
		return price
	}
	// Unknown Gemini image models are billed like 2.5 Flash Image.
	return 0.039
}

func (c *Calculator) calculateOpenAI(model, quality string) float64 {
	if quality == "" {
		quality = "medium"
	}
	if price, ok := GetImagePrice(model, quality); ok {
		return price
	}
	if model == "gpt-image-1" {
		return 0.042
	}
	return 0
}
