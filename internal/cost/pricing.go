package cost

// Image editing prices in USD per output image.
// Gemini image models bill output tokens (1290 tokens per image for
// 2.5 Flash Image); OpenAI gpt-image-1 edits bill by quality and size.

type PricingKey struct {
	Model   string
	Quality string
}

var imagePricing = map[PricingKey]float64{
	{Model: "gemini-2.5-flash-image"}:         0.039,
	{Model: "gemini-2.5-flash-image-preview"}: 0.039,
	{Model: "gemini-3-pro-image-preview"}:     0.134,

	{Model: "gpt-image-1", Quality: "low"}:    0.011,
	{Model: "gpt-image-1", Quality: "medium"}: 0.042,
	{Model: "gpt-image-1", Quality: "high"}:   0.167,
	{Model: "gpt-image-1", Quality: "auto"}:   0.042,
}

func GetImagePrice(model, quality string) (float64, bool) {
	price, ok := imagePricing[PricingKey{Model: model, Quality: quality}]
	return price, ok
}
