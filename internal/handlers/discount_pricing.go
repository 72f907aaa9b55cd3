package handlers

import "fmt"

type discountUpdateInput struct {
	Price           *float64
	DiscountEnabled *bool
	DiscountPrice   *float64
}

type discountUpdateResult struct {
	Price              float64
	DiscountEnabled    bool
	DiscountPrice      float64
	SetDiscountEnabled bool
	SetDiscountPrice   bool
}

func isMedicineDiscounted(price float64, discountEnabled bool, discountPrice float64) bool {
	return discountEnabled && discountPrice > 0 && discountPrice < price
}

func effectiveMedicinePrice(price float64, discountEnabled bool, discountPrice float64) float64 {
	if isMedicineDiscounted(price, discountEnabled, discountPrice) {
		return discountPrice
	}
	return price
}

func validateDiscountFields(price float64, discountEnabled bool, discountPrice float64, discountPriceSet bool) error {
	if !discountEnabled {
		return nil
	}
	if !discountPriceSet {
		return fmt.Errorf("discountPrice is required when discountEnabled is true")
	}
	if discountPrice <= 0 {
		return fmt.Errorf("discountPrice must be greater than 0")
	}
	if discountPrice >= price {
		return fmt.Errorf("discountPrice must be less than price")
	}
	return nil
}

func resolveDiscountUpdate(existingPrice float64, existingEnabled bool, existingDiscountPrice float64, input discountUpdateInput) (discountUpdateResult, error) {
	result := discountUpdateResult{
		Price:           existingPrice,
		DiscountEnabled: existingEnabled,
		DiscountPrice:   existingDiscountPrice,
	}

	if input.Price != nil {
		result.Price = *input.Price
	}

	discountPriceSetForValidation := existingDiscountPrice > 0

	if input.DiscountEnabled != nil {
		result.DiscountEnabled = *input.DiscountEnabled
		result.SetDiscountEnabled = true
		if !*input.DiscountEnabled {
			result.DiscountPrice = 0
			result.SetDiscountPrice = true
			discountPriceSetForValidation = false
		}
	}

	if input.DiscountPrice != nil {
		result.DiscountPrice = *input.DiscountPrice
		result.SetDiscountPrice = true
		discountPriceSetForValidation = true
	}

	if err := validateDiscountFields(result.Price, result.DiscountEnabled, result.DiscountPrice, discountPriceSetForValidation); err != nil {
		return discountUpdateResult{}, err
	}

	return result, nil
}
