package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bistro/server/internal/models"
)

func TestCostRecipe(t *testing.T) {
	ingredients := map[string]models.Ingredient{
		"flour":  {ID: "flour", Name: "Flour", CostPerUnit: 40},
		"cheese": {ID: "cheese", Name: "Cheese", CostPerUnit: 520.5},
	}
	recipe := []models.RecipeLine{
		{IngredientID: "flour", Quantity: 0.25},
		{IngredientID: "cheese", Quantity: 0.1},
		{IngredientID: "gone", Quantity: 3},
	}

	got := CostRecipe(recipe, ingredients)

	assert.InDelta(t, 10+52.05, got.Total, 1e-9)
	assert.Len(t, got.Lines, 2)
	assert.Equal(t, []string{"gone"}, got.Unresolved)
	assert.True(t, got.Partial())
	assert.Equal(t, "Cheese", got.Lines[1].IngredientName)
}

func TestCostRecipeEmpty(t *testing.T) {
	got := CostRecipe(nil, nil)
	assert.Zero(t, got.Total)
	assert.False(t, got.Partial())
}

func TestProfitMargin(t *testing.T) {
	tests := []struct {
		price, cost, want float64
	}{
		{100, 25, 75},
		{100, 100, 0},
		{80, 100, -25},
		{0, 10, 0},
		{-5, 1, 0},
		{300, 100, 66.67},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ProfitMargin(tt.price, tt.cost), 1e-9, "price %.2f cost %.2f", tt.price, tt.cost)
	}
}
