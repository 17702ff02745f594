package services

import (
	"github.com/shopspring/decimal"

	"bistro/server/internal/models"
	"bistro/server/internal/utils"
)

// CostLine is one recipe line priced at the ingredient's current cost.
type CostLine struct {
	IngredientID   string  `json:"ingredient_id"`
	IngredientName string  `json:"ingredient_name"`
	Quantity       float64 `json:"quantity"`
	CostPerUnit    float64 `json:"cost_per_unit"`
	Cost           float64 `json:"cost"`
}

// CostBreakdown is the result of costing a recipe. Lines whose ingredient
// could not be found contribute nothing to Total and are listed in
// Unresolved instead.
type CostBreakdown struct {
	Total      float64    `json:"total"`
	Lines      []CostLine `json:"lines"`
	Unresolved []string   `json:"unresolved,omitempty"`
}

// Partial reports whether any line was left out of Total.
func (b CostBreakdown) Partial() bool {
	return len(b.Unresolved) > 0
}

// CostRecipe prices recipe against the given ingredients (keyed by id).
func CostRecipe(recipe []models.RecipeLine, ingredients map[string]models.Ingredient) CostBreakdown {
	total := decimal.Zero
	out := CostBreakdown{Lines: make([]CostLine, 0, len(recipe))}
	for _, line := range recipe {
		ing, ok := ingredients[line.IngredientID]
		if !ok {
			out.Unresolved = append(out.Unresolved, line.IngredientID)
			continue
		}
		cost := utils.Dec(ing.CostPerUnit).Mul(utils.Dec(line.Quantity))
		total = total.Add(cost)
		out.Lines = append(out.Lines, CostLine{
			IngredientID:   ing.ID,
			IngredientName: ing.Name,
			Quantity:       line.Quantity,
			CostPerUnit:    ing.CostPerUnit,
			Cost:           utils.RoundCost(cost.InexactFloat64()),
		})
	}
	out.Total = utils.RoundCost(total.InexactFloat64())
	return out
}

// ProfitMargin is (price-cost)/price as a percentage, or 0 for a free item.
func ProfitMargin(price, cost float64) float64 {
	if price <= 0 {
		return 0
	}
	p := utils.Dec(price)
	return utils.RoundMoney(p.Sub(utils.Dec(cost)).Div(p).Mul(decimal.NewFromInt(100)).InexactFloat64())
}
