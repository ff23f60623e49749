package utils

import "github.com/shopspring/decimal"

// Les montants circulent en float64 mais sont calculés en décimal et arrondis
// au centime : un même panier donne toujours les mêmes totaux.

func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func Cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// LineTotal = prix × quantité
func LineTotal(price float64, quantity int) decimal.Decimal {
	return Money(price).Mul(decimal.NewFromInt(int64(quantity)))
}

// Percent applique un taux (0.08 = 8 %) à un montant.
func Percent(amount decimal.Decimal, rate float64) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(rate))
}
