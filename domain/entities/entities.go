package entities

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Variant is a chosen option of a menu item that shifts its unit price
type Variant struct {
	ID            string          `json:"id"`
	NameAr        string          `json:"name_ar"`
	NameEn        string          `json:"name_en"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
}

// AddOn is an extra with a flat unit price
type AddOn struct {
	ID     string          `json:"id"`
	NameAr string          `json:"name_ar"`
	NameEn string          `json:"name_en"`
	Price  decimal.Decimal `json:"price"`
}

// OrderLine is one configured menu item in the cart
type OrderLine struct {
	ID        string          `json:"id"`
	NameAr    string          `json:"name_ar"`
	NameEn    string          `json:"name_en"`
	BasePrice decimal.Decimal `json:"base_price"`
	Quantity  int             `json:"quantity"`
	Variants  []Variant       `json:"variants"`
	AddOns    []AddOn         `json:"addons"`
	Total     decimal.Decimal `json:"total"`
}

// OrderSummary is the result of checking out an order
type OrderSummary struct {
	ID        string          `json:"id"`
	Items     []OrderLine     `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnitPrice returns base price plus every variant delta and add-on price
func (l *OrderLine) UnitPrice() decimal.Decimal {
	unit := l.BasePrice
	for _, v := range l.Variants {
		unit = unit.Add(v.PriceModifier)
	}
	for _, a := range l.AddOns {
		unit = unit.Add(a.Price)
	}
	return unit
}

// Recompute refreshes Total from the current configuration and quantity
func (l *OrderLine) Recompute() {
	l.Total = l.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Clone returns a deep copy so callers cannot mutate aggregator state
func (l OrderLine) Clone() OrderLine {
	l.Variants = append([]Variant(nil), l.Variants...)
	l.AddOns = append([]AddOn(nil), l.AddOns...)
	return l
}

// Domain validation methods
func (l *OrderLine) Validate() error {
	if l.ID == "" {
		return errors.New("id is required")
	}
	if l.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if l.BasePrice.IsNegative() {
		return errors.New("base price must not be negative")
	}
	return nil
}

// LineKey derives a line identity from the menu item and its configuration,
// so the same item with different options occupies separate lines.
func LineKey(itemID string, variants []Variant, addOns []AddOn) string {
	variantIDs := make([]string, 0, len(variants))
	for _, v := range variants {
		variantIDs = append(variantIDs, v.ID)
	}
	addOnIDs := make([]string, 0, len(addOns))
	for _, a := range addOns {
		addOnIDs = append(addOnIDs, a.ID)
	}
	sort.Strings(variantIDs)
	sort.Strings(addOnIDs)

	var b strings.Builder
	b.WriteString(itemID)
	if len(variantIDs) > 0 {
		b.WriteString("|v:")
		b.WriteString(strings.Join(variantIDs, ","))
	}
	if len(addOnIDs) > 0 {
		b.WriteString("|a:")
		b.WriteString(strings.Join(addOnIDs, ","))
	}
	return b.String()
}

// FormatPrice rounds a currency amount to two places for display
func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(2)
}
