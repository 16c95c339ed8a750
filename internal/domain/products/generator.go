package products

import (
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"datagrid/internal/core/types"
)

// GeneratorConfig controls demo data generation.
type GeneratorConfig struct {
	// Seed makes output reproducible. Zero picks a random seed.
	Seed  uint64
	Count int
	Users int
	// Now anchors generated dates. Default time.Now().
	Now time.Time
}

// Generate returns cfg.Count fake products owned by cfg.Users fake users.
func Generate(cfg GeneratorConfig) []Product {
	if cfg.Users <= 0 {
		cfg.Users = 20
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	f := gofakeit.New(cfg.Seed)

	users := make([]User, cfg.Users)
	for i := range users {
		first, last := f.FirstName(), f.LastName()
		users[i] = User{
			ID:        f.UUID(),
			Name:      first + " " + last,
			AvatarURL: f.URL(),
			Role:      f.RandomString(roles),
			Email:     strings.ToLower(first + "." + last + "@" + f.DomainName()),
		}
	}

	out := make([]Product, cfg.Count)
	for i := range out {
		out[i] = generateProduct(f, users, cfg.Now)
	}
	return out
}

func generateProduct(f *gofakeit.Faker, users []User, now time.Time) Product {
	cost := f.Float64Range(5, 500)
	retail := cost * f.Float64Range(1.1, 2.5)
	discount := f.IntRange(0, 40)
	category := categories[f.IntRange(0, len(categories)-1)]

	p := Product{
		ID:          f.UUID(),
		SKU:         f.Numerify("##########"),
		Barcode:     f.Numerify("#############"),
		Name:        f.ProductName(),
		Description: f.ProductDescription(),
		Brand:       f.Company(),
		Category:    category,

		CostPrice:       types.NewMoney(cost),
		RetailPrice:     types.NewMoney(retail),
		DiscountPercent: discount,
		Currency:        f.RandomString(currencies),

		StockQty:          f.IntRange(0, 5000),
		ReservedQty:       f.IntRange(0, 500),
		ReorderLevel:      f.IntRange(10, 200),
		WarehouseLocation: "WH-" + strings.ToUpper(prefix(f.City(), 3)),
		SupplierName:      f.Company(),
		SupplierEmail:     f.Email(),

		Status:       statuses[f.IntRange(0, len(statuses)-1)],
		IsFeatured:   f.Bool(),
		IsReturnable: f.Bool(),
		IsTaxable:    f.Bool(),

		Rating:      round2(f.Float64Range(1, 5)),
		ReviewCount: f.IntRange(0, 5000),
		Views:       f.IntRange(0, 1_000_000),
		SalesCount:  f.IntRange(0, 50_000),

		WeightKg:      round2(f.Float64Range(0.1, 50)),
		HeightCm:      round2(f.Float64Range(5, 200)),
		WidthCm:       round2(f.Float64Range(5, 200)),
		LengthCm:      round2(f.Float64Range(5, 200)),
		ShippingClass: f.RandomString(shippingClasses),

		LaunchDate: f.DateRange(now.AddDate(-2, 0, 0), now),
		CreatedAt:  f.DateRange(now.AddDate(-3, 0, 0), now),
		UpdatedAt:  f.DateRange(now.AddDate(0, 0, -30), now),

		Tags:  uniqueWords(f, 3),
		Owner: users[f.IntRange(0, len(users)-1)],
	}
	p.FinalPrice = types.Discounted(p.RetailPrice, float64(discount))

	if f.Bool() {
		t := f.DateRange(now.AddDate(0, 0, -60), now)
		p.LastRestockedAt = &t
	}
	if category == CategoryGrocery && f.Bool() {
		t := f.DateRange(now, now.AddDate(1, 0, 0))
		p.ExpiryDate = &t
	}
	if f.Bool() {
		note := f.Phrase()
		p.Notes = &note
	}
	return p
}

func uniqueWords(f *gofakeit.Faker, n int) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for range n * 3 {
		if len(out) == n {
			break
		}
		w := strings.ToLower(f.Adjective())
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func prefix(s string, n int) string {
	r := []rune(s)
	return string(r[:min(n, len(r))])
}

func round2(f float64) float64 {
	return types.NewMoney(f).InexactFloat64()
}
