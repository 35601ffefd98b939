package catalog

import "github.com/shopspring/decimal"

// DefaultStatic returns a resolver seeded with the development catalog:
// common peso denominations, standard quality codes and the incident types
// the counting floor reports day to day. Production deployments replace
// this with master data loaded from the catalog service.
func DefaultStatic() *Static {
	s := NewStatic()

	types := []IncidentType{
		{ID: 1, Code: "SHORT", Category: CategoryShortage, Name: "Counted amount below declared"},
		{ID: 2, Code: "OVER", Category: CategoryOverage, Name: "Counted amount above declared"},
		{ID: 3, Code: "FAKE", Category: CategoryCounterfeit, Name: "Counterfeit piece detected"},
		{ID: 4, Code: "DMG", Category: CategoryDamaged, Name: "Damaged or unfit piece"},
		{ID: 5, Code: "DOC", Category: CategoryDocumentation, Name: "Missing or inconsistent documentation"},
	}
	for _, t := range types {
		s.AddIncidentType(t)
	}

	denominations := map[int64]int64{
		1:  100000,
		2:  50000,
		3:  20000,
		4:  10000,
		5:  5000,
		6:  2000,
		7:  1000,
		8:  500,
		9:  200,
		10: 100,
		11: 50,
	}
	for id, face := range denominations {
		s.AddDenomination(id, decimal.NewFromInt(face))
	}

	s.AddQuality(1, "fit")
	s.AddQuality(2, "unfit")
	s.AddQuality(3, "new")

	return s
}
