package testkit

import (
	"math"
	"math/rand"
	"strconv"

	"schoolinfra/domain/infra"
)

// InfraGeneratorConfig configures the synthetic infrastructure table generator
type InfraGeneratorConfig struct {
	States      []string `json:"states"`
	Categories  []string `json:"categories"`
	Areas       []string `json:"areas"`
	MinSchools  int      `json:"min_schools"`
	MaxSchools  int      `json:"max_schools"`
	MinCoverage float64  `json:"min_coverage"`
	WithTotal   bool     `json:"with_total"`
	Seed        int64    `json:"seed"`
}

// DefaultInfraConfig returns sensible defaults for generated tables
func DefaultInfraConfig() InfraGeneratorConfig {
	return InfraGeneratorConfig{
		States:      []string{"Kerala", "Bihar", "Goa", "Punjab", "Assam", "Odisha"},
		Categories:  []string{"Primary", "Secondary Only", "Higher Secondary with Secondary"},
		Areas:       []string{"Rural", "Urban"},
		MinSchools:  50,
		MaxSchools:  800,
		MinCoverage: 0.05,
		WithTotal:   true,
		Seed:        42,
	}
}

// generatedColumns are every count column the generator fills, after the total
var generatedColumns = []string{
	infra.ColGirlsToilet,
	infra.ColInternet,
	infra.ColHandwash,
	infra.ColPlayground,
	infra.ColLibrary,
	infra.ColIncinerator,
	infra.ColFunctionalDW,
	infra.ColDrinkingWater,
	infra.ColToilet,
	infra.ColElectricity,
	infra.ColComputer,
}

// InfraDataGenerator produces deterministic infrastructure tables
type InfraDataGenerator struct {
	config InfraGeneratorConfig
	rng    *rand.Rand
}

// NewInfraDataGenerator creates a new generator
func NewInfraDataGenerator(config InfraGeneratorConfig) *InfraDataGenerator {
	return &InfraDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Headers returns the generated table's header in column order
func Headers() []string {
	headers := []string{
		infra.ColLocation, infra.ColRuralUrban, infra.ColCategory,
		infra.ColManagement, infra.ColSchoolType, infra.ColTotalSchools,
	}
	return append(headers, generatedColumns...)
}

// Generate builds one row per state, area and category, plus a national Total row when configured
func (g *InfraDataGenerator) Generate() *infra.Table {
	table := &infra.Table{Headers: Headers()}
	totals := make(map[string]float64)

	for _, state := range g.config.States {
		for _, area := range g.config.Areas {
			for _, category := range g.config.Categories {
				span := g.config.MaxSchools - g.config.MinSchools
				if span < 1 {
					span = 1
				}
				schools := float64(g.config.MinSchools + g.rng.Intn(span))
				raw := map[string]string{
					infra.ColLocation:     state,
					infra.ColRuralUrban:   area,
					infra.ColCategory:     category,
					infra.ColManagement:   "Government",
					infra.ColSchoolType:   "Co-Ed",
					infra.ColTotalSchools: format(schools),
				}
				totals[infra.ColTotalSchools] += schools
				for _, col := range generatedColumns {
					coverage := g.config.MinCoverage + g.rng.Float64()*(1-g.config.MinCoverage)
					count := math.Floor(schools * coverage)
					raw[col] = format(count)
					totals[col] += count
				}
				table.Records = append(table.Records, infra.NewRecord(raw))
			}
		}
	}

	if g.config.WithTotal {
		raw := map[string]string{infra.ColLocation: infra.TotalLocation}
		for col, v := range totals {
			raw[col] = format(v)
		}
		table.Records = append(table.Records, infra.NewRecord(raw))
	}
	return table
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
