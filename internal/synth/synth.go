// Package synth generates reproducible synthetic location datasets: wages,
// prices and populations perturbed around a common baseline.
package synth

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/stat/distuv"

	"abrsqol/internal/table"
)

// Options controls the generated dataset. Spreads are relative: a value
// of 0.2 draws uniformly from baseline·[0.8, 1.2].
type Options struct {
	Locations        int     `json:"locations" validate:"gte=2"`
	Theta            int     `json:"theta" validate:"gte=1"`
	Seed             int64   `json:"seed"`
	WageSpread       float64 `json:"wage_spread" validate:"gte=0,lt=1"`
	HousingSpread    float64 `json:"housing_spread" validate:"gte=0,lt=1"`
	TradableSpread   float64 `json:"tradable_spread" validate:"gte=0,lt=1"`
	ServicesSpread   float64 `json:"services_spread" validate:"gte=0,lt=1"`
	PopulationSpread float64 `json:"population_spread" validate:"gte=0,lt=1"`
	BasePopulation   float64 `json:"base_population" validate:"gt=0"`
}

// DefaultOptions returns a five-location, single-Theta dataset.
func DefaultOptions() Options {
	return Options{
		Locations:        5,
		Theta:            1,
		Seed:             1,
		WageSpread:       0.2,
		HousingSpread:    0.4,
		TradableSpread:   0.05,
		ServicesSpread:   0.2,
		PopulationSpread: 0.5,
		BasePopulation:   1000,
	}
}

var validate = validator.New()

// Columns returns selectors matching the headers Generate writes.
func Columns(theta int) table.Columns {
	return table.Columns{
		W:  names("w", theta),
		PH: table.Selector{"p_H"},
		Pt: table.Selector{"P_t"},
		Pn: table.Selector{"p_n"},
		L:  names("L", theta),
		Lb: names("L_b", theta),
	}
}

func names(base string, theta int) table.Selector {
	if theta == 1 {
		return table.Selector{base}
	}
	sel := make(table.Selector, theta)
	for t := range sel {
		sel[t] = fmt.Sprintf("%s_%d", base, t+1)
	}
	return sel
}

// Generate draws a dataset. The same Options always yield the same table.
func Generate(opts Options) (*table.Table, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid synth options: %w", err)
	}

	src := rand.NewPCG(uint64(opts.Seed), 0)
	draw := func(base, spread float64) string {
		u := distuv.Uniform{Min: base * (1 - spread), Max: base * (1 + spread), Src: src}
		return strconv.FormatFloat(u.Rand(), 'g', -1, 64)
	}

	cols := Columns(opts.Theta)
	header := []string{"location"}
	header = append(header, cols.W...)
	header = append(header, "p_H", "P_t", "p_n")
	header = append(header, cols.L...)
	header = append(header, cols.Lb...)

	rows := make([][]string, opts.Locations)
	for j := range rows {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(j+1))
		for t := 0; t < opts.Theta; t++ {
			row = append(row, draw(1, opts.WageSpread))
		}
		row = append(row,
			draw(1, opts.HousingSpread),
			draw(1, opts.TradableSpread),
			draw(1, opts.ServicesSpread),
		)
		for t := 0; t < opts.Theta; t++ {
			row = append(row, draw(opts.BasePopulation, opts.PopulationSpread))
		}
		for t := 0; t < opts.Theta; t++ {
			row = append(row, draw(opts.BasePopulation, opts.PopulationSpread))
		}
		rows[j] = row
	}
	return table.New(header, rows), nil
}
