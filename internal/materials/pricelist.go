package materials

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// PriceList is the YAML file accepted by the bulk import. Currency applies to
// entries that leave theirs blank.
//
//	currency: GBP
//	materials:
//	  - name: flour
//	    unit: kg
//	    unit_cost: "0.90"
type PriceList struct {
	Currency  string           `yaml:"currency"`
	Materials []PriceListEntry `yaml:"materials"`
}

type PriceListEntry struct {
	Name     string `yaml:"name"`
	Unit     string `yaml:"unit"`
	UnitCost string `yaml:"unit_cost"`
	Currency string `yaml:"currency"`
}

// ParsePriceList decodes a price list and converts it into Set inputs. Unknown
// keys and unparseable costs are reported together, keyed by entry position.
func ParsePriceList(r io.Reader) ([]SetMaterialInput, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var list PriceList
	if err := dec.Decode(&list); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("price list is empty")
		}
		return nil, fmt.Errorf("decode price list: %w", err)
	}
	if len(list.Materials) == 0 {
		return nil, errors.New("price list has no materials")
	}

	var errs error
	inputs := make([]SetMaterialInput, 0, len(list.Materials))
	for i, entry := range list.Materials {
		cost, err := decimal.NewFromString(strings.TrimSpace(entry.UnitCost))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("materials[%d] unit_cost %q is not a decimal", i, entry.UnitCost))
			continue
		}
		currency := entry.Currency
		if strings.TrimSpace(currency) == "" {
			currency = list.Currency
		}
		inputs = append(inputs, SetMaterialInput{
			Name:     entry.Name,
			Unit:     entry.Unit,
			UnitCost: cost,
			Currency: currency,
		})
	}
	if errs != nil {
		return nil, errs
	}
	return inputs, nil
}
