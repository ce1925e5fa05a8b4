package domain

import (
	"fmt"
	"sort"
	"strings"
)

// CurrencyCode is the ISO letter code of a tracked currency.
type CurrencyCode string

const (
	USD CurrencyCode = "USD"
	EUR CurrencyCode = "EUR"
	CNY CurrencyCode = "CNY"
)

// Currency represents a currency the source publishes a rouble rate for.
type Currency struct {
	CurrencyCode CurrencyCode `json:"currencyCode"` // e.g., "USD"
	Symbol       string       `json:"symbol"`       // e.g., "$"
	Name         string       `json:"name"`         // e.g., "US Dollar"
	SourceID     string       `json:"sourceID"`     // CBR internal id used by the period endpoint, e.g. "R01235"
	TableName    string       `json:"-"`            // table holding this currency's rate records
}

var supportedCurrencies = map[CurrencyCode]Currency{
	USD: {CurrencyCode: USD, Symbol: "$", Name: "US Dollar", SourceID: "R01235", TableName: "usd_rates"},
	EUR: {CurrencyCode: EUR, Symbol: "€", Name: "Euro", SourceID: "R01239", TableName: "eur_rates"},
	CNY: {CurrencyCode: CNY, Symbol: "¥", Name: "Chinese Yuan", SourceID: "R01375", TableName: "cny_rates"},
}

// LookupCurrency returns the metadata of a supported currency.
func LookupCurrency(code CurrencyCode) (Currency, bool) {
	c, ok := supportedCurrencies[code]
	return c, ok
}

// ParseCurrencyCode normalizes s and checks it against the supported set.
func ParseCurrencyCode(s string) (CurrencyCode, error) {
	code := CurrencyCode(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := supportedCurrencies[code]; !ok {
		return "", fmt.Errorf("unsupported currency code %q", s)
	}
	return code, nil
}

// ParseCurrencyList parses a comma separated list such as "USD,EUR".
func ParseCurrencyList(s string) ([]CurrencyCode, error) {
	var codes []CurrencyCode
	seen := make(map[CurrencyCode]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		code, err := ParseCurrencyCode(part)
		if err != nil {
			return nil, err
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("no currencies in %q", s)
	}
	return codes, nil
}

// SupportedCurrencies lists all supported currencies sorted by code.
func SupportedCurrencies() []Currency {
	list := make([]Currency, 0, len(supportedCurrencies))
	for _, c := range supportedCurrencies {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CurrencyCode < list[j].CurrencyCode })
	return list
}
