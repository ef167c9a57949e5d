package sysmanager

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hashicorp/go-multierror"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

// FieldType is the value type a search criterion compares against
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeDate     FieldType = "date"
	TypeNumber   FieldType = "number"
	TypeCurrency FieldType = "currency"
)

// Operator is a comparison understood by the advanced search
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpBefore     Operator = "before"
	OpAfter      Operator = "after"
	OpOnOrBefore Operator = "onOrBefore"
	OpOnOrAfter  Operator = "onOrAfter"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
)

var numericOperators = []Operator{OpEq, OpNe, OpGt, OpGte, OpLt, OpLte}

// operatorsByType lists the operators each field type accepts
var operatorsByType = map[FieldType][]Operator{
	TypeString:   {OpEq, OpNe, OpContains, OpStartsWith, OpEndsWith},
	TypeDate:     {OpEq, OpBefore, OpAfter, OpOnOrBefore, OpOnOrAfter},
	TypeNumber:   numericOperators,
	TypeCurrency: numericOperators,
}

// Criterion is one condition of an advanced search.
//
// Value is a string for TypeString; a time.Time or a date string in any
// common layout for TypeDate; any Go number, json.Number or numeric string
// for TypeNumber and TypeCurrency. Currency is the ISO 4217 code of a
// TypeCurrency amount.
type Criterion struct {
	Field    string    `json:"field" validate:"required"`
	Type     FieldType `json:"type" validate:"required,oneof=string date number currency"`
	Operator Operator  `json:"op" validate:"required"`
	Value    any       `json:"value"`
	Currency string    `json:"currency" validate:"required_if=Type currency,omitempty,iso4217"`
}

// StringCriterion compares a text field
func StringCriterion(field string, op Operator, value string) Criterion {
	return Criterion{Field: field, Type: TypeString, Operator: op, Value: value}
}

// DateCriterion compares a date field
func DateCriterion(field string, op Operator, value time.Time) Criterion {
	return Criterion{Field: field, Type: TypeDate, Operator: op, Value: value}
}

// NumberCriterion compares a numeric field
func NumberCriterion(field string, op Operator, value float64) Criterion {
	return Criterion{Field: field, Type: TypeNumber, Operator: op, Value: value}
}

// CurrencyCriterion compares a monetary field in one currency
func CurrencyCriterion(field string, op Operator, amount float64, currency string) Criterion {
	return Criterion{Field: field, Type: TypeCurrency, Operator: op, Value: amount, Currency: currency}
}

// EncodeSearch validates criteria and encodes them as
// search[<i>][field|type|op|value|currency] query parameters. Every invalid
// criterion is reported; nothing is encoded unless all are valid.
func EncodeSearch(criteria []Criterion) (url.Values, error) {
	var result *multierror.Error
	query := url.Values{}

	for i, c := range criteria {
		value, err := c.encode()
		if err != nil {
			result = multierror.Append(result, prefixFields(fmt.Sprintf("search[%d].", i), err)...)
			continue
		}

		key := func(name string) string {
			return fmt.Sprintf("search[%d][%s]", i, name)
		}
		query.Set(key("field"), c.Field)
		query.Set(key("type"), string(c.Type))
		query.Set(key("op"), string(c.Operator))
		query.Set(key("value"), value)
		if c.Type == TypeCurrency {
			query.Set(key("currency"), strings.ToUpper(c.Currency))
		}
	}

	if result == nil {
		return query, nil
	}
	if len(result.Errors) == 1 {
		return nil, result.Errors[0]
	}
	return nil, result
}

// encode validates c and returns its wire value
func (c Criterion) encode() (string, error) {
	if c.Type == TypeCurrency {
		c.Currency = strings.ToUpper(c.Currency)
	}
	if err := dispatch.ValidateStruct(c); err != nil {
		return "", err
	}

	if !slices.Contains(operatorsByType[c.Type], c.Operator) {
		return "", &dispatch.ValidationError{Field: "op", Rule: "oneof"}
	}

	var (
		value string
		ok    bool
	)
	switch c.Type {
	case TypeString:
		value, ok = c.Value.(string)
	case TypeDate:
		value, ok = encodeDate(c.Value)
	case TypeNumber, TypeCurrency:
		value, ok = encodeNumber(c.Value)
	}
	if !ok {
		return "", &dispatch.ValidationError{Field: "value", Rule: string(c.Type)}
	}

	return value, nil
}

func encodeDate(v any) (string, bool) {
	switch d := v.(type) {
	case time.Time:
		if d.IsZero() {
			return "", false
		}
		return d.UTC().Format(time.RFC3339), true
	case *time.Time:
		if d == nil {
			return "", false
		}
		return encodeDate(*d)
	case string:
		// Dates without a zone are taken as UTC
		parsed, err := dateparse.ParseIn(strings.TrimSpace(d), time.UTC)
		if err != nil {
			return "", false
		}
		return encodeDate(parsed)
	}
	return "", false
}

func encodeNumber(v any) (string, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		return encodeNumber(n.String())
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return "", false
		}
		f = parsed
	default:
		return "", false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

// prefixFields qualifies the fields of every ValidationError in err
func prefixFields(prefix string, err error) []error {
	errs := []error{err}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		errs = merr.Errors
	}

	for _, e := range errs {
		var validationErr *dispatch.ValidationError
		if errors.As(e, &validationErr) {
			validationErr.Field = prefix + validationErr.Field
		}
	}
	return errs
}
