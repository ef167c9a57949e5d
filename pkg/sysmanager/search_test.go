package sysmanager

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysmanager-dev/sysmanager/pkg/dispatch"
)

func TestEncodeSearch(t *testing.T) {
	due := time.Date(2024, 3, 1, 15, 4, 5, 0, time.FixedZone("CET", 3600))

	query, err := EncodeSearch([]Criterion{
		StringCriterion("title", OpContains, "invoice"),
		DateCriterion("dueAt", OpOnOrBefore, due),
		NumberCriterion("quantity", OpGte, 2.5),
		CurrencyCriterion("total", OpLt, 1000, "eur"),
	})
	require.NoError(t, err)

	want := url.Values{
		"search[0][field]":    {"title"},
		"search[0][type]":     {"string"},
		"search[0][op]":       {"contains"},
		"search[0][value]":    {"invoice"},
		"search[1][field]":    {"dueAt"},
		"search[1][type]":     {"date"},
		"search[1][op]":       {"onOrBefore"},
		"search[1][value]":    {"2024-03-01T14:04:05Z"},
		"search[2][field]":    {"quantity"},
		"search[2][type]":     {"number"},
		"search[2][op]":       {"gte"},
		"search[2][value]":    {"2.5"},
		"search[3][field]":    {"total"},
		"search[3][type]":     {"currency"},
		"search[3][op]":       {"lt"},
		"search[3][value]":    {"1000"},
		"search[3][currency]": {"EUR"},
	}
	assert.Equal(t, want, query)
}

func TestEncodeSearch_Empty(t *testing.T) {
	query, err := EncodeSearch(nil)
	require.NoError(t, err)
	assert.Empty(t, query)
}

func TestEncodeSearch_ValueForms(t *testing.T) {
	tests := []struct {
		name      string
		criterion Criterion
		want      string
	}{
		{
			name:      "date string without zone",
			criterion: Criterion{Field: "d", Type: TypeDate, Operator: OpAfter, Value: "2024-01-15"},
			want:      "2024-01-15T00:00:00Z",
		},
		{
			name:      "date string with zone",
			criterion: Criterion{Field: "d", Type: TypeDate, Operator: OpEq, Value: "2024-01-15T10:00:00+02:00"},
			want:      "2024-01-15T08:00:00Z",
		},
		{
			name:      "int",
			criterion: Criterion{Field: "n", Type: TypeNumber, Operator: OpEq, Value: 42},
			want:      "42",
		},
		{
			name:      "json number",
			criterion: Criterion{Field: "n", Type: TypeNumber, Operator: OpNe, Value: json.Number("-7.25")},
			want:      "-7.25",
		},
		{
			name:      "numeric string",
			criterion: Criterion{Field: "n", Type: TypeCurrency, Operator: OpGt, Value: " 19.99 ", Currency: "USD"},
			want:      "19.99",
		},
		{
			name:      "empty string equality",
			criterion: StringCriterion("s", OpEq, ""),
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := EncodeSearch([]Criterion{tt.criterion})
			require.NoError(t, err)
			assert.Equal(t, tt.want, query.Get("search[0][value]"))
		})
	}
}

func TestEncodeSearch_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		criterion Criterion
		wantField string
		wantRule  string
	}{
		{
			name:      "missing field",
			criterion: Criterion{Type: TypeString, Operator: OpEq, Value: "x"},
			wantField: "search[0].field",
			wantRule:  "required",
		},
		{
			name:      "unknown type",
			criterion: Criterion{Field: "f", Type: "boolean", Operator: OpEq, Value: true},
			wantField: "search[0].type",
			wantRule:  "oneof",
		},
		{
			name:      "operator not allowed for strings",
			criterion: StringCriterion("f", OpGt, "x"),
			wantField: "search[0].op",
			wantRule:  "oneof",
		},
		{
			name:      "operator not allowed for dates",
			criterion: DateCriterion("f", OpContains, time.Now()),
			wantField: "search[0].op",
			wantRule:  "oneof",
		},
		{
			name:      "string value is not a string",
			criterion: Criterion{Field: "f", Type: TypeString, Operator: OpEq, Value: 3},
			wantField: "search[0].value",
			wantRule:  "string",
		},
		{
			name:      "unparseable date",
			criterion: Criterion{Field: "f", Type: TypeDate, Operator: OpBefore, Value: "someday"},
			wantField: "search[0].value",
			wantRule:  "date",
		},
		{
			name:      "zero time",
			criterion: DateCriterion("f", OpBefore, time.Time{}),
			wantField: "search[0].value",
			wantRule:  "date",
		},
		{
			name:      "number is not numeric",
			criterion: Criterion{Field: "f", Type: TypeNumber, Operator: OpEq, Value: "ten"},
			wantField: "search[0].value",
			wantRule:  "number",
		},
		{
			name:      "currency without code",
			criterion: Criterion{Field: "f", Type: TypeCurrency, Operator: OpEq, Value: 1},
			wantField: "search[0].currency",
			wantRule:  "required_if",
		},
		{
			name:      "unknown currency",
			criterion: CurrencyCriterion("f", OpEq, 1, "QQQ"),
			wantField: "search[0].currency",
			wantRule:  "iso4217",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := EncodeSearch([]Criterion{tt.criterion})
			assert.Nil(t, query)

			var validationErr *dispatch.ValidationError
			require.True(t, errors.As(err, &validationErr), "got %v", err)
			assert.Equal(t, tt.wantField, validationErr.Field)
			assert.Equal(t, tt.wantRule, validationErr.Rule)
		})
	}
}

func TestEncodeSearch_AggregatesErrors(t *testing.T) {
	_, err := EncodeSearch([]Criterion{
		StringCriterion("ok", OpEq, "x"),
		StringCriterion("", OpGt, "x"),
		NumberCriterion("n", OpContains, 1),
	})
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))

	var fields []string
	for _, e := range merr.Errors {
		var validationErr *dispatch.ValidationError
		require.True(t, errors.As(e, &validationErr))
		fields = append(fields, validationErr.Field)
	}
	assert.Equal(t, []string{"search[1].field", "search[2].op"}, fields)
}
