package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambiyansyah-risyal/frappekit"
)

func TestParseFilters(t *testing.T) {
	filters, err := parseFilters(`[["status","=","Open"],["priority","in",["High","Medium"]]]`)
	require.NoError(t, err)
	require.Len(t, filters, 2)

	assert.Equal(t, "status", filters[0].Field)
	assert.Equal(t, frappekit.OpEquals, filters[0].Operator)
	assert.Equal(t, "Open", filters[0].Value)
	assert.Equal(t, frappekit.FilterOperator("in"), filters[1].Operator)

	filters, err = parseFilters("  ")
	assert.NoError(t, err)
	assert.Nil(t, filters)

	_, err = parseFilters(`{"status":"Open"}`)
	assert.ErrorContains(t, err, "filters must be a JSON array")
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    *frappekit.OrderBy
		wantErr bool
	}{
		{"", nil, false},
		{"modified", &frappekit.OrderBy{Field: "modified", Order: frappekit.Asc}, false},
		{"modified DESC", &frappekit.OrderBy{Field: "modified", Order: frappekit.Desc}, false},
		{"modified sideways", nil, true},
		{"a b c", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseOrder(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"doctype=ToDo", "filters=a=b"})
	require.NoError(t, err)
	assert.Equal(t, frappekit.Params{"doctype": "ToDo", "filters": "a=b"}, params)

	_, err = parseParams([]string{"=x"})
	assert.Error(t, err)
	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)
}

func TestFlagSetHelp(t *testing.T) {
	assert.Empty(t, NewFlagSet("empty").Help())

	f := NewFlagSet("x")
	f.String("url", "", "Backend address.")
	help := f.Help()
	assert.Contains(t, help, "Options:")
	assert.Contains(t, help, "--url")
}
