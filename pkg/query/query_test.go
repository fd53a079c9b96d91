package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stacsearch/pkg/errors"
)

func TestParseExpression(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		field    string
		operator string
		value    interface{}
	}{
		{
			name:     "less than with numeric value",
			input:    "eo:cloud_cover<10",
			field:    "eo:cloud_cover",
			operator: "lt",
			value:    10.0,
		},
		{
			name:     "less than or equal",
			input:    "eo:cloud_cover<=5.5",
			field:    "eo:cloud_cover",
			operator: "lte",
			value:    5.5,
		},
		{
			name:     "greater than",
			input:    "view:sun_elevation>20",
			field:    "view:sun_elevation",
			operator: "gt",
			value:    20.0,
		},
		{
			name:     "greater than or equal",
			input:    "gsd>=10",
			field:    "gsd",
			operator: "gte",
			value:    10.0,
		},
		{
			name:     "equality with string value",
			input:    "platform=sentinel-2a",
			field:    "platform",
			operator: "eq",
			value:    "sentinel-2a",
		},
		{
			name:     "quoted string value",
			input:    `constellation="sentinel-2"`,
			field:    "constellation",
			operator: "eq",
			value:    "sentinel-2",
		},
		{
			name:     "whitespace around operator",
			input:    "eo:cloud_cover < 10",
			field:    "eo:cloud_cover",
			operator: "lt",
			value:    10.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseExpression(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.field, expr.Field)
			assert.Equal(t, tt.operator, expr.Operator)
			assert.Equal(t, tt.value, expr.Value)
		})
	}
}

func TestParseExpressionErrors(t *testing.T) {
	inputs := []string{
		"",
		"eo:cloud_cover",
		"<10",
		"eo:cloud_cover<",
		"=value",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParseExpression(input)
			require.Error(t, err)

			var apiErr *errors.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, errors.ErrorTypeInvalidQuery, apiErr.Type)
		})
	}
}

func TestNormalizeProperties(t *testing.T) {
	q := Query{
		Properties: []string{"eo:cloud_cover<10", "platform=sentinel-2a"},
	}

	s, err := q.Normalize()
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"lt": 10.0}, s.Query["eo:cloud_cover"])
	assert.Equal(t, map[string]interface{}{"eq": "sentinel-2a"}, s.Query["platform"])
	assert.False(t, s.IsLookup())
}

func TestNormalizeMergesSameField(t *testing.T) {
	q := Query{
		Properties: []string{"eo:cloud_cover>5", "eo:cloud_cover<10"},
	}

	s, err := q.Normalize()
	require.NoError(t, err)

	// Both comparisons land on one shared object for the field
	assert.Equal(t, map[string]interface{}{
		"gt": 5.0,
		"lt": 10.0,
	}, s.Query["eo:cloud_cover"])
}

func TestNormalizeCollection(t *testing.T) {
	q := Query{Collection: "sentinel-s2-l2a"}

	s, err := q.Normalize()
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"eq": "sentinel-s2-l2a"}, s.Query["collection"])
	assert.Empty(t, s.IDs)
}

func TestNormalizeCollectionMergesWithProperties(t *testing.T) {
	q := Query{
		Collection: "landsat-8-l1",
		Properties: []string{"eo:cloud_cover<10"},
	}

	s, err := q.Normalize()
	require.NoError(t, err)

	assert.Len(t, s.Query, 2)
	assert.Equal(t, map[string]interface{}{"eq": "landsat-8-l1"}, s.Query["collection"])
	assert.Equal(t, map[string]interface{}{"lt": 10.0}, s.Query["eo:cloud_cover"])
}

func TestNormalizeSort(t *testing.T) {
	q := Query{
		Sort: []string{"-properties.datetime", "properties.eo:cloud_cover"},
	}

	s, err := q.Normalize()
	require.NoError(t, err)

	require.Len(t, s.Sort, 2)
	assert.Equal(t, SortSpec{Field: "properties.datetime", Direction: "desc"}, s.Sort[0])
	assert.Equal(t, SortSpec{Field: "properties.eo:cloud_cover", Direction: "asc"}, s.Sort[1])
}

func TestNormalizeSpatialAndTemporal(t *testing.T) {
	geometry := json.RawMessage(`{"type":"Point","coordinates":[12.5,52.5]}`)
	q := Query{
		Bbox:       []float64{12.0, 52.0, 13.0, 53.0},
		Intersects: geometry,
		Datetime:   "2019-06-01/2019-06-30",
	}

	s, err := q.Normalize()
	require.NoError(t, err)

	assert.Equal(t, q.Bbox, s.Bbox)
	assert.Equal(t, geometry, s.Intersects)
	assert.Equal(t, "2019-06-01/2019-06-30", s.Time)
}

func TestNormalizeIDsRequireCollection(t *testing.T) {
	q := Query{IDs: []string{"S2A_34JCL_20190620_0"}}

	_, err := q.Normalize()
	require.Error(t, err)

	var apiErr *errors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errors.ErrorTypeInvalidQuery, apiErr.Type)
}

func TestNormalizeLookupShortCircuits(t *testing.T) {
	q := Query{
		IDs:        []string{"item-1", "item-2"},
		Collection: "sentinel-s2-l2a",
		Bbox:       []float64{12.0, 52.0, 13.0, 53.0},
		Datetime:   "2019-06-01",
		Properties: []string{"eo:cloud_cover<10"},
		Sort:       []string{"-properties.datetime"},
	}

	s, err := q.Normalize()
	require.NoError(t, err)

	assert.True(t, s.IsLookup())
	assert.Equal(t, []string{"item-1", "item-2"}, s.IDs)
	assert.Equal(t, "sentinel-s2-l2a", s.Collection)

	// Every other filter is dropped
	assert.Nil(t, s.Bbox)
	assert.Empty(t, s.Time)
	assert.Nil(t, s.Query)
	assert.Nil(t, s.Sort)
}

func TestSearchJSONShape(t *testing.T) {
	q := Query{
		Bbox:       []float64{12.0, 52.0, 13.0, 53.0},
		Datetime:   "2019-06-01/2019-06-30",
		Properties: []string{"eo:cloud_cover<10"},
		Sort:       []string{"-properties.datetime"},
	}

	s, err := q.Normalize()
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	expected := `{
		"bbox": [12.0, 52.0, 13.0, 53.0],
		"time": "2019-06-01/2019-06-30",
		"query": {"eo:cloud_cover": {"lt": 10}},
		"sort": [{"field": "properties.datetime", "direction": "desc"}]
	}`
	assert.JSONEq(t, expected, string(data))
}

func TestParseBbox(t *testing.T) {
	t.Run("two dimensional", func(t *testing.T) {
		coords, err := ParseBbox("12.0,52.0,13.0,53.0")
		require.NoError(t, err)
		assert.Equal(t, []float64{12.0, 52.0, 13.0, 53.0}, coords)
	})

	t.Run("three dimensional", func(t *testing.T) {
		coords, err := ParseBbox("12.0,52.0,0,13.0,53.0,100")
		require.NoError(t, err)
		assert.Len(t, coords, 6)
	})

	t.Run("whitespace tolerated", func(t *testing.T) {
		coords, err := ParseBbox("12.0, 52.0, 13.0, 53.0")
		require.NoError(t, err)
		assert.Equal(t, []float64{12.0, 52.0, 13.0, 53.0}, coords)
	})

	t.Run("wrong coordinate count", func(t *testing.T) {
		_, err := ParseBbox("12.0,52.0,13.0")
		assert.Error(t, err)
	})

	t.Run("non numeric coordinate", func(t *testing.T) {
		_, err := ParseBbox("12.0,52.0,east,53.0")
		assert.Error(t, err)
	})
}
