package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/territory-cli/internal/model"
)

func TestParsePoints(t *testing.T) {
	got, err := parsePoints("43.0,-80.0; 44.0,-80.0 ;44.0,-79.0")
	require.NoError(t, err)
	assert.Equal(t, []model.LatLng{
		{Lat: 43.0, Lng: -80.0},
		{Lat: 44.0, Lng: -80.0},
		{Lat: 44.0, Lng: -79.0},
	}, got)
}

func TestParsePoints_TrailingSeparator(t *testing.T) {
	got, err := parsePoints("1,2;3,4;")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestParsePoints_Invalid(t *testing.T) {
	_, err := parsePoints("1,2;nonsense")
	assert.ErrorContains(t, err, "invalid point")

	_, err = parsePoints("abc,2")
	assert.ErrorContains(t, err, "invalid latitude")

	_, err = parsePoints("1,xyz")
	assert.ErrorContains(t, err, "invalid longitude")
}
