package regions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_HasReferenceRegions(t *testing.T) {
	c := Builtin()

	assert.Equal(t, []string{"Ontario", "Québec"}, c.Names())

	on, err := c.Get("Ontario")
	require.NoError(t, err)
	assert.Equal(t, 56.0, on.Bounds.North)
	assert.Equal(t, -95.0, on.Bounds.West)
	assert.Equal(t, 43.6532, on.Center.Lat)

	qc, err := c.Get("Québec")
	require.NoError(t, err)
	assert.NotEqual(t, on.Bounds, qc.Bounds)
	assert.Contains(t, qc.Cities, "Montréal")
}

func TestCatalog_Get_Unknown(t *testing.T) {
	c := Builtin()
	_, err := c.Get("Atlantis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown region")
	assert.False(t, c.Has("Atlantis"))
}

func TestCatalog_LoadFile(t *testing.T) {
	doc := `regions:
  - name: Manitoba
    bounds:
      north: 60.0
      south: 49.0
      east: -89.0
      west: -102.0
    center:
      lat: 49.8951
      lng: -97.1384
    cities: [Winnipeg, Brandon]
`
	path := filepath.Join(t.TempDir(), "regions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c := Builtin()
	require.NoError(t, c.LoadFile(path))

	assert.Equal(t, []string{"Ontario", "Québec", "Manitoba"}, c.Names())
	mb, err := c.Get("Manitoba")
	require.NoError(t, err)
	assert.Equal(t, 60.0, mb.Bounds.North)
	assert.Equal(t, []string{"Winnipeg", "Brandon"}, mb.Cities)
}

func TestCatalog_LoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing name",
			doc: `regions:
  - bounds: {north: 1.0, south: 0.0, east: 1.0, west: 0.0}
`,
			want: "without a name",
		},
		{
			name: "empty latitude span",
			doc: `regions:
  - name: Flat
    bounds: {north: 1.0, south: 1.0, east: 1.0, west: 0.0}
`,
			want: "empty latitude span",
		},
		{
			name: "empty longitude span",
			doc: `regions:
  - name: Thin
    bounds: {north: 1.0, south: 0.0, east: 0.0, west: 0.0}
`,
			want: "empty longitude span",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "regions.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0o644))

			err := Builtin().LoadFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCatalog_LoadFile_NotFound(t *testing.T) {
	err := Builtin().LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
