package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Default(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	require.Len(t, c.Shop, 2)
	assert.Equal(t, "Upper Wear", c.Shop[0].Name)
	assert.Equal(t, "Lower Wear", c.Shop[1].Name)
	assert.Equal(t, "$120.99", c.Shop[0].Products[0].Price)
	assert.NotEmpty(t, c.Library)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
library:
  - id: tee
    image: https://cdn.example.com/tee.png
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	g, err := c.Garment("tee")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/tee.png", g.Image)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("library:\n  - id: a\n    image: /a.png\n  - id: a\n    image: /b.png\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = Parse([]byte("shop:\n  - name: Upper Wear\n    products:\n      - id: p\n        garment: nope\n"))
	assert.ErrorContains(t, err, "unknown garment")

	_, err = Parse([]byte("shop: ["))
	assert.Error(t, err)
}

func TestGarment_NotFound(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	_, err = c.Garment("does-not-exist")
	assert.ErrorIs(t, err, ErrGarmentNotFound)
}

func TestGarment_ImageURL(t *testing.T) {
	g := Garment{ID: "s", Image: "/stussy.png"}

	u, err := g.ImageURL("https://ootd.example.com/app/")
	require.NoError(t, err)
	assert.Equal(t, "https://ootd.example.com/app/stussy.png", u)

	_, err = g.ImageURL("")
	assert.Error(t, err)

	abs := Garment{ID: "t", Image: "https://cdn.example.com/t.png"}
	u, err = abs.ImageURL("")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/t.png", u)
}
