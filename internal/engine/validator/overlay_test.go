package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlay_Versions(t *testing.T) {
	o := NewOverlay()
	assert.Equal(t, 0, o.Version("a.ts"))

	assert.Equal(t, 1, o.Set("a.ts", "one"))
	assert.Equal(t, 2, o.BumpVersion("a.ts"))
	assert.Equal(t, 3, o.Set("a.ts", "three"))

	content, ok := o.Content("a.ts")
	assert.True(t, ok)
	assert.Equal(t, "three", content)

	assert.Equal(t, 1, o.BumpVersion("b.ts"), "bumping an unknown path creates it")
	assert.Equal(t, []string{"a.ts", "b.ts"}, o.Paths())
}

func TestOverlay_DropVirtualFile(t *testing.T) {
	o := NewOverlay()
	o.Set("a.ts", "x")
	o.Set("a.ts", "y")

	assert.True(t, o.DropVirtualFile("a.ts"))
	assert.False(t, o.DropVirtualFile("a.ts"))
	assert.Empty(t, o.Paths())

	_, ok := o.Content("a.ts")
	assert.False(t, ok)
	assert.Equal(t, 1, o.Set("a.ts", "z"), "a dropped path starts over")
}
