package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlashPath(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]string{
		"":                          "",
		".":                         "",
		"  ./types/ticket.ts  ":     "types/ticket.ts",
		"flows/../types/index.d.ts": "types/index.d.ts",
		`types\nested\a.ts`:         "types/nested/a.ts",
		"/abs/project/":             "/abs/project",
	} {
		assert.Equal(t, want, SlashPath(input), "input %q", input)
	}
}

func TestWithinDir(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		file string
		dir  string
		want bool
	}{
		{name: "Same", file: "/work/flows", dir: "/work/flows", want: true},
		{name: "Nested", file: "/work/flows/notify.ts", dir: "/work/flows", want: true},
		{name: "Sibling", file: "/work/flows-old/notify.ts", dir: "/work/flows", want: false},
		{name: "Parent", file: "/work", dir: "/work/flows", want: false},
		{name: "Backslashes", file: `work\flows\notify.ts`, dir: "work/flows", want: true},
		{name: "Root", file: "/work/notify.ts", dir: "/", want: true},
		{name: "EmptyDir", file: "notify.ts", dir: "", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, WithinDir(tc.file, tc.dir))
		})
	}
}

func TestSortedKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"http", "slack", "storage"},
		SortedKeys(map[string]bool{"storage": true, "http": true, "slack": false}))
	assert.Equal(t, []int{3, 12}, SortedKeys(map[int]string{12: "b", 3: "a"}))
	assert.Empty(t, SortedKeys(map[string]int{}))
}

func TestTrimAll(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"types/**.ts", "lib/*.d.ts"},
		TrimAll([]string{" types/**.ts ", "", "  ", "lib/*.d.ts"}))
	assert.Empty(t, TrimAll(nil))
}
