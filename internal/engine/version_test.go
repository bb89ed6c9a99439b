package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pddg/sparkly/internal/engine"
)

func Test_StandardComparator_CompareVersions(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		a, b string
		want int
	}{
		{a: "1.0", b: "1.0", want: 0},
		{a: "1.2", b: "1.10", want: -1},
		{a: "2.0", b: "1.9.9", want: 1},
		{a: "1.0", b: "1.0.1", want: -1},
		{a: "1.0b1", b: "1.0", want: -1},
		{a: "1.0b1", b: "1.0b2", want: -1},
		{a: "1.0a9", b: "1.0b1", want: -1},
		{a: "1.0b1", b: "1.0.1", want: -1},
		{a: "2.0 beta", b: "2.0", want: -1},
		{a: "120", b: "99", want: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.a+" vs "+tc.b, func(t *testing.T) {
			t.Parallel()
			c := engine.StandardComparator{}
			assert.Equal(t, tc.want, c.CompareVersions(tc.a, tc.b))
			assert.Equal(t, -tc.want, c.CompareVersions(tc.b, tc.a), "comparison must be antisymmetric")
		})
	}
}

func Test_VersionComparatorFunc(t *testing.T) {
	t.Parallel()
	var c engine.VersionComparator = engine.VersionComparatorFunc(func(a, b string) int { return 1 })
	assert.Equal(t, 1, c.CompareVersions("1", "2"))
}

func Test_Error(t *testing.T) {
	t.Parallel()
	err := &engine.Error{Domain: "SUSparkleErrorDomain", Code: 1001, Message: "network unreachable"}
	assert.EqualError(t, err, "network unreachable (SUSparkleErrorDomain 1001)")
}
