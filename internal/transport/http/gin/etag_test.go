package httpgin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestETagMatches(t *testing.T) {
	tag := weakETag([]byte(`{"remaining":12}`))

	cases := []struct {
		header string
		want   bool
	}{
		{"", false},
		{tag, true},
		{"*", true},
		{`"other", ` + tag, true},
		{tag[2:], true},
		{`W/"other"`, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, etagMatches(tc.header, tag), "header %q", tc.header)
	}
}

func TestWeakETagStable(t *testing.T) {
	a := weakETag([]byte("x"))
	assert.Equal(t, a, weakETag([]byte("x")))
	assert.NotEqual(t, a, weakETag([]byte("y")))
	assert.True(t, len(a) > 4 && a[:3] == `W/"`)
}
