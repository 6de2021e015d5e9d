package roster

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadYAML(t *testing.T) {
	src := `
- name: Ana Souza
  role: Analyst
  department: Finance
- name: Bruno Lima
  department: IT
`
	got, err := ReadYAML(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ana Souza", got[0].Name)
	assert.Equal(t, "Analyst", got[0].Role)
	assert.Equal(t, "", got[1].Role)
	assert.Equal(t, "IT", got[1].Department)
}

func TestReadYAML_Empty(t *testing.T) {
	_, err := ReadYAML(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyRoster)
}

func TestReadYAML_Malformed(t *testing.T) {
	_, err := ReadYAML(strings.NewReader("name: [unterminated"))
	assert.Error(t, err)
}
