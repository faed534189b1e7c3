package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1", placeholder(1))
	assert.Equal(t, "$1, $2, $3", placeholders(3))
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%あかり%", containsPattern("あかり"))
	assert.Equal(t, `%100\%\_\\%`, containsPattern(`100%_\`))
}
