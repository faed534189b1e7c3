package sqlite

import (
	"database/sql/driver"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?, ?, ?", placeholders(3))
	assert.Equal(t, "", placeholders(0))
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, `%\%\_%`, containsPattern("%_"))
}

func TestIDArgs(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, []any{id}, idArgs([]uuid.UUID{id}))
}

func TestUnicodeLower(t *testing.T) {
	for input, want := range map[string]string{
		"École":  "école",
		"ＡＢＣ":    "ａｂｃ",
		"ゆるゆり":   "ゆるゆり",
		`100\%`: `100\%`,
	} {
		got, err := unicodeLower(nil, []driver.Value{input})
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := unicodeLower(nil, []driver.Value{nil})
	assert.NoError(t, err)
	assert.Nil(t, got)
}
