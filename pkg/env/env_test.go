package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	t.Setenv("RENTMARKET_TEST_VALUE", "  console ")
	t.Setenv("RENTMARKET_TEST_BLANK", "   ")

	assert.Equal(t, "console", Get("RENTMARKET_TEST_VALUE", "json"))
	assert.Equal(t, "json", Get("RENTMARKET_TEST_BLANK", "json"))
	assert.Equal(t, "json", Get("RENTMARKET_TEST_UNSET", "json"))
}

func TestFirst(t *testing.T) {
	t.Setenv("RENTMARKET_TEST_SECOND", "b")

	assert.Equal(t, "b", First("z", "RENTMARKET_TEST_FIRST", "RENTMARKET_TEST_SECOND"))
	assert.Equal(t, "z", First("z", "RENTMARKET_TEST_FIRST"))
}

func TestBool(t *testing.T) {
	t.Setenv("RENTMARKET_TEST_BOOL", "true")
	t.Setenv("RENTMARKET_TEST_BAD", "maybe")

	assert.True(t, Bool("RENTMARKET_TEST_BOOL", false))
	assert.True(t, Bool("RENTMARKET_TEST_BAD", true))
	assert.False(t, Bool("RENTMARKET_TEST_UNSET", false))
}
