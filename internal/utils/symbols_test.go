package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "2330.TW", NormalizeSymbol(" 2330.tw "))
	assert.Equal(t, "0050", NormalizeSymbol("0050"))
	assert.Equal(t, "", NormalizeSymbol("   "))
}
