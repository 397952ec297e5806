package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"promo=true", "count=1", "discount=0.25", "code=SPRING", "empty="})
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"promo":    true,
		"count":    int64(1),
		"discount": 0.25,
		"code":     "SPRING",
		"empty":    "",
	}, params)

	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)

	_, err = parseParams([]string{"=x"})
	assert.Error(t, err)
}
