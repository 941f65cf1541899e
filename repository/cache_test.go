package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisCacheKeys(t *testing.T) {
	for prefix, want := range map[string]string{
		"civicpulse":  "civicpulse:stats:public",
		"civicpulse:": "civicpulse:stats:public",
		"":            "stats:public",
	} {
		assert.Equal(t, want, NewRedisCache(nil, prefix).key("stats:public"), prefix)
	}
}
