package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildKeyIsDeterministic(t *testing.T) {
	c := &QueryCache{}
	k1 := c.buildKey("products", "hello world", map[string][]float64{"x": {1, 2}}, 10)
	k2 := c.buildKey("products", "hello world", map[string][]float64{"x": {1, 2}}, 10)
	assert.Equal(t, k1, k2)
	assert.Contains(t, k1, keyPrefix)
}

func TestBuildKeyDiffersByQuery(t *testing.T) {
	c := &QueryCache{}
	k1 := c.buildKey("products", "hello", nil, 10)
	k2 := c.buildKey("products", "world", nil, 10)
	assert.NotEqual(t, k1, k2)
}

func TestBuildKeyDiffersByIndex(t *testing.T) {
	c := &QueryCache{}
	k1 := c.buildKey("products", "hello", nil, 10)
	k2 := c.buildKey("catalog", "hello", nil, 10)
	assert.NotEqual(t, k1, k2)
}

func TestBuildKeyDiffersByLimit(t *testing.T) {
	c := &QueryCache{}
	k1 := c.buildKey("products", "hello", nil, 10)
	k2 := c.buildKey("products", "hello", nil, 20)
	assert.NotEqual(t, k1, k2)
}

func TestBuildKeyDiffersByParams(t *testing.T) {
	c := &QueryCache{}
	k1 := c.buildKey("products", "hello", map[string][]float64{"x": {1}}, 10)
	k2 := c.buildKey("products", "hello", map[string][]float64{"x": {2}}, 10)
	assert.NotEqual(t, k1, k2)
}

func TestStatsTracksHitsAndMisses(t *testing.T) {
	c := &QueryCache{}
	c.hits.Add(3)
	c.misses.Add(1)
	hits, misses := c.Stats()
	assert.EqualValues(t, 3, hits)
	assert.EqualValues(t, 1, misses)
}
