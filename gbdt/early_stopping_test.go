package gbdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEarlyStopping(t *testing.T) {
	es := NewEarlyStopping(2)
	assert.False(t, es.Update(0, 1.0))
	assert.False(t, es.Update(1, 0.8))
	assert.False(t, es.Update(2, 0.9))
	assert.True(t, es.Update(3, 0.8), "equal score is not an improvement")
	assert.Equal(t, 1, es.BestIteration)
	assert.Equal(t, 0.8, es.BestScore)
	assert.True(t, es.ShouldStop())
}

func TestEarlyStoppingDisabled(t *testing.T) {
	es := NewEarlyStopping(0)
	for i := 0; i < 100; i++ {
		assert.False(t, es.Update(i, float64(i)))
	}
	assert.False(t, es.ShouldStop())
	assert.Equal(t, -1, es.BestIteration)
}
