package safeconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampIntToUint32(t *testing.T) {
	t.Parallel()

	t.Run("normal_value", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint32(10000), ClampIntToUint32(10000))
	})

	t.Run("zero", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint32(0), ClampIntToUint32(0))
	})

	t.Run("negative_clamps_to_zero", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint32(0), ClampIntToUint32(-5))
	})

	t.Run("max_uint32", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, MaxUint32, ClampIntToUint32(math.MaxUint32))
	})

	t.Run("overflow_saturates", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, MaxUint32, ClampIntToUint32(math.MaxInt))
	})
}
