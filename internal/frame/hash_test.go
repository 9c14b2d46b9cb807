package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pattern builds a 64x64 record: 1 = checkerboard, 2 = horizontal gradient.
func pattern(kind int) *Record {
	const size = 64
	pix := make([]byte, size*size*BytesPerPixel)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := (x + y*size) * BytesPerPixel
			switch kind {
			case 1:
				v := byte(0)
				if (x/8+y/8)%2 == 0 {
					v = 255
				}
				pix[i], pix[i+1], pix[i+2] = v, v, v
			case 2:
				pix[i], pix[i+1], pix[i+2] = byte(x*4), 0, byte(255-x*4)
			}
			pix[i+3] = 255
		}
	}
	return New(size, size, pix, testTime)
}

func TestFingerprintIdentical(t *testing.T) {
	a, b := pattern(1), pattern(1)
	_, err := a.Fingerprint()
	require.NoError(t, err)
	_, err = b.Fingerprint()
	require.NoError(t, err)

	d, ok := Distance(a, b)
	require.True(t, ok)
	assert.Equal(t, 0, d)
	assert.True(t, NearDuplicate(a, b))
}

func TestFingerprintDistinct(t *testing.T) {
	a, b := pattern(1), pattern(2)
	_, err := a.Fingerprint()
	require.NoError(t, err)
	_, err = b.Fingerprint()
	require.NoError(t, err)

	assert.False(t, NearDuplicate(a, b))
}

func TestDistanceWithoutHash(t *testing.T) {
	a := pattern(1)
	_, ok := Distance(a, pattern(1))
	assert.False(t, ok)
	assert.False(t, NearDuplicate(a, nil))
}

func TestFingerprintCorrupt(t *testing.T) {
	r := New(8, 8, make([]byte, 3), testTime)
	_, err := r.Fingerprint()
	assert.Error(t, err)
}
