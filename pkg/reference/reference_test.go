package reference

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReference_Format(t *testing.T) {
	g := NewGenerator()
	pattern := regexp.MustCompile(`^MC-[A-Z0-9]{8}$`)

	for i := 0; i < 100; i++ {
		ref, err := g.NewReference()
		require.NoError(t, err)
		assert.Regexp(t, pattern, ref)
	}
}

func TestPick_UniformOverAlphabet(t *testing.T) {
	counts := make(map[byte]int, len(alphabet))
	rejected := 0

	for b := 0; b < 256; b++ {
		c, ok := pick(byte(b))
		if !ok {
			rejected++
			continue
		}
		counts[c]++
	}

	assert.Equal(t, 256-rejectAt, rejected, "only the uneven tail of the byte range is rejected")
	for i := 0; i < len(alphabet); i++ {
		assert.Equal(t, rejectAt/len(alphabet), counts[alphabet[i]],
			"character %c must map from exactly as many byte values as every other", alphabet[i])
	}
}

func TestPick_RejectsTailBytes(t *testing.T) {
	for b := rejectAt; b < 256; b++ {
		_, ok := pick(byte(b))
		assert.False(t, ok, "byte %d must be rejected", b)
	}
	_, ok := pick(byte(rejectAt - 1))
	assert.True(t, ok)
}

func TestNewReference_NoImmediateCollisions(t *testing.T) {
	g := NewGenerator()
	seen := make(map[string]struct{}, 10000)

	for i := 0; i < 10000; i++ {
		ref, err := g.NewReference()
		require.NoError(t, err)
		_, dup := seen[ref]
		require.False(t, dup, "reference %s repeated within 10k draws", ref)
		seen[ref] = struct{}{}
	}
}
