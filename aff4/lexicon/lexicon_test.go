package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForReturnsDistinctVariants(t *testing.T) {
	assert.Equal(t, "http://aff4.org/Schema#Map", For(Standard).Map)
	assert.Equal(t, "http://afflib.org/2009/aff4#map", For(PreStandard).Map)
	assert.Equal(t, "http://aff4.org/Schema#map", For(Scudette).Map)
}

func TestHashTypeURNCoversAllAlgorithms(t *testing.T) {
	for _, name := range []string{"md5", "sha1", "sha256", "sha512", "blake2b"} {
		_, ok := HashTypeURN[name]
		assert.True(t, ok, "missing hash type URN for %s", name)
	}
}
