package reading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingOf(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	assert.Equal(t, "いぬ", a.ReadingOf("犬"))
	assert.Equal(t, "てすと", a.ReadingOf("テスト"))
	assert.Equal(t, "ねこ", a.ReadingOf("ねこ"))
	assert.Equal(t, "", a.ReadingOf("  "))
}
