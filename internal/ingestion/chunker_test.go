package ingestion

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentenceText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(fmt.Sprintf("Sentence number %d reports on local emissions data. ", i))
	}
	return b.String()
}

func TestSplitPassagesEmptyText(t *testing.T) {
	assert.Nil(t, splitPassages("", 800, 200))
	assert.Nil(t, splitPassages("   \n\t  ", 800, 200))
}

func TestSplitPassagesShortTextSinglePassage(t *testing.T) {
	passages := splitPassages("One short sentence about emissions.", 800, 200)

	require.Len(t, passages, 1)
	assert.Contains(t, passages[0], "emissions")
}

func TestSplitPassagesProducesMultipleChunks(t *testing.T) {
	text := sentenceText(40)

	passages := splitPassages(text, 50, 10)

	require.Greater(t, len(passages), 1)
	for _, p := range passages {
		assert.NotEmpty(t, strings.TrimSpace(p))
	}
}

func TestSplitPassagesCoversAllSentences(t *testing.T) {
	n := 30
	text := sentenceText(n)

	passages := splitPassages(text, 40, 0)

	joined := strings.Join(passages, " ")
	for i := 0; i < n; i++ {
		assert.Contains(t, joined, fmt.Sprintf("Sentence number %d ", i))
	}
}

func TestSplitPassagesOverlap(t *testing.T) {
	text := sentenceText(40)

	withOverlap := splitPassages(text, 50, 20)
	withoutOverlap := splitPassages(text, 50, 0)

	// Overlap re-covers trailing sentences, so it never yields fewer
	// passages.
	assert.GreaterOrEqual(t, len(withOverlap), len(withoutOverlap))
}

func TestSplitPassagesDefaultsOnBadParams(t *testing.T) {
	text := sentenceText(5)

	// Zero chunk size falls back to the default instead of looping.
	passages := splitPassages(text, 0, 0)
	require.Len(t, passages, 1)

	// A stride at or above the chunk size is ignored.
	passages = splitPassages(text, 10, 50)
	assert.NotEmpty(t, passages)
}
