package ingestion

import (
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// splitPassages breaks page text into overlapping passages on sentence
// boundaries. chunkWords is the target passage length in words;
// strideWords is how far consecutive passages overlap. Sentence
// segmentation keeps passages readable instead of cutting mid-clause.
func splitPassages(text string, chunkWords, strideWords int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if chunkWords <= 0 {
		chunkWords = 800
	}
	if strideWords < 0 || strideWords >= chunkWords {
		strideWords = 0
	}

	sentences := segment(text)
	if len(sentences) == 0 {
		return nil
	}

	var passages []string
	start := 0
	for start < len(sentences) {
		words := 0
		end := start
		for end < len(sentences) && words < chunkWords {
			words += len(strings.Fields(sentences[end]))
			end++
		}

		passages = append(passages, strings.Join(sentences[start:end], " "))

		if end >= len(sentences) {
			break
		}

		// Step back far enough to cover the stride overlap.
		next := end
		overlap := 0
		for next > start+1 && overlap < strideWords {
			next--
			overlap += len(strings.Fields(sentences[next]))
		}
		start = next
	}

	return passages
}

func segment(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithTagging(false),
	)
	if err != nil {
		// Fall back to the raw text as a single sentence.
		return []string{text}
	}

	var sentences []string
	for _, s := range doc.Sentences() {
		trimmed := strings.TrimSpace(s.Text)
		if trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}

	if len(sentences) == 0 {
		return []string{text}
	}
	return sentences
}
