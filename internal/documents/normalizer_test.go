package documents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKeepsOldestDuplicate(t *testing.T) {
	raw := []RawDocument{
		{ID: "a", DocType: "VLR", Geography: "CA", Year: "2020", CreatedAt: 2021},
		{ID: "a", DocType: "VLR", Geography: "CA", Year: "2020", CreatedAt: 2020},
		{ID: "b", DocType: "VLR", Geography: "TX", Year: "2021", CreatedAt: 2019},
	}

	docs := Normalize(raw)

	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, "a", docs[1].ID)

	keys := make(map[string]bool)
	for _, d := range docs {
		key := DedupeKey(d)
		assert.False(t, keys[key], "duplicate key %s", key)
		keys[key] = true
	}
}

func TestNormalizeSortsByCreatedAt(t *testing.T) {
	raw := []RawDocument{
		{ID: "c", DocType: "VLR", Year: "2022", CreatedAt: 300},
		{ID: "a", DocType: "VLR", Year: "2020", CreatedAt: 100},
		{ID: "b", DocType: "VLR", Year: "2021", CreatedAt: 200},
	}

	docs := Normalize(raw)

	require.Len(t, docs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{docs[0].ID, docs[1].ID, docs[2].ID})
}

func TestNormalizeDropsUntypedRecords(t *testing.T) {
	raw := []RawDocument{
		{ID: "a", DocType: "VLR", Year: "2020"},
		{ID: "b", DocType: "", Year: "2020"},
	}

	docs := Normalize(raw)

	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)
}

func TestNormalizeCyclesColors(t *testing.T) {
	raw := make([]RawDocument, 12)
	for i := range raw {
		raw[i] = RawDocument{
			ID:        string(rune('a' + i)),
			DocType:   "VLR",
			Year:      "2020",
			CreatedAt: int64(i),
		}
	}

	docs := Normalize(raw)

	require.Len(t, docs, 12)
	for _, d := range docs {
		assert.NotEmpty(t, d.Color)
	}
	// The palette wraps after ten documents.
	assert.Equal(t, docs[0].Color, docs[10].Color)
	assert.Equal(t, docs[1].Color, docs[11].Color)
	assert.NotEqual(t, docs[0].Color, docs[1].Color)
}

func TestNormalizeSameIDDifferentYearSurvives(t *testing.T) {
	raw := []RawDocument{
		{ID: "a", DocType: "VLR", Year: "2020", CreatedAt: 1},
		{ID: "a", DocType: "VLR", Year: "2021", CreatedAt: 2},
		{ID: "a", DocType: "VLR", Year: "2020", Quarter: "Q2", CreatedAt: 3},
	}

	docs := Normalize(raw)

	assert.Len(t, docs, 3)
}

func TestNormalizePrefersURLOverSourceURL(t *testing.T) {
	raw := []RawDocument{
		{ID: "a", DocType: "VLR", Year: "2020", URL: "https://x/a.pdf", SourceURL: "https://y/a.pdf"},
		{ID: "b", DocType: "VLR", Year: "2020", SourceURL: "https://y/b.pdf"},
	}

	docs := Normalize(raw)

	require.Len(t, docs, 2)
	assert.Equal(t, "https://x/a.pdf", docs[0].URL)
	assert.Equal(t, "https://y/b.pdf", docs[1].URL)
}

func TestNormalizeFallsBackToDocTypeName(t *testing.T) {
	raw := []RawDocument{
		{ID: "a", DocType: "VLR", Year: "2020"},
	}

	docs := Normalize(raw)

	require.Len(t, docs, 1)
	assert.Equal(t, "VLR", docs[0].FullName)
}

func TestFindByID(t *testing.T) {
	docs := Normalize([]RawDocument{
		{ID: "a", DocType: "VLR", Year: "2020"},
		{ID: "b", DocType: "VLR", Year: "2021"},
	})

	found := FindByID("b", docs)
	require.NotNil(t, found)
	assert.Equal(t, "2021", found.Year)

	assert.Nil(t, FindByID("missing", docs))
}
