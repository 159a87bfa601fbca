package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govscan/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.InitSchema())
	return client
}

func seedDocuments(t *testing.T, c *Client) {
	t.Helper()
	for _, d := range []models.Document{
		{ID: "d1", DocType: "VLR", Geography: "CA", Year: "2020", URL: "https://x/d1.pdf", CreatedAt: time.Now()},
		{ID: "d2", DocType: "VLR", Geography: "TX", Year: "2021", URL: "https://x/d2.pdf", CreatedAt: time.Now()},
	} {
		d := d
		require.NoError(t, c.InsertDocument(&d))
	}
}

func TestInsertAndListDocuments(t *testing.T) {
	c := newTestClient(t)
	seedDocuments(t, c)

	docs, err := c.ListDocuments()
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestInsertDocumentUpsert(t *testing.T) {
	c := newTestClient(t)
	seedDocuments(t, c)

	updated := models.Document{ID: "d1", DocType: "VSR", Geography: "CA", Year: "2020", URL: "https://x/new.pdf", CreatedAt: time.Now()}
	require.NoError(t, c.InsertDocument(&updated))

	docs, err := c.GetDocumentsByID([]string{"d1"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "VSR", docs[0].DocType)
	assert.Equal(t, "https://x/new.pdf", docs[0].URL)
}

func TestGetDocumentsByIDSkipsMissing(t *testing.T) {
	c := newTestClient(t)
	seedDocuments(t, c)

	docs, err := c.GetDocumentsByID([]string{"d1", "ghost", "d2"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestCreateAndGetConversation(t *testing.T) {
	c := newTestClient(t)
	seedDocuments(t, c)

	conv := models.Conversation{ID: "conv1", DocumentIDs: []string{"d1", "d2"}, CreatedAt: time.Now()}
	require.NoError(t, c.CreateConversation(&conv))

	got, err := c.GetConversation("conv1")
	require.NoError(t, err)
	assert.Equal(t, "conv1", got.ID)
	assert.ElementsMatch(t, []string{"d1", "d2"}, got.DocumentIDs)
}

func TestCreateConversationUnknownDocumentRollsBack(t *testing.T) {
	c := newTestClient(t)
	seedDocuments(t, c)

	conv := models.Conversation{ID: "conv1", DocumentIDs: []string{"d1", "ghost"}, CreatedAt: time.Now()}
	require.Error(t, c.CreateConversation(&conv))

	// The conversation row must not survive the failed link.
	_, err := c.GetConversation("conv1")
	assert.Error(t, err)
}

func TestListMessagesOrderedByCreatedAt(t *testing.T) {
	c := newTestClient(t)
	seedDocuments(t, c)
	require.NoError(t, c.CreateConversation(&models.Conversation{ID: "conv1", DocumentIDs: []string{"d1"}, CreatedAt: time.Now()}))

	base := time.Now()

	// Inserted out of order; the assistant reply lands 50ms after the
	// user message, inside the same second.
	require.NoError(t, c.InsertMessage(&models.Message{
		ID: "m2", ConversationID: "conv1", Role: models.RoleAssistant,
		Content: "answer", Status: models.StatusSuccess, CreatedAt: base.Add(50 * time.Millisecond),
	}))
	require.NoError(t, c.InsertMessage(&models.Message{
		ID: "m1", ConversationID: "conv1", Role: models.RoleUser,
		Content: "question", Status: models.StatusSuccess, CreatedAt: base,
	}))

	msgs, err := c.ListMessages("conv1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, models.StatusSuccess, msgs[1].Status)
}

func TestCitationsByMessageAndConversation(t *testing.T) {
	c := newTestClient(t)
	seedDocuments(t, c)
	require.NoError(t, c.CreateConversation(&models.Conversation{ID: "conv1", DocumentIDs: []string{"d1", "d2"}, CreatedAt: time.Now()}))
	require.NoError(t, c.CreateConversation(&models.Conversation{ID: "conv2", DocumentIDs: []string{"d1"}, CreatedAt: time.Now()}))

	require.NoError(t, c.InsertMessage(&models.Message{
		ID: "m1", ConversationID: "conv1", Role: models.RoleAssistant,
		Content: "a", Status: models.StatusSuccess, CreatedAt: time.Now(),
	}))
	require.NoError(t, c.InsertMessage(&models.Message{
		ID: "m2", ConversationID: "conv2", Role: models.RoleAssistant,
		Content: "b", Status: models.StatusSuccess, CreatedAt: time.Now(),
	}))

	require.NoError(t, c.InsertCitation(&models.Citation{ID: "c1", MessageID: "m1", DocumentID: "d1", PageNumber: 3, Score: 0.1, Text: "x"}))
	require.NoError(t, c.InsertCitation(&models.Citation{ID: "c2", MessageID: "m1", DocumentID: "d2", PageNumber: 7, Score: 0.4, Text: "y"}))
	require.NoError(t, c.InsertCitation(&models.Citation{ID: "c3", MessageID: "m2", DocumentID: "d1", PageNumber: 1, Score: 0.2, Text: "z"}))

	byMsg, err := c.ListCitationsByMessage("m1")
	require.NoError(t, err)
	assert.Len(t, byMsg, 2)

	byConv, err := c.ListCitationsByConversation("conv1")
	require.NoError(t, err)
	require.Len(t, byConv, 2)
	for _, cit := range byConv {
		assert.Equal(t, "m1", cit.MessageID)
	}
}

func TestInsertPassage(t *testing.T) {
	c := newTestClient(t)
	seedDocuments(t, c)

	require.NoError(t, c.InsertPassage(&models.Passage{
		ID: "p1", DocumentID: "d1", PageNumber: 2, Index: 0,
		Text: "passage text", CreatedAt: time.Now(),
	}))
}
