package queue

import (
	"testing"
	"time"

	"go-catalog-search/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	event, err := Decode([]byte(`{
		"event_id":"e-1","kind":"updated","item_id":"i-1",
		"delta":-3,"total_after":9,"occurred_at":"2026-10-01T12:00:00Z"
	}`))
	require.NoError(t, err)

	assert.Equal(t, models.ItemEvent{
		EventID:    "e-1",
		Kind:       models.EventUpdated,
		ItemID:     "i-1",
		Delta:      -3,
		TotalAfter: 9,
		OccurredAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}, event)
}

func TestDecode_Rejects(t *testing.T) {
	for name, body := range map[string]string{
		"not json":     `{`,
		"missing id":   `{"kind":"created","item_id":"i"}`,
		"missing item": `{"event_id":"e","kind":"created"}`,
		"unknown kind": `{"event_id":"e","kind":"moved","item_id":"i"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(body))
			assert.Error(t, err)
		})
	}
}
