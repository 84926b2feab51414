package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-queue/models"
)

func TestMaskName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "single word", in: "Rina", want: "R***"},
		{name: "several words", in: "Rina  Wati Sari", want: "R*** W*** S***"},
		{name: "multibyte", in: "Élodie", want: "É***"},
		{name: "empty", in: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskName(tt.in))
		})
	}
}

func TestQueueEntry_PublicHidesContactDetails(t *testing.T) {
	table := 4
	entry := QueueEntry{
		Customer: models.Customer{
			ID:          "c1",
			Name:        "Rina Wati",
			Phone:       "0812345678",
			PartySize:   3,
			Status:      models.CustomerAssigned,
			TableNumber: &table,
		},
		WaitTimeView: WaitTimeView{Calculated: 4.5},
	}

	data, err := json.Marshal(PublicEntries([]QueueEntry{entry}))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "0812345678")
	assert.NotContains(t, string(data), "phone")
	assert.NotContains(t, string(data), "Rina")

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "R*** W***", decoded[0]["name"])
	assert.Equal(t, float64(4), decoded[0]["tableNumber"])
	assert.Equal(t, 4.5, decoded[0]["calculatedWaitTime"])
}
