package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/utils"
)

func TestRedisFeed_Decode(t *testing.T) {
	utils.InitLogger("warn")
	feed := NewRedisFeed(nil, "changes", "proc-a")

	encode := func(origin string) string {
		data, err := json.Marshal(models.DBChange{ID: 7, Collection: models.CollectionTables, RecordID: "t1", Origin: origin})
		require.NoError(t, err)
		return string(data)
	}

	tests := []struct {
		name    string
		payload string
		wantOK  bool
	}{
		{name: "foreign change", payload: encode("proc-b"), wantOK: true},
		{name: "own change is dropped", payload: encode("proc-a")},
		{name: "garbage", payload: "{not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, ok := feed.decode(tt.payload)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, models.CollectionTables, change.Collection)
				assert.Equal(t, "t1", change.RecordID)
			}
		})
	}
}
