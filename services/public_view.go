package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yeremiapane/restaurant-queue/models"
)

// PublicEntry is the part of a queue entry anonymous clients may see. It
// never carries the phone number, and the name is masked.
type PublicEntry struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	PartySize   int                   `json:"partySize"`
	Status      models.CustomerStatus `json:"status"`
	TableNumber *int                  `json:"tableNumber"`
	JoinedAt    time.Time             `json:"joinedAt"`
	WaitTimeView
}

func (e QueueEntry) Public() PublicEntry {
	return PublicEntry{
		ID:           e.ID,
		Name:         MaskName(e.Name),
		PartySize:    e.PartySize,
		Status:       e.Status,
		TableNumber:  e.TableNumber,
		JoinedAt:     e.JoinedAt,
		WaitTimeView: e.WaitTimeView,
	}
}

func PublicEntries(entries []QueueEntry) []PublicEntry {
	out := make([]PublicEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Public())
	}
	return out
}

// MaskName keeps the first letter of every word: "Rina Wati" -> "R*** W***".
func MaskName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		first, _ := utf8.DecodeRuneInString(w)
		words[i] = string(first) + "***"
	}
	return strings.Join(words, " ")
}
