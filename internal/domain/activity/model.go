package activity

import (
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Activity is a named event with a schedule, a capacity and the emails already signed up.
// The backend is the source of truth; values here are a read-only copy from the last fetch.
type Activity struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	Participants    []string
}

// details is the per-activity JSON shape served by GET /activities.
type details struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

var (
	ErrEmptyPayload = errors.New("activity payload is empty")
)

// SpotsLeft returns the remaining capacity.
// The backend is trusted to keep participants within capacity, so the result can be negative.
// INVARIANT: a is not mutated
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// HasParticipants reports whether anyone is signed up.
func (a Activity) HasParticipants() bool {
	return len(a.Participants) > 0
}

// DecodeCollection parses the name -> details object returned by GET /activities.
// PRE: data is a JSON object
// POST: Returns activities in the key order the backend sent them (not sorted)
func DecodeCollection(data []byte) ([]Activity, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	om := orderedmap.New[string, details]()
	if err := json.Unmarshal(data, om); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}

	out := make([]Activity, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		participants := pair.Value.Participants
		if participants == nil {
			participants = []string{}
		}
		out = append(out, Activity{
			Name:            pair.Key,
			Description:     pair.Value.Description,
			Schedule:        pair.Value.Schedule,
			MaxParticipants: pair.Value.MaxParticipants,
			Participants:    participants,
		})
	}
	return out, nil
}
