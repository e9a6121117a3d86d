package projections

import (
	"context"
	"log/slog"

	"activityboard/internal/domain/activity"
	"activityboard/internal/domain/session"
)

// MsgLoadFailed replaces the activity list when the fetch fails.
const MsgLoadFailed = "Failed to load activities. Please try again later."

// ActivityLister fetches the activity collection.
type ActivityLister interface {
	ListActivities(ctx context.Context) ([]activity.Activity, error)
}

// GetActivityBoardQuery carries the viewer's session.
type GetActivityBoardQuery struct {
	Session session.Session
}

// GetActivityBoardDeps holds dependencies for the board projection.
type GetActivityBoardDeps struct {
	Backend ActivityLister
}

// ParticipantRow is one signed-up email. Delete is set only for administrators
// and carries what the unregister action needs.
type ParticipantRow struct {
	Email  string
	Delete *DeleteControl
}

// DeleteControl identifies the participant an unregister action targets.
type DeleteControl struct {
	Activity string
	Email    string
}

// ActivityCard is the rendered view of one activity.
type ActivityCard struct {
	Name         string
	Description  string
	Schedule     string
	SpotsLeft    int
	Participants []ParticipantRow
}

// ActivityBoard is everything the board page needs.
type ActivityBoard struct {
	Cards         []ActivityCard
	Options       []string // signup selector values, one per activity
	LoadError     string
	Authenticated bool
	Admin         string
}

// QueryGetActivityBoard fetches activities and builds the board for the viewer.
// PRE: deps.Backend is non-nil
// POST: On failure the board carries LoadError and no cards; the error is returned for logging only
// INVARIANT: Card and option order follows the backend, delete controls exist only for an administrator
func QueryGetActivityBoard(ctx context.Context, query GetActivityBoardQuery, deps GetActivityBoardDeps) (ActivityBoard, error) {
	board := ActivityBoard{
		Authenticated: query.Session.IsAuthenticated(),
		Admin:         query.Session.Admin,
	}

	list, err := deps.Backend.ListActivities(ctx)
	if err != nil {
		slog.Error("activities_load_failed", "error", err.Error())
		board.LoadError = MsgLoadFailed
		return board, err
	}

	board.Cards = make([]ActivityCard, 0, len(list))
	board.Options = make([]string, 0, len(list))
	for _, a := range list {
		board.Cards = append(board.Cards, buildCard(a, board.Authenticated))
		board.Options = append(board.Options, a.Name)
	}
	return board, nil
}

func buildCard(a activity.Activity, admin bool) ActivityCard {
	card := ActivityCard{
		Name:        a.Name,
		Description: a.Description,
		Schedule:    a.Schedule,
		SpotsLeft:   a.SpotsLeft(),
	}
	for _, email := range a.Participants {
		row := ParticipantRow{Email: email}
		if admin {
			row.Delete = &DeleteControl{Activity: a.Name, Email: email}
		}
		card.Participants = append(card.Participants, row)
	}
	return card
}

// DeleteControls counts delete controls on the board.
func (b ActivityBoard) DeleteControls() int {
	n := 0
	for _, c := range b.Cards {
		for _, p := range c.Participants {
			if p.Delete != nil {
				n++
			}
		}
	}
	return n
}
