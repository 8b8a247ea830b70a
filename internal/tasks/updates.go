package tasks

import (
	"fmt"

	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/pairing"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchCollection Phase = iota
	PlanMoves
	ApplyMoves
	ListAssets
	PairAssets
	UploadLessons
)

func (p Phase) String() string {
	switch p {
	case FetchCollection:
		return "fetch_collection"
	case PlanMoves:
		return "plan_moves"
	case ApplyMoves:
		return "apply_moves"
	case ListAssets:
		return "list_assets"
	case PairAssets:
		return "pair_assets"
	case UploadLessons:
		return "upload_lessons"
	default:
		return ""
	}
}

func fetchingCollectionUpdate(collectionID int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchCollection,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching collection %d...", collectionID),
	}
}

func fetchedCollectionUpdate(snapshot *models.CollectionSnapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchCollection,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found collection %d (%d lessons)", snapshot.CollectionID, len(snapshot.Items)),
		Data:    snapshot,
	}
}

func plannedMovesUpdate(moves, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PlanMoves,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Planned %d moves for %d lessons", moves, total),
	}
}

func listedAssetsUpdate(dir string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListAssets,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d files in %s", count, dir),
	}
}

func pairedAssetsUpdate(strategy pairing.Strategy, candidates []models.PairingCandidate) ProgressUpdate {
	matched := 0
	for _, c := range candidates {
		if c.Matched() {
			matched++
		}
	}
	return ProgressUpdate{
		Phase:   PairAssets,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Paired %d of %d candidates (%s)", matched, len(candidates), strategy),
		Data:    candidates,
	}
}

func itemDoneUpdate(phase Phase, step, total int, o models.ItemOutcome) ProgressUpdate {
	mark := "✓"
	switch o.Status {
	case models.ItemFailed:
		mark = "✗"
	case models.ItemSkipped:
		mark = "-"
	}
	msg := fmt.Sprintf("[%d/%d] %s %s", step, total, mark, o.Label)
	if o.Err != nil {
		msg += ": " + o.Err.Error()
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    o,
	}
}
