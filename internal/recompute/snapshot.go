package recompute

import (
	"context"
	"fmt"

	"github.com/vijay-prabhu/cdlmatch/internal/database"
	"github.com/vijay-prabhu/cdlmatch/internal/match"
)

// BuildSnapshot assembles a driver's interaction history for the behavior
// scorer. Saves, applies, and helpful marks pull scores toward similar
// jobs; not_relevant and hide push away. A job both saved and later hidden
// counts only on the negative side.
func BuildSnapshot(ctx context.Context, db *database.DB, driverID string) (match.FeedbackSnapshot, error) {
	var snap match.FeedbackSnapshot

	feedback, err := db.ListFeedbackForDriver(ctx, driverID)
	if err != nil {
		return snap, fmt.Errorf("failed to load feedback: %w", err)
	}
	actions, err := db.ListJobActionsForDriver(ctx, driverID)
	if err != nil {
		return snap, fmt.Errorf("failed to load job actions: %w", err)
	}

	likedIDs := make(map[string]bool)
	dislikedIDs := make(map[string]bool)
	hiddenIDs := make(map[string]bool)

	for _, a := range actions {
		likedIDs[a.JobID] = true
	}
	for _, f := range feedback {
		switch f.Kind {
		case database.FeedbackHelpful:
			likedIDs[f.JobID] = true
		case database.FeedbackNotRelevant:
			dislikedIDs[f.JobID] = true
		case database.FeedbackHide:
			hiddenIDs[f.JobID] = true
		}
	}
	for id := range likedIDs {
		if dislikedIDs[id] || hiddenIDs[id] {
			delete(likedIDs, id)
		}
	}

	allIDs := make([]string, 0, len(likedIDs)+len(dislikedIDs)+len(hiddenIDs))
	for id := range likedIDs {
		allIDs = append(allIDs, id)
	}
	for id := range dislikedIDs {
		allIDs = append(allIDs, id)
	}
	for id := range hiddenIDs {
		allIDs = append(allIDs, id)
	}
	if len(allIDs) == 0 {
		return snap, nil
	}

	jobs, err := db.ListJobsByIDs(ctx, allIDs)
	if err != nil {
		return snap, fmt.Errorf("failed to load referenced jobs: %w", err)
	}

	for _, job := range jobs {
		switch {
		case hiddenIDs[job.ID]:
			snap.Hidden = append(snap.Hidden, job)
		case dislikedIDs[job.ID]:
			snap.Disliked = append(snap.Disliked, job)
		case likedIDs[job.ID]:
			snap.Liked = append(snap.Liked, job)
		}
	}
	return snap, nil
}
