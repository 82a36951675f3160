package services

import "github.com/yukikurage/workforce-api/internal/models"

// Decide returns the entries to append when requested is submitted on a pair whose
// latest entry has type current. An empty current means the pair has no history.
//
// WORK over an open WORK session first stores an AUTOBREAK for that session.
func Decide(current, requested models.LogType) ([]models.LogType, error) {
	reject := &InvalidTransitionError{Current: current, Requested: requested}

	switch requested {
	case models.LogTypeWork:
		if current == models.LogTypeWork {
			return []models.LogType{models.LogTypeAutoBreak, models.LogTypeWork}, nil
		}
		return []models.LogType{models.LogTypeWork}, nil

	case models.LogTypeBreak, models.LogTypeAutoBreak:
		if current == models.LogTypeWork {
			return []models.LogType{requested}, nil
		}
		return nil, reject

	case models.LogTypeClose:
		switch current {
		case models.LogTypeWork, models.LogTypeBreak, models.LogTypeAutoBreak:
			return []models.LogType{models.LogTypeClose}, nil
		}
		return nil, reject
	}

	return nil, invalid("logType", "must be one of WORK, BREAK, AUTOBREAK, CLOSE")
}
