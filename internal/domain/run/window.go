package run

import "time"

// BootstrapLookback is the window used by the first ever normal run.
const BootstrapLookback = 24 * time.Hour

// ComputeWindow returns the window for a run.
//
// Normal runs start at the last successful run, or BootstrapLookback before
// now on the first run. Backfill runs start days*24h before now and ignore
// the stored state entirely.
func ComputeWindow(mode Mode, state State, now time.Time, days int) (Window, error) {
	switch mode {
	case ModeNormal:
		since := now.Add(-BootstrapLookback)
		if state.LastRunAt != nil {
			since = *state.LastRunAt
		}
		return Window{Mode: mode, Since: since, Until: now}, nil
	case ModeBackfill:
		if days <= 0 {
			return Window{}, ErrInvalidDays
		}
		return Window{
			Mode:  mode,
			Since: now.Add(-time.Duration(days) * 24 * time.Hour),
			Until: now,
			Days:  days,
		}, nil
	default:
		return Window{}, ErrInvalidMode
	}
}

// Commit returns the state to persist after a successful run. Backfill runs
// return the state unchanged so they never narrow later normal windows.
func Commit(mode Mode, state State, now time.Time) State {
	if mode != ModeNormal {
		return state
	}
	t := now
	return State{LastRunAt: &t}
}

// ParseMode normalises a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNormal, "":
		return ModeNormal, nil
	case ModeBackfill:
		return ModeBackfill, nil
	}
	return "", ErrInvalidMode
}
