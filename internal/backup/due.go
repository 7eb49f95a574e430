package backup

import "time"

// DueInterval is the longest gap between automatic backups on one day.
const DueInterval = 12 * time.Hour

// IsDue decides whether an automatic backup should run at now, given the
// time of the last successful backup. A zero last means never. A backup is
// due on a new calendar day, as seen in now's location, or once DueInterval
// has passed.
func IsDue(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	last = last.In(now.Location())
	ly, lm, ld := last.Date()
	ny, nm, nd := now.Date()
	if ny != ly || nm != lm || nd != ld {
		return now.After(last)
	}
	return now.Sub(last) >= DueInterval
}
