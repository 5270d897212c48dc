package models

// Attendance status values. The store accepts free-form statuses; these are
// the ones with defined semantics. StatusUnknown is never persisted: writing
// it removes the fact for that key. StatusMixed only ever appears as a derived
// daily value.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusUnknown = "unknown"
	StatusMixed   = "mixed"
)

// CanonicalHours is the fixed set of teaching periods written by the legacy
// whole-day attendance path.
var CanonicalHours = []int{1, 2, 3, 4, 5}

// AttendanceFact is one hourly attendance observation. The triple
// (StudentID, Date, Hour) is unique in the store. Date is an opaque
// YYYY-MM-DD day key compared lexicographically.
type AttendanceFact struct {
	StudentID int64  `db:"student_id" json:"student_id"`
	Date      string `db:"date" json:"date"`
	Hour      int    `db:"hour" json:"hour"`
	Status    string `db:"status" json:"status"`
}

// AttendanceEcho is the normalized echo of an applied attendance write.
type AttendanceEcho struct {
	StudentID int64  `json:"student_id"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	Hour      *int   `json:"hour"`
}

// AttendanceOverview is the full-table view: raw hourly facts plus the daily
// status derived from them at read time.
type AttendanceOverview struct {
	Hourly map[string]map[int64]map[int]string `json:"hourly"`
	Daily  map[string]map[int64]string         `json:"daily"`
}

// PeriodStudent is one roster entry of a period report. Students without
// facts in range carry an empty attendance mapping.
type PeriodStudent struct {
	ID         int64                     `json:"id"`
	Name       string                    `json:"name"`
	Group      string                    `json:"group"`
	Course     int                       `json:"course"`
	Attendance map[string]map[int]string `json:"attendance"`
}

// PeriodFactRow is the scan target for the roster-to-facts outer join. Fact
// columns are nullable because students may have no facts in range.
type PeriodFactRow struct {
	ID     int64   `db:"id"`
	Name   string  `db:"name"`
	Group  string  `db:"group_name"`
	Course int     `db:"course"`
	Date   *string `db:"date"`
	Hour   *int    `db:"hour"`
	Status *string `db:"status"`
}

// GroupDailyStat aggregates one group's attendance for a single date.
// Present and Absent count distinct students holding at least one fact with
// that status on the date.
type GroupDailyStat struct {
	Group         string `db:"group_name" json:"group"`
	TotalStudents int    `db:"total_students" json:"totalStudents"`
	Present       int    `db:"present" json:"present"`
	Absent        int    `db:"absent" json:"absent"`
}

// DeriveDailyStatus folds a day's hourly statuses into a single daily status
// by majority vote: present wins over absent on count, an exact nonzero tie
// is mixed, and a day with neither present nor absent facts derives nothing
// (ok=false). Statuses other than present/absent do not vote.
func DeriveDailyStatus(statuses []string) (string, bool) {
	var present, absent int
	for _, status := range statuses {
		switch status {
		case StatusPresent:
			present++
		case StatusAbsent:
			absent++
		}
	}

	switch {
	case present == 0 && absent == 0:
		return "", false
	case present > absent:
		return StatusPresent, true
	case absent > present:
		return StatusAbsent, true
	default:
		return StatusMixed, true
	}
}
