package job

import "time"

func SetNow(tr *Tracker, now func() time.Time) {
	tr.now = now
}
