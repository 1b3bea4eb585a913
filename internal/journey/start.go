package journey

import "time"

// ComputeStartDate picks the date anchoring slot 1. In priority order:
// the approval instant's calendar date in loc, the earliest upload date,
// the registration date, and finally today. Zero values mean absent.
func ComputeStartDate(approvedAt time.Time, earliestUpload, registration Date, today Date, loc *time.Location) Date {
	if !approvedAt.IsZero() {
		if loc == nil {
			loc = time.UTC
		}
		return DateOf(approvedAt.In(loc))
	}
	if !earliestUpload.IsZero() {
		return earliestUpload
	}
	if !registration.IsZero() {
		return registration
	}
	return today
}

// EarliestUploadDate returns the chronologically earliest upload date.
// Uploads with unparsable dates are ignored.
func EarliestUploadDate(uploads []Upload) (Date, bool) {
	var earliest Date
	found := false
	for _, upload := range uploads {
		date, err := ParseDate(upload.Date)
		if err != nil {
			continue
		}
		if !found || date.Before(earliest) {
			earliest = date
			found = true
		}
	}
	return earliest, found
}
