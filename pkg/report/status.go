package report

// Status indicates where an Issue is in its ingestion lifecycle.
type Status string

// PHOTOS_PENDING Status indicates that the Issue record exists but its photos are still being ingested.
const PHOTOS_PENDING Status = "PHOTOS_PENDING"

// PHOTOS_COMMITTED Status indicates that every submitted photo was stored and referenced.
const PHOTOS_COMMITTED Status = "PHOTOS_COMMITTED"

// Statuses is the complete list of valid Issue statuses.
var Statuses = []Status{PHOTOS_PENDING, PHOTOS_COMMITTED}

// IsValid returns true if the supplied Status is recognized.
func (s Status) IsValid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}
