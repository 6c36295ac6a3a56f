package utils

import (
	"time"
)

// LoadTimeLocation resolves a configured time zone name. "Local" or an empty
// string keeps the host zone. All recurrence math runs in the returned
// location.
func LoadTimeLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
