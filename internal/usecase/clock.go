package usecase

import "time"

// nowFunc lets tests pin the clock.
type nowFunc func() time.Time

var defaultNow = time.Now
