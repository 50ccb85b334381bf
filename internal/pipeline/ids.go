package pipeline

import "github.com/google/uuid"

// newJobID returns a time-ordered job ID. Job IDs double as output
// directory names in the build service.
func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
