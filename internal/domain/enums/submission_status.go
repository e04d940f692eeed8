package enums

import "fmt"

type SubmissionStatus string

const (
	SubmissionStatusProcessing SubmissionStatus = "processing"
	SubmissionStatusVerified   SubmissionStatus = "verified"
	SubmissionStatusRejected   SubmissionStatus = "rejected"
)

func ParseSubmissionStatus(value string) (SubmissionStatus, error) {
	status := SubmissionStatus(value)
	switch status {
	case SubmissionStatusProcessing, SubmissionStatusVerified, SubmissionStatusRejected:
		return status, nil
	}
	return "", fmt.Errorf("unknown submission status %q", value)
}

// Terminal reports whether the status permits no further transitions.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionStatusVerified || s == SubmissionStatusRejected
}
