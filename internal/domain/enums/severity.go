package enums

import "fmt"

type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityWarning  Severity = "warning"
)

func ParseSeverity(value string) (Severity, error) {
	severity := Severity(value)
	switch severity {
	case SeverityBlocking, SeverityWarning:
		return severity, nil
	}
	return "", fmt.Errorf("unknown finding severity %q", value)
}
