package job

import "fmt"

// CompletionType is the terminal outcome of a job or service.
type CompletionType int32

const (
	CompletionUndefined CompletionType = iota
	CompletionEndOfJob
	CompletionCanceled
	CompletionError
	CompletionErrorLimitExceeded
	CompletionResourcesUnavailable
	CompletionServicesUnavailable
	CompletionDriverInitializationFailure
	CompletionProcessInitializationFailure
	CompletionPremature
)

var completionNames = [...]string{
	CompletionUndefined:                    "Undefined",
	CompletionEndOfJob:                     "EndOfJob",
	CompletionCanceled:                     "Canceled",
	CompletionError:                        "Error",
	CompletionErrorLimitExceeded:           "ErrorLimitExceeded",
	CompletionResourcesUnavailable:         "ResourcesUnavailable",
	CompletionServicesUnavailable:          "ServicesUnavailable",
	CompletionDriverInitializationFailure:  "DriverInitializationFailure",
	CompletionProcessInitializationFailure: "ProcessInitializationFailure",
	CompletionPremature:                    "Premature",
}

func (c CompletionType) String() string {
	if c >= 0 && int(c) < len(completionNames) {
		return completionNames[c]
	}
	return fmt.Sprintf("CompletionType(%d)", int32(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c CompletionType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Completion pairs a completion type with its rationale. It is published as
// one value so readers never see a type without its rationale.
type Completion struct {
	Type      CompletionType `json:"type"`
	Rationale Rationale      `json:"rationale"`
}

// IsSet reports whether a terminal outcome was recorded.
func (c Completion) IsSet() bool {
	return c.Type != CompletionUndefined
}
