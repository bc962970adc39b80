package utils

import "errors"

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrorTenantRequired = errors.New("tenant id is required")

	// ErrorPartialWorkflow marks a multi-document workflow whose first
	// write committed but a later write failed. The documents are left
	// in the intermediate state; there is no automatic compensation.
	ErrorPartialWorkflow = errors.New("workflow partially completed")
)

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
