package reconcile

import (
	"errors"

	"shiftdesk/internal/types"
)

// failedResult wraps a whole-job failure in the uniform envelope. The error
// code is preserved when the failure is an AppError so callers can tell a
// store outage apart from an unexpected failure.
func failedResult(err error) types.JobResult {
	return types.JobResult{
		Success: false,
		Errors:  []types.ItemError{itemError("", err)},
	}
}

// itemError converts an error into the per-item error entry of a JobResult.
func itemError(itemID string, err error) types.ItemError {
	entry := types.ItemError{
		ItemID:  itemID,
		Message: err.Error(),
	}
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		entry.Code = string(appErr.Code)
		entry.Message = appErr.Message
	}
	return entry
}
