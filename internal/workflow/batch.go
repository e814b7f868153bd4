package workflow

// ItemFailure is one dependent item the backend did not accept.
type ItemFailure[T any] struct {
	Input T
	// Detail is the server explanation, or the error text when there was none.
	Detail string
	Err    error
}

// BatchResult is the outcome of one dependent-resource phase.
// Items keep their submission order within each slice.
type BatchResult[T any] struct {
	Succeeded []T
	Failed    []ItemFailure[T]
	// Skipped items were never submitted because the run was cancelled.
	Skipped []T
}

// Attempted counts items that reached the backend.
func (b BatchResult[T]) Attempted() int {
	return len(b.Succeeded) + len(b.Failed)
}

// OK reports whether nothing failed or was skipped.
func (b BatchResult[T]) OK() bool {
	return len(b.Failed) == 0 && len(b.Skipped) == 0
}

// FailedInputs lists the inputs of failed items.
func (b BatchResult[T]) FailedInputs() []T {
	out := make([]T, 0, len(b.Failed))
	for _, f := range b.Failed {
		out = append(out, f.Input)
	}
	return out
}
