// Package results carries the success-or-domain-failure value returned by
// service operations. Infrastructure errors travel separately as error.
package results

// OperationResult holds exactly one of Success or Failure when populated.
type OperationResult[S any, F any] struct {
	Success *S
	Failure *F
}

func SuccessResult[S any, F any](s S) OperationResult[S, F] {
	return OperationResult[S, F]{Success: &s}
}

func FailureResult[S any, F any](f F) OperationResult[S, F] {
	return OperationResult[S, F]{Failure: &f}
}

func (r OperationResult[S, F]) IsSuccess() bool { return r.Success != nil }

func (r OperationResult[S, F]) IsFailure() bool { return r.Failure != nil }
