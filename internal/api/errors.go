package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/commissions/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errorCodes pairs engine errors with status codes. Entries wrapping a more
// general error come first.
var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{common.ErrAlreadySubmitted, codes.AlreadyExists},
	{common.ErrAlreadyResolved, codes.AlreadyExists},
	{common.ErrNothingToClaim, codes.AlreadyExists},
	{common.ErrDuplicateAction, codes.AlreadyExists},
	{common.ErrorNotFound, codes.NotFound},
	{common.ErrorUnauthorized, codes.PermissionDenied},
	{common.ErrInvalidState, codes.FailedPrecondition},
	{common.ErrTooLate, codes.OutOfRange},
	{common.ErrPaymentMismatch, codes.InvalidArgument},
	{common.ErrorValidation, codes.InvalidArgument},
	{common.ErrInsufficientFunds, codes.ResourceExhausted},
	{common.ErrVersionConflict, codes.Aborted},
	{common.ErrTokenExpired, codes.Unauthenticated},
	{common.ErrInvalidToken, codes.Unauthenticated},
}

// Code returns the status code for err. Unknown errors are Internal.
func Code(err error) codes.Code {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return codes.Internal
}

// FromStatus turns a status error received by a client back into an error
// matching the engine sentinel it was produced from. When the message names
// no sentinel the most general one for the code is used. Errors that are not
// statuses are returned unchanged.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()
	var fallback error
	for _, e := range errorCodes {
		if e.code != st.Code() {
			continue
		}
		if strings.Contains(msg, e.err.Error()) {
			return fmt.Errorf("%s: %w", msg, e.err)
		}
		fallback = e.err
	}
	if fallback == nil {
		fallback = common.ErrorInternal
	}
	return fmt.Errorf("%s: %w", msg, fallback)
}
