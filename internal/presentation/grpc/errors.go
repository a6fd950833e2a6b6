package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hennyhux/changsheng/internal/domain/model"
)

// toStatus maps ledger errors onto gRPC codes. Storage failures are reported
// without their driver detail.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var (
		notFound    *model.ContractNotFoundError
		invalid     *model.InvalidContractError
		gap         *model.PeriodGapError
		storageFail *model.StorageError
	)
	switch {
	case errors.As(err, &notFound), errors.Is(err, model.ErrInvoiceNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &invalid),
		errors.Is(err, model.ErrInvalidPayment),
		errors.Is(err, model.ErrInvalidInvoice),
		errors.Is(err, model.ErrInvalidRateChange),
		errors.Is(err, model.ErrInvalidGapPolicy):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrTruckAlreadyContracted):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.As(err, &gap),
		errors.Is(err, model.ErrBackfillConflict),
		errors.Is(err, model.ErrInvalidStatusChange):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, model.ErrConcurrentUpdate):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.As(err, &storageFail):
		return status.Errorf(codes.Unavailable, "ledger store unavailable during %s", storageFail.Op)
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
