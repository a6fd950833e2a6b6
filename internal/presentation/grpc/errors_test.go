package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hennyhux/changsheng/internal/domain/model"
)

func TestToStatus(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"contract not found", &model.ContractNotFoundError{ContractID: id}, codes.NotFound},
		{"invoice not found", fmt.Errorf("lookup: %w", model.ErrInvoiceNotFound), codes.NotFound},
		{"invalid contract", &model.InvalidContractError{Reason: "billing day 31"}, codes.InvalidArgument},
		{"invalid payment", model.ErrInvalidPayment, codes.InvalidArgument},
		{"invalid rate change", model.ErrInvalidRateChange, codes.InvalidArgument},
		{"truck booked", model.ErrTruckAlreadyContracted, codes.AlreadyExists},
		{"period gap", &model.PeriodGapError{ContractID: id, Missing: []string{"2024-02"}}, codes.FailedPrecondition},
		{"backfill conflict", model.ErrBackfillConflict, codes.FailedPrecondition},
		{"already active", fmt.Errorf("%w: contract is already active", model.ErrInvalidStatusChange), codes.FailedPrecondition},
		{"invalid gap policy", fmt.Errorf("%w: sometimes", model.ErrInvalidGapPolicy), codes.InvalidArgument},
		{"concurrent update", model.ErrConcurrentUpdate, codes.Aborted},
		{"canceled", context.Canceled, codes.Canceled},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"storage", &model.StorageError{Op: "save contract", Err: errors.New("conn reset")}, codes.Unavailable},
		{"already a status", status.Error(codes.PermissionDenied, "no"), codes.PermissionDenied},
		{"unknown", errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(toStatus(tt.err)))
		})
	}
	assert.NoError(t, toStatus(nil))
}

func TestToStatus_HidesStorageDetail(t *testing.T) {
	err := toStatus(&model.StorageError{Op: "list invoices", Err: errors.New("password authentication failed")})
	st, _ := status.FromError(err)
	assert.Equal(t, "ledger store unavailable during list invoices", st.Message())
}
