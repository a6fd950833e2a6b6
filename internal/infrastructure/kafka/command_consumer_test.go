package kafka_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/infrastructure/kafka"
	pkgkafka "github.com/hennyhux/changsheng/pkg/kafka"
)

type mockRunner struct {
	calls     []dto.GenerateAllInvoicesRequest
	executeFn func(req dto.GenerateAllInvoicesRequest) (dto.GenerateAllInvoicesResponse, error)
}

func (m *mockRunner) Execute(_ context.Context, req dto.GenerateAllInvoicesRequest) (dto.GenerateAllInvoicesResponse, error) {
	m.calls = append(m.calls, req)
	if m.executeFn != nil {
		return m.executeFn(req)
	}
	return dto.GenerateAllInvoicesResponse{AsOf: req.AsOf}, nil
}

func TestCommandHandler_GenerateInvoices(t *testing.T) {
	runner := &mockRunner{}
	h := kafka.NewCommandHandler(runner, discardLogger())

	err := h.Handle(context.Background(), pkgkafka.Message{
		Value: []byte(`{"command":"generate_invoices","as_of":"2024-03-01"}`),
	})
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), runner.calls[0].AsOf)
}

func TestCommandHandler_MissingAsOfMeansToday(t *testing.T) {
	runner := &mockRunner{}
	h := kafka.NewCommandHandler(runner, discardLogger())

	require.NoError(t, h.Handle(context.Background(), pkgkafka.Message{Value: []byte(`{"command":"generate_invoices"}`)}))
	require.Len(t, runner.calls, 1)
	assert.True(t, runner.calls[0].AsOf.IsZero())
}

func TestCommandHandler_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "malformed json", body: `{"command":`, wantErr: true},
		{name: "bad date", body: `{"command":"generate_invoices","as_of":"03/01/2024"}`, wantErr: true},
		{name: "unknown command is dropped", body: `{"command":"close_books"}`, wantErr: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := &mockRunner{}
			h := kafka.NewCommandHandler(runner, discardLogger())

			err := h.Handle(context.Background(), pkgkafka.Message{Value: []byte(tc.body)})
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Empty(t, runner.calls)
		})
	}
}

func TestCommandHandler_RunFailure(t *testing.T) {
	boom := errors.New("connection refused")
	runner := &mockRunner{executeFn: func(dto.GenerateAllInvoicesRequest) (dto.GenerateAllInvoicesResponse, error) {
		return dto.GenerateAllInvoicesResponse{}, boom
	}}
	h := kafka.NewCommandHandler(runner, discardLogger())

	err := h.Handle(context.Background(), pkgkafka.Message{Value: []byte(`{"command":"generate_invoices"}`)})
	assert.ErrorIs(t, err, boom)
}
