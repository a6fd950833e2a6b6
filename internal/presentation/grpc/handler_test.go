package grpc

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/hennyhux/changsheng/internal/application/usecase"
	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/service"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
	"github.com/hennyhux/changsheng/internal/infrastructure/clock"
	"github.com/hennyhux/changsheng/internal/infrastructure/memory"
	"github.com/hennyhux/changsheng/pkg/auth"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newUseCases(store port.LedgerStore, clk port.Clock) *usecase.Set {
	return usecase.NewSet(usecase.Dependencies{
		Store:     store,
		Generator: service.NewInvoiceGenerator(valueobject.DefaultDueRule(), valueobject.GapBackfill),
		Allocator: service.NewPaymentAllocator(),
		Evaluator: service.NewBalanceEvaluator(service.DefaultLookaheadDays),
		Clock:     clk,
		Logger:    quietLogger(),
	})
}

// testClient calls the billing service over an in-process listener.
type testClient struct {
	conn  *grpclib.ClientConn
	token string
}

func startServer(t *testing.T, opts ServerOptions) *testClient {
	t.Helper()
	store := memory.NewLedgerStore()
	clk := clock.NewFixed(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	srv, err := NewServer(NewBillingHandler(newUseCases(store, clk)), quietLogger(), opts)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.ServeListener(lis) }()
	t.Cleanup(srv.GracefulStop)

	conn, err := grpclib.NewClient("passthrough:///bufnet",
		grpclib.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpclib.WithTransportCredentials(insecure.NewCredentials()),
		grpclib.WithDefaultCallOptions(grpclib.CallContentSubtype(CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testClient{conn: conn}
}

func (c *testClient) call(t *testing.T, method string, req, resp interface{}) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	return c.conn.Invoke(ctx, method, req, resp)
}

func (c *testClient) openContract(t *testing.T, plate string) *ContractMsg {
	t.Helper()
	var reply ContractReply
	require.NoError(t, c.call(t, MethodCreateContract, &CreateContractRequest{
		CustomerID:   uuid.NewString(),
		CustomerName: "Harbor Freight Lines",
		TruckPlate:   plate,
		MonthlyRate:  "$100.00",
		StartDate:    "2024-01-01",
	}, &reply))
	return reply.Contract
}

func TestBillingService_BillAndCollect(t *testing.T) {
	c := startServer(t, ServerOptions{})
	contract := c.openContract(t, "TX 4471")
	assert.Equal(t, "100.00", contract.MonthlyRate)
	assert.Equal(t, int32(1), contract.BillingDay)

	var gen GenerateInvoicesResponse
	require.NoError(t, c.call(t, MethodGenerateInvoices, &GenerateInvoicesRequest{ContractID: contract.ID}, &gen))
	require.Len(t, gen.Created, 3)
	assert.Equal(t, "2024-01", gen.Created[0].PeriodKey)
	assert.Equal(t, "2024-03-10", gen.AsOf)

	var paid RecordPaymentResponse
	require.NoError(t, c.call(t, MethodRecordPayment, &RecordPaymentRequest{
		ContractID: contract.ID,
		Amount:     "150",
		Method:     "check",
	}, &paid))
	require.Len(t, paid.Payment.Allocations, 2)
	assert.Equal(t, "100.00", paid.Payment.Allocations[0].Amount)
	assert.Equal(t, "50.00", paid.Payment.Allocations[1].Amount)
	assert.Empty(t, paid.CreditBalance)

	var bal GetOutstandingBalanceResponse
	require.NoError(t, c.call(t, MethodGetOutstandingBalance, &GetOutstandingBalanceRequest{ContractID: contract.ID}, &bal))
	assert.Equal(t, "150.00", bal.Outstanding)

	var history GetPaymentHistoryResponse
	require.NoError(t, c.call(t, MethodGetPaymentHistory, &GetPaymentHistoryRequest{ContractID: contract.ID}, &history))
	require.Len(t, history.Payments, 1)
	assert.Equal(t, "150.00", history.Payments[0].Amount)
}

func TestBillingService_OverpaymentReportsCredit(t *testing.T) {
	c := startServer(t, ServerOptions{})
	contract := c.openContract(t, "")

	var gen GenerateInvoicesResponse
	require.NoError(t, c.call(t, MethodGenerateInvoices, &GenerateInvoicesRequest{ContractID: contract.ID, AsOf: "2024-01-05"}, &gen))
	require.Len(t, gen.Created, 1)

	var paid RecordPaymentResponse
	require.NoError(t, c.call(t, MethodRecordPayment, &RecordPaymentRequest{
		ContractID: contract.ID,
		Amount:     "130.00",
		ReceivedOn: "2024-01-05",
	}, &paid))
	assert.Equal(t, "30.00", paid.CreditBalance)
	assert.Equal(t, "30.00", paid.Payment.Credit)
}

func TestBillingService_ResumeAfterSuspension(t *testing.T) {
	c := startServer(t, ServerOptions{})
	contract := c.openContract(t, "TX 4471")

	var reply ContractReply
	require.NoError(t, c.call(t, MethodSetContractStatus, &SetContractStatusRequest{ContractID: contract.ID, EndDate: "2024-01-31"}, &reply))
	require.NoError(t, c.call(t, MethodSetContractStatus, &SetContractStatusRequest{
		ContractID: contract.ID,
		Active:     true,
		ResumeOn:   "2024-03-01",
	}, &reply))
	assert.True(t, reply.Contract.Active)
	require.Len(t, reply.Contract.Suspensions, 1)
	assert.Equal(t, &SuspensionMsg{From: "2024-02-01", To: "2024-02-29"}, reply.Contract.Suspensions[0])

	var gen GenerateInvoicesResponse
	require.NoError(t, c.call(t, MethodGenerateInvoices, &GenerateInvoicesRequest{ContractID: contract.ID, GapPolicy: "skip"}, &gen))
	require.Len(t, gen.Created, 2)
	assert.Equal(t, "2024-01", gen.Created[0].PeriodKey)
	assert.Equal(t, "2024-03", gen.Created[1].PeriodKey)
}

func TestBillingService_ErrorCodes(t *testing.T) {
	c := startServer(t, ServerOptions{})
	existing := c.openContract(t, "CA 8812")

	tests := []struct {
		name   string
		method string
		req    interface{}
		want   codes.Code
	}{
		{"malformed id", MethodGetContract, &GetContractRequest{ContractID: "nope"}, codes.InvalidArgument},
		{"unknown contract", MethodGetContract, &GetContractRequest{ContractID: uuid.NewString()}, codes.NotFound},
		{"bad amount", MethodRecordPayment, &RecordPaymentRequest{ContractID: existing.ID, Amount: "12.345"}, codes.InvalidArgument},
		{"zero payment", MethodRecordPayment, &RecordPaymentRequest{ContractID: existing.ID, Amount: "0"}, codes.InvalidArgument},
		{"already active", MethodSetContractStatus, &SetContractStatusRequest{ContractID: existing.ID, Active: true}, codes.FailedPrecondition},
		{"bad gap policy", MethodGenerateInvoices, &GenerateInvoicesRequest{ContractID: existing.ID, GapPolicy: "sometimes"}, codes.InvalidArgument},
		{"bad resume date", MethodSetContractStatus, &SetContractStatusRequest{ContractID: existing.ID, Active: true, ResumeOn: "soon"}, codes.InvalidArgument},
		{"bad month", MethodGetContractStatement, &GetContractStatementRequest{ContractID: existing.ID, Month: "2024-13"}, codes.InvalidArgument},
		{"double booked truck", MethodCreateContract, &CreateContractRequest{
			CustomerID:  uuid.NewString(),
			TruckPlate:  "ca8812",
			MonthlyRate: "90",
			StartDate:   "2024-02-01",
		}, codes.AlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp struct{}
			err := c.call(t, tt.method, tt.req, &resp)
			assert.Equal(t, tt.want, status.Code(err), "%v", err)
		})
	}
}

func TestBillingService_RolePolicy(t *testing.T) {
	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "grpc-test-secret", Issuer: "changsheng-test"})
	require.NoError(t, err)
	c := startServer(t, ServerOptions{JWT: jwtSvc})

	var health healthpb.HealthCheckResponse
	require.NoError(t, c.conn.Invoke(context.Background(), "/grpc.health.v1.Health/Check",
		&healthpb.HealthCheckRequest{Service: serviceName}, &health, grpclib.CallContentSubtype("proto")))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, health.Status)

	err = c.call(t, MethodListContracts, &ListContractsRequest{}, &ListContractsResponse{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	token := func(roles ...string) string {
		tok, err := jwtSvc.GenerateToken("op-"+roles[0], "Operator", roles)
		require.NoError(t, err)
		return tok
	}

	c.token = token(auth.RoleClerk)
	contract := c.openContract(t, "")
	err = c.call(t, MethodResetContractPayments, &ResetContractPaymentsRequest{ContractID: contract.ID}, &ResetContractPaymentsResponse{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	c.token = token(auth.RoleAuditor)
	require.NoError(t, c.call(t, MethodListContracts, &ListContractsRequest{}, &ListContractsResponse{}))
	err = c.call(t, MethodRecordPayment, &RecordPaymentRequest{ContractID: contract.ID, Amount: "10"}, &RecordPaymentResponse{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	c.token = token(auth.RoleManager)
	var reset ResetContractPaymentsResponse
	require.NoError(t, c.call(t, MethodResetContractPayments, &ResetContractPaymentsRequest{ContractID: contract.ID}, &reset))
	assert.Equal(t, int32(0), reset.RemovedPayments)
}
