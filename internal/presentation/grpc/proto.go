package grpc

// proto.go is the hand-written service descriptor for
// changsheng.billing.v1.BillingService. Messages are carried by the JSON codec.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const serviceName = "changsheng.billing.v1.BillingService"

// Full method names, as seen by interceptors.
const (
	MethodCreateContract        = "/" + serviceName + "/CreateContract"
	MethodGetContract           = "/" + serviceName + "/GetContract"
	MethodListContracts         = "/" + serviceName + "/ListContracts"
	MethodUpdateContractRate    = "/" + serviceName + "/UpdateContractRate"
	MethodSetContractStatus     = "/" + serviceName + "/SetContractStatus"
	MethodGenerateInvoices      = "/" + serviceName + "/GenerateInvoices"
	MethodGenerateAllInvoices   = "/" + serviceName + "/GenerateAllInvoices"
	MethodRecordPayment         = "/" + serviceName + "/RecordPayment"
	MethodResetContractPayments = "/" + serviceName + "/ResetContractPayments"
	MethodGetOutstandingBalance = "/" + serviceName + "/GetOutstandingBalance"
	MethodListOverdueContracts  = "/" + serviceName + "/ListOverdueContracts"
	MethodGetPaymentHistory     = "/" + serviceName + "/GetPaymentHistory"
	MethodListInvoices          = "/" + serviceName + "/ListInvoices"
	MethodGetContractStatement  = "/" + serviceName + "/GetContractStatement"
	MethodGetCustomerLedger     = "/" + serviceName + "/GetCustomerLedger"
	MethodBackfillRate          = "/" + serviceName + "/BackfillRate"
)

// BillingServiceServer is the server API for BillingService.
type BillingServiceServer interface {
	CreateContract(context.Context, *CreateContractRequest) (*ContractReply, error)
	GetContract(context.Context, *GetContractRequest) (*ContractReply, error)
	ListContracts(context.Context, *ListContractsRequest) (*ListContractsResponse, error)
	UpdateContractRate(context.Context, *UpdateContractRateRequest) (*ContractReply, error)
	SetContractStatus(context.Context, *SetContractStatusRequest) (*ContractReply, error)
	GenerateInvoices(context.Context, *GenerateInvoicesRequest) (*GenerateInvoicesResponse, error)
	GenerateAllInvoices(context.Context, *GenerateAllInvoicesRequest) (*GenerateAllInvoicesResponse, error)
	RecordPayment(context.Context, *RecordPaymentRequest) (*RecordPaymentResponse, error)
	ResetContractPayments(context.Context, *ResetContractPaymentsRequest) (*ResetContractPaymentsResponse, error)
	GetOutstandingBalance(context.Context, *GetOutstandingBalanceRequest) (*GetOutstandingBalanceResponse, error)
	ListOverdueContracts(context.Context, *ListOverdueContractsRequest) (*ListOverdueContractsResponse, error)
	GetPaymentHistory(context.Context, *GetPaymentHistoryRequest) (*GetPaymentHistoryResponse, error)
	ListInvoices(context.Context, *ListInvoicesRequest) (*ListInvoicesResponse, error)
	GetContractStatement(context.Context, *GetContractStatementRequest) (*GetContractStatementResponse, error)
	GetCustomerLedger(context.Context, *GetCustomerLedgerRequest) (*GetCustomerLedgerResponse, error)
	BackfillRate(context.Context, *BackfillRateRequest) (*BackfillRateResponse, error)
	mustEmbedUnimplementedBillingServiceServer()
}

// UnimplementedBillingServiceServer provides forward-compatible default implementations.
type UnimplementedBillingServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedBillingServiceServer) CreateContract(context.Context, *CreateContractRequest) (*ContractReply, error) {
	return nil, unimplemented("CreateContract")
}
func (UnimplementedBillingServiceServer) GetContract(context.Context, *GetContractRequest) (*ContractReply, error) {
	return nil, unimplemented("GetContract")
}
func (UnimplementedBillingServiceServer) ListContracts(context.Context, *ListContractsRequest) (*ListContractsResponse, error) {
	return nil, unimplemented("ListContracts")
}
func (UnimplementedBillingServiceServer) UpdateContractRate(context.Context, *UpdateContractRateRequest) (*ContractReply, error) {
	return nil, unimplemented("UpdateContractRate")
}
func (UnimplementedBillingServiceServer) SetContractStatus(context.Context, *SetContractStatusRequest) (*ContractReply, error) {
	return nil, unimplemented("SetContractStatus")
}
func (UnimplementedBillingServiceServer) GenerateInvoices(context.Context, *GenerateInvoicesRequest) (*GenerateInvoicesResponse, error) {
	return nil, unimplemented("GenerateInvoices")
}
func (UnimplementedBillingServiceServer) GenerateAllInvoices(context.Context, *GenerateAllInvoicesRequest) (*GenerateAllInvoicesResponse, error) {
	return nil, unimplemented("GenerateAllInvoices")
}
func (UnimplementedBillingServiceServer) RecordPayment(context.Context, *RecordPaymentRequest) (*RecordPaymentResponse, error) {
	return nil, unimplemented("RecordPayment")
}
func (UnimplementedBillingServiceServer) ResetContractPayments(context.Context, *ResetContractPaymentsRequest) (*ResetContractPaymentsResponse, error) {
	return nil, unimplemented("ResetContractPayments")
}
func (UnimplementedBillingServiceServer) GetOutstandingBalance(context.Context, *GetOutstandingBalanceRequest) (*GetOutstandingBalanceResponse, error) {
	return nil, unimplemented("GetOutstandingBalance")
}
func (UnimplementedBillingServiceServer) ListOverdueContracts(context.Context, *ListOverdueContractsRequest) (*ListOverdueContractsResponse, error) {
	return nil, unimplemented("ListOverdueContracts")
}
func (UnimplementedBillingServiceServer) GetPaymentHistory(context.Context, *GetPaymentHistoryRequest) (*GetPaymentHistoryResponse, error) {
	return nil, unimplemented("GetPaymentHistory")
}
func (UnimplementedBillingServiceServer) ListInvoices(context.Context, *ListInvoicesRequest) (*ListInvoicesResponse, error) {
	return nil, unimplemented("ListInvoices")
}
func (UnimplementedBillingServiceServer) GetContractStatement(context.Context, *GetContractStatementRequest) (*GetContractStatementResponse, error) {
	return nil, unimplemented("GetContractStatement")
}
func (UnimplementedBillingServiceServer) GetCustomerLedger(context.Context, *GetCustomerLedgerRequest) (*GetCustomerLedgerResponse, error) {
	return nil, unimplemented("GetCustomerLedger")
}
func (UnimplementedBillingServiceServer) BackfillRate(context.Context, *BackfillRateRequest) (*BackfillRateResponse, error) {
	return nil, unimplemented("BackfillRate")
}
func (UnimplementedBillingServiceServer) mustEmbedUnimplementedBillingServiceServer() {}

// RegisterBillingServiceServer registers srv with s.
func RegisterBillingServiceServer(s grpclib.ServiceRegistrar, srv BillingServiceServer) {
	s.RegisterService(&billingServiceDesc, srv)
}

// unary adapts a typed server method to the grpc handler signature.
func unary[Req, Resp any](fullMethod string, call func(BillingServiceServer, context.Context, *Req) (*Resp, error)) grpclib.MethodDesc {
	name := fullMethod[len(serviceName)+2:]
	return grpclib.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BillingServiceServer), ctx, in)
			}
			info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(BillingServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var billingServiceDesc = grpclib.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BillingServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		unary(MethodCreateContract, BillingServiceServer.CreateContract),
		unary(MethodGetContract, BillingServiceServer.GetContract),
		unary(MethodListContracts, BillingServiceServer.ListContracts),
		unary(MethodUpdateContractRate, BillingServiceServer.UpdateContractRate),
		unary(MethodSetContractStatus, BillingServiceServer.SetContractStatus),
		unary(MethodGenerateInvoices, BillingServiceServer.GenerateInvoices),
		unary(MethodGenerateAllInvoices, BillingServiceServer.GenerateAllInvoices),
		unary(MethodRecordPayment, BillingServiceServer.RecordPayment),
		unary(MethodResetContractPayments, BillingServiceServer.ResetContractPayments),
		unary(MethodGetOutstandingBalance, BillingServiceServer.GetOutstandingBalance),
		unary(MethodListOverdueContracts, BillingServiceServer.ListOverdueContracts),
		unary(MethodGetPaymentHistory, BillingServiceServer.GetPaymentHistory),
		unary(MethodListInvoices, BillingServiceServer.ListInvoices),
		unary(MethodGetContractStatement, BillingServiceServer.GetContractStatement),
		unary(MethodGetCustomerLedger, BillingServiceServer.GetCustomerLedger),
		unary(MethodBackfillRate, BillingServiceServer.BackfillRate),
	},
	Streams: []grpclib.StreamDesc{},
}
