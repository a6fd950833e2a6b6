package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/application/usecase"
	"github.com/hennyhux/changsheng/internal/domain/model"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
	"github.com/hennyhux/changsheng/pkg/money"
)

var _ BillingServiceServer = (*BillingHandler)(nil)

// BillingHandler implements the gRPC BillingService server.
type BillingHandler struct {
	UnimplementedBillingServiceServer
	uc *usecase.Set
}

func NewBillingHandler(uc *usecase.Set) *BillingHandler {
	return &BillingHandler{uc: uc}
}

func (h *BillingHandler) CreateContract(ctx context.Context, req *CreateContractRequest) (*ContractReply, error) {
	customerID, err := parseID("customer_id", req.CustomerID)
	if err != nil {
		return nil, err
	}
	rate, err := parseAmount("monthly_rate", req.MonthlyRate)
	if err != nil {
		return nil, err
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	var end *time.Time
	if req.EndDate != "" {
		d, err := parseDate("end_date", req.EndDate)
		if err != nil {
			return nil, err
		}
		end = &d
	}

	result, err := h.uc.CreateContract.Execute(ctx, dto.CreateContractRequest{
		CustomerID:   customerID,
		CustomerName: req.CustomerName,
		TruckPlate:   req.TruckPlate,
		MonthlyRate:  rate,
		StartDate:    start,
		EndDate:      end,
		BillingDay:   int(req.BillingDay),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ContractReply{Contract: toContractMsg(result)}, nil
}

func (h *BillingHandler) GetContract(ctx context.Context, req *GetContractRequest) (*ContractReply, error) {
	id, err := parseID("contract_id", req.ContractID)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.GetContract.Execute(ctx, dto.GetContractRequest{ContractID: id})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ContractReply{Contract: toContractMsg(result)}, nil
}

func (h *BillingHandler) ListContracts(ctx context.Context, req *ListContractsRequest) (*ListContractsResponse, error) {
	var customerID uuid.UUID
	if req.CustomerID != "" {
		id, err := parseID("customer_id", req.CustomerID)
		if err != nil {
			return nil, err
		}
		customerID = id
	}
	result, err := h.uc.ListContracts.Execute(ctx, dto.ListContractsRequest{CustomerID: customerID})
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &ListContractsResponse{Contracts: make([]*ContractMsg, 0, len(result))}
	for _, c := range result {
		resp.Contracts = append(resp.Contracts, toContractMsg(c))
	}
	return resp, nil
}

func (h *BillingHandler) UpdateContractRate(ctx context.Context, req *UpdateContractRateRequest) (*ContractReply, error) {
	id, err := parseID("contract_id", req.ContractID)
	if err != nil {
		return nil, err
	}
	rate, err := parseAmount("monthly_rate", req.MonthlyRate)
	if err != nil {
		return nil, err
	}
	from, err := parseDate("effective_from", req.EffectiveFrom)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.UpdateContractRate.Execute(ctx, dto.UpdateContractRateRequest{
		ContractID:    id,
		MonthlyRate:   rate,
		EffectiveFrom: from,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ContractReply{Contract: toContractMsg(result)}, nil
}

func (h *BillingHandler) SetContractStatus(ctx context.Context, req *SetContractStatusRequest) (*ContractReply, error) {
	id, err := parseID("contract_id", req.ContractID)
	if err != nil {
		return nil, err
	}
	end, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}
	resume, err := parseOptionalDate("resume_on", req.ResumeOn)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.SetContractStatus.Execute(ctx, dto.SetContractStatusRequest{
		ContractID: id,
		Active:     req.Active,
		EndDate:    end,
		ResumeOn:   resume,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ContractReply{Contract: toContractMsg(result)}, nil
}

func (h *BillingHandler) GenerateInvoices(ctx context.Context, req *GenerateInvoicesRequest) (*GenerateInvoicesResponse, error) {
	id, err := parseID("contract_id", req.ContractID)
	if err != nil {
		return nil, err
	}
	asOf, err := parseOptionalDate("as_of", req.AsOf)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.GenerateInvoices.Execute(ctx, dto.GenerateInvoicesRequest{
		ContractID: id,
		AsOf:       asOf,
		GapPolicy:  req.GapPolicy,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &GenerateInvoicesResponse{
		ContractID:    result.ContractID.String(),
		AsOf:          formatDate(result.AsOf),
		CreditApplied: formatAmount(result.CreditApplied),
		Created:       toInvoiceMsgs(result.Created),
	}
	if result.Anchor != nil {
		resp.Anchor = toInvoiceMsg(*result.Anchor)
	}
	return resp, nil
}

func (h *BillingHandler) GenerateAllInvoices(ctx context.Context, req *GenerateAllInvoicesRequest) (*GenerateAllInvoicesResponse, error) {
	asOf, err := parseOptionalDate("as_of", req.AsOf)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.GenerateAllInvoices.Execute(ctx, dto.GenerateAllInvoicesRequest{AsOf: asOf})
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &GenerateAllInvoicesResponse{
		AsOf:      formatDate(result.AsOf),
		Contracts: int32(result.Contracts),
		Created:   int32(result.Created),
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, &ContractFailureMsg{ContractID: f.ContractID.String(), Error: f.Error})
	}
	return resp, nil
}

func (h *BillingHandler) RecordPayment(ctx context.Context, req *RecordPaymentRequest) (*RecordPaymentResponse, error) {
	id, err := parseID("contract_id", req.ContractID)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	received, err := parseOptionalDate("received_on", req.ReceivedOn)
	if err != nil {
		return nil, err
	}

	result, err := h.uc.RecordPayment.Execute(ctx, dto.RecordPaymentRequest{
		ContractID: id,
		Amount:     amount,
		ReceivedOn: received,
		Method:     req.Method,
		Note:       req.Note,
	})
	var credit *model.OverpaymentCreditRecorded
	if err != nil && !errors.As(err, &credit) {
		return nil, toStatus(err)
	}

	resp := &RecordPaymentResponse{Payment: toPaymentMsg(result)}
	if credit != nil {
		resp.CreditBalance = formatAmount(credit.Balance)
	}
	return resp, nil
}

func (h *BillingHandler) ResetContractPayments(ctx context.Context, req *ResetContractPaymentsRequest) (*ResetContractPaymentsResponse, error) {
	id, err := parseID("contract_id", req.ContractID)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.ResetContractPayments.Execute(ctx, dto.ResetContractPaymentsRequest{ContractID: id})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ResetContractPaymentsResponse{
		ContractID:      result.ContractID.String(),
		RemovedPayments: int32(result.RemovedPayments),
		RemovedAmount:   formatAmount(result.RemovedAmount),
		ClearedCredit:   formatAmount(result.ClearedCredit),
	}, nil
}

func (h *BillingHandler) GetOutstandingBalance(ctx context.Context, req *GetOutstandingBalanceRequest) (*GetOutstandingBalanceResponse, error) {
	id, err := parseID("contract_id", req.ContractID)
	if err != nil {
		return nil, err
	}
	asOf, err := parseOptionalDate("as_of", req.AsOf)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.OutstandingBalance.Execute(ctx, dto.OutstandingBalanceRequest{ContractID: id, AsOf: asOf})
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetOutstandingBalanceResponse{
		ContractID:  result.ContractID.String(),
		AsOf:        formatDate(result.AsOf),
		Outstanding: formatAmount(result.Outstanding),
		Credit:      formatAmount(result.Credit),
	}, nil
}

func (h *BillingHandler) ListOverdueContracts(ctx context.Context, req *ListOverdueContractsRequest) (*ListOverdueContractsResponse, error) {
	today, err := parseOptionalDate("today", req.Today)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.ListOverdueContracts.Execute(ctx, dto.ListOverdueContractsRequest{Today: today})
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &ListOverdueContractsResponse{Contracts: make([]*OverdueContractMsg, 0, len(result))}
	for _, o := range result {
		resp.Contracts = append(resp.Contracts, &OverdueContractMsg{
			Contract:      toContractMsg(o.Contract),
			OldestUnpaid:  toInvoiceMsg(o.OldestUnpaid),
			OverdueAmount: formatAmount(o.OverdueAmount),
			DaysLate:      int32(o.DaysLate),
			OverdueCount:  int32(o.OverdueCount),
		})
	}
	return resp, nil
}

func (h *BillingHandler) GetPaymentHistory(ctx context.Context, req *GetPaymentHistoryRequest) (*GetPaymentHistoryResponse, error) {
	id, err := parseID("contract_id", req.ContractID)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.PaymentHistory.Execute(ctx, dto.PaymentHistoryRequest{ContractID: id})
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetPaymentHistoryResponse{Payments: toPaymentMsgs(result)}, nil
}

func (h *BillingHandler) ListInvoices(ctx context.Context, req *ListInvoicesRequest) (*ListInvoicesResponse, error) {
	id, err := parseID("contract_id", req.ContractID)
	if err != nil {
		return nil, err
	}
	today, err := parseOptionalDate("today", req.Today)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.ListInvoices.Execute(ctx, dto.ListInvoicesRequest{ContractID: id, Today: today})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListInvoicesResponse{Invoices: toInvoiceMsgs(result)}, nil
}

func (h *BillingHandler) GetContractStatement(ctx context.Context, req *GetContractStatementRequest) (*GetContractStatementResponse, error) {
	id, err := parseID("contract_id", req.ContractID)
	if err != nil {
		return nil, err
	}
	month, err := time.Parse("2006-01", req.Month)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid month %q: want YYYY-MM", req.Month)
	}
	result, err := h.uc.ContractStatement.Execute(ctx, dto.ContractStatementRequest{
		ContractID: id,
		Year:       month.Year(),
		Month:      month.Month(),
	})
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &GetContractStatementResponse{
		Contract:        toContractMsg(result.Contract),
		PeriodStart:     formatDate(result.PeriodStart),
		PeriodEnd:       formatDate(result.PeriodEnd),
		PreviousBalance: formatAmount(result.PreviousBalance),
		Expected:        formatAmount(result.Expected),
		PaidInPeriod:    formatAmount(result.PaidInPeriod),
		EndingBalance:   formatAmount(result.EndingBalance),
		Credit:          formatAmount(result.Credit),
		Payments:        toPaymentMsgs(result.Payments),
	}
	if result.Invoice != nil {
		resp.Invoice = toInvoiceMsg(*result.Invoice)
	}
	return resp, nil
}

func (h *BillingHandler) GetCustomerLedger(ctx context.Context, req *GetCustomerLedgerRequest) (*GetCustomerLedgerResponse, error) {
	id, err := parseID("customer_id", req.CustomerID)
	if err != nil {
		return nil, err
	}
	asOf, err := parseOptionalDate("as_of", req.AsOf)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.CustomerLedger.Execute(ctx, dto.CustomerLedgerRequest{CustomerID: id, AsOf: asOf})
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &GetCustomerLedgerResponse{
		CustomerID:       result.CustomerID.String(),
		CustomerName:     result.CustomerName,
		AsOf:             formatDate(result.AsOf),
		TotalBilled:      formatAmount(result.TotalBilled),
		TotalOutstanding: formatAmount(result.TotalOutstanding),
		TotalCredit:      formatAmount(result.TotalCredit),
		Contracts:        make([]*CustomerContractMsg, 0, len(result.Contracts)),
	}
	for _, line := range result.Contracts {
		resp.Contracts = append(resp.Contracts, &CustomerContractMsg{
			Contract:    toContractMsg(line.Contract),
			Billed:      formatAmount(line.Billed),
			Outstanding: formatAmount(line.Outstanding),
			Overdue:     line.Overdue,
		})
	}
	return resp, nil
}

func (h *BillingHandler) BackfillRate(ctx context.Context, req *BackfillRateRequest) (*BackfillRateResponse, error) {
	id, err := parseID("contract_id", req.ContractID)
	if err != nil {
		return nil, err
	}
	from, err := parseDate("from", req.From)
	if err != nil {
		return nil, err
	}
	result, err := h.uc.BackfillRate.Execute(ctx, dto.BackfillRateRequest{ContractID: id, From: from})
	if err != nil {
		return nil, toStatus(err)
	}
	return &BackfillRateResponse{
		ContractID:    result.ContractID.String(),
		Delta:         formatAmount(result.Delta),
		CreditApplied: formatAmount(result.CreditApplied),
		Updated:       toInvoiceMsgs(result.Updated),
	}, nil
}

func parseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s: %v", field, err)
	}
	return id, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	d, err := money.ParseAmount(s)
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s: %v", field, err)
	}
	return d, nil
}

func parseDate(field, s string) (time.Time, error) {
	d, err := valueobject.ParseDate(s)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s: %v", field, err)
	}
	return d, nil
}

// parseOptionalDate returns the zero time for an empty string.
func parseOptionalDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseDate(field, s)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(valueobject.DateLayout)
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(money.Scale)
}

func toContractMsg(c dto.ContractResponse) *ContractMsg {
	msg := &ContractMsg{
		ID:           c.ID.String(),
		CustomerID:   c.CustomerID.String(),
		CustomerName: c.CustomerName,
		TruckPlate:   c.TruckPlate,
		MonthlyRate:  formatAmount(c.MonthlyRate),
		BillingDay:   int32(c.BillingDay),
		StartDate:    formatDate(c.StartDate),
		Active:       c.Active,
		Credit:       formatAmount(c.Credit),
		Version:      int32(c.Version),
		Rates:        make([]*RateMsg, 0, len(c.Rates)),
	}
	if c.EndDate != nil {
		msg.EndDate = formatDate(*c.EndDate)
	}
	if !c.CreatedAt.IsZero() {
		msg.CreatedAt = timestamppb.New(c.CreatedAt)
	}
	if !c.UpdatedAt.IsZero() {
		msg.UpdatedAt = timestamppb.New(c.UpdatedAt)
	}
	for _, r := range c.Rates {
		msg.Rates = append(msg.Rates, &RateMsg{
			EffectiveFrom: formatDate(r.EffectiveFrom),
			MonthlyRate:   formatAmount(r.MonthlyRate),
		})
	}
	for _, s := range c.Suspensions {
		msg.Suspensions = append(msg.Suspensions, &SuspensionMsg{From: formatDate(s.From), To: formatDate(s.To)})
	}
	return msg
}

func toInvoiceMsg(inv dto.InvoiceResponse) *InvoiceMsg {
	return &InvoiceMsg{
		ID:          inv.ID.String(),
		ContractID:  inv.ContractID.String(),
		PeriodKey:   inv.PeriodKey,
		PeriodStart: formatDate(inv.PeriodStart),
		PeriodEnd:   formatDate(inv.PeriodEnd),
		DueDate:     formatDate(inv.DueDate),
		Billed:      formatAmount(inv.Billed),
		Paid:        formatAmount(inv.Paid),
		Remaining:   formatAmount(inv.Remaining),
		Status:      inv.Status,
	}
}

func toInvoiceMsgs(invs []dto.InvoiceResponse) []*InvoiceMsg {
	out := make([]*InvoiceMsg, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInvoiceMsg(inv))
	}
	return out
}

func toPaymentMsg(p dto.PaymentResponse) *PaymentMsg {
	msg := &PaymentMsg{
		ID:          p.ID.String(),
		ContractID:  p.ContractID.String(),
		Amount:      formatAmount(p.Amount),
		ReceivedOn:  formatDate(p.ReceivedOn),
		Method:      p.Method,
		Note:        p.Note,
		Credit:      formatAmount(p.Credit),
		Allocations: make([]*AllocationMsg, 0, len(p.Allocations)),
	}
	if !p.RecordedAt.IsZero() {
		msg.RecordedAt = timestamppb.New(p.RecordedAt)
	}
	for _, a := range p.Allocations {
		msg.Allocations = append(msg.Allocations, &AllocationMsg{
			InvoiceID:     a.InvoiceID.String(),
			PeriodKey:     a.PeriodKey,
			Amount:        formatAmount(a.Amount),
			BalanceBefore: formatAmount(a.BalanceBefore),
			BalanceAfter:  formatAmount(a.BalanceAfter),
		})
	}
	return msg
}

func toPaymentMsgs(ps []dto.PaymentResponse) []*PaymentMsg {
	out := make([]*PaymentMsg, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPaymentMsg(p))
	}
	return out
}
