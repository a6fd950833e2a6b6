package grpc

import "google.golang.org/protobuf/types/known/timestamppb"

// Wire messages for changsheng.billing.v1.BillingService. Money travels as
// decimal strings and calendar dates as YYYY-MM-DD.

type RateMsg struct {
	EffectiveFrom string `json:"effective_from"`
	MonthlyRate   string `json:"monthly_rate"`
}

type SuspensionMsg struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type ContractMsg struct {
	CreatedAt    *timestamppb.Timestamp `json:"created_at,omitempty"`
	UpdatedAt    *timestamppb.Timestamp `json:"updated_at,omitempty"`
	ID           string                 `json:"id"`
	CustomerID   string                 `json:"customer_id"`
	CustomerName string                 `json:"customer_name,omitempty"`
	TruckPlate   string                 `json:"truck_plate,omitempty"`
	MonthlyRate  string                 `json:"monthly_rate"`
	StartDate    string                 `json:"start_date"`
	EndDate      string                 `json:"end_date,omitempty"`
	Credit       string                 `json:"credit"`
	Rates        []*RateMsg             `json:"rates"`
	Suspensions  []*SuspensionMsg       `json:"suspensions,omitempty"`
	BillingDay   int32                  `json:"billing_day"`
	Version      int32                  `json:"version"`
	Active       bool                   `json:"active"`
}

type InvoiceMsg struct {
	ID          string `json:"id"`
	ContractID  string `json:"contract_id"`
	PeriodKey   string `json:"period_key"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	DueDate     string `json:"due_date"`
	Billed      string `json:"billed"`
	Paid        string `json:"paid"`
	Remaining   string `json:"remaining"`
	Status      string `json:"status"`
}

type AllocationMsg struct {
	InvoiceID     string `json:"invoice_id"`
	PeriodKey     string `json:"period_key"`
	Amount        string `json:"amount"`
	BalanceBefore string `json:"balance_before"`
	BalanceAfter  string `json:"balance_after"`
}

type PaymentMsg struct {
	RecordedAt  *timestamppb.Timestamp `json:"recorded_at,omitempty"`
	ID          string                 `json:"id"`
	ContractID  string                 `json:"contract_id"`
	Amount      string                 `json:"amount"`
	ReceivedOn  string                 `json:"received_on"`
	Method      string                 `json:"method"`
	Note        string                 `json:"note,omitempty"`
	Credit      string                 `json:"credit"`
	Allocations []*AllocationMsg       `json:"allocations"`
}

type ContractReply struct {
	Contract *ContractMsg `json:"contract"`
}

type CreateContractRequest struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	TruckPlate   string `json:"truck_plate"`
	MonthlyRate  string `json:"monthly_rate"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date,omitempty"`
	BillingDay   int32  `json:"billing_day,omitempty"`
}

type GetContractRequest struct {
	ContractID string `json:"contract_id"`
}

type ListContractsRequest struct {
	CustomerID string `json:"customer_id,omitempty"`
}

type ListContractsResponse struct {
	Contracts []*ContractMsg `json:"contracts"`
}

type UpdateContractRateRequest struct {
	ContractID    string `json:"contract_id"`
	MonthlyRate   string `json:"monthly_rate"`
	EffectiveFrom string `json:"effective_from"`
}

type SetContractStatusRequest struct {
	ContractID string `json:"contract_id"`
	EndDate    string `json:"end_date,omitempty"`
	ResumeOn   string `json:"resume_on,omitempty"`
	Active     bool   `json:"active"`
}

type GenerateInvoicesRequest struct {
	ContractID string `json:"contract_id"`
	AsOf       string `json:"as_of,omitempty"`
	// GapPolicy overrides the configured policy for this run.
	GapPolicy string `json:"gap_policy,omitempty"`
}

type GenerateInvoicesResponse struct {
	Anchor        *InvoiceMsg   `json:"anchor,omitempty"`
	ContractID    string        `json:"contract_id"`
	AsOf          string        `json:"as_of"`
	CreditApplied string        `json:"credit_applied"`
	Created       []*InvoiceMsg `json:"created"`
}

type GenerateAllInvoicesRequest struct {
	AsOf string `json:"as_of,omitempty"`
}

type ContractFailureMsg struct {
	ContractID string `json:"contract_id"`
	Error      string `json:"error"`
}

type GenerateAllInvoicesResponse struct {
	AsOf      string                `json:"as_of"`
	Failures  []*ContractFailureMsg `json:"failures,omitempty"`
	Contracts int32                 `json:"contracts"`
	Created   int32                 `json:"created"`
}

type RecordPaymentRequest struct {
	ContractID string `json:"contract_id"`
	Amount     string `json:"amount"`
	ReceivedOn string `json:"received_on,omitempty"`
	Method     string `json:"method,omitempty"`
	Note       string `json:"note,omitempty"`
}

type RecordPaymentResponse struct {
	Payment *PaymentMsg `json:"payment"`
	// CreditBalance is set when part of the payment was held as credit.
	CreditBalance string `json:"credit_balance,omitempty"`
}

type ResetContractPaymentsRequest struct {
	ContractID string `json:"contract_id"`
}

type ResetContractPaymentsResponse struct {
	ContractID      string `json:"contract_id"`
	RemovedAmount   string `json:"removed_amount"`
	ClearedCredit   string `json:"cleared_credit"`
	RemovedPayments int32  `json:"removed_payments"`
}

type GetOutstandingBalanceRequest struct {
	ContractID string `json:"contract_id"`
	AsOf       string `json:"as_of,omitempty"`
}

type GetOutstandingBalanceResponse struct {
	ContractID  string `json:"contract_id"`
	AsOf        string `json:"as_of"`
	Outstanding string `json:"outstanding"`
	Credit      string `json:"credit"`
}

type ListOverdueContractsRequest struct {
	Today string `json:"today,omitempty"`
}

type OverdueContractMsg struct {
	Contract      *ContractMsg `json:"contract"`
	OldestUnpaid  *InvoiceMsg  `json:"oldest_unpaid"`
	OverdueAmount string       `json:"overdue_amount"`
	DaysLate      int32        `json:"days_late"`
	OverdueCount  int32        `json:"overdue_count"`
}

type ListOverdueContractsResponse struct {
	Contracts []*OverdueContractMsg `json:"contracts"`
}

type GetPaymentHistoryRequest struct {
	ContractID string `json:"contract_id"`
}

type GetPaymentHistoryResponse struct {
	Payments []*PaymentMsg `json:"payments"`
}

type ListInvoicesRequest struct {
	ContractID string `json:"contract_id"`
	Today      string `json:"today,omitempty"`
}

type ListInvoicesResponse struct {
	Invoices []*InvoiceMsg `json:"invoices"`
}

type GetContractStatementRequest struct {
	ContractID string `json:"contract_id"`
	// Month is YYYY-MM.
	Month string `json:"month"`
}

type GetContractStatementResponse struct {
	Contract        *ContractMsg  `json:"contract"`
	Invoice         *InvoiceMsg   `json:"invoice,omitempty"`
	PeriodStart     string        `json:"period_start"`
	PeriodEnd       string        `json:"period_end"`
	PreviousBalance string        `json:"previous_balance"`
	Expected        string        `json:"expected"`
	PaidInPeriod    string        `json:"paid_in_period"`
	EndingBalance   string        `json:"ending_balance"`
	Credit          string        `json:"credit"`
	Payments        []*PaymentMsg `json:"payments"`
}

type GetCustomerLedgerRequest struct {
	CustomerID string `json:"customer_id"`
	AsOf       string `json:"as_of,omitempty"`
}

type CustomerContractMsg struct {
	Contract    *ContractMsg `json:"contract"`
	Billed      string       `json:"billed"`
	Outstanding string       `json:"outstanding"`
	Overdue     bool         `json:"overdue"`
}

type GetCustomerLedgerResponse struct {
	CustomerID       string                 `json:"customer_id"`
	CustomerName     string                 `json:"customer_name"`
	AsOf             string                 `json:"as_of"`
	TotalBilled      string                 `json:"total_billed"`
	TotalOutstanding string                 `json:"total_outstanding"`
	TotalCredit      string                 `json:"total_credit"`
	Contracts        []*CustomerContractMsg `json:"contracts"`
}

type BackfillRateRequest struct {
	ContractID string `json:"contract_id"`
	From       string `json:"from"`
}

type BackfillRateResponse struct {
	ContractID    string        `json:"contract_id"`
	Delta         string        `json:"delta"`
	CreditApplied string        `json:"credit_applied"`
	Updated       []*InvoiceMsg `json:"updated"`
}
