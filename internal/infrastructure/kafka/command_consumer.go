package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hennyhux/changsheng/internal/application/dto"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
	pkgkafka "github.com/hennyhux/changsheng/pkg/kafka"
)

// TopicBillingCommands is where the scheduler drops billing runs.
const TopicBillingCommands = "billing.commands"

const commandGenerateInvoices = "generate_invoices"

// BillingCommand is the message body on TopicBillingCommands.
type BillingCommand struct {
	Command string `json:"command"`
	AsOf    string `json:"as_of,omitempty"`
}

// InvoiceRunner is satisfied by *usecase.GenerateAllInvoices.
type InvoiceRunner interface {
	Execute(ctx context.Context, req dto.GenerateAllInvoicesRequest) (dto.GenerateAllInvoicesResponse, error)
}

// CommandHandler executes billing commands consumed from Kafka.
type CommandHandler struct {
	runner InvoiceRunner
	logger *slog.Logger
}

func NewCommandHandler(runner InvoiceRunner, logger *slog.Logger) *CommandHandler {
	return &CommandHandler{runner: runner, logger: logger}
}

// Handle has the pkgkafka.Handler signature.
func (h *CommandHandler) Handle(ctx context.Context, msg pkgkafka.Message) error {
	var cmd BillingCommand
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		return fmt.Errorf("failed to decode billing command: %w", err)
	}

	switch cmd.Command {
	case commandGenerateInvoices:
		var asOf time.Time
		if cmd.AsOf != "" {
			d, err := valueobject.ParseDate(cmd.AsOf)
			if err != nil {
				return fmt.Errorf("invalid as_of in billing command: %w", err)
			}
			asOf = d
		}
		resp, err := h.runner.Execute(ctx, dto.GenerateAllInvoicesRequest{AsOf: asOf})
		if err != nil {
			return fmt.Errorf("invoice run failed: %w", err)
		}
		h.logger.InfoContext(ctx, "invoice run from command",
			"as_of", resp.AsOf.Format(valueobject.DateLayout),
			"contracts", resp.Contracts,
			"created", resp.Created,
			"failures", len(resp.Failures),
		)
		return nil
	default:
		h.logger.WarnContext(ctx, "ignoring unknown billing command", "command", cmd.Command)
		return nil
	}
}

// NewCommandConsumer subscribes h to TopicBillingCommands.
func NewCommandConsumer(cfg pkgkafka.Config, h *CommandHandler, logger *slog.Logger) (*pkgkafka.Consumer, error) {
	return pkgkafka.NewConsumer(cfg, TopicBillingCommands, h.Handle, logger)
}
