package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound export adapters.
type (
	// TransactionAppender mirrors automation-created transactions into
	// an external report. Export is best-effort; callers log and move
	// on when it fails.
	TransactionAppender interface {
		AppendTransactions(ctx context.Context, userEmail string, txs []core.Transaction) error
	}
)
