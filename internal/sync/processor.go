package sync

import (
	"context"

	"bankfeed-sync-go/internal/aggregator"
	"bankfeed-sync-go/internal/link"
	"bankfeed-sync-go/internal/logger"
)

// TransactionLister downloads the raw transaction feed for a remote user.
type TransactionLister interface {
	ListTransactions(ctx context.Context, userID string) ([]aggregator.Transaction, error)
}

// LinkResolver resolves the remote user id for an installation.
type LinkResolver interface {
	LinkedUserID(ctx context.Context, installIdentity string) (string, error)
}

// TransactionProcessor downloads the raw feed and groups it by normalized
// account reference.
type TransactionProcessor struct {
	links           LinkResolver
	feed            TransactionLister
	installIdentity string
}

func NewTransactionProcessor(links LinkResolver, feed TransactionLister, installIdentity string) *TransactionProcessor {
	return &TransactionProcessor{
		links:           links,
		feed:            feed,
		installIdentity: installIdentity,
	}
}

// Download resolves the linked user and fetches their transactions, grouped
// by account id. A missing link is ErrNoLinkedUser: there is nothing to sync
// without a remote user.
func (p *TransactionProcessor) Download(ctx context.Context) (map[string][]aggregator.Transaction, error) {
	log := logger.FromContext(ctx)
	log.Debug().Msg("downloading transactions from aggregator")

	userID, err := p.links.LinkedUserID(ctx, p.installIdentity)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, link.ErrNoLinkedUser
	}

	raw, err := p.feed.ListTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("count", len(raw)).Msg("fetched transactions from aggregator")

	grouped := make(map[string][]aggregator.Transaction)
	for _, txn := range raw {
		accountID := txn.Account.ID
		grouped[accountID] = append(grouped[accountID], txn)
	}
	return grouped, nil
}
