package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bankfeed-sync-go/internal/aggregator"
	"bankfeed-sync-go/internal/jobs"
	"bankfeed-sync-go/internal/ledger"
	"bankfeed-sync-go/internal/logger"
)

const dateLayout = "2006-01-02"

// dateLayouts are the shapes the feed has been seen to use for transaction
// and posting dates.
var dateLayouts = []string{
	dateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// AccountSource lists the local ledger accounts mapping targets can point to.
type AccountSource interface {
	Accounts(ctx context.Context) ([]ledger.Account, error)
}

// TransactionGenerator converts grouped raw transactions into normalized
// ledger transactions using the job's account mapping.
type TransactionGenerator struct {
	cfg      jobs.Configuration
	source   AccountSource
	accounts map[int64]ledger.Account
	now      func() time.Time
}

func NewTransactionGenerator(cfg jobs.Configuration, source AccountSource) *TransactionGenerator {
	return &TransactionGenerator{
		cfg:    cfg,
		source: source,
		now:    time.Now,
	}
}

// CollectTargetAccounts fetches the ledger accounts the mapping may point to.
func (g *TransactionGenerator) CollectTargetAccounts(ctx context.Context) error {
	accounts, err := g.source.Accounts(ctx)
	if err != nil {
		return err
	}
	g.accounts = make(map[int64]ledger.Account, len(accounts))
	for _, acc := range accounts {
		g.accounts[acc.ID] = acc
	}
	log := logger.FromContext(ctx)
	log.Debug().Int("count", len(g.accounts)).Msg("collected ledger target accounts")
	return nil
}

// Generate converts every transaction in every mapped group. Unmapped groups
// are skipped entirely; a partial mapping is an expected steady state, not a
// failure. A malformed individual record is skipped and logged, never
// aborting the batch.
func (g *TransactionGenerator) Generate(ctx context.Context, grouped map[string][]aggregator.Transaction) []NormalizedTransaction {
	log := logger.FromContext(ctx)
	result := []NormalizedTransaction{}

	for accountID, txns := range grouped {
		local, ok := g.findLocalAccount(accountID)
		if !ok {
			log.Info().Str("account", accountID).Msg("skipping transactions for unmapped remote account")
			continue
		}

		for _, txn := range txns {
			converted, err := g.convert(txn, local)
			if err != nil {
				log.Warn().Str("account", accountID).Str("transaction", txn.ID).Err(err).
					Msg("skipping malformed transaction")
				continue
			}
			result = append(result, converted)
		}
	}
	return result
}

// findLocalAccount resolves a remote account id through the job mapping to a
// collected ledger account.
func (g *TransactionGenerator) findLocalAccount(remoteAccountID string) (ledger.Account, bool) {
	localID, ok := g.cfg.Accounts[remoteAccountID]
	if !ok {
		return ledger.Account{}, false
	}
	acc, ok := g.accounts[localID]
	return acc, ok
}

func (g *TransactionGenerator) convert(txn aggregator.Transaction, local ledger.Account) (NormalizedTransaction, error) {
	if txn.ID == "" {
		return NormalizedTransaction{}, fmt.Errorf("transaction has no id")
	}

	amount, err := decimal.NewFromString(txn.Amount)
	if err != nil {
		return NormalizedTransaction{}, fmt.Errorf("parsing amount %q: %w", txn.Amount, err)
	}

	date, err := g.resolveDate(txn)
	if err != nil {
		return NormalizedTransaction{}, err
	}

	description := txn.Description
	if description == "" {
		description = "Unknown transaction"
	}
	currency := txn.Currency
	if currency == "" {
		currency = "AUD"
	}

	nt := NormalizedTransaction{
		Date:              date,
		Description:       description,
		Amount:            amount.Abs(),
		CurrencyCode:      currency,
		CategoryName:      txn.Class.Code,
		Notes:             "Imported from bank feed",
		ExternalID:        txn.ID,
		InternalReference: txn.ID,
	}

	// The raw sign is dropped: direction alone decides the type, and the
	// mapped account sits on the matching side of the entry.
	if txn.Direction == "credit" {
		nt.Type = TypeDeposit
		nt.DestinationName = local.Name
	} else {
		nt.Type = TypeWithdrawal
		nt.SourceName = local.Name
	}
	return nt, nil
}

// resolveDate prefers the transaction date, falls back to the posting date,
// and uses today when both are absent.
func (g *TransactionGenerator) resolveDate(txn aggregator.Transaction) (string, error) {
	raw := txn.TransactionDate
	if raw == "" {
		raw = txn.PostDate
	}
	if raw == "" {
		return g.now().Format(dateLayout), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(dateLayout), nil
		}
	}
	return "", fmt.Errorf("unparseable date %q", raw)
}
