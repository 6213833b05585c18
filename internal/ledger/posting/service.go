package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/halcyon-erp/halcyon/internal/ledger/accounts"
	"github.com/halcyon-erp/halcyon/internal/ledger/categories"
	"github.com/halcyon-erp/halcyon/internal/ledger/documents"
	"github.com/halcyon-erp/halcyon/internal/ledger/fx"
	"github.com/halcyon-erp/halcyon/internal/ledger/journals"
	"github.com/halcyon-erp/halcyon/internal/ledger/mappings"
	"github.com/halcyon-erp/halcyon/internal/ledger/money"
	"github.com/halcyon-erp/halcyon/internal/ledger/periods"
	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
	"github.com/halcyon-erp/halcyon/internal/ledger/trialbalance"
	locks "github.com/halcyon-erp/halcyon/internal/shared"
)

// State names the phase a posting batch is in. A batch moves strictly
// forward; any phase can jump to Failed, after which nothing is written.
type State string

const (
	StateCollecting State = "COLLECTING"
	StateResolving  State = "RESOLVING"
	StateConverting State = "CONVERTING"
	StatePosting    State = "POSTING"
	StateFinalizing State = "FINALIZING"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// SnapshotSource loads the reference data a batch resolves against. The four
// loads are independent and run concurrently.
type SnapshotSource interface {
	Accounts(ctx context.Context) ([]accounts.Account, error)
	UsedAccountIDs(ctx context.Context) ([]int64, error)
	Categories(ctx context.Context) ([]categories.Category, error)
	Mappings(ctx context.Context) ([]mappings.AccountMapping, error)
}

// DocumentSource reads source documents outside the posting transaction.
type DocumentSource interface {
	Get(ctx context.Context, id int64) (documents.Document, error)
	GetByIDs(ctx context.Context, ids []int64) ([]documents.Document, error)
	ListUnposted(ctx context.Context, docType documents.DocumentType) ([]documents.Document, error)
}

// PeriodSource finds the open fiscal period a document date falls in.
type PeriodSource interface {
	FindOpenByDate(ctx context.Context, date time.Time) (periods.Period, error)
}

// JournalSource reads posted transactions for listing, check, and unwind.
type JournalSource interface {
	List(ctx context.Context) ([]journals.Transaction, error)
	GetWithLines(ctx context.Context, id int64) (journals.Transaction, error)
}

// Locker serializes batches against a fiscal period across processes.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// Service orchestrates posting batches: collect documents, resolve accounts,
// convert currencies, write journals and trial-balance deltas, finalize the
// documents. The whole batch commits or nothing does.
type Service struct {
	repo      Repository
	snapshots SnapshotSource
	documents DocumentSource
	periods   PeriodSource
	journals  JournalSource
	gateway   fx.Gateway
	locks     Locker
	profiles  map[documents.DocumentType]documents.Profile
	updater   *trialbalance.Updater
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(
	logger *slog.Logger,
	repo Repository,
	snapshots SnapshotSource,
	docs DocumentSource,
	periodSrc PeriodSource,
	journalSrc JournalSource,
	gateway fx.Gateway,
	locks Locker,
	profiles map[documents.DocumentType]documents.Profile,
) *Service {
	return &Service{
		repo:      repo,
		snapshots: snapshots,
		documents: docs,
		periods:   periodSrc,
		journals:  journalSrc,
		gateway:   gateway,
		locks:     locks,
		profiles:  profiles,
		updater:   trialbalance.NewUpdater(),
		logger:    logger,
		now:       time.Now,
	}
}

// WithNow overrides the clock, used in tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Result describes a committed batch: the one journal it produced and the
// source documents folded into it.
type Result struct {
	BatchID     uuid.UUID `json:"batchId"`
	State       State     `json:"state"`
	JournalID   int64     `json:"postedTransactionId"`
	DocumentIDs []int64   `json:"documentIds"`
}

// lineStamp carries a base-currency audit amount back onto a document line.
type lineStamp struct {
	lineID int64
	base   decimal.Decimal
}

// piece is one resolved amount waiting for aggregation.
type piece struct {
	accountID int64
	side      journals.Side
	amount    money.Money
	lineID    int64
}

type batchEntry struct {
	doc       *documents.Document
	pieces    []piece
	stamps    []lineStamp
	dists     []journals.Distribution
	baseTotal decimal.Decimal
}

// PostOne posts a single document; it is a one-element batch.
func (s *Service) PostOne(ctx context.Context, docID int64, postDate time.Time) (Result, error) {
	return s.PostMany(ctx, []int64{docID}, postDate)
}

// PostAllUnposted posts every unposted document of a class as one batch.
func (s *Service) PostAllUnposted(ctx context.Context, docType documents.DocumentType, postDate time.Time) (Result, error) {
	docs, err := s.documents.ListUnposted(ctx, docType)
	if err != nil {
		return Result{}, err
	}
	ids := make([]int64, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	if len(ids) == 0 {
		return Result{BatchID: uuid.New(), State: StateDone}, nil
	}
	return s.PostMany(ctx, ids, postDate)
}

// PostMany runs the posting state machine over a batch of documents. The
// batch produces exactly one immutable ledger transaction; any document
// failure aborts the whole batch before anything is written. A zero postDate
// means "post as of now"; the posting date selects both the fiscal period
// and the conversion rates.
func (s *Service) PostMany(ctx context.Context, docIDs []int64, postDate time.Time) (Result, error) {
	batchID := uuid.New()
	postedAt := s.now()
	if postDate.IsZero() {
		postDate = postedAt
	}
	res := Result{BatchID: batchID}

	fail := func(state State, failed ...DocumentError) (Result, error) {
		res.State = StateFailed
		err := &BatchError{BatchID: batchID, State: state, Failed: failed}
		s.logger.Warn("posting batch failed",
			slog.String("batch_id", batchID.String()),
			slog.String("state", string(state)),
			slog.Any("error", err))
		return res, err
	}

	// Collecting: load the documents and refuse ineligible ones up front.
	res.State = StateCollecting
	docs, err := s.documents.GetByIDs(ctx, docIDs)
	if err != nil {
		return fail(StateCollecting, DocumentError{Err: err})
	}
	var failed []DocumentError
	entries := make([]batchEntry, len(docs))
	res.DocumentIDs = make([]int64, len(docs))
	for i := range docs {
		doc := &docs[i]
		entries[i].doc = doc
		res.DocumentIDs[i] = doc.ID
		if doc.IsPosted {
			failed = append(failed, DocumentError{DocumentID: doc.ID, Err: shared.ErrAlreadyPosted})
			continue
		}
		if err := doc.Validate(); err != nil {
			failed = append(failed, DocumentError{DocumentID: doc.ID, Err: err})
			continue
		}
		doc.ComputeTotals()
	}
	if len(failed) > 0 {
		return fail(StateCollecting, failed...)
	}

	// Resolving: map every amount to a concrete leaf account.
	res.State = StateResolving
	dir, resolver, err := s.loadSnapshot(ctx)
	if err != nil {
		return fail(StateResolving, DocumentError{Err: err})
	}
	for i := range entries {
		if err := s.resolveEntry(resolver, dir, &entries[i]); err != nil {
			failed = append(failed, DocumentError{DocumentID: entries[i].doc.ID, Err: err})
		}
	}
	if len(failed) > 0 {
		return fail(StateResolving, failed...)
	}

	// Converting: bring foreign-currency documents into the base currency as
	// of the posting date, then aggregate and prove each set balances.
	res.State = StateConverting
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range entries {
		entry := &entries[i]
		g.Go(func() error {
			if err := s.convertEntry(gctx, entry, postDate); err != nil {
				return DocumentError{DocumentID: entry.doc.ID, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var de DocumentError
		if errors.As(err, &de) {
			return fail(StateConverting, de)
		}
		return fail(StateConverting, DocumentError{Err: err})
	}
	for i := range entries {
		if err := aggregate(&entries[i]); err != nil {
			failed = append(failed, DocumentError{DocumentID: entries[i].doc.ID, Err: err})
		}
	}
	if len(failed) > 0 {
		return fail(StateConverting, failed...)
	}

	// Posting: the posting date selects one fiscal period for the whole
	// batch. Lock it, merge every document's distributions into the single
	// batch transaction, and write everything on one store transaction.
	res.State = StatePosting
	period, err := s.periods.FindOpenByDate(ctx, postDate)
	if err != nil {
		return fail(StatePosting, DocumentError{
			Err: fmt.Errorf("no open period for %s: %w", postDate.Format("2006-01-02"), err)})
	}
	release, err := s.locks.Acquire(ctx, locks.PostingLockKey(period.ID))
	if err != nil {
		return fail(StatePosting, DocumentError{Err: err})
	}
	defer release()

	batchAgg := journals.NewAggregator()
	for i := range entries {
		for _, d := range entries[i].dists {
			if err := batchAgg.Add(d.AccountID, journals.SideDebit, d.Debit); err != nil {
				return fail(StatePosting, DocumentError{DocumentID: entries[i].doc.ID, Err: err})
			}
			if err := batchAgg.Add(d.AccountID, journals.SideCredit, d.Credit); err != nil {
				return fail(StatePosting, DocumentError{DocumentID: entries[i].doc.ID, Err: err})
			}
		}
	}
	batchDists := batchAgg.Distributions()
	if err := journals.CheckBalance(batchDists); err != nil {
		return fail(StatePosting, DocumentError{Err: err})
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := tx.InsertTransaction(ctx, journals.Transaction{
			BatchID:  batchID,
			Currency: s.gateway.BaseCurrency(),
			Date:     postDate,
			Memo:     batchMemo(entries),
			PostedAt: postedAt,
		})
		if err != nil {
			return DocumentError{Err: err}
		}
		if err := tx.InsertDistributions(ctx, created.ID, batchDists); err != nil {
			return DocumentError{Err: err}
		}
		if err := s.updater.Apply(ctx, tx, dir, period.ID, batchDists); err != nil {
			return DocumentError{Err: err}
		}
		for i := range entries {
			entry := &entries[i]
			doc := entry.doc
			totals := documents.PostingTotals{
				Subtotal:    doc.Subtotal,
				Total:       doc.Total,
				Balance:     doc.Balance,
				BaseBalance: entry.baseTotal,
			}
			if err := tx.Documents().MarkPosted(ctx, doc.ID, created.ID, totals, postedAt); err != nil {
				return DocumentError{DocumentID: doc.ID, Err: err}
			}
			for _, st := range entry.stamps {
				if err := tx.Documents().StampLineBase(ctx, st.lineID, st.base, postDate); err != nil {
					return DocumentError{DocumentID: doc.ID, Err: err}
				}
			}
		}
		res.JournalID = created.ID
		return nil
	})
	if err != nil {
		res.JournalID = 0
		var de DocumentError
		if errors.As(err, &de) {
			return fail(StateFinalizing, de)
		}
		return fail(StateFinalizing, DocumentError{Err: err})
	}
	res.State = StateDone
	s.logger.Info("posting batch committed",
		slog.String("batch_id", batchID.String()),
		slog.Int64("journal_id", res.JournalID),
		slog.Int("documents", len(entries)))
	return res, nil
}

// batchMemo names the source documents a batch journal came from.
func batchMemo(entries []batchEntry) string {
	if len(entries) == 1 {
		doc := entries[0].doc
		return fmt.Sprintf("%s %s", doc.Type, doc.Number)
	}
	return fmt.Sprintf("posting batch of %d documents", len(entries))
}

// Unwind deletes a posted transaction, backs its deltas out of the trial
// balance, and returns the source documents to the unposted state. The
// transaction's period must still be open.
func (s *Service) Unwind(ctx context.Context, journalID int64) error {
	txn, err := s.journals.GetWithLines(ctx, journalID)
	if err != nil {
		return err
	}
	period, err := s.periods.FindOpenByDate(ctx, txn.Date)
	if err != nil {
		return fmt.Errorf("unwind journal %d: %w", journalID, err)
	}
	dir, _, err := s.loadSnapshot(ctx)
	if err != nil {
		return err
	}
	release, err := s.locks.Acquire(ctx, locks.PostingLockKey(period.ID))
	if err != nil {
		return err
	}
	defer release()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.GetTransactionForUpdate(ctx, journalID)
		if err != nil {
			return err
		}
		if err := s.updater.Reverse(ctx, tx, dir, period.ID, locked.Lines); err != nil {
			return err
		}
		if err := tx.Documents().ResetUnposted(ctx, journalID); err != nil {
			return err
		}
		return tx.DeleteTransaction(ctx, journalID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("journal unwound",
		slog.Int64("journal_id", journalID),
		slog.Int64("period_id", period.ID))
	return nil
}

// GetDocument reads one source document with its lines.
func (s *Service) GetDocument(ctx context.Context, id int64) (documents.Document, error) {
	return s.documents.Get(ctx, id)
}

// ListJournals returns posted transactions, newest first.
func (s *Service) ListJournals(ctx context.Context) ([]journals.Transaction, error) {
	return s.journals.List(ctx)
}

// CheckReport is the result of a balance proof, either over a posted
// transaction's stored distributions or over a caller-supplied draft set.
type CheckReport struct {
	JournalID int64           `json:"journalId,omitempty"`
	Currency  string          `json:"currency"`
	Debits    decimal.Decimal `json:"debits"`
	Credits   decimal.Decimal `json:"credits"`
	Balanced  bool            `json:"balanced"`
	Detail    string          `json:"detail,omitempty"`
}

// Check re-runs the balance proof over a posted transaction's stored
// distributions.
func (s *Service) Check(ctx context.Context, journalID int64) (CheckReport, error) {
	txn, err := s.journals.GetWithLines(ctx, journalID)
	if err != nil {
		return CheckReport{}, err
	}
	report := CheckReport{JournalID: txn.ID, Currency: txn.Currency,
		Debits: decimal.Zero, Credits: decimal.Zero}
	for _, d := range txn.Lines {
		report.Debits = report.Debits.Add(d.Debit.Amount)
		report.Credits = report.Credits.Add(d.Credit.Amount)
	}
	if err := journals.CheckBalance(txn.Lines); err != nil {
		report.Detail = err.Error()
		return report, nil
	}
	report.Balanced = true
	return report, nil
}

// DraftDistribution is one caller-supplied line to pre-validate before any
// document exists.
type DraftDistribution struct {
	AccountID int64           `json:"accountId" validate:"required,gt=0"`
	Side      journals.Side   `json:"side" validate:"required,oneof=DEBIT CREDIT"`
	Amount    decimal.Decimal `json:"amount"`
}

// CheckDraft proves a draft distribution set without writing anything:
// every account must be a postable leaf and the set must balance.
func (s *Service) CheckDraft(ctx context.Context, currency string, lines []DraftDistribution) (CheckReport, error) {
	dir, _, err := s.loadSnapshot(ctx)
	if err != nil {
		return CheckReport{}, err
	}
	agg := journals.NewAggregator()
	for _, l := range lines {
		acct, err := dir.Get(l.AccountID)
		if err != nil {
			return CheckReport{}, err
		}
		if dir.IsParent(acct.ID) {
			return CheckReport{}, fmt.Errorf("%w: account %s", shared.ErrPostingToParent, acct.Code)
		}
		if !l.Amount.IsPositive() {
			return CheckReport{}, fmt.Errorf("ledger: amount for account %s must be positive", acct.Code)
		}
		if err := agg.Add(acct.ID, l.Side, money.New(l.Amount, currency)); err != nil {
			return CheckReport{}, err
		}
	}
	dists := agg.Distributions()
	report := CheckReport{Currency: currency, Debits: decimal.Zero, Credits: decimal.Zero}
	for _, d := range dists {
		report.Debits = report.Debits.Add(d.Debit.Amount)
		report.Credits = report.Credits.Add(d.Credit.Amount)
	}
	if err := journals.CheckBalance(dists); err != nil {
		report.Detail = err.Error()
		return report, nil
	}
	report.Balanced = true
	return report, nil
}

func (s *Service) loadSnapshot(ctx context.Context) (*accounts.Directory, *mappings.Resolver, error) {
	var (
		accts []accounts.Account
		used  []int64
		cats  []categories.Category
		maps  []mappings.AccountMapping
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accts, err = s.snapshots.Accounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		used, err = s.snapshots.UsedAccountIDs(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.snapshots.Categories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		maps, err = s.snapshots.Mappings(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	dir := accounts.NewDirectory(accts, used)
	return dir, mappings.NewResolver(maps, cats, dir), nil
}

// resolveEntry turns a document into account-level pieces. Bill-like
// documents resolve a debit/credit pair per amount through the document
// class profile; journal vouchers name accounts directly and only need the
// leaf check.
func (s *Service) resolveEntry(resolver *mappings.Resolver, dir *accounts.Directory, entry *batchEntry) error {
	doc := entry.doc
	if !doc.Type.IsBillLike() {
		for _, line := range doc.Lines {
			acct, err := dir.Get(*line.AccountID)
			if err != nil {
				return err
			}
			if dir.IsParent(acct.ID) {
				return fmt.Errorf("%w: account %s", shared.ErrPostingToParent, acct.Code)
			}
			entry.pieces = append(entry.pieces, piece{
				accountID: acct.ID,
				side:      line.Side,
				amount:    money.New(line.Amount, doc.Currency),
				lineID:    line.ID,
			})
		}
		return nil
	}

	profile, ok := s.profiles[doc.Type]
	if !ok {
		return fmt.Errorf("ledger: no posting profile for document type %s", doc.Type)
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	for _, line := range doc.Lines {
		ext := line.Extended(doc.Currency)
		if ext.IsZero() {
			continue
		}
		if err := addPair(resolver, entry, profile.LineDebitType, profile.LineCreditType,
			line.CategoryID, doc.SiteID, ext, line.ID); err != nil {
			return err
		}
	}
	if !doc.Freight.IsZero() {
		if profile.FreightDebitType == "" {
			return fmt.Errorf("ledger: document type %s carries freight but its profile maps none", doc.Type)
		}
		if err := addPair(resolver, entry, profile.FreightDebitType, profile.FreightCreditType,
			nil, doc.SiteID, money.New(doc.Freight, doc.Currency), 0); err != nil {
			return err
		}
	}
	if !doc.Tax.IsZero() {
		if profile.TaxDebitType == "" {
			return fmt.Errorf("ledger: document type %s carries tax but its profile maps none", doc.Type)
		}
		if err := addPair(resolver, entry, profile.TaxDebitType, profile.TaxCreditType,
			nil, doc.SiteID, money.New(doc.Tax, doc.Currency), 0); err != nil {
			return err
		}
	}
	return nil
}

func addPair(resolver *mappings.Resolver, entry *batchEntry, debitType, creditType string,
	categoryID, siteID *int64, amount money.Money, lineID int64) error {
	dr, err := resolver.Resolve(debitType, categoryID, siteID)
	if err != nil {
		return err
	}
	cr, err := resolver.Resolve(creditType, categoryID, siteID)
	if err != nil {
		return err
	}
	entry.pieces = append(entry.pieces,
		piece{accountID: dr.ID, side: journals.SideDebit, amount: amount, lineID: lineID},
		piece{accountID: cr.ID, side: journals.SideCredit, amount: amount, lineID: lineID})
	return nil
}

// convertEntry brings every piece into the base currency as of the posting
// date, records per-line audit stamps, and computes the document's
// base-currency open balance. Same-currency documents pass through
// untouched.
func (s *Service) convertEntry(ctx context.Context, entry *batchEntry, postDate time.Time) error {
	if entry.doc.Currency == s.gateway.BaseCurrency() {
		entry.baseTotal = entry.doc.Total
		return nil
	}
	stamped := make(map[int64]bool)
	for i := range entry.pieces {
		p := &entry.pieces[i]
		converted, err := s.gateway.Convert(ctx, p.amount, postDate)
		if err != nil {
			return err
		}
		p.amount = converted
		if p.lineID != 0 && !stamped[p.lineID] {
			stamped[p.lineID] = true
			entry.stamps = append(entry.stamps, lineStamp{lineID: p.lineID, base: converted.Amount})
		}
	}
	total, err := s.gateway.Convert(ctx, money.New(entry.doc.Total, entry.doc.Currency), postDate)
	if err != nil {
		return err
	}
	entry.baseTotal = total.Amount
	return nil
}

// aggregate folds the pieces into one distribution per account and proves
// the set balances before anything touches the store.
func aggregate(entry *batchEntry) error {
	agg := journals.NewAggregator()
	for _, p := range entry.pieces {
		if err := agg.Add(p.accountID, p.side, p.amount); err != nil {
			return err
		}
	}
	entry.dists = agg.Distributions()
	return journals.CheckBalance(entry.dists)
}
