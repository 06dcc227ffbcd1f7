package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mightyoctopus/worthbrain/internal/domain"
	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
	"github.com/mightyoctopus/worthbrain/pkg/errcodes"
)

// OpportunityRepository persists the opportunity log in Postgres.
// Insertion order is the log order.
type OpportunityRepository struct {
	db *sqlx.DB
}

func NewOpportunityRepository(db *sqlx.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

func (r *OpportunityRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.WrapError(err, errcodes.PersistenceFailure, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return domain.WrapError(
				fmt.Errorf("%w; rollback: %v", err, rbErr),
				errcodes.PersistenceFailure,
				"transaction failed",
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(err, errcodes.PersistenceFailure, "commit")
	}

	return nil
}

// Load returns all recorded opportunities in append order.
func (r *OpportunityRepository) Load(ctx context.Context) ([]entity.Opportunity, error) {
	query := `
		SELECT id, product_description, price, url, estimate, discount, created_at
		FROM opportunities
		ORDER BY id`

	var schemas []opportunitySchema
	if err := r.db.SelectContext(ctx, &schemas, query); err != nil {
		return nil, domain.WrapError(err, errcodes.PersistenceFailure, "load opportunities")
	}

	opportunities := make([]entity.Opportunity, 0, len(schemas))
	for _, s := range schemas {
		opportunities = append(opportunities, s.toDomain())
	}

	return opportunities, nil
}

// Append durably records one opportunity.
func (r *OpportunityRepository) Append(ctx context.Context, opp entity.Opportunity) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO opportunities (product_description, price, url, estimate, discount, created_at)
			VALUES (:product_description, :price, :url, :estimate, :discount, :created_at)`

		params := map[string]any{
			"product_description": opp.Deal.ProductDescription,
			"price":               opp.Deal.Price,
			"url":                 opp.Deal.URL,
			"estimate":            opp.Estimate,
			"discount":            opp.Discount,
			"created_at":          time.Now(),
		}

		if _, err := tx.NamedExecContext(ctx, query, params); err != nil {
			return domain.WrapError(err, errcodes.PersistenceFailure, "insert opportunity")
		}

		return nil
	})
}

// URLs returns the set of already-surfaced deal URLs for dedup.
func (r *OpportunityRepository) URLs(ctx context.Context) (map[string]struct{}, error) {
	var urls []string
	if err := r.db.SelectContext(ctx, &urls, `SELECT url FROM opportunities`); err != nil {
		return nil, domain.WrapError(err, errcodes.PersistenceFailure, "load urls")
	}

	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}

	return set, nil
}
