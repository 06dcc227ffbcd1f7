package persistence

import (
	"time"

	"github.com/mightyoctopus/worthbrain/internal/domain/entity"
)

// opportunitySchema maps one row of the opportunities table.
type opportunitySchema struct {
	ID                 int64     `db:"id"`
	ProductDescription string    `db:"product_description"`
	Price              float64   `db:"price"`
	URL                string    `db:"url"`
	Estimate           float64   `db:"estimate"`
	Discount           float64   `db:"discount"`
	CreatedAt          time.Time `db:"created_at"`
}

func (s opportunitySchema) toDomain() entity.Opportunity {
	return entity.Opportunity{
		Deal: entity.Deal{
			ProductDescription: s.ProductDescription,
			Price:              s.Price,
			URL:                s.URL,
		},
		Estimate: s.Estimate,
		Discount: s.Discount,
	}
}
