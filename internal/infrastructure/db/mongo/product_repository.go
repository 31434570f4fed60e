package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/storefront/realtime/internal/core/domain"
)

const collectionProducts = "products"

// productDocument is the stored shape of a product. Prices are kept as
// decimal strings; the driver has no codec for decimal.Decimal.
type productDocument struct {
	ID                string    `bson:"_id"`
	Name              string    `bson:"name"`
	Stock             int       `bson:"stock"`
	LowStockThreshold int       `bson:"low_stock_threshold"`
	AlertStatus       string    `bson:"alert_status"`
	BasePrice         string    `bson:"base_price"`
	CurrentPrice      string    `bson:"current_price"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

func (d productDocument) toDomain() *domain.Product {
	status := domain.AlertStatus(d.AlertStatus)
	if status == "" {
		status = domain.AlertStatusNone
	}
	return &domain.Product{
		ID:                d.ID,
		Name:              d.Name,
		Stock:             d.Stock,
		LowStockThreshold: d.LowStockThreshold,
		AlertStatus:       status,
		BasePrice:         parseDecimal(d.BasePrice),
		CurrentPrice:      parseDecimal(d.CurrentPrice),
		UpdatedAt:         d.UpdatedAt,
	}
}

func parseDecimal(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// ProductRepository implements ports.ProductRepository using MongoDB. The
// catalogue itself is owned by the inventory collaborator; this service only
// moves stock and mirrors the alert status.
type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{col: db.Collection(collectionProducts)}
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc productDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *ProductRepository) UpdateStock(ctx context.Context, id string, stock int, at time.Time) error {
	return r.set(ctx, id, bson.M{"stock": stock, "updated_at": at.UTC()})
}

func (r *ProductRepository) SetAlertStatus(ctx context.Context, id string, status domain.AlertStatus) error {
	return r.set(ctx, id, bson.M{"alert_status": string(status)})
}

func (r *ProductRepository) set(ctx context.Context, id string, fields bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
