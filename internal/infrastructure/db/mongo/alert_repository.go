package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/core/ports"
)

const (
	collectionAlerts = "low_stock_alerts"
	defaultListLimit = 200
)

// AlertRepository implements ports.AlertRepository using MongoDB.
type AlertRepository struct {
	col *mongo.Collection
}

func NewAlertRepository(db *mongo.Database) *AlertRepository {
	return &AlertRepository{col: db.Collection(collectionAlerts)}
}

// Create inserts a new active alert. The partial unique index on product_id
// rejects a second active alert for the same product.
func (r *AlertRepository) Create(ctx context.Context, alert *domain.LowStockAlert) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, alert); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateAlert
		}
		return err
	}
	return nil
}

func (r *AlertRepository) FindByID(ctx context.Context, id string) (*domain.LowStockAlert, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var a domain.LowStockAlert
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAlertNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindActiveByProduct returns (nil, nil) when the product has no active alert.
func (r *AlertRepository) FindActiveByProduct(ctx context.Context, productID string) (*domain.LowStockAlert, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var a domain.LowStockAlert
	err := r.col.FindOne(ctx, bson.M{
		"product_id": productID,
		"status":     string(domain.AlertStatusActive),
	}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Resolve closes the alert only if it is still active, so a restock and an
// acknowledge racing on the same alert resolve it exactly once.
func (r *AlertRepository) Resolve(ctx context.Context, id string, acknowledged bool, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"status":      string(domain.AlertStatusResolved),
		"resolved_at": at.UTC(),
	}
	if acknowledged {
		set["acknowledged"] = true
	}

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": string(domain.AlertStatusActive)},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAlertNotFound
	}
	return domain.ErrAlreadyResolved
}

// List returns alerts matching filter, newest first.
func (r *AlertRepository) List(ctx context.Context, filter ports.AlertFilter) ([]*domain.LowStockAlert, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(listLimit(filter.Limit))

	cur, err := r.col.Find(ctx, alertQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	alerts := make([]*domain.LowStockAlert, 0)
	if err := cur.All(ctx, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// EnsureIndexes creates the alert indexes, including the partial unique index
// that allows at most one active alert per product.
func (r *AlertRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "product_id", Value: 1}},
			Options: options.Index().
				SetName("one_active_alert_per_product").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": string(domain.AlertStatusActive)}),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func alertQuery(f ports.AlertFilter) bson.M {
	q := bson.M{}
	if f.ProductID != "" {
		q["product_id"] = f.ProductID
	}
	if f.Status != "" {
		q["status"] = string(f.Status)
	}
	if r := dateRange(f.DateFrom, f.DateTo); r != nil {
		q["created_at"] = r
	}
	return q
}

// dateRange builds a created_at bound, or nil when both ends are open.
func dateRange(from, to time.Time) bson.M {
	if from.IsZero() && to.IsZero() {
		return nil
	}
	r := bson.M{}
	if !from.IsZero() {
		r["$gte"] = from.UTC()
	}
	if !to.IsZero() {
		r["$lte"] = to.UTC()
	}
	return r
}

func listLimit(n int) int64 {
	if n <= 0 {
		return defaultListLimit
	}
	return int64(n)
}
