package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/core/ports"
)

const collectionTransactions = "inventory_transactions"

// InventoryRepository implements ports.InventoryRepository using MongoDB.
// The ledger is append-only.
type InventoryRepository struct {
	col *mongo.Collection
}

func NewInventoryRepository(db *mongo.Database) *InventoryRepository {
	return &InventoryRepository{col: db.Collection(collectionTransactions)}
}

// Insert appends a ledger entry.
func (r *InventoryRepository) Insert(ctx context.Context, tx *domain.InventoryTransaction) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, tx)
	return err
}

// List returns ledger entries matching filter, newest first.
func (r *InventoryRepository) List(ctx context.Context, filter ports.TransactionFilter) ([]*domain.InventoryTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(listLimit(filter.Limit))

	cur, err := r.col.Find(ctx, transactionQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	txs := make([]*domain.InventoryTransaction, 0)
	if err := cur.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// EnsureIndexes creates indexes on the inventory_transactions collection.
func (r *InventoryRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func transactionQuery(f ports.TransactionFilter) bson.M {
	q := bson.M{}
	if f.ProductID != "" {
		q["product_id"] = f.ProductID
	}
	if r := dateRange(f.DateFrom, f.DateTo); r != nil {
		q["created_at"] = r
	}
	return q
}
