// Package mongodb implements storage interfaces using MongoDB
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ObregonJeronimo/GestionAR/internal/storage"
)

// Store implements storage.VoucherStore using MongoDB
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	vouchers *mongo.Collection
}

// Config holds MongoDB connection settings
type Config struct {
	URI      string
	Database string
}

// NewStore creates a new MongoDB store
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	// Verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)

	s := &Store{
		client:   client,
		db:       db,
		vouchers: db.Collection("vouchers"),
	}

	if err := s.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("creating indexes: %w", err)
	}

	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	_, err := s.vouchers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "pto_vta", Value: 1},
				{Key: "cbte_tipo", Value: 1},
				{Key: "cbte_nro", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "cae", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating voucher indexes: %w", err)
	}
	return nil
}

// SaveVoucher stores an issued voucher record
func (s *Store) SaveVoucher(ctx context.Context, rec *storage.VoucherRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.vouchers.InsertOne(ctx, rec)
	if err != nil {
		return fmt.Errorf("inserting voucher: %w", err)
	}
	return nil
}

// GetVoucher retrieves a voucher by its identity triple
func (s *Store) GetVoucher(ctx context.Context, ptoVta, cbteTipo int, cbteNro int64) (*storage.VoucherRecord, error) {
	filter := bson.M{
		"pto_vta":   ptoVta,
		"cbte_tipo": cbteTipo,
		"cbte_nro":  cbteNro,
	}

	var rec storage.VoucherRecord
	err := s.vouchers.FindOne(ctx, filter).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding voucher: %w", err)
	}
	return &rec, nil
}

// ListVouchers returns vouchers matching the filter, newest first
func (s *Store) ListVouchers(ctx context.Context, filter *storage.VoucherFilter) ([]*storage.VoucherRecord, error) {
	query := bson.M{}
	limit := int64(100)
	if filter != nil {
		if filter.PtoVta > 0 {
			query["pto_vta"] = filter.PtoVta
		}
		if filter.CbteTipo > 0 {
			query["cbte_tipo"] = filter.CbteTipo
		}
		if filter.Limit > 0 {
			limit = filter.Limit
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.vouchers.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("listing vouchers: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*storage.VoucherRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decoding vouchers: %w", err)
	}
	return records, nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close releases storage resources
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
