// Copyright 2024 The poolbridge Authors
// This file is part of relayd.
//
// relayd is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// relayd is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with relayd. If not, see <http://www.gnu.org/licenses/>.

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const collectionName = "relay_records"

// MongoStore is the document-database TxStore. Records persist indefinitely.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects, pings and returns a store over the relay_records
// collection of the named database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collectionName),
	}, nil
}

// indexModels declares the collection's indexes. The hash indexes are
// unique and sparse: uniqueness makes at-most-once relaying hold even when
// two relayer processes race on the same event, sparseness keeps records
// without the optional field out of the constraint.
func indexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "eventHash", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "relayHash", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "sourceToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "destToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "user", Value: 1}}},
		{Keys: bson.D{{Key: "chain", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
}

// EnsureIndexes creates the collection indexes. Idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.coll.Indexes().CreateMany(ctx, indexModels()); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}
	return nil
}

// Close disconnects from the database.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) UpsertByID(ctx context.Context, rec *RelayRecord) (*RelayRecord, error) {
	rec.Normalize()
	now := time.Now().UTC()

	set := bson.M{
		"chain":     rec.Chain,
		"kind":      rec.Kind,
		"user":      rec.User,
		"amount":    rec.Amount,
		"status":    rec.Status,
		"timestamp": rec.Timestamp,
		"updatedAt": now,
	}
	// Sparse-indexed fields are only written when present.
	for k, v := range map[string]string{
		"sourceToken": rec.SourceToken,
		"destToken":   rec.DestToken,
		"eventHash":   rec.EventHash,
		"relayHash":   rec.RelayHash,
	} {
		if v != "" {
			set[k] = v
		}
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"id": rec.ID, "createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored RelayRecord
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"id": rec.ID}, update, opts).Decode(&stored); err != nil {
		return nil, fmt.Errorf("upserting record %s: %w", rec.ID, err)
	}
	return &stored, nil
}

func hashFilter(h string) bson.M {
	h = strings.ToLower(h)
	return bson.M{"$or": bson.A{
		bson.M{"eventHash": h},
		bson.M{"relayHash": h},
	}}
}

func (s *MongoStore) HashExists(ctx context.Context, h string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, hashFilter(h), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("counting by hash: %w", err)
	}
	return n > 0, nil
}

func (s *MongoStore) FindByHash(ctx context.Context, h string) (*RelayRecord, error) {
	var rec RelayRecord
	err := s.coll.FindOne(ctx, hashFilter(h)).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding by hash: %w", err)
	}
	return &rec, nil
}

func (s *MongoStore) UpdateStatusByHash(ctx context.Context, h string, status Status) (bool, error) {
	// Only non-terminal records may change: terminal states are absorbing.
	filter := hashFilter(h)
	filter["status"] = StatusPending
	res, err := s.coll.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return false, fmt.Errorf("updating status by hash: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) ListAll(ctx context.Context, limit int64) ([]*RelayRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	return s.find(ctx, bson.M{}, opts)
}

func (s *MongoStore) ListPending(ctx context.Context, limit int64) ([]*RelayRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	return s.find(ctx, bson.M{"status": StatusPending}, opts)
}

func (s *MongoStore) ListPendingByUser(ctx context.Context, user string) ([]*RelayRecord, error) {
	filter := bson.M{"user": strings.ToLower(user), "status": StatusPending}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (s *MongoStore) ListPendingByChain(ctx context.Context, chain Chain) ([]*RelayRecord, error) {
	filter := bson.M{"chain": chain, "status": StatusPending}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*RelayRecord, error) {
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	var recs []*RelayRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return recs, nil
}

func (s *MongoStore) ClearAll(ctx context.Context) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}
	return nil
}
