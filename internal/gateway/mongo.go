package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoStore implements Store over MongoDB collections. Tables map to
// collections; the record id doubles as the document _id.
type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger zerolog.Logger
}

func newMongoStore(cfg Config, logger zerolog.Logger) (*mongoStore, error) {
	port := cfg.Port
	if port == 0 {
		port = 27017
	}
	var uri string
	if cfg.User != "" {
		uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.User, cfg.Password, cfg.Host, port)
	} else {
		uri = fmt.Sprintf("mongodb://%s:%d", cfg.Host, port)
	}
	dbName := cfg.Database
	if dbName == "" {
		dbName = "scribe"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoStore{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}, nil
}

func (m *mongoStore) FetchByForeignKey(ctx context.Context, table, keyField string, keyValue any) ([]Record, error) {
	cursor, err := m.db.Collection(table).Find(ctx, bson.M{keyField: keyValue})
	if err != nil {
		return nil, fmt.Errorf("fetch %s by %s: %w", table, keyField, err)
	}
	defer cursor.Close(ctx)
	return decodeCursor(ctx, cursor)
}

func (m *mongoStore) FetchOneByForeignKey(ctx context.Context, table, keyField string, keyValue any) (Record, error) {
	var doc bson.M
	err := m.db.Collection(table).FindOne(ctx, bson.M{keyField: keyValue}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch one %s by %s: %w", table, keyField, err)
	}
	return recordFromDoc(doc), nil
}

func (m *mongoStore) FetchAll(ctx context.Context, table string) ([]Record, error) {
	cursor, err := m.db.Collection(table).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("fetch all %s: %w", table, err)
	}
	defer cursor.Close(ctx)
	return decodeCursor(ctx, cursor)
}

func (m *mongoStore) Insert(ctx context.Context, table string, fields Record) (Record, error) {
	row := cloneRecord(fields)
	id := String(row, "id")
	if id == "" {
		id = newID()
		row["id"] = id
	}
	doc := bson.M{"_id": id}
	for k, v := range row {
		doc[k] = v
	}
	if _, err := m.db.Collection(table).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	m.logger.Debug().Str("table", table).Str("id", id).Msg("record inserted")
	return m.FetchOneByForeignKey(ctx, table, "_id", id)
}

func (m *mongoStore) Update(ctx context.Context, table, id string, fields Record) (Record, error) {
	set := bson.M{}
	for k, v := range fields {
		if k == "id" || k == "_id" {
			continue
		}
		set[k] = v
	}
	if len(set) > 0 {
		res, err := m.db.Collection(table).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
		if err != nil {
			return nil, fmt.Errorf("update %s %s: %w", table, id, err)
		}
		if res.MatchedCount == 0 {
			return nil, fmt.Errorf("update %s: no record with id %s", table, id)
		}
	}
	return m.FetchOneByForeignKey(ctx, table, "_id", id)
}

func (m *mongoStore) Delete(ctx context.Context, table, id string) error {
	if _, err := m.db.Collection(table).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

func (m *mongoStore) BulkDelete(ctx context.Context, table string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := m.db.Collection(table).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("bulk delete from %s: %w", table, err)
	}
	return nil
}

func (m *mongoStore) Close() error {
	return m.client.Disconnect(context.Background())
}

func decodeCursor(ctx context.Context, cursor *mongo.Cursor) ([]Record, error) {
	var out []Record
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, recordFromDoc(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func recordFromDoc(doc bson.M) Record {
	rec := make(Record, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		rec[k] = v
	}
	return rec
}
