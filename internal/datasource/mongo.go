package datasource

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/jonathan/autoclaim-ml/internal/dataset"
)

const mongoIDField = "_id"

// ConnectMongo opens a client and verifies the connection. The caller owns the client and must
// Disconnect it.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// MongoSource reads collections from one database of an injected client
type MongoSource struct {
	db *mongo.Database
}

// NewMongoSource creates a source over the named database
func NewMongoSource(client *mongo.Client, database string) *MongoSource {
	return &MongoSource{db: client.Database(database)}
}

// FetchRecords implements DataSource
func (s *MongoSource) FetchRecords(ctx context.Context, collection string) (*dataset.Dataset, error) {
	cursor, err := s.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}

	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", collection, err)
	}
	if len(docs) == 0 {
		return nil, &NotFoundError{Collection: collection, Location: "mongodb database " + s.db.Name()}
	}
	return DocumentsToDataset(docs)
}

// DocumentsToDataset flattens documents into a dataset. Columns follow first-seen field order,
// the _id field is dropped and fields absent from a document become empty cells.
func DocumentsToDataset(docs []bson.D) (*dataset.Dataset, error) {
	var columns []string
	index := map[string]int{}
	for _, doc := range docs {
		for _, elem := range doc {
			if elem.Key == mongoIDField {
				continue
			}
			if _, ok := index[elem.Key]; !ok {
				index[elem.Key] = len(columns)
				columns = append(columns, elem.Key)
			}
		}
	}

	ds := dataset.New(columns)
	for _, doc := range docs {
		row := make([]string, len(columns))
		for _, elem := range doc {
			if i, ok := index[elem.Key]; ok {
				row[i] = formatValue(elem.Value)
			}
		}
		if err := ds.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case primitive.ObjectID:
		return val.Hex()
	case primitive.Decimal128:
		return val.String()
	case primitive.DateTime:
		return val.Time().UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}
