package mongodb

import (
	"context"
	"time"

	"github.com/user/mayday/internal/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoStorage struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStorage(client *mongo.Client, dbName string) storage.Storage {
	return &mongoStorage{
		client: client,
		db:     client.Database(dbName),
	}
}

func (s *mongoStorage) reports() *mongo.Collection {
	return s.db.Collection("crash_reports")
}

func (s *mongoStorage) Init(ctx context.Context) error {
	_, err := s.reports().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "fingerprint", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "received_at", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	})
	return err
}

func (s *mongoStorage) ListReports(ctx context.Context, filter storage.ReportFilter) ([]storage.CrashReport, int, error) {
	q := bson.M{}
	if filter.Search != "" {
		regex := bson.M{"$regex": filter.Search, "$options": "i"}
		q["$or"] = []bson.M{
			{"id": regex},
			{"category": regex},
			{"exc_type": regex},
			{"exc_value": regex},
		}
	}
	if filter.Category != "" {
		q["category"] = filter.Category
	}

	total, err := s.reports().CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "received_at", Value: -1}}).
		SetProjection(bson.M{"archive": 0})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
		if filter.Page > 0 {
			opts.SetSkip(int64((filter.Page - 1) * filter.Limit))
		}
	}

	cur, err := s.reports().Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var reports []storage.CrashReport
	for cur.Next(ctx) {
		var rep storage.CrashReport
		if err := cur.Decode(&rep); err != nil {
			return nil, 0, err
		}
		reports = append(reports, rep)
	}
	return reports, int(total), cur.Err()
}

func (s *mongoStorage) CreateReport(ctx context.Context, rep storage.CrashReport) error {
	rep.ReceivedAt = rep.ReceivedAt.UTC()
	_, err := s.reports().InsertOne(ctx, rep)
	return err
}

func (s *mongoStorage) GetReport(ctx context.Context, id string) (storage.CrashReport, error) {
	var rep storage.CrashReport
	err := s.reports().FindOne(ctx, bson.M{"id": id},
		options.FindOne().SetProjection(bson.M{"archive": 0})).Decode(&rep)
	if err == mongo.ErrNoDocuments {
		return rep, storage.ErrNotFound
	}
	return rep, err
}

func (s *mongoStorage) GetReportByFingerprint(ctx context.Context, fingerprint string) (storage.CrashReport, error) {
	var rep storage.CrashReport
	err := s.reports().FindOne(ctx, bson.M{"fingerprint": fingerprint},
		options.FindOne().SetProjection(bson.M{"archive": 0})).Decode(&rep)
	if err == mongo.ErrNoDocuments {
		return rep, storage.ErrNotFound
	}
	return rep, err
}

func (s *mongoStorage) GetReportArchive(ctx context.Context, id string) ([]byte, error) {
	var doc struct {
		Archive []byte `bson:"archive"`
	}
	err := s.reports().FindOne(ctx, bson.M{"id": id},
		options.FindOne().SetProjection(bson.M{"archive": 1})).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.Archive, nil
}

func (s *mongoStorage) DeleteReport(ctx context.Context, id string) error {
	res, err := s.reports().DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *mongoStorage) DeleteReportsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.reports().DeleteMany(ctx, bson.M{"received_at": bson.M{"$lt": cutoff.UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *mongoStorage) GetSetting(ctx context.Context, key string) (string, error) {
	var doc struct {
		Value string `bson:"value"`
	}
	err := s.db.Collection("settings").FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return doc.Value, nil
}

func (s *mongoStorage) SaveSetting(ctx context.Context, key string, value string) error {
	_, err := s.db.Collection("settings").UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value}},
		options.UpdateOne().SetUpsert(true))
	return err
}
