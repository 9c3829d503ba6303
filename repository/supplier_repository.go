package repository

import (
	"context"
	"time"

	"marketplace-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

type MongoSupplierRepository struct {
	collection *mongo.Collection
}

func NewSupplierRepository(db *mongo.Database) *MongoSupplierRepository {
	return &MongoSupplierRepository{
		collection: db.Collection(models.SuppliersCollection),
	}
}

// Create inserts a supplier. A second supplier for the same user fails with
// ErrDuplicate through the unique userId index.
func (r *MongoSupplierRepository) Create(ctx context.Context, supplier *models.Supplier) error {
	now := time.Now().UTC()
	if supplier.ID.IsZero() {
		supplier.ID = primitive.NewObjectID()
	}
	supplier.CreatedAt = now
	supplier.UpdatedAt = now
	if supplier.LastActive.IsZero() {
		supplier.LastActive = now
	}

	_, err := r.collection.InsertOne(ctx, supplier)
	return wrap("insert supplier", err)
}

func (r *MongoSupplierRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Supplier, error) {
	return r.findOne(ctx, bson.M{"_id": id}, "find supplier")
}

func (r *MongoSupplierRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Supplier, error) {
	return r.findOne(ctx, bson.M{"userId": userID}, "find supplier by user")
}

func (r *MongoSupplierRepository) Find(ctx context.Context, f models.SupplierFilter) ([]models.Supplier, int64, error) {
	filter := BuildSupplierFilter(f)
	opts := pageOptions(f.Page, f.Limit)
	if f.Query != "" {
		opts.SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
			SetSort(bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}})
	} else {
		opts.SetSort(bson.D{{Key: "isPremium", Value: -1}, {Key: "verified", Value: -1}, {Key: "rating", Value: -1}, {Key: "_id", Value: -1}})
	}

	var (
		suppliers []models.Supplier
		total     int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cursor, err := r.collection.Find(gctx, filter, opts)
		if err != nil {
			return wrap("find suppliers", err)
		}
		defer cursor.Close(gctx)
		return wrap("decode suppliers", cursor.All(gctx, &suppliers))
	})
	g.Go(func() error {
		n, err := r.collection.CountDocuments(gctx, filter)
		total = n
		return wrap("count suppliers", err)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if suppliers == nil {
		suppliers = []models.Supplier{}
	}
	return suppliers, total, nil
}

func (r *MongoSupplierRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.Supplier, error) {
	set := bson.M{}
	for k, v := range updates {
		set[k] = v
	}
	set["updatedAt"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var supplier models.Supplier
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&supplier)
	if err != nil {
		return nil, wrap("update supplier", err)
	}
	return &supplier, nil
}

func (r *MongoSupplierRepository) IncrementInquiries(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"totalInquiries": 1}},
	)
	if err != nil {
		return wrap("increment supplier inquiries", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoSupplierRepository) Count(ctx context.Context, filter map[string]interface{}) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M(filter))
	return n, wrap("count suppliers", err)
}

func (r *MongoSupplierRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "companyName", Value: "text"}, {Key: "description", Value: "text"}, {Key: "categories", Value: "text"}},
			Options: options.Index().SetName("supplier_text"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "categories", Value: 1}}},
	})
	return wrap("create supplier indexes", err)
}

func (r *MongoSupplierRepository) findOne(ctx context.Context, filter bson.M, op string) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.collection.FindOne(ctx, filter).Decode(&supplier); err != nil {
		return nil, wrap(op, err)
	}
	return &supplier, nil
}

// BuildSupplierFilter translates a SupplierFilter into a Mongo query.
func BuildSupplierFilter(f models.SupplierFilter) bson.M {
	filter := bson.M{}
	if !f.IncludeInactive {
		filter["isActive"] = true
	}
	if f.Query != "" {
		filter["$text"] = bson.M{"$search": f.Query}
	}
	if f.Category != "" {
		filter["categories"] = f.Category
	}
	if f.Country != "" {
		filter["address.country"] = f.Country
	}
	if f.BusinessType != "" {
		filter["businessType"] = f.BusinessType
	}
	if f.Verified != nil {
		filter["verified"] = *f.Verified
	}
	return filter
}
