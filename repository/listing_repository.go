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

type MongoListingRepository struct {
	collection *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *MongoListingRepository {
	return &MongoListingRepository{
		collection: db.Collection(models.ListingsCollection),
	}
}

func (r *MongoListingRepository) Create(ctx context.Context, listing *models.Listing) error {
	now := time.Now().UTC()
	if listing.ID.IsZero() {
		listing.ID = primitive.NewObjectID()
	}
	listing.CreatedAt = now
	listing.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, listing)
	return wrap("insert listing", err)
}

func (r *MongoListingRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&listing); err != nil {
		return nil, wrap("find listing", err)
	}
	return &listing, nil
}

func (r *MongoListingRepository) FindBySlug(ctx context.Context, slug string) (*models.Listing, error) {
	var listing models.Listing
	if err := r.collection.FindOne(ctx, bson.M{"slug": slug}).Decode(&listing); err != nil {
		return nil, wrap("find listing by slug", err)
	}
	return &listing, nil
}

// Find runs the page query and the total count concurrently.
func (r *MongoListingRepository) Find(ctx context.Context, f models.ListingFilter) ([]models.Listing, int64, error) {
	filter := BuildListingFilter(f)
	opts := pageOptions(f.Page, f.Limit).SetSort(listingSort(f))
	if f.Query != "" {
		opts.SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}})
	}

	var (
		listings []models.Listing
		total    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cursor, err := r.collection.Find(gctx, filter, opts)
		if err != nil {
			return wrap("find listings", err)
		}
		defer cursor.Close(gctx)
		return wrap("decode listings", cursor.All(gctx, &listings))
	})
	g.Go(func() error {
		n, err := r.collection.CountDocuments(gctx, filter)
		total = n
		return wrap("count listings", err)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	return listings, total, nil
}

func (r *MongoListingRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.Listing, error) {
	set := bson.M{}
	for k, v := range updates {
		set[k] = v
	}
	set["updatedAt"] = time.Now().UTC()

	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, "update listing")
}

// IncrementViews bumps the view counter atomically and returns the result.
func (r *MongoListingRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}}, "increment listing views")
}

func (r *MongoListingRepository) IncrementInquiries(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "isActive": true},
		bson.M{"$inc": bson.M{"inquiries": 1}},
	)
	if err != nil {
		return wrap("increment listing inquiries", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Categories returns the distinct categories of active listings.
func (r *MongoListingRepository) Categories(ctx context.Context) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "category", bson.M{"isActive": true})
	if err != nil {
		return nil, wrap("distinct categories", err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MongoListingRepository) Count(ctx context.Context, filter map[string]interface{}) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M(filter))
	return n, wrap("count listings", err)
}

func (r *MongoListingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}, {Key: "tags", Value: "text"}},
			Options: options.Index().SetName("listing_text"),
		},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "supplierId", Value: 1}}},
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	return wrap("create listing indexes", err)
}

func (r *MongoListingRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M, op string) (*models.Listing, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var listing models.Listing
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&listing); err != nil {
		return nil, wrap(op, err)
	}
	return &listing, nil
}

// BuildListingFilter translates a ListingFilter into a Mongo query.
// Inactive listings are excluded unless IncludeInactive is set.
func BuildListingFilter(f models.ListingFilter) bson.M {
	filter := bson.M{}
	if !f.IncludeInactive {
		filter["isActive"] = true
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Subcategory != "" {
		filter["subcategory"] = f.Subcategory
	}
	if f.SupplierID != nil {
		filter["supplierId"] = *f.SupplierID
	}
	if f.Featured != nil {
		filter["featured"] = *f.Featured
	}
	if f.Query != "" {
		filter["$text"] = bson.M{"$search": f.Query}
	}

	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		filter["price.amount"] = price
	}
	return filter
}

func listingSort(f models.ListingFilter) bson.D {
	switch f.Sort {
	case models.SortPriceAsc:
		return bson.D{{Key: "price.amount", Value: 1}, {Key: "_id", Value: 1}}
	case models.SortPriceDesc:
		return bson.D{{Key: "price.amount", Value: -1}, {Key: "_id", Value: 1}}
	case models.SortPopular:
		return bson.D{{Key: "views", Value: -1}, {Key: "_id", Value: -1}}
	case models.SortNewest:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
	if f.Query != "" {
		return bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}}
	}
	// Featured listings first on browse pages.
	return bson.D{{Key: "featured", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
}
