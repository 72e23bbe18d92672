package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spacetraveling/db"
	"spacetraveling/models"
	"spacetraveling/pagecache"
)

// PageRepository 는 생성된 글 페이지를 MongoDB 에 저장한다.
// 사이트 서버와 재검증 워커가 같은 컬렉션을 공유한다.
type PageRepository struct {
	col *mongo.Collection
}

var (
	_ pagecache.Store      = (*PageRepository)(nil)
	_ pagecache.SlugLister = (*PageRepository)(nil)
)

func NewPageRepository(d *mongo.Database) *PageRepository {
	return &PageRepository{col: d.Collection(db.PagesCollection)}
}

// FindBySlug returns the page by slug. 없으면 pagecache.ErrMiss.
func (r *PageRepository) FindBySlug(ctx context.Context, slug string) (*models.Page, error) {
	var doc models.Page
	err := r.col.FindOne(ctx, bson.M{"slug": slug}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pagecache.ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpsertBySlug replaces generated fields of the page, creating it if absent
func (r *PageRepository) UpsertBySlug(ctx context.Context, p *models.Page) error {
	now := time.Now()
	p.UpdatedAt = now
	filter := bson.M{"slug": p.Slug}
	update := bson.M{
		"$set": bson.M{
			"updated_at":   p.UpdatedAt,
			"html":         p.HTML,
			"props":        p.Props,
			"not_found":    p.NotFound,
			"generated_at": p.GeneratedAt,
			"duration_ms":  p.DurationMs,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *PageRepository) DeleteBySlug(ctx context.Context, slug string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"slug": slug})
	return err
}

// ListSlugs returns every stored slug, newest generation first
func (r *PageRepository) ListSlugs(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "generated_at", Value: -1}}).
		SetProjection(bson.M{"slug": 1})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var slugs []string
	for cur.Next(ctx) {
		var doc struct {
			Slug string `bson:"slug"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		slugs = append(slugs, doc.Slug)
	}
	return slugs, cur.Err()
}

// pagecache.Store

func (r *PageRepository) Get(ctx context.Context, slug string) (*models.Page, error) {
	return r.FindBySlug(ctx, slug)
}

func (r *PageRepository) Put(ctx context.Context, page *models.Page) error {
	return r.UpsertBySlug(ctx, page)
}

func (r *PageRepository) Delete(ctx context.Context, slug string) error {
	return r.DeleteBySlug(ctx, slug)
}
