package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Page stores one generated post page (incremental static regeneration output)
// Collection: pages
//
//	not_found: 마지막 생성 시 Prismic 에 문서가 없었음
type Page struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
	Slug        string             `bson:"slug" json:"slug"`
	HTML        string             `bson:"html" json:"-"`
	Props       []byte             `bson:"props" json:"-"`
	NotFound    bool               `bson:"not_found" json:"not_found"`
	GeneratedAt time.Time          `bson:"generated_at" json:"generated_at"`
	DurationMs  int64              `bson:"duration_ms" json:"duration_ms"`
}
