package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Category string

const (
	CategoryFiction    Category = "fiction"
	CategoryNonFiction Category = "non-fiction"
	CategoryScience    Category = "science"
	CategoryHistory    Category = "history"
	CategoryOther      Category = "other"
)

type Book struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Author    string             `bson:"author" json:"author"`
	ISBN      string             `bson:"isbn" json:"isbn"`
	Category  Category           `bson:"category" json:"category"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	CreatedBy *UserSummary       `bson:"createdBy,omitempty" json:"createdBy,omitempty"` // populated on reads
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// BookPatch holds the fields of an update; nil fields are left untouched.
type BookPatch struct {
	Title    *string
	Author   *string
	ISBN     *string
	Category *Category
	Quantity *int
}

func (p BookPatch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.ISBN == nil && p.Category == nil && p.Quantity == nil
}

// BookFilter narrows a listing. Search matches title or author, case-insensitively.
type BookFilter struct {
	Category Category
	Search   string
}
