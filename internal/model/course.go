package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuthorSnapshot is a copy of the acting user taken when a question, reply or
// review is written. It is never re-resolved against the user table.
type AuthorSnapshot struct {
	ID     uint   `json:"id" bson:"id"`
	Name   string `json:"name" bson:"name"`
	Avatar string `json:"avatar,omitempty" bson:"avatar,omitempty"`
}

type Reply struct {
	ID        string         `json:"id" bson:"id"`
	Author    AuthorSnapshot `json:"user" bson:"user"`
	Text      string         `json:"text" bson:"text"`
	CreatedAt time.Time      `json:"createdAt" bson:"createdAt"`
}

type Question struct {
	ID        string         `json:"id" bson:"id"`
	Author    AuthorSnapshot `json:"user" bson:"user"`
	Text      string         `json:"question" bson:"question"`
	Replies   []Reply        `json:"questionReplies" bson:"questionReplies"`
	CreatedAt time.Time      `json:"createdAt" bson:"createdAt"`
}

type Review struct {
	ID        string         `json:"id" bson:"id"`
	Author    AuthorSnapshot `json:"user" bson:"user"`
	Rating    int            `json:"rating" bson:"rating"`
	Comment   string         `json:"comment" bson:"comment"`
	Replies   []Reply        `json:"commentReplies" bson:"commentReplies"`
	CreatedAt time.Time      `json:"createdAt" bson:"createdAt"`
}

type Link struct {
	Title string `json:"title" bson:"title"`
	URL   string `json:"url" bson:"url"`
}

// ContentItem is one lesson of a course. Only Title, Description and the
// video metadata are part of the public projection.
type ContentItem struct {
	ID           string     `json:"id" bson:"id"`
	Title        string     `json:"title" bson:"title"`
	Description  string     `json:"description" bson:"description"`
	VideoURL     string     `json:"videoUrl,omitempty" bson:"videoUrl"`
	VideoSection string     `json:"videoSection" bson:"videoSection"`
	VideoLength  int        `json:"videoLength" bson:"videoLength"`
	VideoPlayer  string     `json:"videoPlayer,omitempty" bson:"videoPlayer"`
	Links        []Link     `json:"links,omitempty" bson:"links"`
	Suggestion   string     `json:"suggestion,omitempty" bson:"suggestion"`
	Questions    []Question `json:"questions,omitempty" bson:"questions"`
}

type TitledItem struct {
	Title string `json:"title" bson:"title"`
}

type Thumbnail struct {
	PublicID string `gorm:"size:255" json:"public_id" bson:"public_id"`
	URL      string `gorm:"size:512" json:"url" bson:"url"`
}

// Course is the aggregate root. Content and Reviews are persisted with the
// course row as JSON columns and replaced as one unit.
// swagger:model Course
type Course struct {
	UUIDBase `bson:",inline"`

	Name           string                           `gorm:"size:255;not null" json:"name" bson:"name"`
	Description    string                           `gorm:"type:text" json:"description" bson:"description"`
	Price          float64                          `gorm:"not null;default:0" json:"price" bson:"price"`
	EstimatedPrice float64                          `gorm:"default:0" json:"estimatedPrice,omitempty" bson:"estimatedPrice"`
	Thumbnail      Thumbnail                        `gorm:"embedded;embeddedPrefix:thumbnail_" json:"thumbnail" bson:"thumbnail"`
	Tags           string                           `gorm:"size:255" json:"tags" bson:"tags"`
	Level          string                           `gorm:"size:50" json:"level" bson:"level"`
	DemoURL        string                           `gorm:"size:512" json:"demoUrl" bson:"demoUrl"`
	Benefits       datatypes.JSONSlice[TitledItem]  `json:"benefits" bson:"benefits"`
	Prerequisites  datatypes.JSONSlice[TitledItem]  `json:"prerequisites" bson:"prerequisites"`
	Content        datatypes.JSONSlice[ContentItem] `json:"courseData" bson:"courseData"`
	Reviews        datatypes.JSONSlice[Review]      `json:"reviews" bson:"reviews"`
	AverageRating  float64                          `gorm:"default:0" json:"ratings" bson:"ratings"`
	Purchased      int                              `gorm:"default:0" json:"purchased" bson:"purchased"`
	Version        int64                            `gorm:"not null;default:0" json:"version" bson:"version"`
}

func (Course) TableName() string {
	return "courses"
}

// Normalize replaces nil collections with empty ones so the serialized
// aggregate always carries arrays, and assigns ids to content items that
// were submitted without one.
func (c *Course) Normalize() {
	if c.Benefits == nil {
		c.Benefits = datatypes.JSONSlice[TitledItem]{}
	}
	if c.Prerequisites == nil {
		c.Prerequisites = datatypes.JSONSlice[TitledItem]{}
	}
	if c.Content == nil {
		c.Content = datatypes.JSONSlice[ContentItem]{}
	}
	if c.Reviews == nil {
		c.Reviews = datatypes.JSONSlice[Review]{}
	}
	for i := range c.Content {
		item := &c.Content[i]
		if item.ID == "" {
			item.ID = NewID()
		}
		if item.Questions == nil {
			item.Questions = []Question{}
		}
		if item.Links == nil {
			item.Links = []Link{}
		}
	}
}

// PublicView returns a copy of the course with the enrolled-only content
// fields removed from every content item.
func (c *Course) PublicView() *Course {
	view := *c
	view.Content = make(datatypes.JSONSlice[ContentItem], len(c.Content))
	for i, item := range c.Content {
		view.Content[i] = ContentItem{
			ID:           item.ID,
			Title:        item.Title,
			Description:  item.Description,
			VideoSection: item.VideoSection,
			VideoLength:  item.VideoLength,
			VideoPlayer:  item.VideoPlayer,
		}
	}
	return &view
}

// CourseSummary is the curated row returned by the administrative listing.
type CourseSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	AverageRating float64   `json:"ratings"`
	Purchased     int       `json:"purchased"`
	ReviewCount   int       `json:"reviewCount"`
	ContentCount  int       `json:"contentCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (c *Course) Summary() CourseSummary {
	return CourseSummary{
		ID:            c.ID,
		Name:          c.Name,
		Price:         c.Price,
		AverageRating: c.AverageRating,
		Purchased:     c.Purchased,
		ReviewCount:   len(c.Reviews),
		ContentCount:  len(c.Content),
		CreatedAt:     c.CreatedAt,
	}
}

// CoursePatch carries a partial edit of the course metadata. Nil fields are
// left untouched. The nested content tree and reviews are not editable here.
type CoursePatch struct {
	Name           *string       `json:"name,omitempty"`
	Description    *string       `json:"description,omitempty"`
	Price          *float64      `json:"price,omitempty"`
	EstimatedPrice *float64      `json:"estimatedPrice,omitempty"`
	Tags           *string       `json:"tags,omitempty"`
	Level          *string       `json:"level,omitempty"`
	DemoURL        *string       `json:"demoUrl,omitempty"`
	Benefits       *[]TitledItem `json:"benefits,omitempty"`
	Prerequisites  *[]TitledItem `json:"prerequisites,omitempty"`
	Thumbnail      *Thumbnail    `json:"-"`
}

func (p *CoursePatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.EstimatedPrice == nil && p.Tags == nil && p.Level == nil &&
		p.DemoURL == nil && p.Benefits == nil && p.Prerequisites == nil &&
		p.Thumbnail == nil
}

// Apply copies the set fields of the patch onto the course.
func (p *CoursePatch) Apply(c *Course) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Price != nil {
		c.Price = *p.Price
	}
	if p.EstimatedPrice != nil {
		c.EstimatedPrice = *p.EstimatedPrice
	}
	if p.Tags != nil {
		c.Tags = *p.Tags
	}
	if p.Level != nil {
		c.Level = *p.Level
	}
	if p.DemoURL != nil {
		c.DemoURL = *p.DemoURL
	}
	if p.Benefits != nil {
		c.Benefits = datatypes.JSONSlice[TitledItem](*p.Benefits)
	}
	if p.Prerequisites != nil {
		c.Prerequisites = datatypes.JSONSlice[TitledItem](*p.Prerequisites)
	}
	if p.Thumbnail != nil {
		c.Thumbnail = *p.Thumbnail
	}
}
