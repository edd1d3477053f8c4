package casestudies

import "time"

const PageSize = 4

type CaseStudy struct {
	ID          string    `bson:"_id,omitempty" json:"id" gorm:"primaryKey;size:24"`
	Slug        string    `bson:"slug" json:"slug" gorm:"size:200;not null;uniqueIndex"`
	Title       string    `bson:"title" json:"title" gorm:"size:200;not null;uniqueIndex"`
	ClientID    string    `bson:"client_id" json:"client_id" gorm:"size:24;not null;index"`
	LocationID  string    `bson:"location_id" json:"location_id" gorm:"size:24;not null;index"`
	IndustryID  string    `bson:"industry_id" json:"industry_id" gorm:"size:24;not null;index"`
	Description string    `bson:"description" json:"description" gorm:"type:text;not null"`
	Excerpt     string    `bson:"excerpt,omitempty" json:"excerpt,omitempty" gorm:"type:text"`
	Image       string    `bson:"image,omitempty" json:"image,omitempty" gorm:"size:500"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

func (CaseStudy) TableName() string { return "case_studies" }

type UpsertRequest struct {
	Slug        string `json:"slug" validate:"omitempty,slug"`
	Title       string `json:"title" validate:"required,notblank,max=200"`
	ClientID    string `json:"client_id" validate:"required"`
	LocationID  string `json:"location_id" validate:"required"`
	IndustryID  string `json:"industry_id" validate:"required"`
	Description string `json:"description" validate:"required,notblank"`
	Excerpt     string `json:"excerpt" validate:"omitempty,max=1000"`
	Image       string `json:"image" validate:"omitempty,max=500"`
}

// ListFilter narrows admin listings. Title matches case-insensitively anywhere in the title.
type ListFilter struct {
	Title string
}

// Summary is the public, display-ready view of a case study.
type Summary struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Client       string `json:"client"`
	Location     string `json:"location"`
	Industry     string `json:"industry"`
	Excerpt      string `json:"excerpt"`
	ImageURL     string `json:"image_url"`
	CommentCount int64  `json:"comment_count"`
}

type Detail struct {
	Summary
	Description string `json:"description"`
}

type Page struct {
	Items      []Summary `json:"items"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
	Total      int64     `json:"total"`
	HasPrev    bool      `json:"has_prev"`
	HasNext    bool      `json:"has_next"`
}

func (p Page) PrevPage() int { return p.Page - 1 }
func (p Page) NextPage() int { return p.Page + 1 }
