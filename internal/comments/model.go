package comments

import "time"

const MaxContentLength = 5000

type Comment struct {
	ID          string    `bson:"_id,omitempty" json:"id" gorm:"primaryKey;size:24"`
	CaseStudyID string    `bson:"case_study_id" json:"case_study_id" gorm:"size:24;not null;index"`
	AuthorID    string    `bson:"author_id" json:"author_id" gorm:"size:24;not null;index"`
	AuthorName  string    `bson:"author_name" json:"author_name" gorm:"size:150;not null"`
	Content     string    `bson:"content" json:"content" gorm:"type:text;not null"`
	Approved    bool      `bson:"approved" json:"approved" gorm:"not null;index"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at" gorm:"index"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

func (Comment) TableName() string { return "comments" }

// Target identifies the case study a comment is attached to.
type Target struct {
	ID    string
	Slug  string
	Title string
}

// Form is the public comment form, shared by submit and edit.
type Form struct {
	Content string `form:"content" json:"content" validate:"notblank,max=5000"`
}

type ModerationRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,required"`
}

type ListFilter struct {
	Approved    *bool
	CaseStudyID string
}
