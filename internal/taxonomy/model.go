package taxonomy

import "time"

// Kind names one of the lookup dimensions a case study is filed under.
type Kind string

const (
	KindClient   Kind = "client"
	KindLocation Kind = "location"
	KindIndustry Kind = "industry"
)

var kinds = map[Kind]struct{}{
	KindClient:   {},
	KindLocation: {},
	KindIndustry: {},
}

func ParseKind(raw string) (Kind, bool) {
	k := Kind(raw)
	_, ok := kinds[k]
	return k, ok
}

type Term struct {
	ID        string    `bson:"_id,omitempty" json:"id" gorm:"primaryKey;size:24"`
	Kind      Kind      `bson:"kind" json:"kind" gorm:"size:16;not null;uniqueIndex:idx_terms_kind_name"`
	Name      string    `bson:"name" json:"name" gorm:"size:100;not null;uniqueIndex:idx_terms_kind_name"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (Term) TableName() string { return "taxonomy_terms" }

type UpsertRequest struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}
