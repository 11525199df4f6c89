package glossary

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Topic struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:idx_topic_name" json:"name"`
	Info      *string   `gorm:"column:info;type:text" json:"info,omitempty"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Topic) TableName() string { return "topic" }

func (t *Topic) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Term text tiers are each globally unique; FirstLetter is the leading rune of the
// stemmed form and drives alphabetical listing within a topic.
type Term struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TopicID     uuid.UUID `gorm:"type:uuid;column:topic_id;not null;index:idx_term_topic_letter,priority:1" json:"topic_id"`
	Language    string    `gorm:"column:language;not null" json:"language"`
	RawText     string    `gorm:"column:raw_text;not null;uniqueIndex:idx_term_raw_text" json:"raw_text"`
	CleanedText string    `gorm:"column:cleaned_text;not null;uniqueIndex:idx_term_cleaned_text" json:"cleaned_text"`
	StemmedText string    `gorm:"column:stemmed_text;not null;uniqueIndex:idx_term_stemmed_text" json:"stemmed_text"`
	FirstLetter string    `gorm:"column:first_letter;not null;index:idx_term_topic_letter,priority:2" json:"first_letter"`
	Info        *string   `gorm:"column:info;type:text" json:"info,omitempty"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Term) TableName() string { return "term" }

func (t *Term) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type Description struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TermID      uuid.UUID `gorm:"type:uuid;column:term_id;not null;uniqueIndex:idx_description_term" json:"term_id"`
	Language    string    `gorm:"column:language;not null" json:"language"`
	RawText     string    `gorm:"column:raw_text;type:text;not null;uniqueIndex:idx_description_raw_text" json:"raw_text"`
	CleanedText string    `gorm:"column:cleaned_text;type:text;not null;uniqueIndex:idx_description_cleaned_text" json:"cleaned_text"`
	StemmedText string    `gorm:"column:stemmed_text;type:text;not null;uniqueIndex:idx_description_stemmed_text" json:"stemmed_text"`
	Info        *string   `gorm:"column:info;type:text" json:"info,omitempty"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Description) TableName() string { return "description" }

func (d *Description) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// SemanticVector holds exactly one embedding per description. Vector is a JSON
// array of float32.
type SemanticVector struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DescriptionID uuid.UUID      `gorm:"type:uuid;column:description_id;not null;uniqueIndex:idx_semantic_vector_description" json:"description_id"`
	Vector        datatypes.JSON `gorm:"column:vector;type:jsonb;not null" json:"vector"`
	Dims          int            `gorm:"column:dims;not null;default:0" json:"dims"`
	Language      string         `gorm:"column:language;not null" json:"language"`
	CreatedAt     time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (SemanticVector) TableName() string { return "semantic_vector" }

func (v *SemanticVector) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// RelationGraph stores the node-link document for one description. Version is bumped
// on every write and guards single-relation read-modify-write.
type RelationGraph struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DescriptionID uuid.UUID      `gorm:"type:uuid;column:description_id;not null;uniqueIndex:idx_relation_graph_description" json:"description_id"`
	TripletCount  int            `gorm:"column:triplet_count;not null;default:0" json:"triplet_count"`
	Graph         datatypes.JSON `gorm:"column:graph;type:jsonb;not null" json:"graph"`
	Version       int64          `gorm:"column:version;not null;default:1" json:"version"`
	Language      string         `gorm:"column:language;not null" json:"language"`
	CreatedAt     time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (RelationGraph) TableName() string { return "relation_graph" }

func (g *RelationGraph) BeforeCreate(*gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

type Relation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DescriptionID uuid.UUID `gorm:"type:uuid;column:description_id;not null;index:idx_relation_description" json:"description_id"`
	Position      int       `gorm:"column:position;not null;default:0" json:"position"`
	Subject       string    `gorm:"column:subject;not null" json:"subject"`
	SubjectType   *string   `gorm:"column:subject_type" json:"subject_type,omitempty"`
	Predicate     string    `gorm:"column:predicate;not null" json:"predicate"`
	PredicateType *string   `gorm:"column:predicate_type" json:"predicate_type,omitempty"`
	Object        string    `gorm:"column:object;not null" json:"object"`
	ObjectType    *string   `gorm:"column:object_type" json:"object_type,omitempty"`
	Language      string    `gorm:"column:language;not null" json:"language"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Relation) TableName() string { return "relation" }

func (r *Relation) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Triple is the storage-free view of a Relation passed between extractors, the
// graph arena and the relation rows.
type Triple struct {
	Position      int     `json:"position"`
	Subject       string  `json:"subject"`
	SubjectType   *string `json:"subject_type,omitempty"`
	Predicate     string  `json:"predicate"`
	PredicateType *string `json:"predicate_type,omitempty"`
	Object        string  `json:"object"`
	ObjectType    *string `json:"object_type,omitempty"`
}

func (r *Relation) Triple() Triple {
	return Triple{
		Position:      r.Position,
		Subject:       r.Subject,
		SubjectType:   r.SubjectType,
		Predicate:     r.Predicate,
		PredicateType: r.PredicateType,
		Object:        r.Object,
		ObjectType:    r.ObjectType,
	}
}

func RelationFromTriple(descriptionID uuid.UUID, lang string, t Triple) *Relation {
	return &Relation{
		DescriptionID: descriptionID,
		Position:      t.Position,
		Subject:       t.Subject,
		SubjectType:   t.SubjectType,
		Predicate:     t.Predicate,
		PredicateType: t.PredicateType,
		Object:        t.Object,
		ObjectType:    t.ObjectType,
		Language:      lang,
	}
}

// StrPtr returns nil for empty strings.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Tier names a text tier; the value doubles as the column name.
type Tier string

const (
	TierRaw     Tier = "raw_text"
	TierCleaned Tier = "cleaned_text"
	TierStemmed Tier = "stemmed_text"
)

func (t Tier) Valid() bool {
	return t == TierRaw || t == TierCleaned || t == TierStemmed
}
