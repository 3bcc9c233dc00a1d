package schema

import (
	"reflect"
	"strings"
	"testing"
)

type relMember struct {
	ID int `po:"id,primaryKey,serial"`

	Card      *relCard   `po:"-,hasOne"`
	Notes     []relNote  `po:"-,hasMany"`
	Following []relLink `po:"-,hasMany,foreignKey(from_id)"`
	Followers []relLink `po:"-,hasMany,foreignKey(to_id)"`
}

func (relMember) TableName() string { return "members" }

type relCard struct {
	ID          int        `po:"id,primaryKey,serial"`
	RelMemberID int        `po:"rel_member_id,integer,unique,notNull,fk(members.id)"`
	Member      *relMember `po:"-,belongsTo,foreignKey(rel_member_id)"`
}

type relNote struct {
	ID     int        `po:"id,primaryKey,serial"`
	Author *relMember `po:"-,belongsTo"`
}

type relLink struct {
	ID     int        `po:"id,primaryKey,serial"`
	FromID int        `po:"from_id,integer,notNull"`
	ToID   int        `po:"to_id,integer,notNull"`
	From   *relMember `po:"-,belongsTo,foreignKey(from_id)"`
	To     *relMember `po:"-,belongsTo,foreignKey(to_id)"`
}

type relGroup struct {
	ID int `po:"id,primaryKey,serial"`
}

type relGrouped struct {
	ID     int        `po:"id,primaryKey,serial"`
	Groups []relGroup `po:"-,manyToMany,joinTable(member_groups)"`
}

func TestParseRelationships(t *testing.T) {
	parser := NewParser()

	members, err := parser.Parse(reflect.TypeOf(relMember{}))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !members.HasRelationships() || len(members.Relationships) != 4 {
		t.Fatalf("expected 4 relationships, got %d", len(members.Relationships))
	}

	tests := []struct {
		field      string
		relType    RelationType
		target     string
		foreignKey string
	}{
		{"Card", HasOne, "rel_card", "rel_member_id"},
		{"Notes", HasMany, "rel_note", "rel_member_id"},
		{"Following", HasMany, "rel_link", "from_id"},
		{"Followers", HasMany, "rel_link", "to_id"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			rel := members.GetRelationship(tt.field)
			if rel == nil {
				t.Fatalf("relationship %s not found", tt.field)
			}
			if rel.Type != tt.relType {
				t.Errorf("expected type %s, got %s", tt.relType, rel.Type)
			}
			if rel.TargetTable != tt.target {
				t.Errorf("expected target %s, got %s", tt.target, rel.TargetTable)
			}
			if rel.ForeignKey != tt.foreignKey {
				t.Errorf("expected foreign key %s, got %s", tt.foreignKey, rel.ForeignKey)
			}
			if rel.References != "id" {
				t.Errorf("expected references id, got %s", rel.References)
			}
		})
	}

	if got := len(members.GetRelationshipsByType(HasMany)); got != 3 {
		t.Errorf("expected 3 hasMany relationships, got %d", got)
	}
}

func TestParseRelationships_ManyToManyRejected(t *testing.T) {
	_, err := NewParser().Parse(reflect.TypeOf(relGrouped{}))
	if err == nil || !strings.Contains(err.Error(), "manyToMany is not supported") {
		t.Fatalf("expected manyToMany to be rejected, got %v", err)
	}
}

func TestParseRelationships_BelongsTo(t *testing.T) {
	parser := NewParser()

	links, err := parser.Parse(reflect.TypeOf(relLink{}))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	from := links.GetRelationship("From")
	to := links.GetRelationship("To")
	if from.ForeignKey != "from_id" || to.ForeignKey != "to_id" {
		t.Errorf("belongsTo keys not told apart: %s, %s", from.ForeignKey, to.ForeignKey)
	}
	if from.TargetTable != "members" {
		t.Errorf("expected target members, got %s", from.TargetTable)
	}

	notes, err := parser.Parse(reflect.TypeOf(relNote{}))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if fk := notes.GetRelationship("Author").ForeignKey; fk != "author_id" {
		t.Errorf("expected default foreign key author_id, got %s", fk)
	}
}

func TestParseRelationships_Invalid(t *testing.T) {
	type notSlice struct {
		ID    int      `po:"id,primaryKey,serial"`
		Items relGroup `po:"-,hasMany"`
	}
	type slicedOne struct {
		ID    int        `po:"id,primaryKey,serial"`
		Owner []relGroup `po:"-,belongsTo"`
	}

	parser := NewParser()
	if _, err := parser.Parse(reflect.TypeOf(notSlice{})); err == nil {
		t.Error("expected error for hasMany on a non-slice field")
	}
	if _, err := parser.Parse(reflect.TypeOf(slicedOne{})); err == nil {
		t.Error("expected error for belongsTo on a slice field")
	}
}
