package builder

import (
	"testing"
)

func TestWhereBuilder_Build(t *testing.T) {
	tests := []struct {
		name           string
		conditions     []Condition
		expectedSQL    string
		expectedArgLen int
	}{
		{
			name:        "empty conditions",
			conditions:  []Condition{},
			expectedSQL: "",
		},
		{
			name:           "single equality condition",
			conditions:     []Condition{Eq("user_id", 3)},
			expectedSQL:    "WHERE user_id = $1",
			expectedArgLen: 1,
		},
		{
			name:           "multiple AND conditions",
			conditions:     []Condition{Eq("follower_id", 1), Eq("followed_id", 2)},
			expectedSQL:    "WHERE follower_id = $1 AND followed_id = $2",
			expectedArgLen: 2,
		},
		{
			name:           "OR condition",
			conditions:     []Condition{Eq("follower_id", 1), Or(Eq("followed_id", 1))},
			expectedSQL:    "WHERE follower_id = $1 OR followed_id = $2",
			expectedArgLen: 2,
		},
		{
			name:           "IN condition",
			conditions:     []Condition{In("id", 1, 2, 3)},
			expectedSQL:    "WHERE id IN ($1, $2, $3)",
			expectedArgLen: 3,
		},
		{
			name:        "empty IN matches nothing",
			conditions:  []Condition{In("id")},
			expectedSQL: "WHERE FALSE",
		},
		{
			name:        "empty NOT IN matches everything",
			conditions:  []Condition{NotIn("id")},
			expectedSQL: "WHERE TRUE",
		},
		{
			name:        "IS NULL and IS NOT NULL",
			conditions:  []Condition{IsNull("bio"), IsNotNull("email")},
			expectedSQL: "WHERE bio IS NULL AND email IS NOT NULL",
		},
		{
			name:           "LIKE and ILIKE",
			conditions:     []Condition{Like("caption", "%sun%"), ILike("email", "%@EXAMPLE.com")},
			expectedSQL:    "WHERE caption LIKE $1 AND email ILIKE $2",
			expectedArgLen: 2,
		},
		{
			name:           "BETWEEN condition",
			conditions:     []Condition{Between("id", 10, 20)},
			expectedSQL:    "WHERE id BETWEEN $1 AND $2",
			expectedArgLen: 2,
		},
		{
			name:           "NOT condition",
			conditions:     []Condition{Not(Eq("is_active", true))},
			expectedSQL:    "WHERE NOT (is_active = $1)",
			expectedArgLen: 1,
		},
		{
			name: "grouped conditions",
			conditions: []Condition{
				Eq("is_active", true),
				Group(Eq("follower_id", 1), Or(Eq("followed_id", 1))),
			},
			expectedSQL:    "WHERE is_active = $1 AND (follower_id = $2 OR followed_id = $3)",
			expectedArgLen: 3,
		},
		{
			name: "comparison operators",
			conditions: []Condition{
				Gt("id", 1), Gte("id", 2), Lt("id", 9), Lte("id", 8), NotEq("id", 5),
			},
			expectedSQL:    "WHERE id > $1 AND id >= $2 AND id < $3 AND id <= $4 AND id != $5",
			expectedArgLen: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			for _, cond := range tt.conditions {
				wb.Add(cond)
			}

			sql, args, err := wb.Build()
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if sql != tt.expectedSQL {
				t.Errorf("Build() sql = %v, want %v", sql, tt.expectedSQL)
			}
			if len(args) != tt.expectedArgLen {
				t.Errorf("Build() args length = %v, want %v", len(args), tt.expectedArgLen)
			}
		})
	}
}

func TestWhereBuilder_ParamStart(t *testing.T) {
	wb := NewWhereBuilderWithStart(4)
	wb.Add(Eq("id", 1))
	wb.Add(In("user_id", 7, 8))

	sql, args, err := wb.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if sql != "WHERE id = $4 AND user_id IN ($5, $6)" {
		t.Errorf("unexpected sql: %s", sql)
	}
	if len(args) != 3 {
		t.Errorf("expected 3 args, got %d", len(args))
	}
}

func TestWhereBuilder_Errors(t *testing.T) {
	tests := []Condition{
		{Column: "id", Operator: "~~~", Value: 1},
		{Column: "id", Operator: OpIn, Value: []int{1, 2}},
		{Column: "id", Operator: OpBetween, Value: []any{1}},
	}
	for _, cond := range tests {
		wb := NewWhereBuilder()
		wb.Add(cond)
		if _, _, err := wb.Build(); err == nil {
			t.Errorf("expected error for %+v", cond)
		}
	}
}
