package builder

import (
	"fmt"
	"strings"
)

// WhereBuilder renders conditions into a WHERE clause with numbered
// placeholders starting at paramStart.
type WhereBuilder struct {
	conditions []Condition
	paramStart int
}

// NewWhereBuilder creates a WhereBuilder numbering placeholders from $1.
func NewWhereBuilder() *WhereBuilder {
	return NewWhereBuilderWithStart(1)
}

// NewWhereBuilderWithStart creates a WhereBuilder numbering from paramStart.
func NewWhereBuilderWithStart(paramStart int) *WhereBuilder {
	return &WhereBuilder{paramStart: paramStart}
}

// Add adds a condition to the WHERE clause.
func (w *WhereBuilder) Add(condition Condition) {
	w.conditions = append(w.conditions, condition)
}

// Build generates the WHERE clause SQL and arguments.
func (w *WhereBuilder) Build() (string, []any, error) {
	if len(w.conditions) == 0 {
		return "", nil, nil
	}
	sql, args, err := buildConditions(w.conditions, w.paramStart)
	if err != nil {
		return "", nil, err
	}
	return "WHERE " + sql, args, nil
}

// buildWhere returns " WHERE ..." or "" when there are no conditions.
func buildWhere(conditions []Condition, paramStart int) (string, []any, error) {
	w := NewWhereBuilderWithStart(paramStart)
	w.conditions = conditions
	sql, args, err := w.Build()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
	}
	if sql == "" {
		return "", nil, nil
	}
	return " " + sql, args, nil
}

func buildConditions(conditions []Condition, paramStart int) (string, []any, error) {
	var sql strings.Builder
	var args []any
	paramNum := paramStart

	for i, cond := range conditions {
		if i > 0 {
			logic := cond.Logic
			if logic == "" {
				logic = LogicAnd
			}
			sql.WriteString(" " + string(logic) + " ")
		}

		var part string
		var partArgs []any
		var err error
		if len(cond.Group) > 0 {
			part, partArgs, err = buildConditions(cond.Group, paramNum)
			part = "(" + part + ")"
		} else {
			part, partArgs, err = buildCondition(cond, paramNum)
		}
		if err != nil {
			return "", nil, err
		}
		if cond.Not {
			part = "NOT (" + part + ")"
		}

		sql.WriteString(part)
		args = append(args, partArgs...)
		paramNum += len(partArgs)
	}

	return sql.String(), args, nil
}

func buildCondition(cond Condition, paramNum int) (string, []any, error) {
	switch cond.Operator {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual, OpLike, OpILike:
		return fmt.Sprintf("%s %s $%d", cond.Column, cond.Operator, paramNum), []any{cond.Value}, nil

	case OpIn, OpNotIn:
		values, ok := cond.Value.([]any)
		if !ok {
			return "", nil, fmt.Errorf("%s operator requires []any value", cond.Operator)
		}
		if len(values) == 0 {
			// An empty IN list matches nothing; an empty NOT IN matches everything.
			if cond.Operator == OpIn {
				return "FALSE", nil, nil
			}
			return "TRUE", nil, nil
		}
		placeholders := make([]string, len(values))
		for i := range values {
			placeholders[i] = fmt.Sprintf("$%d", paramNum+i)
		}
		return fmt.Sprintf("%s %s (%s)", cond.Column, cond.Operator, strings.Join(placeholders, ", ")), values, nil

	case OpIsNull, OpIsNotNull:
		return fmt.Sprintf("%s %s", cond.Column, cond.Operator), nil, nil

	case OpBetween:
		values, ok := cond.Value.([]any)
		if !ok || len(values) != 2 {
			return "", nil, fmt.Errorf("BETWEEN operator requires [min, max]")
		}
		return fmt.Sprintf("%s BETWEEN $%d AND $%d", cond.Column, paramNum, paramNum+1), values, nil

	default:
		return "", nil, fmt.Errorf("unknown operator: %s", cond.Operator)
	}
}

// Eq creates an equality condition.
func Eq(column string, value any) Condition {
	return Condition{Column: column, Operator: OpEqual, Value: value, Logic: LogicAnd}
}

// NotEq creates a not-equal condition.
func NotEq(column string, value any) Condition {
	return Condition{Column: column, Operator: OpNotEqual, Value: value, Logic: LogicAnd}
}

// Gt creates a greater-than condition.
func Gt(column string, value any) Condition {
	return Condition{Column: column, Operator: OpGreaterThan, Value: value, Logic: LogicAnd}
}

// Gte creates a greater-than-or-equal condition.
func Gte(column string, value any) Condition {
	return Condition{Column: column, Operator: OpGreaterThanOrEqual, Value: value, Logic: LogicAnd}
}

// Lt creates a less-than condition.
func Lt(column string, value any) Condition {
	return Condition{Column: column, Operator: OpLessThan, Value: value, Logic: LogicAnd}
}

// Lte creates a less-than-or-equal condition.
func Lte(column string, value any) Condition {
	return Condition{Column: column, Operator: OpLessThanOrEqual, Value: value, Logic: LogicAnd}
}

// In creates an IN condition.
func In(column string, values ...any) Condition {
	return Condition{Column: column, Operator: OpIn, Value: values, Logic: LogicAnd}
}

// NotIn creates a NOT IN condition.
func NotIn(column string, values ...any) Condition {
	return Condition{Column: column, Operator: OpNotIn, Value: values, Logic: LogicAnd}
}

// Like creates a LIKE condition.
func Like(column string, pattern string) Condition {
	return Condition{Column: column, Operator: OpLike, Value: pattern, Logic: LogicAnd}
}

// ILike creates a case-insensitive ILIKE condition.
func ILike(column string, pattern string) Condition {
	return Condition{Column: column, Operator: OpILike, Value: pattern, Logic: LogicAnd}
}

// IsNull creates an IS NULL condition.
func IsNull(column string) Condition {
	return Condition{Column: column, Operator: OpIsNull, Logic: LogicAnd}
}

// IsNotNull creates an IS NOT NULL condition.
func IsNotNull(column string) Condition {
	return Condition{Column: column, Operator: OpIsNotNull, Logic: LogicAnd}
}

// Between creates a BETWEEN condition.
func Between(column string, lo, hi any) Condition {
	return Condition{Column: column, Operator: OpBetween, Value: []any{lo, hi}, Logic: LogicAnd}
}

// Or joins cond to the previous condition with OR.
func Or(cond Condition) Condition {
	cond.Logic = LogicOr
	return cond
}

// Not negates a condition.
func Not(cond Condition) Condition {
	cond.Not = true
	return cond
}

// Group wraps conditions in parentheses.
func Group(conditions ...Condition) Condition {
	return Condition{Group: conditions, Logic: LogicAnd}
}
