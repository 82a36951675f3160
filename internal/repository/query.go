package repository

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/utils"
	"gorm.io/gorm"
)

// Filter selects records whose field equals any of Values.
type Filter struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Query is the generic list request: a free-text search plus named filters.
// Values within one filter are OR-ed; filters are AND-ed with each other.
type Query struct {
	SearchString string   `json:"searchString"`
	Filters      []Filter `json:"filters"`
}

// FilterError reports an unknown filter name or an unparsable value.
type FilterError struct {
	Name   string
	Reason string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %q: %s", e.Name, e.Reason)
}

// ParseQuery decodes the JSON query parameter. An empty string is an empty query.
func ParseQuery(raw string) (Query, error) {
	var q Query
	if strings.TrimSpace(raw) == "" {
		return q, nil
	}
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return q, &FilterError{Name: "query", Reason: "must be a JSON object"}
	}
	return q, nil
}

type FieldKind int

const (
	FieldID FieldKind = iota
	FieldString
	FieldEnum
	FieldDate
)

// Field maps a filter name to a column.
type Field struct {
	Column string
	Kind   FieldKind
	// Valid checks enum values.
	Valid func(string) bool
}

// Schema is the per-entity whitelist of filterable and searchable columns.
type Schema struct {
	Fields        map[string]Field
	SearchColumns []string
}

var (
	UserSchema = Schema{
		Fields: map[string]Field{
			"id":    {Column: "id", Kind: FieldID},
			"role":  {Column: "role", Kind: FieldEnum, Valid: func(v string) bool { return models.Role(v).Valid() }},
			"login": {Column: "login", Kind: FieldString},
			"email": {Column: "email", Kind: FieldString},
		},
		SearchColumns: []string{"first_name", "last_name", "email", "login"},
	}

	ProjectSchema = Schema{
		Fields: map[string]Field{
			"id":         {Column: "id", Kind: FieldID},
			"stringId":   {Column: "string_id", Kind: FieldString},
			"manager":    {Column: "manager_id", Kind: FieldID},
			"createDate": {Column: "create_date", Kind: FieldDate},
			"dutyDate":   {Column: "duty_date", Kind: FieldDate},
		},
		SearchColumns: []string{"title", "description", "string_id"},
	}

	TaskSchema = Schema{
		Fields: map[string]Field{
			"id":         {Column: "id", Kind: FieldID},
			"stringId":   {Column: "string_id", Kind: FieldString},
			"idProject":  {Column: "project_id", Kind: FieldID},
			"reporter":   {Column: "reporter_id", Kind: FieldID},
			"status":     {Column: "status", Kind: FieldEnum, Valid: func(v string) bool { return models.TaskStatus(v).Valid() }},
			"priority":   {Column: "priority", Kind: FieldEnum, Valid: func(v string) bool { return models.TaskPriority(v).Valid() }},
			"createDate": {Column: "create_date", Kind: FieldDate},
			"dutyDate":   {Column: "duty_date", Kind: FieldDate},
		},
		SearchColumns: []string{"title", "description", "string_id"},
	}

	WorkLogSchema = Schema{
		Fields: map[string]Field{
			"idUser":  {Column: "user_id", Kind: FieldID},
			"idTask":  {Column: "task_id", Kind: FieldID},
			"logType": {Column: "log_type", Kind: FieldEnum, Valid: func(v string) bool { return models.LogType(v).Valid() }},
			"logDate": {Column: "log_date", Kind: FieldDate},
		},
	}
)

// Scopes translates q into store predicates. Filters with no values are ignored.
func (s Schema) Scopes(q Query) ([]Scope, error) {
	scopes := make([]Scope, 0, len(q.Filters)+1)

	if search := strings.TrimSpace(q.SearchString); search != "" && len(s.SearchColumns) > 0 {
		scopes = append(scopes, s.searchScope(search))
	}

	for _, f := range q.Filters {
		field, ok := s.Fields[f.Name]
		if !ok {
			return nil, &FilterError{Name: f.Name, Reason: "unknown filter"}
		}
		if len(f.Values) == 0 {
			continue
		}

		scope, err := field.scope(f)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}

	return scopes, nil
}

func (s Schema) searchScope(search string) Scope {
	pattern := containsPattern(search)
	clauses := make([]string, len(s.SearchColumns))
	args := make([]any, len(s.SearchColumns))
	for i, col := range s.SearchColumns {
		clauses[i] = fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '!'", col)
		args[i] = pattern
	}
	expr := "(" + strings.Join(clauses, " OR ") + ")"

	return func(db *gorm.DB) *gorm.DB {
		return db.Where(expr, args...)
	}
}

func (f Field) scope(filter Filter) (Scope, error) {
	switch f.Kind {
	case FieldID:
		ids := make([]uint64, 0, len(filter.Values))
		for _, v := range filter.Values {
			id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, &FilterError{Name: filter.Name, Reason: fmt.Sprintf("invalid id %q", v)}
			}
			ids = append(ids, id)
		}
		return inScope(f.Column, ids), nil

	case FieldEnum:
		for _, v := range filter.Values {
			if f.Valid != nil && !f.Valid(v) {
				return nil, &FilterError{Name: filter.Name, Reason: fmt.Sprintf("invalid value %q", v)}
			}
		}
		return inScope(f.Column, filter.Values), nil

	case FieldDate:
		clauses := make([]string, 0, len(filter.Values))
		args := make([]any, 0, 2*len(filter.Values))
		for _, v := range filter.Values {
			from, to, err := dayRange(v)
			if err != nil {
				return nil, &FilterError{Name: filter.Name, Reason: fmt.Sprintf("invalid date %q", v)}
			}
			clauses = append(clauses, fmt.Sprintf("(%s >= ? AND %s < ?)", f.Column, f.Column))
			args = append(args, from, to)
		}
		expr := "(" + strings.Join(clauses, " OR ") + ")"
		return func(db *gorm.DB) *gorm.DB {
			return db.Where(expr, args...)
		}, nil

	default:
		return inScope(f.Column, filter.Values), nil
	}
}

func inScope[T any](column string, values []T) Scope {
	expr := column + " IN ?"
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(expr, values)
	}
}

// dayRange accepts a calendar day or an RFC 3339 instant and returns the whole day containing it.
func dayRange(v string) (time.Time, time.Time, error) {
	v = strings.TrimSpace(v)
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		t, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return utils.StartOfDay(t), utils.EndOfDay(t), nil
}
