package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/store"
	"github.com/roach88/bimbridge/internal/units"
)

// validIdentifier matches SQL identifiers (table and column names).
// Identifiers cannot be bound as parameters, so they are whitelisted.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent // full trace for context, may be nil
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %s\n", event.Seq, event.Tool, event.Args, event.Response.Message)
		}
	}

	return buf.String()
}

// assertTraceContains checks that some call to the tool had matching args
// (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Tool == assertion.Tool && matchArgs(normalizeMap(event.Args), assertion.Args) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("tool %s with args %v", assertion.Tool, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first call of each tool appears in the
// given order. Other calls may come in between.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for _, event := range trace {
		if _, seen := positions[event.Tool]; !seen {
			positions[event.Tool] = event.Seq
		}
	}

	for _, tool := range assertion.Tools {
		if positions[tool] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all tools present: %v", assertion.Tools),
				Actual:   fmt.Sprintf("missing tool: %s", tool),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Tools); i++ {
		prev := assertion.Tools[i-1]
		curr := assertion.Tools[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("tools in order: %v", assertion.Tools),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that the tool was called exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Tool == assertion.Tool {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d calls of %s", assertion.Count, assertion.Tool),
			Actual:   fmt.Sprintf("%d calls", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState queries a journal table and checks the single matching
// row with subset semantics.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]any, len(columns))
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	for _, key := range sortedKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}
	return nil
}

// assertElement inspects an element of the final document.
func assertElement(doc *host.Document, assertion Assertion) error {
	id := ir.ElementID(assertion.Element)
	e, ok := doc.Element(id)

	wantExists := assertion.Exists == nil || *assertion.Exists
	if ok != wantExists {
		return &AssertionError{
			Type:     AssertElement,
			Expected: fmt.Sprintf("element %d exists = %v", id, wantExists),
			Actual:   fmt.Sprintf("exists = %v", ok),
		}
	}
	if !ok {
		return nil
	}

	if assertion.Param != "" {
		p := e.LookupParameter(assertion.Param)
		if p == nil {
			return &AssertionError{
				Type:     AssertElement,
				Expected: fmt.Sprintf("element %d has parameter %q", id, assertion.Param),
				Actual:   "parameter not found",
			}
		}
		if !paramEquals(p, assertion.Value) {
			return &AssertionError{
				Type:     AssertElement,
				Expected: fmt.Sprintf("element %d %s = %v", id, assertion.Param, assertion.Value),
				Actual:   fmt.Sprintf("%s = %s", assertion.Param, displayParam(p)),
			}
		}
	}

	if assertion.HiddenIn != "" {
		view := viewNamed(doc, assertion.HiddenIn)
		if view == nil {
			return &AssertionError{
				Type:     AssertElement,
				Expected: fmt.Sprintf("view %q", assertion.HiddenIn),
				Actual:   "view not found",
			}
		}
		if view.View.Visible(id) {
			return &AssertionError{
				Type:     AssertElement,
				Expected: fmt.Sprintf("element %d hidden in %q", id, assertion.HiddenIn),
				Actual:   "visible",
			}
		}
	}
	return nil
}

func viewNamed(doc *host.Document, name string) *host.Element {
	for _, v := range doc.ElementsOfKind(host.KindView) {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// paramEquals compares a parameter with a scenario value. Doubles are
// compared in display units.
func paramEquals(p *host.Parameter, want any) bool {
	if f, ok := p.Value.(float64); ok {
		w, err := units.ToFloat(want)
		if err != nil {
			return false
		}
		return math.Abs(units.FromInternal(f, p.Measure)-w) < 1e-6
	}
	return units.ToString(p.Value) == units.ToString(want)
}

func displayParam(p *host.Parameter) string {
	if f, ok := p.Value.(float64); ok {
		return units.ToString(units.FromInternal(f, p.Measure))
	}
	return units.ToString(p.Value)
}

// buildWhereClause constructs a parameterized WHERE clause. Keys are
// sorted so the query text is deterministic.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}
	return strings.Join(clauses, " AND "), args, nil
}

func toSQLValue(v any) any {
	switch val := v.(type) {
	case string, int, int64, float64:
		return val
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stateValuesEqual compares a scenario value with a SQLite column value.
// SQLite hands back int64 for integers and booleans, and string or []byte
// for text.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}
	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case string:
		s, ok := actual.(string)
		return ok && exp == s
	case int:
		n, ok := actual.(int64)
		return ok && int64(exp) == n
	case int64:
		n, ok := actual.(int64)
		return ok && exp == n
	case float64:
		switch a := actual.(type) {
		case float64:
			return exp == a
		case int64:
			return exp == float64(a)
		}
		return false
	case bool:
		switch a := actual.(type) {
		case bool:
			return exp == a
		case int64:
			return exp == (a != 0)
		}
		return false
	}
	return reflect.DeepEqual(expected, actual)
}

// matchArgs reports whether actual contains every key of expected with an
// equal value. Nested maps are matched as subsets too. Both sides are
// compared in their JSON form, so 3 and 3.0 are equal.
func matchArgs(actual map[string]any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}
	return subset(normalizeMap(expected), actual)
}

func subset(expected, actual any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			av, exists := act[k]
			if !exists || !subset(v, av) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !subset(exp[i], act[i]) {
				return false
			}
		}
		return true
	}
	return valuesEqual(actual, expected)
}

func valuesEqual(actual, expected any) bool {
	return reflect.DeepEqual(actual, expected)
}

// normalize converts v to its JSON shape: maps become map[string]any,
// slices []any and numbers float64.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func normalizeMap(m map[string]any) map[string]any {
	out, _ := normalize(m).(map[string]any)
	return out
}

// AssertionContext gives assertions access to the journal and the final
// document.
type AssertionContext struct {
	Store *store.Store
	Doc   *host.Document
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		case AssertElement:
			if actx == nil || actx.Doc == nil {
				err = fmt.Errorf("assertion[%d]: element requires a document", i)
			} else {
				err = assertElement(actx.Doc, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
