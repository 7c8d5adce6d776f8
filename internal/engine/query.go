package engine

import (
	"strings"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/units"
)

const (
	defaultMaxElements = 50
	// maxKeywordElements caps keyword-only filters, which scan every element.
	maxKeywordElements = 100
)

// queryHandler implements GetStatus and FilterElements. Neither opens a
// transaction.
type queryHandler struct{}

func (queryHandler) Family() ir.Family { return ir.FamilyQuery }

func (queryHandler) Policy(ir.ActionKind) TxPolicy {
	return TxPolicy{Granularity: ReadOnly, Warnings: Strict}
}

func (queryHandler) Validate(req *ir.Request) error {
	p, ok := req.Payload.(*ir.FilterPayload)
	if !ok || p.MaxElements == nil {
		return nil
	}
	switch n := *p.MaxElements; {
	case n < 1:
		return NewValidationError("maxElements must be at least 1 (got %d)", n)
	case p.KeywordOnly() && len(req.TargetIDs) == 0 && n > maxKeywordElements:
		return NewValidationError("maxElements must not exceed %d when filtering by name keyword alone (got %d)", maxKeywordElements, n)
	}
	return nil
}

func (queryHandler) Execute(ec *ExecContext, req *ir.Request, agg *Aggregator) error {
	switch p := req.Payload.(type) {
	case *ir.StatusPayload:
		agg.SetDetail("status", documentStatus(ec))
		return nil
	case *ir.FilterPayload:
		return filterElements(ec, req, p, agg)
	}
	return NewValidationError("payload %T does not match action %s", req.Payload, req.Kind)
}

// ViewSummary names a view.
type ViewSummary struct {
	ID   ir.ElementID `json:"id"`
	Name string       `json:"name"`
	Type string       `json:"type"`
}

// DocumentStatus is the GetStatus detail.
type DocumentStatus struct {
	Title          string         `json:"title"`
	ActiveView     *ViewSummary   `json:"activeView"`
	ElementCount   int            `json:"elementCount"`
	LevelCount     int            `json:"levelCount"`
	ElementsByKind map[string]int `json:"elementsByKind"`
	SelectionCount int            `json:"selectionCount"`
	InTransaction  bool           `json:"inTransaction"`
}

func documentStatus(ec *ExecContext) DocumentStatus {
	elements := ec.Doc.Elements()
	st := DocumentStatus{
		Title:          ec.Doc.Title(),
		ElementCount:   len(elements),
		ElementsByKind: make(map[string]int),
		SelectionCount: len(ec.Doc.Selection()),
		InTransaction:  ec.Doc.InTransaction(),
	}
	for _, e := range elements {
		st.ElementsByKind[string(e.Kind)]++
		if e.Kind == host.KindLevel {
			st.LevelCount++
		}
	}
	if v := ec.View; v != nil {
		st.ActiveView = &ViewSummary{ID: v.ID, Name: v.Name, Type: string(v.View.Type)}
	}
	return st
}

// ElementSummary is one FilterElements match. Locations are millimeters.
type ElementSummary struct {
	ID        ir.ElementID `json:"id"`
	Name      string       `json:"name"`
	Kind      string       `json:"kind"`
	Category  string       `json:"category,omitempty"`
	LevelID   ir.ElementID `json:"levelId,omitempty"`
	LevelName string       `json:"levelName,omitempty"`
	Location  *ir.XYZ      `json:"location,omitempty"`
}

// filterElements reports matches in id order, up to maxElements. Explicit
// ids that do not resolve fail; resolved ids that do not match are left out.
func filterElements(ec *ExecContext, req *ir.Request, p *ir.FilterPayload, agg *Aggregator) error {
	if p.VisibleInView && ec.View == nil {
		return errNoActiveView
	}

	var candidates []*host.Element
	var missing []ir.ElementID
	if len(req.TargetIDs) > 0 {
		seen := make(map[ir.ElementID]bool, len(req.TargetIDs))
		for _, id := range req.TargetIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			e, ok := ec.Doc.Element(id)
			if !ok {
				missing = append(missing, id)
				continue
			}
			candidates = append(candidates, e)
		}
	} else {
		candidates = ec.Doc.Elements()
	}

	limit := defaultMaxElements
	if p.MaxElements != nil {
		limit = *p.MaxElements
	}

	var matched []*host.Element
	total := 0
	for _, e := range candidates {
		if !filterMatches(ec, p, e) {
			continue
		}
		total++
		if len(matched) < limit {
			matched = append(matched, e)
		}
	}

	ids := make([]ir.ElementID, 0, len(matched)+len(missing))
	summaries := make([]ElementSummary, 0, len(matched))
	for _, e := range matched {
		ids = append(ids, e.ID)
		summaries = append(summaries, summarize(ec.Doc, e))
	}
	agg.Expand(append(ids, missing...))
	for _, id := range ids {
		agg.Succeed(id)
	}
	for _, id := range missing {
		agg.FailErr(id, NewNotFoundError(id))
	}

	agg.SetDetail("elements", summaries)
	agg.SetDetail("totalMatched", total)
	agg.SetDetail("truncated", total > len(matched))
	if total > len(matched) {
		ec.Logger.Debug("filter truncated", "matched", total, "returned", len(matched))
	}
	return nil
}

func filterMatches(ec *ExecContext, p *ir.FilterPayload, e *host.Element) bool {
	if e.Kind.IsTypeLevel() {
		if !p.IncludeTypes {
			return false
		}
	} else if !p.Instances() {
		return false
	}
	if p.ElementKind != "" && string(e.Kind) != p.ElementKind {
		return false
	}
	if p.Category != "" && !strings.EqualFold(e.Category, p.Category) {
		return false
	}
	if p.LevelID != 0 && e.LevelID != p.LevelID {
		return false
	}
	if kw := strings.TrimSpace(p.NameKeyword); kw != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(kw)) {
		return false
	}
	if p.VisibleInView && (e.Kind.IsTypeLevel() || !ec.View.View.Visible(e.ID)) {
		return false
	}
	return true
}

func summarize(doc *host.Document, e *host.Element) ElementSummary {
	s := ElementSummary{
		ID:       e.ID,
		Name:     e.Name,
		Kind:     string(e.Kind),
		Category: e.Category,
		LevelID:  e.LevelID,
	}
	if lvl, ok := doc.Element(e.LevelID); ok && lvl.Level != nil {
		s.LevelName = lvl.Name
	}
	if !e.Kind.IsTypeLevel() && e.Kind != host.KindLevel && e.Kind != host.KindView {
		loc := units.PointToMM(e.Location)
		s.Location = &loc
	}
	return s
}
