package engine

import (
	"log/slog"
	"slices"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ident"
	"github.com/roach88/bimbridge/internal/ir"
)

// ExecContext is everything a handler may touch while executing. It is
// built on the host goroutine for one request and never shared.
type ExecContext struct {
	Doc       *host.Document
	View      *host.Element // active view at dispatch time, nil if none
	RequestID string
	Logger    *slog.Logger

	// SuppressPatterns are installed on Suppress transactions.
	SuppressPatterns []string
}

// Handler executes one action family.
//
// Validate runs before the request is posted to the host and must not
// touch the document. Execute runs on the host goroutine; per-element
// failures go to agg, and a returned error fails every target at the
// batch edge.
type Handler interface {
	Family() ir.Family
	Policy(kind ir.ActionKind) TxPolicy
	Validate(req *ir.Request) error
	Execute(ec *ExecContext, req *ir.Request, agg *Aggregator) error
}

// Dispatcher routes a request to its family handler.
type Dispatcher struct {
	modify     Handler
	transform  Handler
	visibility Handler
	visual     Handler
	levels     Handler
	rooms      Handler
	tags       Handler
	query      Handler

	patterns []string
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcherConfig)

type dispatcherConfig struct {
	patterns []string
	token    ident.TokenSource
	logger   *slog.Logger
}

// WithSuppressPatterns replaces the duplicate-warning patterns.
func WithSuppressPatterns(patterns []string) DispatcherOption {
	return func(c *dispatcherConfig) {
		c.patterns = slices.Clone(patterns)
	}
}

// WithTokenSource sets the allocator's last-resort random token source.
func WithTokenSource(src ident.TokenSource) DispatcherOption {
	return func(c *dispatcherConfig) {
		c.token = src
	}
}

// WithDispatchLogger sets the dispatcher's logger.
func WithDispatchLogger(l *slog.Logger) DispatcherOption {
	return func(c *dispatcherConfig) {
		c.logger = l
	}
}

// NewDispatcher creates a dispatcher with the built-in family handlers.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	cfg := dispatcherConfig{
		patterns: slices.Clone(DefaultSuppressPatterns),
		token:    ident.UUIDToken,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Dispatcher{
		modify:     modifyHandler{},
		transform:  transformHandler{},
		visibility: visibilityHandler{},
		visual:     visualHandler{},
		levels:     levelHandler{},
		rooms:      roomHandler{token: cfg.token},
		tags:       tagRoomsHandler{},
		query:      queryHandler{},
		patterns:   cfg.patterns,
		logger:     cfg.logger,
	}
}

// handlerFor is the exhaustive kind switch.
func (d *Dispatcher) handlerFor(kind ir.ActionKind) (Handler, error) {
	switch kind {
	case ir.ActionSetParameter, ir.ActionDelete:
		return d.modify, nil
	case ir.ActionRotate, ir.ActionMirror, ir.ActionFlip, ir.ActionMove:
		return d.transform, nil
	case ir.ActionHide, ir.ActionTempHide, ir.ActionIsolate, ir.ActionUnhide, ir.ActionResetIsolate:
		return d.visibility, nil
	case ir.ActionSelect, ir.ActionSelectionBox, ir.ActionHighlight, ir.ActionSetColor, ir.ActionSetTransparency:
		return d.visual, nil
	case ir.ActionCreateLevel:
		return d.levels, nil
	case ir.ActionCreateRoom:
		return d.rooms, nil
	case ir.ActionTagRooms:
		return d.tags, nil
	case ir.ActionGetStatus, ir.ActionFilterElements:
		return d.query, nil
	default:
		return nil, NewValidationError("unknown action kind %q", kind)
	}
}

// Policy returns the transaction policy the handler declares for kind.
func (d *Dispatcher) Policy(kind ir.ActionKind) (TxPolicy, error) {
	h, err := d.handlerFor(kind)
	if err != nil {
		return TxPolicy{}, err
	}
	return h.Policy(kind), nil
}

// Validate checks req without touching any document. A nil payload is
// replaced with the kind's empty payload first.
func (d *Dispatcher) Validate(req *ir.Request) error {
	h, err := d.handlerFor(req.Kind)
	if err != nil {
		return err
	}
	if req.Payload == nil {
		req.Payload = emptyPayload(req.Kind)
	}
	if !payloadMatches(req.Kind, req.Payload) {
		return NewValidationError("payload %T does not match action %s", req.Payload, req.Kind)
	}
	if err := validatePayload(req.Payload); err != nil {
		return err
	}
	return h.Validate(req)
}

// Execute runs an already-validated request against doc. It must be called
// on the goroutine that owns doc.
func (d *Dispatcher) Execute(doc *host.Document, req *ir.Request) ir.Response {
	h, err := d.handlerFor(req.Kind)
	if err != nil {
		return ValidationResponse(req, err)
	}

	ec := &ExecContext{
		Doc:              doc,
		View:             doc.ActiveView(),
		RequestID:        req.ID,
		Logger:           d.logger.With("request_id", req.ID, "kind", req.Kind),
		SuppressPatterns: d.patterns,
	}
	agg := NewAggregator(req)
	if err := h.Execute(ec, req, agg); err != nil {
		ec.Logger.Warn("batch failed", "policy", h.Policy(req.Kind), "error", err)
		agg.FailAll(reason(err))
	}
	return agg.Response()
}

// Dispatch validates and executes req on doc.
func (d *Dispatcher) Dispatch(doc *host.Document, req *ir.Request) ir.Response {
	if err := d.Validate(req); err != nil {
		return ValidationResponse(req, err)
	}
	return d.Execute(doc, req)
}

func emptyPayload(kind ir.ActionKind) ir.Payload {
	switch kind {
	case ir.ActionCreateLevel:
		return &ir.LevelsPayload{}
	case ir.ActionCreateRoom:
		return &ir.RoomsPayload{}
	case ir.ActionTagRooms:
		return &ir.TagRoomsPayload{}
	case ir.ActionGetStatus:
		return &ir.StatusPayload{}
	case ir.ActionFilterElements:
		return &ir.FilterPayload{}
	}
	switch kind.Family() {
	case ir.FamilyModify:
		return &ir.ModifyPayload{}
	case ir.FamilyTransform:
		return &ir.TransformPayload{}
	case ir.FamilyVisibility:
		return &ir.VisibilityPayload{}
	case ir.FamilyVisual:
		return &ir.VisualPayload{}
	}
	return nil
}

func payloadMatches(kind ir.ActionKind, p ir.Payload) bool {
	switch p.(type) {
	case *ir.LevelsPayload:
		return kind == ir.ActionCreateLevel
	case *ir.RoomsPayload:
		return kind == ir.ActionCreateRoom
	case *ir.TagRoomsPayload:
		return kind == ir.ActionTagRooms
	case *ir.StatusPayload:
		return kind == ir.ActionGetStatus
	case *ir.FilterPayload:
		return kind == ir.ActionFilterElements
	}
	return ir.PayloadFamily(p) == kind.Family()
}

// resolveEach looks up every target in order, failing unresolved ids.
// The callback sees each resolvable element once per occurrence.
func resolveEach(ec *ExecContext, ids []ir.ElementID, agg *Aggregator, fn func(*host.Element)) {
	for _, id := range ids {
		e, ok := ec.Doc.Element(id)
		if !ok {
			agg.FailErr(id, NewNotFoundError(id))
			continue
		}
		fn(e)
	}
}

// setWarnings reports warnings that survived commit.
func setWarnings(agg *Aggregator, ws []host.Warning) {
	if len(ws) > 0 {
		agg.SetDetail("warnings", warningMessages(ws))
	}
}
