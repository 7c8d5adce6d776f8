package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/bimbridge/internal/engine"
	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/mcpserver"
	"github.com/roach88/bimbridge/internal/scene"
	"github.com/roach88/bimbridge/internal/store"
	"github.com/roach88/bimbridge/internal/testutil"
)

// FixedToken replaces the random suffix of the identifier allocator so
// exhausted numbering is reproducible.
const FixedToken = "TEST"

// recordingIDs remembers the last request id it handed out.
type recordingIDs struct {
	gen  *testutil.SequenceGenerator
	last string
}

func (r *recordingIDs) Generate() string {
	r.last = r.gen.Generate()
	return r.last
}

// Run executes a scenario and returns the result.
//
// Each run builds a fresh document from the scene and journals to a fresh
// in-memory database. Request ids are "req-0001", "req-0002"... in step
// order, skipping steps whose arguments fail to decode.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	doc, err := scene.LoadDocument(scenario.Scene)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.DiscardHandler)

	loop := host.NewLoop(doc, host.WithLogger(logger))
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(loopCtx) }()

	ids := &recordingIDs{gen: testutil.NewSequenceGenerator("req")}
	dispatcher := engine.NewDispatcher(
		engine.WithTokenSource(func() string { return FixedToken }),
		engine.WithDispatchLogger(logger),
	)
	bridge := engine.NewBridge(loop, dispatcher,
		engine.WithJournal(st),
		engine.WithLogger(logger),
		engine.WithIDGenerator(ids),
	)
	srv := mcpserver.New(bridge, mcpserver.WithLogger(logger))

	result := NewResult()
	for i, step := range scenario.Steps {
		args, err := json.Marshal(step.Args)
		if err != nil {
			return nil, fmt.Errorf("step %d: failed to encode args: %w", i, err)
		}

		ids.last = ""
		resp, decodeErr := srv.Handle(ctx, ir.Tool(step.Tool), args)

		ev := TraceEvent{
			Tool:      step.Tool,
			Args:      step.Args,
			RequestID: ids.last,
			Response:  resp,
		}
		if decodeErr != nil {
			var de *ir.DecodeError
			if !errors.As(decodeErr, &de) {
				return nil, fmt.Errorf("step %d: %w", i, decodeErr)
			}
			ev.DecodeError = de.Message
		}
		result.AddTrace(ev)

		if step.Expect != nil {
			for _, msg := range checkExpect(step.Expect, ev) {
				result.AddError(fmt.Sprintf("steps[%d] (%s): %s", i, step.Tool, msg))
			}
		}
	}

	// Drain the loop so every journal write has landed before assertions
	// read the database and the document.
	loop.Stop()
	if err := <-loopDone; err != nil {
		return nil, fmt.Errorf("host loop: %w", err)
	}

	actx := &AssertionContext{
		Store: st,
		Doc:   doc,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// checkExpect compares a step's response with its expectation and returns
// one message per mismatch.
func checkExpect(exp *Expect, ev TraceEvent) []string {
	var msgs []string
	resp := ev.Response

	if exp.DecodeError != (ev.DecodeError != "") {
		msgs = append(msgs, fmt.Sprintf("decode error = %q, want decode error %v", ev.DecodeError, exp.DecodeError))
	}
	if exp.Success != nil && resp.Success != *exp.Success {
		msgs = append(msgs, fmt.Sprintf("success = %v, want %v (message %q)", resp.Success, *exp.Success, resp.Message))
	}
	if exp.ProcessedCount != nil && resp.Response.ProcessedCount != *exp.ProcessedCount {
		msgs = append(msgs, fmt.Sprintf("processedCount = %d, want %d", resp.Response.ProcessedCount, *exp.ProcessedCount))
	}
	if exp.Succeeded != nil {
		got := make([]int64, len(resp.Response.SuccessfulElements))
		for i, id := range resp.Response.SuccessfulElements {
			got[i] = int64(id)
		}
		if !valuesEqual(normalize(got), normalize(exp.Succeeded)) {
			msgs = append(msgs, fmt.Sprintf("successfulElements = %v, want %v", got, exp.Succeeded))
		}
	}
	if exp.Failed != nil {
		if len(resp.Response.FailedElements) != len(exp.Failed) {
			msgs = append(msgs, fmt.Sprintf("failedElements = %v, want %v", resp.Response.FailedElements, exp.Failed))
		} else {
			for i, f := range exp.Failed {
				got := resp.Response.FailedElements[i]
				if int64(got.ElementID) != f.ID || got.Reason != f.Reason {
					msgs = append(msgs, fmt.Sprintf("failedElements[%d] = {%d %q}, want {%d %q}",
						i, got.ElementID, got.Reason, f.ID, f.Reason))
				}
			}
		}
	}
	if exp.MessageContains != "" && !strings.Contains(resp.Message, exp.MessageContains) {
		msgs = append(msgs, fmt.Sprintf("message %q does not contain %q", resp.Message, exp.MessageContains))
	}
	if len(exp.Details) > 0 {
		actual, _ := normalize(resp.Response.Details).(map[string]any)
		if !matchArgs(actual, exp.Details) {
			msgs = append(msgs, fmt.Sprintf("details = %v, want subset %v", actual, exp.Details))
		}
	}
	return msgs
}
