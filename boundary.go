package livetree

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/livefir/livetree/internal/reconcile"
	"github.com/livefir/livetree/internal/vdom"
)

// Boundary is the serialized host boundary: every call takes and
// returns JSON buffers, sessions are addressed by opaque IDs, and
// failures come back as result codes instead of errors or panics.
// Embedders that cannot share Go types (foreign runtimes, subprocess
// hosts) drive the engine through this surface; in-process Go hosts
// use Engine and Session directly.
type Boundary struct {
	engine *Engine
}

// NewBoundary wraps an engine.
func NewBoundary(engine *Engine) *Boundary {
	return &Boundary{engine: engine}
}

// Result codes carried in every envelope.
const (
	CodeOK             = "ok"
	CodeInvalidInput   = "invalid_input"
	CodeStructural     = "structural_error"
	CodeUnknownSession = "unknown_session"
	CodeInternal       = "internal_error"
)

// Envelope is the uniform result wrapper.
type Envelope struct {
	Code  string          `json:"code"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// CreateSession opens a session and returns its opaque ID.
func (b *Boundary) CreateSession() []byte {
	return guard(func() []byte {
		s, err := b.engine.NewSession()
		if err != nil {
			return fail(CodeInternal, err)
		}
		return ok(map[string]string{"sessionId": s.ID})
	})
}

// CloseSession tears down the addressed session. Closing an unknown
// session succeeds; teardown is idempotent.
func (b *Boundary) CloseSession(request []byte) []byte {
	return guard(func() []byte {
		var req struct {
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(request, &req); err != nil {
			return fail(CodeInvalidInput, err)
		}
		b.engine.CloseSession(req.SessionID)
		return ok(nil)
	})
}

// Diff computes patches between two trees carried in the request.
func (b *Boundary) Diff(request []byte) []byte {
	return guard(func() []byte {
		var req struct {
			SessionID string          `json:"sessionId"`
			Old       json.RawMessage `json:"old"`
			New       json.RawMessage `json:"new"`
		}
		if err := json.Unmarshal(request, &req); err != nil {
			return fail(CodeInvalidInput, err)
		}
		s, found := b.engine.Session(req.SessionID)
		if !found {
			return fail(CodeUnknownSession, fmt.Errorf("unknown session %q", req.SessionID))
		}
		oldTree, err := vdom.DecodeNode(req.Old)
		if err != nil {
			return fail(CodeInvalidInput, fmt.Errorf("old tree: %w", err))
		}
		newTree, err := vdom.DecodeNode(req.New)
		if err != nil {
			return fail(CodeInvalidInput, fmt.Errorf("new tree: %w", err))
		}
		patches, err := s.Diff(oldTree, newTree)
		if err != nil {
			return fail(diffCode(err), err)
		}
		encoded, err := vdom.EncodePatches(patches)
		if err != nil {
			return fail(CodeInternal, err)
		}
		return ok(map[string]json.RawMessage{"patches": encoded})
	})
}

// Reconcile runs the full render path: diff, snapshot swap, template
// extraction and cache install. The response carries the authoritative
// patches and the templates that were installed.
func (b *Boundary) Reconcile(request []byte) []byte {
	return guard(func() []byte {
		var req struct {
			SessionID   string             `json:"sessionId"`
			ComponentID string             `json:"componentId"`
			Old         json.RawMessage    `json:"old,omitempty"`
			New         json.RawMessage    `json:"new"`
			Changes     []vdom.StateChange `json:"changes"`
		}
		if err := json.Unmarshal(request, &req); err != nil {
			return fail(CodeInvalidInput, err)
		}
		if req.ComponentID == "" {
			return fail(CodeInvalidInput, errors.New("missing componentId"))
		}
		s, found := b.engine.Session(req.SessionID)
		if !found {
			return fail(CodeUnknownSession, fmt.Errorf("unknown session %q", req.SessionID))
		}

		var oldTree Node // nil falls back to the retained snapshot
		if len(req.Old) > 0 {
			var err error
			oldTree, err = vdom.DecodeNode(req.Old)
			if err != nil {
				return fail(CodeInvalidInput, fmt.Errorf("old tree: %w", err))
			}
		}
		newTree, err := vdom.DecodeNode(req.New)
		if err != nil {
			return fail(CodeInvalidInput, fmt.Errorf("new tree: %w", err))
		}

		result, err := s.Reconcile(req.ComponentID, oldTree, newTree, req.Changes)
		if err != nil {
			return fail(diffCode(err), err)
		}
		patches, err := vdom.EncodePatches(result.Patches)
		if err != nil {
			return fail(CodeInternal, err)
		}
		templates, err := vdom.EncodeTemplates(result.Templates)
		if err != nil {
			return fail(CodeInternal, err)
		}
		return ok(map[string]json.RawMessage{
			"patches":   patches,
			"templates": templates,
		})
	})
}

// Predict serves cached patches for a change set.
func (b *Boundary) Predict(request []byte) []byte {
	return guard(func() []byte {
		var req struct {
			SessionID   string             `json:"sessionId"`
			ComponentID string             `json:"componentId"`
			Changes     []vdom.StateChange `json:"changes"`
		}
		if err := json.Unmarshal(request, &req); err != nil {
			return fail(CodeInvalidInput, err)
		}
		s, found := b.engine.Session(req.SessionID)
		if !found {
			return fail(CodeUnknownSession, fmt.Errorf("unknown session %q", req.SessionID))
		}
		patches, matched := s.Predict(req.ComponentID, req.Changes)
		encoded, err := vdom.EncodePatches(patches)
		if err != nil {
			return fail(CodeInternal, err)
		}
		return ok(map[string]any{
			"matched": matched,
			"patches": json.RawMessage(encoded),
		})
	})
}

// Invalidate drops a component's predictions and snapshot.
func (b *Boundary) Invalidate(request []byte) []byte {
	return guard(func() []byte {
		var req struct {
			SessionID   string `json:"sessionId"`
			ComponentID string `json:"componentId"`
		}
		if err := json.Unmarshal(request, &req); err != nil {
			return fail(CodeInvalidInput, err)
		}
		s, found := b.engine.Session(req.SessionID)
		if !found {
			return fail(CodeUnknownSession, fmt.Errorf("unknown session %q", req.SessionID))
		}
		s.Invalidate(req.ComponentID)
		return ok(nil)
	})
}

// guard keeps panics on this side of the boundary.
func guard(fn func() []byte) (out []byte) {
	defer func() {
		if r := recover(); r != nil {
			out = fail(CodeInternal, fmt.Errorf("panic: %v", r))
		}
	}()
	return fn()
}

func diffCode(err error) string {
	var structural *reconcile.StructuralError
	if errors.As(err, &structural) {
		return CodeStructural
	}
	return CodeInvalidInput
}

func ok(data any) []byte {
	env := Envelope{Code: CodeOK}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fail(CodeInternal, err)
		}
		env.Data = raw
	}
	out, _ := json.Marshal(env)
	return out
}

func fail(code string, err error) []byte {
	out, _ := json.Marshal(Envelope{Code: code, Error: err.Error()})
	return out
}
