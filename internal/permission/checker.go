package permission

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/coreassist/coreassist/internal/event"
	"github.com/coreassist/coreassist/internal/metrics"
)

// globalSession is the cache key used for "forever" scoped approvals, which
// apply across every session rather than just the one that requested them.
const globalSession = ""

// checkerState is the state a Checker's actor goroutine owns exclusively:
// the approval cache and the table of requests awaiting a reply. Nothing
// outside run touches these fields.
type checkerState struct {
	approved map[string]map[PermissionType]bool // sessionID -> type -> approved
	patterns map[string]map[string]bool         // sessionID -> pattern -> approved
	pending  map[string]chan Response           // requestID -> response channel
}

// Checker is a single-threaded actor: one goroutine owns checkerState and
// every read or write of it is an operation submitted over ops. Exported
// methods never touch the cache or pending map directly; they hand the
// actor a closure and, when they need a result, block on a reply channel
// the closure fills in. This makes the cache and pending map safe to use
// from any number of goroutines without a mutex.
type Checker struct {
	ops chan func(*checkerState)
}

// NewChecker creates a permission checker and starts its actor goroutine.
func NewChecker() *Checker {
	c := &Checker{ops: make(chan func(*checkerState), 32)}
	go c.run()
	return c
}

func (c *Checker) run() {
	state := &checkerState{
		approved: make(map[string]map[PermissionType]bool),
		patterns: make(map[string]map[string]bool),
		pending:  make(map[string]chan Response),
	}
	for op := range c.ops {
		op(state)
	}
}

// do submits an operation to the actor and blocks until it has run.
func (c *Checker) do(op func(*checkerState)) {
	done := make(chan struct{})
	c.ops <- func(s *checkerState) {
		op(s)
		close(done)
	}
	<-done
}

// Check performs a permission check based on action configuration.
func (c *Checker) Check(ctx context.Context, req Request, action PermissionAction) error {
	switch action {
	case ActionAllow:
		return nil
	case ActionDeny:
		return &RejectedError{
			SessionID: req.SessionID,
			Type:      req.Type,
			CallID:    req.CallID,
			Metadata:  req.Metadata,
			Message:   "Permission denied by configuration",
		}
	case ActionAsk:
		return c.Ask(ctx, req)
	}
	return nil
}

// askOutcome is what the actor hands back after consulting the cache: either
// the request was already approved, or it registers a fresh response
// channel under req.ID for the caller to wait on.
type askOutcome struct {
	cached   bool
	respChan chan Response
}

// Ask prompts for permission, short-circuiting on a cached approval. It
// blocks until the request is satisfied from cache, the user responds via
// Respond, or ctx is canceled.
func (c *Checker) Ask(ctx context.Context, req Request) error {
	if req.ID == "" {
		req.ID = ulid.Make().String()
	}

	waitStart := time.Now()
	decision := "cached"
	defer func() {
		metrics.PermissionWaitDuration.WithLabelValues(string(req.Type), decision).Observe(time.Since(waitStart).Seconds())
	}()

	result := make(chan askOutcome, 1)
	c.ops <- func(s *checkerState) {
		if stateIsApproved(s, req.SessionID, req.Type) || stateIsApproved(s, globalSession, req.Type) {
			result <- askOutcome{cached: true}
			return
		}
		if len(req.Pattern) > 0 &&
			(stateAllPatternsApproved(s, req.SessionID, req.Pattern) || stateAllPatternsApproved(s, globalSession, req.Pattern)) {
			result <- askOutcome{cached: true}
			return
		}

		ch := make(chan Response, 1)
		s.pending[req.ID] = ch
		result <- askOutcome{respChan: ch}
	}

	out := <-result
	if out.cached {
		return nil
	}

	defer c.do(func(s *checkerState) {
		delete(s.pending, req.ID)
	})

	event.Publish(event.Event{
		Type: event.PermissionRequired,
		Data: event.PermissionRequiredData{
			ID:             req.ID,
			SessionID:      req.SessionID,
			PermissionType: string(req.Type),
			Pattern:        req.Pattern,
			Title:          req.Title,
		},
	})

	select {
	case <-ctx.Done():
		decision = "canceled"
		return ctx.Err()
	case resp := <-out.respChan:
		decision = resp.Action
		switch resp.Action {
		case "once":
			return nil
		case "always":
			c.approve(req.SessionID, req.Type, req.Pattern)
			return nil
		case "forever":
			c.approve(globalSession, req.Type, req.Pattern)
			return nil
		case "reject":
			return &RejectedError{
				SessionID: req.SessionID,
				Type:      req.Type,
				CallID:    req.CallID,
				Metadata:  req.Metadata,
				Message:   "Permission rejected by user",
			}
		}
	}
	return nil
}

// Respond handles a user's response to a permission request. If the
// interface that owned the request has already gone away, the response is
// simply dropped; the pending request then fails closed when its context is
// canceled.
func (c *Checker) Respond(requestID string, action string) {
	c.do(func(s *checkerState) {
		if ch, ok := s.pending[requestID]; ok {
			ch <- Response{RequestID: requestID, Action: action}
		}
	})

	event.Publish(event.Event{
		Type: event.PermissionResolved,
		Data: event.PermissionResolvedData{
			ID:      requestID,
			Granted: action != "reject",
		},
	})
}

// approve marks a permission type and patterns as approved for a session
// (or, with sessionID == globalSession, for every session).
func (c *Checker) approve(sessionID string, permType PermissionType, patterns []string) {
	c.do(func(s *checkerState) {
		if s.approved[sessionID] == nil {
			s.approved[sessionID] = make(map[PermissionType]bool)
		}
		s.approved[sessionID][permType] = true

		if len(patterns) > 0 {
			if s.patterns[sessionID] == nil {
				s.patterns[sessionID] = make(map[string]bool)
			}
			for _, p := range patterns {
				s.patterns[sessionID][p] = true
			}
		}
	})
}

// IsApproved checks if a permission type is already approved for a session.
func (c *Checker) IsApproved(sessionID string, permType PermissionType) bool {
	reply := make(chan bool, 1)
	c.ops <- func(s *checkerState) {
		reply <- stateIsApproved(s, sessionID, permType)
	}
	return <-reply
}

// IsPatternApproved checks if a specific pattern is approved for a session.
func (c *Checker) IsPatternApproved(sessionID string, pattern string) bool {
	reply := make(chan bool, 1)
	c.ops <- func(s *checkerState) {
		reply <- stateIsPatternApproved(s, sessionID, pattern)
	}
	return <-reply
}

// ClearSession clears all approvals for a session. It does not affect
// forever-scoped (global) approvals.
func (c *Checker) ClearSession(sessionID string) {
	c.do(func(s *checkerState) {
		delete(s.approved, sessionID)
		delete(s.patterns, sessionID)
	})
}

// ApprovePattern explicitly approves a pattern for a session.
func (c *Checker) ApprovePattern(sessionID string, pattern string) {
	c.do(func(s *checkerState) {
		if s.patterns[sessionID] == nil {
			s.patterns[sessionID] = make(map[string]bool)
		}
		s.patterns[sessionID][pattern] = true
	})
}

func stateIsApproved(s *checkerState, sessionID string, permType PermissionType) bool {
	if sessionApprovals, ok := s.approved[sessionID]; ok {
		return sessionApprovals[permType]
	}
	return false
}

func stateIsPatternApproved(s *checkerState, sessionID, pattern string) bool {
	if sessionPatterns, ok := s.patterns[sessionID]; ok {
		return sessionPatterns[pattern]
	}
	return false
}

func stateAllPatternsApproved(s *checkerState, sessionID string, patterns []string) bool {
	sessionPatterns, ok := s.patterns[sessionID]
	if !ok {
		return false
	}
	for _, p := range patterns {
		if !sessionPatterns[p] {
			return false
		}
	}
	return true
}
