package domain

import "time"

// LifecycleHooks is a listener built from optional callbacks.
// Nil fields are skipped, so callers only wire what they observe.
type LifecycleHooks struct {
	NodeStarted     func(nodeID string)
	NodeCompleted   func(nodeID string, outputs map[string]Value, elapsed time.Duration)
	NodeError       func(nodeID, message string)
	ScriptCompleted func(success bool)
	ScriptCancelled func()
	Log             func(level, message string)
}

func (h LifecycleHooks) OnNodeStarted(nodeID string) {
	if h.NodeStarted != nil {
		h.NodeStarted(nodeID)
	}
}

func (h LifecycleHooks) OnNodeCompleted(nodeID string, outputs map[string]Value, elapsed time.Duration) {
	if h.NodeCompleted != nil {
		h.NodeCompleted(nodeID, outputs, elapsed)
	}
}

func (h LifecycleHooks) OnNodeError(nodeID, message string) {
	if h.NodeError != nil {
		h.NodeError(nodeID, message)
	}
}

func (h LifecycleHooks) OnScriptCompleted(success bool) {
	if h.ScriptCompleted != nil {
		h.ScriptCompleted(success)
	}
}

func (h LifecycleHooks) OnScriptCancelled() {
	if h.ScriptCancelled != nil {
		h.ScriptCancelled()
	}
}

func (h LifecycleHooks) OnLog(level, message string) {
	if h.Log != nil {
		h.Log(level, message)
	}
}
