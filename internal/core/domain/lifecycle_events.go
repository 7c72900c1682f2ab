package domain

import (
	"time"
)

// LifecycleEvent records a successful mutation of the pipeline library.
// Events are handed to an EventPublisher after the store write completes.
type LifecycleEvent struct {
	Type      LifecycleEventType `json:"type"`
	Pipeline  string             `json:"pipeline"`
	Rev       string             `json:"rev,omitempty"`
	User      string             `json:"user"`
	RequestID string             `json:"request_id,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// LifecycleEventType identifies the type of lifecycle event.
type LifecycleEventType string

const (
	LifecycleEventCreated     LifecycleEventType = "pipeline.created"
	LifecycleEventSaved       LifecycleEventType = "pipeline.saved"
	LifecycleEventDeleted     LifecycleEventType = "pipeline.deleted"
	LifecycleEventRulesStored LifecycleEventType = "rules.stored"
)
