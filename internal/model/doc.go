package model

// Package model defines domain data structures used across the app: download
// tasks, derived download plans, normalized media info, history records, and
// status enums. Tasks are immutable request records created at enqueue time;
// runtime state lives in the engine.
