package svm

import "errors"

var (
	// ErrModelLoad is returned when a model file is missing or malformed.
	ErrModelLoad = errors.New("model load error")

	// ErrInvalidModel is returned when model data violates an invariant (e.g. zero scale).
	ErrInvalidModel = errors.New("invalid model")

	// ErrMissingFeature is returned when a feature map lacks a name the model expects.
	ErrMissingFeature = errors.New("missing feature")
)
