package services

import "errors"

var (
	ErrDatasetNotLoaded = errors.New("dataset not loaded")
	ErrUnknownChart     = errors.New("unknown chart")
)
