package store

import "errors"

var (
	// ErrRunNotFound reports a run id that does not exist, or that belongs
	// to another episode.
	ErrRunNotFound = errors.New("alignment run not found")
	// ErrRunExists reports a CreateRun with an id already in use.
	ErrRunExists         = errors.New("alignment run already exists")
	ErrLinkNotFound      = errors.New("alignment link not found")
	ErrTrackNotFound     = errors.New("subtitle track not found")
	ErrCharacterNotFound = errors.New("character not found")
	ErrSegmentNotFound   = errors.New("segment not found")
	ErrCueNotFound       = errors.New("cue not found")
)
