package store

import domainerrors "github.com/listenupapp/listenup-player/internal/errors"

// Sentinel errors. All match domainerrors.ErrNotFound via errors.Is.
var (
	ErrNotFound                = domainerrors.ErrNotFound
	ErrProgressNotFound        = ErrNotFound.WithMessage("playback progress not found")
	ErrBookPreferencesNotFound = ErrNotFound.WithMessage("book preferences not found")
	ErrUserSettingsNotFound    = ErrNotFound.WithMessage("user settings not found")
)
