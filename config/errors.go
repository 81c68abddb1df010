package config

import "errors"

// ErrConfigMissing names a required settings key being absent. No
// function in this module returns it: a Config lookup of a missing key
// panics instead.
var ErrConfigMissing = errors.New("config.missing")

// ErrConfigNoNumber names a settings value that cannot be read as a
// number. No function in this module returns it.
var ErrConfigNoNumber = errors.New("config.notanumber")

// ErrMapFailed is returned by Initialize when the VMM could not obtain
// the initial page-aligned region it needs at startup.
var ErrMapFailed = errors.New("config.mapfailed")

// ErrAlreadyInitialized is returned by Initialize when called a second
// time without an intervening Finalize.
var ErrAlreadyInitialized = errors.New("config.alreadyinitialized")
