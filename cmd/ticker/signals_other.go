//go:build !unix

package main

import "github.com/rs/zerolog"

type pauser interface {
	Pause()
	Resume()
}

// Without SIGUSR1/SIGUSR2 the HTTP control routes are the only host triggers.
func watchHostSignals(pauser, zerolog.Logger) (stop func()) { return func() {} }
