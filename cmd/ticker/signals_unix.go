//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

type pauser interface {
	Pause()
	Resume()
}

// watchHostSignals maps SIGUSR1 to Pause and SIGUSR2 to Resume.
func watchHostSignals(s pauser, log zerolog.Logger) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				log.Info().Str("signal", sig.String()).Msg("host signal")
				if sig == syscall.SIGUSR1 {
					s.Pause()
				} else {
					s.Resume()
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
