// Package logger builds the service's zap logger.
package logger

import "go.uber.org/zap"

// New returns a sugared production logger, or a development one when debug
// is set. Callers own Sync on shutdown.
func New(debug bool) (*zap.SugaredLogger, error) {
	var (
		base *zap.Logger
		err  error
	)
	if debug {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return base.Sugar(), nil
}
