package main

import (
	"errors"

	"floatrans/internal/dispatcher"
	"floatrans/internal/keymap"
	"floatrans/internal/translator"
)

func (a *App) requireSession() (*translator.Session, error) {
	if a.session == nil {
		return nil, errors.New("translator session is unavailable")
	}
	return a.session, nil
}

func (a *App) requireRegistry() (*keymap.Registry, error) {
	if a.registry == nil {
		return nil, errors.New("shortcut registry is unavailable")
	}
	return a.registry, nil
}

func (a *App) requireDispatcher() (*dispatcher.Dispatcher, error) {
	if a.dispatcher == nil {
		return nil, errors.New("shortcut dispatcher is unavailable")
	}
	return a.dispatcher, nil
}
