package main

import (
	"slices"

	"floatrans/internal/translator"
	"floatrans/internal/wsserver"
)

// GetTranslatorState returns the current translator snapshot.
func (a *App) GetTranslatorState() translator.Snapshot {
	session, err := a.requireSession()
	if err != nil {
		return translator.Snapshot{}
	}
	return session.Snapshot()
}

// SetInputText replaces the input and schedules a translation.
func (a *App) SetInputText(text string) error {
	session, err := a.requireSession()
	if err != nil {
		return err
	}
	session.SetInput(text)
	return nil
}

// SetTargetLanguage changes the target language and retranslates.
func (a *App) SetTargetLanguage(code string) error {
	session, err := a.requireSession()
	if err != nil {
		return err
	}
	return session.SetTargetLang(code)
}

// SetSourceLanguage changes the source language.
func (a *App) SetSourceLanguage(code string) error {
	session, err := a.requireSession()
	if err != nil {
		return err
	}
	return session.SetSourceLang(code)
}

// SetTone changes the tone and retranslates.
func (a *App) SetTone(tone string) error {
	session, err := a.requireSession()
	if err != nil {
		return err
	}
	return session.SetTone(tone)
}

// SwapLanguages exchanges source and target and moves the translation into
// the input.
func (a *App) SwapLanguages() error {
	session, err := a.requireSession()
	if err != nil {
		return err
	}
	session.SwapLanguages()
	return nil
}

// ClearTranslator clears input and output and cancels pending work.
func (a *App) ClearTranslator() error {
	session, err := a.requireSession()
	if err != nil {
		return err
	}
	session.Clear()
	return nil
}

// GetLanguages returns the selectable languages.
func (a *App) GetLanguages() []translator.Language {
	return slices.Clone(translator.Languages)
}

// GetTones returns the selectable tones.
func (a *App) GetTones() []string {
	return slices.Clone(translator.Tones)
}

func (a *App) onTranslatorChange(snap translator.Snapshot) {
	a.stream.publish(wsserver.TopicTranslator, snap)
}
