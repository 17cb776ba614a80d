// Package translator holds the translator window's state and feeds edits to
// the request scheduler.
package translator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"floatrans/internal/scheduler"
	"floatrans/internal/translate"
)

// Tone values accepted by SetTone.
const (
	ToneFormal   = "Formal"
	ToneCasual   = "Casual"
	ToneAcademic = "Academic"
	ToneCreative = "Creative"
)

// Language is a selectable source/target language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Languages lists the selectable languages.
var Languages = []Language{
	{Code: "zh", Name: "Chinese"},
	{Code: "en", Name: "English"},
	{Code: "ja", Name: "Japanese"},
	{Code: "ko", Name: "Korean"},
}

// Tones lists the selectable tones.
var Tones = []string{ToneFormal, ToneCasual, ToneAcademic, ToneCreative}

const (
	DefaultSourceLang = "zh"
	DefaultTargetLang = "en"
	DefaultTone       = ToneCasual
)

var (
	ErrUnknownLanguage = errors.New("unknown language")
	ErrUnknownTone     = errors.New("unknown tone")
)

// Snapshot is the state rendered by the window.
type Snapshot struct {
	InputText      string `json:"inputText"`
	TranslatedText string `json:"translatedText"`
	IsTranslating  bool   `json:"isTranslating"`
	SourceLang     string `json:"sourceLang"`
	TargetLang     string `json:"targetLang"`
	Tone           string `json:"tone"`
	Engine         string `json:"engine"`
	Version        uint64 `json:"version"`
}

// Options configures a Session.
type Options struct {
	Translator translate.Translator
	Engine     string
	SourceLang string
	TargetLang string
	Tone       string
	Debounce   time.Duration
	Timeout    time.Duration
	AfterFunc  scheduler.AfterFunc
	// OnChange receives every new snapshot. It runs synchronously and must
	// not call back into the Session.
	OnChange func(Snapshot)
}

// Session is safe for concurrent use.
//
// Lock order: submitMu -> scheduler -> mu. Edits hold submitMu across the
// state change and the scheduler submission so the scheduler always sees
// edits in the order the state recorded them.
type Session struct {
	submitMu sync.Mutex

	mu         sync.RWMutex
	state      Snapshot
	translator translate.Translator

	sched    *scheduler.Scheduler
	onChange func(Snapshot)
}

// New returns a session with an empty input.
func New(opts Options) *Session {
	s := &Session{
		state: Snapshot{
			SourceLang: pick(normalizeLang(opts.SourceLang), DefaultSourceLang),
			TargetLang: pick(normalizeLang(opts.TargetLang), DefaultTargetLang),
			Tone:       pick(normalizeTone(opts.Tone), DefaultTone),
			Engine:     opts.Engine,
		},
		translator: opts.Translator,
		onChange:   opts.OnChange,
	}
	s.sched = scheduler.New(scheduler.Options{
		Translate: s.translate,
		Sink:      sessionSink{s: s},
		Debounce:  opts.Debounce,
		Timeout:   opts.Timeout,
		AfterFunc: opts.AfterFunc,
	})
	return s
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetInput replaces the input text and schedules a translation.
func (s *Session) SetInput(text string) {
	s.edit(func(st *Snapshot) bool {
		st.InputText = text
		return true
	})
}

// SetTargetLang changes the target language and retranslates.
func (s *Session) SetTargetLang(code string) error {
	lang := normalizeLang(code)
	if lang == "" {
		return fmt.Errorf("target %q: %w", code, ErrUnknownLanguage)
	}
	s.edit(func(st *Snapshot) bool {
		st.TargetLang = lang
		return true
	})
	return nil
}

// SetSourceLang changes the source language. The source is not part of the
// request, so nothing is retranslated.
func (s *Session) SetSourceLang(code string) error {
	lang := normalizeLang(code)
	if lang == "" {
		return fmt.Errorf("source %q: %w", code, ErrUnknownLanguage)
	}
	s.edit(func(st *Snapshot) bool {
		st.SourceLang = lang
		return false
	})
	return nil
}

// SetTone changes the tone and retranslates.
func (s *Session) SetTone(tone string) error {
	normalized := normalizeTone(tone)
	if normalized == "" {
		return fmt.Errorf("tone %q: %w", tone, ErrUnknownTone)
	}
	s.edit(func(st *Snapshot) bool {
		st.Tone = normalized
		return true
	})
	return nil
}

// SwapLanguages exchanges source and target, moves the last translation
// into the input and clears the output. Pending and in-flight work for the
// old direction is invalidated before the new input is submitted.
func (s *Session) SwapLanguages() {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	s.sched.Cancel()
	s.editLocked(func(st *Snapshot) bool {
		st.SourceLang, st.TargetLang = st.TargetLang, st.SourceLang
		st.InputText = st.TranslatedText
		st.TranslatedText = ""
		st.IsTranslating = false
		return true
	})
}

// Clear empties input and output and cancels all pending work.
func (s *Session) Clear() {
	s.edit(func(st *Snapshot) bool {
		st.InputText = ""
		st.TranslatedText = ""
		st.IsTranslating = false
		return true
	})
}

// PasteContent returns the translation when present, else the raw input.
func (s *Session) PasteContent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.TranslatedText != "" {
		return s.state.TranslatedText
	}
	return s.state.InputText
}

// SetTranslator swaps the engine used for future requests.
func (s *Session) SetTranslator(tr translate.Translator, engine string) {
	s.mu.Lock()
	s.translator = tr
	s.state.Engine = engine
	s.state.Version++
	snap := s.state
	s.mu.Unlock()
	s.notify(snap)
}

// Close stops the scheduler. In-flight results are discarded.
func (s *Session) Close() {
	s.sched.Close()
}

// Wait blocks until in-flight translate calls have returned.
func (s *Session) Wait() {
	s.sched.Wait()
}

// SchedulerState exposes the scheduler lifecycle state.
func (s *Session) SchedulerState() (scheduler.State, uint64) {
	return s.sched.State()
}

func (s *Session) edit(apply func(*Snapshot) bool) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	s.editLocked(apply)
}

// editLocked requires submitMu.
func (s *Session) editLocked(apply func(*Snapshot) bool) {
	s.mu.Lock()
	resubmit := apply(&s.state)
	s.state.Version++
	snap := s.state
	s.mu.Unlock()
	s.notify(snap)

	if resubmit {
		s.sched.Submit(snap.InputText, strings.ToUpper(snap.TargetLang), snap.Tone)
	}
}

func (s *Session) translate(ctx context.Context, req scheduler.Request) (string, error) {
	s.mu.RLock()
	tr := s.translator
	s.mu.RUnlock()
	if tr == nil {
		return "", translate.ErrMissingAPIKey
	}
	return tr.Translate(ctx, req.Text, req.TargetLang, req.Tone)
}

func (s *Session) update(apply func(*Snapshot)) {
	s.mu.Lock()
	apply(&s.state)
	s.state.Version++
	snap := s.state
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Session) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}

// sessionSink applies scheduler outcomes to the session state.
type sessionSink struct {
	s *Session
}

func (k sessionSink) OnStart(scheduler.Request) {
	k.s.update(func(st *Snapshot) { st.IsTranslating = true })
}

func (k sessionSink) OnResult(_ scheduler.Request, text string) {
	k.s.update(func(st *Snapshot) {
		st.TranslatedText = text
		st.IsTranslating = false
	})
}

func (k sessionSink) OnError(req scheduler.Request, err error) {
	slog.Warn("[WARN-TRANSLATOR] translation failed", "id", req.ID, "error", err)
	k.s.update(func(st *Snapshot) {
		st.TranslatedText = FormatError(err)
		st.IsTranslating = false
	})
}

func (k sessionSink) OnReset() {
	k.s.update(func(st *Snapshot) {
		st.TranslatedText = ""
		st.IsTranslating = false
	})
}

// FormatError renders a translate failure for display in place of the
// translation.
func FormatError(err error) string {
	return "Error: " + err.Error()
}

func normalizeLang(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if slices.ContainsFunc(Languages, func(l Language) bool { return l.Code == code }) {
		return code
	}
	return ""
}

func normalizeTone(tone string) string {
	for _, t := range Tones {
		if strings.EqualFold(t, strings.TrimSpace(tone)) {
			return t
		}
	}
	return ""
}

func pick(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
