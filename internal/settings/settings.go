package settings

import (
	"errors"
	"log"
	"strconv"

	"mcsrc/internal/observable"
)

const (
	KeyEula           = "eula"
	KeyEnableTabs     = "enable_tabs"
	KeyDisplayLambdas = "display_lambdas"
	KeyBytecode       = "bytecode"
)

// BooleanSetting is a persisted flag that can be watched.
type BooleanSetting struct {
	key     string
	store   *Store
	subject *observable.Subject[bool]
}

// NewBoolean reads key from store, falling back to def when unset or
// unparsable.
func NewBoolean(store *Store, key string, def bool) *BooleanSetting {
	v := def
	if raw, ok := store.Get(key); ok {
		v = raw == "true"
	}
	return &BooleanSetting{
		key:     key,
		store:   store,
		subject: observable.NewDistinct(v, func(a, b bool) bool { return a == b }),
	}
}

func (b *BooleanSetting) Key() string { return b.key }

func (b *BooleanSetting) Value() bool {
	v, _ := b.subject.Value()
	return v
}

func (b *BooleanSetting) Observable() *observable.Subject[bool] { return b.subject }

// Set publishes v and persists it.
func (b *BooleanSetting) Set(v bool) error {
	b.subject.Set(v)
	return b.store.Set(b.key, strconv.FormatBool(v))
}

// Settings groups the viewer's flags.
type Settings struct {
	store *Store

	AgreedEula     *BooleanSetting
	EnableTabs     *BooleanSetting
	DisplayLambdas *BooleanSetting
	Bytecode       *BooleanSetting
}

func New(store *Store) *Settings {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Settings{
		store:          store,
		AgreedEula:     NewBoolean(store, KeyEula, false),
		EnableTabs:     NewBoolean(store, KeyEnableTabs, true),
		DisplayLambdas: NewBoolean(store, KeyDisplayLambdas, false),
		Bytecode:       NewBoolean(store, KeyBytecode, false),
	}
}

// Boolean looks a flag up by key.
func (s *Settings) Boolean(key string) (*BooleanSetting, bool) {
	for _, b := range []*BooleanSetting{s.AgreedEula, s.EnableTabs, s.DisplayLambdas, s.Bytecode} {
		if b.key == key {
			return b, true
		}
	}
	return nil, false
}

// SupportsPermalinking is false while the view shows something a permalink
// cannot reproduce.
func (s *Settings) SupportsPermalinking() bool {
	return !(s.DisplayLambdas.Value() || s.Bytecode.Value())
}

// ResetPermalinkAffecting turns off every flag that disables permalinks.
// It runs when a permalink is opened.
func (s *Settings) ResetPermalinkAffecting() error {
	err := errors.Join(s.DisplayLambdas.Set(false), s.Bytecode.Set(false))
	if err != nil {
		log.Printf("settings: reset permalink flags: %v", err)
	}
	return err
}
