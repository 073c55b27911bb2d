package vocab

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rhea-voice/rhea/internal/transcript"
)

// Store owns the persisted vocabulary document. All mutations write
// through to disk; a malformed document on load falls back to the default
// pack instead of failing startup.
type Store struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	items []Item
}

// NewStore loads (or initializes) the vocabulary document at path.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger, now: time.Now}

	doc, err := s.load()
	if err != nil {
		logger.Warn("vocabulary document unreadable, using default pack", "error", err.Error())
		doc = Document{SchemaVersion: SchemaVersion, Items: DefaultPack()}
	}
	s.items = doc.Items
	return s, nil
}

// load reads and forward-migrates the document from disk.
func (s *Store) load() (Document, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Document{SchemaVersion: SchemaVersion, Items: DefaultPack()}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("read vocabulary document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("decode vocabulary document: %w", err)
	}
	if doc.SchemaVersion > SchemaVersion {
		return Document{}, fmt.Errorf("vocabulary document schema %d is newer than supported %d", doc.SchemaVersion, SchemaVersion)
	}
	return migrate(doc), nil
}

// migrate upgrades older documents in place. Version 1 predates the
// clarification rule and sentiment fields.
func migrate(doc Document) Document {
	if doc.SchemaVersion >= SchemaVersion {
		return doc
	}
	for i := range doc.Items {
		if doc.Items[i].ClarificationRule == "" {
			doc.Items[i].ClarificationRule = AskIfAmbiguous
		}
		if doc.Items[i].Sentiment == "" {
			doc.Items[i].Sentiment = SentimentNeutral
		}
	}
	doc.SchemaVersion = SchemaVersion
	return doc
}

// save persists the current item set as the latest schema version.
func (s *Store) save() error {
	doc := Document{
		SchemaVersion: SchemaVersion,
		LastModified:  s.now(),
		Items:         s.items,
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode vocabulary document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure vocabulary dir: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write vocabulary document: %w", err)
	}
	return nil
}

// Items returns a copy of the current vocabulary.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Item(nil), s.items...)
}

// Add inserts a new item, assigning it a fresh ID.
func (s *Store) Add(item Item) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = uuid.NewString()
	s.items = append(s.items, item)
	return item, s.save()
}

// Update replaces the stored item with the same ID.
func (s *Store) Update(item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i] = item
			return s.save()
		}
	}
	return fmt.Errorf("vocabulary item %q not found", item.ID)
}

// Delete removes the item with the given ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return s.save()
		}
	}
	return fmt.Errorf("vocabulary item %q not found", id)
}

// Find matches a normalized utterance against stored phrases: exact match
// first, then phrase-contained-in-utterance.
func (s *Store) Find(utterance string) (Item, bool) {
	normalized := transcript.Normalize(utterance)
	if normalized == "" {
		return Item{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if transcript.Normalize(item.Phrase) == normalized {
			return item, true
		}
	}
	for _, item := range s.items {
		phrase := transcript.Normalize(item.Phrase)
		if phrase != "" && strings.Contains(normalized, phrase) {
			return item, true
		}
	}
	return Item{}, false
}

// Export renders the current document as JSON.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	doc := Document{
		SchemaVersion: SchemaVersion,
		LastModified:  s.now(),
		Items:         append([]Item(nil), s.items...),
	}
	s.mu.RUnlock()
	return json.MarshalIndent(doc, "", "  ")
}

// Import loads a document payload. With merge false the existing set is
// replaced. Imported items always receive fresh IDs so they can never
// collide with existing fixtures.
func (s *Store) Import(raw []byte, merge bool) (int, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("decode vocabulary import: %w", err)
	}
	doc = migrate(doc)

	for i := range doc.Items {
		doc.Items[i].ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if merge {
		s.items = append(s.items, doc.Items...)
	} else {
		s.items = doc.Items
	}
	return len(doc.Items), s.save()
}

// DefaultPack is the built-in starter vocabulary.
func DefaultPack() []Item {
	pullBack := -3.0
	return []Item{
		{
			ID:                uuid.NewString(),
			Phrase:            "that slaps",
			Category:          "reaction",
			Definition:        "strong approval of the current sound",
			IntentType:        IntentVibe,
			Sentiment:         SentimentPositive,
			ClarificationRule: NeverAsk,
		},
		{
			ID:                uuid.NewString(),
			Phrase:            "beef it up",
			Category:          "mixing",
			Definition:        "add weight and presence to the selected track",
			IntentType:        IntentAction,
			Sentiment:         SentimentNeutral,
			ClarificationRule: AskIfAmbiguous,
			ActionMapping: ActionMapping{
				Enabled: true,
				Actions: []ActionSpec{{
					Target:  TargetSelectedTrack,
					Type:    ActionParameterDelta,
					Payload: Payload{Param: "volume", Unit: "db"},
				}},
			},
		},
		{
			ID:                uuid.NewString(),
			Phrase:            "pull it back",
			Category:          "mixing",
			Definition:        "reduce the selected track's level",
			IntentType:        IntentAction,
			Sentiment:         SentimentNeutral,
			ClarificationRule: AskIfAmbiguous,
			ActionMapping: ActionMapping{
				Enabled: true,
				Actions: []ActionSpec{{
					Target:  TargetSelectedTrack,
					Type:    ActionParameterDelta,
					Payload: Payload{Param: "volume", Amount: &pullBack, Unit: "db"},
				}},
			},
		},
		{
			ID:                uuid.NewString(),
			Phrase:            "muddy",
			Category:          "critique",
			Definition:        "low-mid buildup obscuring the mix",
			IntentType:        IntentVibe,
			Sentiment:         SentimentNegative,
			ClarificationRule: NeverAsk,
		},
	}
}
