// Package autosave tracks debounced editor saves per page and editing
// session so late or repeated saves never overwrite newer content.
//
// Saves are serialized per page by Guard. A session's save is stale when its
// sequence is not newer than the last one the session claimed, and skipped
// when it matches what the page already stores, whichever session wrote it.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/metrics"
	"github.com/forgeapp/forge-server/internal/ordering"
	"github.com/forgeapp/forge-server/internal/store"
)

const keyPrefix = "autosave:"

// DefaultTTL is how long an idle session's checkpoint is kept.
const DefaultTTL = 24 * time.Hour

// Outcome is what the tracker decided for a save.
type Outcome string

const (
	// OutcomeApply means the content changed and must be written.
	OutcomeApply Outcome = "applied"
	// OutcomeSkip means the content matches the page's stored state.
	OutcomeSkip Outcome = "skipped"
	// OutcomeStale means a newer save of the session was already accepted.
	OutcomeStale Outcome = "stale"
)

// checkpoint is the per-session state stored in the KV.
type checkpoint struct {
	Sequence int64     `json:"sequence"`
	SavedAt  time.Time `json:"savedAt"`
}

// Save is one autosave request.
type Save struct {
	PageID          string
	SessionID       string
	Sequence        int64
	Content         string
	EditorStateJSON *string
}

// Signature identifies the saved state of a document.
func (s Save) Signature() string {
	return Signature(s.Content, s.EditorStateJSON)
}

// Signature hashes a document's markdown and editor state.
func Signature(content string, editorStateJSON *string) string {
	d := xxhash.New()
	_, _ = d.WriteString(content)
	_, _ = d.Write([]byte{0})
	if editorStateJSON != nil {
		_, _ = d.Write([]byte{1})
		_, _ = d.WriteString(*editorStateJSON)
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// Tracker records the last accepted save of every session.
type Tracker struct {
	kv     *store.KV
	pages  *ordering.KeyedMutex
	ttl    time.Duration
	logger *slog.Logger
}

// NewTracker creates a tracker. A zero ttl uses DefaultTTL.
func NewTracker(kv *store.KV, ttl time.Duration, logger *slog.Logger) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{kv: kv, pages: ordering.NewKeyedMutex(), ttl: ttl, logger: logger}
}

// Guard locks pageID until the returned function is called. Hold it from
// reading the page through Begin, the write and Commit.
func (t *Tracker) Guard(ctx context.Context, pageID string) (func(), error) {
	return t.pages.Lock(ctx, pageID)
}

func key(pageID, sessionID string) string {
	return keyPrefix + pageID + ":" + sessionID
}

// Begin claims save's sequence for its session. stored is the Signature of
// the page as currently persisted. It returns OutcomeStale with a CONFLICT
// error when the sequence is not newer than the last claimed one, OutcomeSkip
// when the document equals stored and OutcomeApply otherwise. After applying,
// call Commit.
func (t *Tracker) Begin(save Save, stored string) (Outcome, error) {
	if save.PageID == "" || save.SessionID == "" {
		return "", domainerrors.Validation("page and session are required")
	}

	sig := save.Signature()
	var outcome Outcome
	err := t.kv.Update(func(tx *store.KVTxn) error {
		var cp checkpoint
		err := tx.Get(key(save.PageID, save.SessionID), &cp)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if err == nil && save.Sequence <= cp.Sequence {
			outcome = OutcomeStale
			return nil
		}

		outcome = OutcomeApply
		if sig == stored {
			outcome = OutcomeSkip
		}

		cp.Sequence = save.Sequence
		return tx.Set(key(save.PageID, save.SessionID), cp, t.ttl)
	})
	if err != nil {
		return "", fmt.Errorf("autosave checkpoint: %w", err)
	}

	metrics.AutosaveOutcomes.WithLabelValues(string(outcome)).Inc()
	if outcome == OutcomeStale {
		t.logger.Debug("stale autosave rejected",
			"page_id", save.PageID,
			"session_id", save.SessionID,
			"sequence", save.Sequence,
		)
		return outcome, domainerrors.Conflictf("autosave sequence %d is not newer than the last saved one", save.Sequence)
	}
	return outcome, nil
}

// Commit records when save was written. A commit for a sequence older than
// the last claimed one is ignored.
func (t *Tracker) Commit(save Save, at time.Time) error {
	return t.kv.Update(func(tx *store.KVTxn) error {
		var cp checkpoint
		if err := tx.Get(key(save.PageID, save.SessionID), &cp); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if save.Sequence < cp.Sequence {
			return nil
		}
		cp.Sequence = save.Sequence
		cp.SavedAt = at
		return tx.Set(key(save.PageID, save.SessionID), cp, t.ttl)
	})
}

// Forget drops a session's checkpoint.
func (t *Tracker) Forget(pageID, sessionID string) error {
	return t.kv.Delete(key(pageID, sessionID))
}
