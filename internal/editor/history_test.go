package editor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/resume"
)

func titledEntry(title string) Entry {
	return Entry{Document: Document{Resume: resume.Resume{ID: 1, Title: title}}}
}

func TestTrackerDepthBoundEvictsOldestFirst(t *testing.T) {
	tr := NewTracker(DefaultHistoryLimit)
	tr.Reset(titledEntry("base"))

	for i := 1; i <= 60; i++ {
		tr.Record(titledEntry(fmt.Sprintf("edit-%d", i)))
	}

	past := tr.Past()
	require.Len(t, past, 50)
	assert.Equal(t, "edit-11", past[0].Resume.Title)
	assert.Equal(t, "edit-60", past[49].Resume.Title)
	assert.Equal(t, "edit-10", tr.Baseline().Resume.Title)
}

func TestTrackerUndoRedoInverse(t *testing.T) {
	tr := NewTracker(0)
	tr.Reset(titledEntry("D"))
	tr.Record(titledEntry("m(D)"))

	restored, ok := tr.Undo()
	require.True(t, ok)
	assert.Equal(t, "D", restored.Resume.Title)
	assert.False(t, tr.CanUndo())
	assert.True(t, tr.CanRedo())

	redone, ok := tr.Redo()
	require.True(t, ok)
	assert.Equal(t, "m(D)", redone.Resume.Title)
	assert.True(t, tr.CanUndo())
	assert.False(t, tr.CanRedo())
}

func TestTrackerUndoWalksBackThroughPast(t *testing.T) {
	tr := NewTracker(0)
	tr.Reset(titledEntry("v0"))
	tr.Record(titledEntry("v1"))
	tr.Record(titledEntry("v2"))
	tr.Record(titledEntry("v3"))

	var got []string
	for {
		e, ok := tr.Undo()
		if !ok {
			break
		}
		got = append(got, e.Resume.Title)
	}
	assert.Equal(t, []string{"v2", "v1", "v0"}, got)

	e, _ := tr.Redo()
	assert.Equal(t, "v1", e.Resume.Title)
	e, _ = tr.Redo()
	assert.Equal(t, "v2", e.Resume.Title)
}

func TestTrackerNewRecordInvalidatesRedo(t *testing.T) {
	tr := NewTracker(0)
	tr.Reset(titledEntry("v0"))
	tr.Record(titledEntry("v1"))
	tr.Record(titledEntry("v2"))

	_, _ = tr.Undo()
	require.True(t, tr.CanRedo())

	tr.Record(titledEntry("v2b"))

	assert.False(t, tr.CanRedo())
	_, future := tr.Depth()
	assert.Zero(t, future)
	_, ok := tr.Redo()
	assert.False(t, ok)
}

func TestTrackerUndoOnEmptyIsNoop(t *testing.T) {
	tr := NewTracker(0)
	tr.Reset(titledEntry("v0"))

	_, ok := tr.Undo()

	assert.False(t, ok)
	assert.False(t, tr.CanUndo())
	assert.False(t, tr.CanRedo())
}

func TestTrackerStoresCopies(t *testing.T) {
	tr := NewTracker(0)
	entry := Entry{Document: sampleDocument(), Timestamp: time.Unix(10, 0)}
	tr.Record(entry)

	entry.Resume.Sections[0].Heading = "mutated after record"
	entry.Design.CustomOverrides["font"] = "Mono"

	stored := tr.Past()[0]
	assert.Equal(t, "Summary", stored.Resume.Sections[0].Heading)
	assert.Equal(t, "Inter", stored.Design.CustomOverrides["font"])

	stored.Resume.Title = "mutated copy"
	assert.Equal(t, "Backend Engineer", tr.Past()[0].Resume.Title)
}

func TestTrackerRewriteTouchesEveryEntry(t *testing.T) {
	tr := NewTracker(0)
	tr.Reset(Entry{Document: sampleDocument()})
	tr.Record(Entry{Document: sampleDocument()})
	tr.Record(Entry{Document: sampleDocument()})
	_, _ = tr.Undo()

	tr.Rewrite(func(doc *Document) { reduce(doc, RemapSection{From: 3, To: 30}) })

	assert.Equal(t, uint(30), tr.Baseline().Resume.Sections[2].ID)
	assert.Equal(t, uint(30), tr.Past()[0].Resume.Sections[2].ID)
	redone, ok := tr.Redo()
	require.True(t, ok)
	assert.Equal(t, uint(30), redone.Resume.Sections[2].ID)
}
