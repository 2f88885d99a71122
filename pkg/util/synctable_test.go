package util

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voxtechnica/tuid-go"
	v "github.com/voxtechnica/versionary"
)

var ctx = context.Background()

type note struct {
	ID    string `json:"id"`
	Topic string `json:"topic"`
}

func (n note) CompressedJSON() []byte {
	j, _ := v.ToCompressedJSON(n)
	return j
}

var rowNotesTopic = v.TableRow[note]{
	RowName:      "notes_topic",
	PartKeyName:  "topic",
	PartKeyValue: func(n note) string { return n.Topic },
	SortKeyName:  "id",
	SortKeyValue: func(n note) string { return n.ID },
	JsonValue:    func(n note) []byte { return n.CompressedJSON() },
}

func newNoteTable() SyncTable[note] {
	return NewSyncTable[note](v.NewMemTable(v.Table[note]{
		EntityType: "Note",
		TableName:  "notes_test",
		EntityRow: v.TableRow[note]{
			RowName:      "notes",
			PartKeyName:  "id",
			PartKeyValue: func(n note) string { return n.ID },
			SortKeyName:  "id",
			SortKeyValue: func(n note) string { return n.ID },
			JsonValue:    func(n note) []byte { return n.CompressedJSON() },
		},
		IndexRows: map[string]v.TableRow[note]{rowNotesTopic.RowName: rowNotesTopic},
	}))
}

func TestSyncTableConcurrency(t *testing.T) {
	expect := assert.New(t)
	table := newNoteTable()
	expect.True(table.IsValid())
	expect.Equal("Note", table.GetEntityType())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			n := note{ID: tuid.NewID().String(), Topic: "topic-" + strconv.Itoa(i%5)}
			expect.NoError(table.WriteEntity(ctx, n))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = table.ReadAllEntitiesFromRow(ctx, rowNotesTopic, "topic-0")
			_, _ = table.ReadAllPartKeyValues(ctx, rowNotesTopic)
		}()
	}
	wg.Wait()

	ids, err := table.ReadAllEntityIDs(ctx)
	if expect.NoError(err) {
		expect.Equal(50, len(ids))
	}
	topics, err := table.ReadAllPartKeyValues(ctx, rowNotesTopic)
	if expect.NoError(err) {
		expect.Equal(5, len(topics))
	}
	notes, err := table.ReadAllEntitiesFromRow(ctx, rowNotesTopic, "topic-0")
	if expect.NoError(err) {
		expect.Equal(10, len(notes))
	}
	if expect.NotEmpty(notes) {
		deleted, err := table.DeleteEntityWithID(ctx, notes[0].ID)
		expect.NoError(err)
		expect.Equal(notes[0].ID, deleted.ID)
		expect.False(table.EntityExists(ctx, notes[0].ID))
	}
}
