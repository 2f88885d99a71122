package util

import (
	"context"
	"sync"

	v "github.com/voxtechnica/versionary"
)

// SyncTable guards a TableReadWriter with a read/write mutex. A versionary
// MemTable is an unguarded map, so in-memory tables that are written from
// background goroutines (event and metric recording) are wrapped with it.
type SyncTable[T any] struct {
	table v.TableReadWriter[T]
	mu    *sync.RWMutex
}

var _ v.TableReadWriter[string] = SyncTable[string]{}

// NewSyncTable wraps the supplied table.
func NewSyncTable[T any](table v.TableReadWriter[T]) SyncTable[T] {
	return SyncTable[T]{table: table, mu: &sync.RWMutex{}}
}

func (t SyncTable[T]) WriteEntity(ctx context.Context, entity T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.table.WriteEntity(ctx, entity)
}

func (t SyncTable[T]) UpdateEntity(ctx context.Context, entity T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.table.UpdateEntity(ctx, entity)
}

func (t SyncTable[T]) UpdateEntityVersion(ctx context.Context, oldVersion T, newVersion T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.table.UpdateEntityVersion(ctx, oldVersion, newVersion)
}

func (t SyncTable[T]) DeleteEntity(ctx context.Context, entity T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.table.DeleteEntity(ctx, entity)
}

func (t SyncTable[T]) DeleteEntityWithID(ctx context.Context, entityID string) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.table.DeleteEntityWithID(ctx, entityID)
}

func (t SyncTable[T]) DeleteEntityVersionWithID(ctx context.Context, entityID, versionID string) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.table.DeleteEntityVersionWithID(ctx, entityID, versionID)
}

func (t SyncTable[T]) IsValid() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.IsValid()
}

func (t SyncTable[T]) GetEntityType() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.GetEntityType()
}

func (t SyncTable[T]) GetTableName() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.GetTableName()
}

func (t SyncTable[T]) GetRow(rowName string) (v.TableRow[T], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.GetRow(rowName)
}

func (t SyncTable[T]) GetEntityRow() v.TableRow[T] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.GetEntityRow()
}

func (t SyncTable[T]) EntityID(entity T) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.EntityID(entity)
}

func (t SyncTable[T]) EntityVersionID(entity T) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.EntityVersionID(entity)
}

func (t SyncTable[T]) EntityReferenceID(entity T) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.EntityReferenceID(entity)
}

func (t SyncTable[T]) EntityExists(ctx context.Context, entityID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.EntityExists(ctx, entityID)
}

func (t SyncTable[T]) EntityVersionExists(ctx context.Context, entityID string, versionID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.EntityVersionExists(ctx, entityID, versionID)
}

func (t SyncTable[T]) CountPartKeyValues(ctx context.Context, row v.TableRow[T]) (int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.CountPartKeyValues(ctx, row)
}

func (t SyncTable[T]) CountSortKeyValues(ctx context.Context, row v.TableRow[T], partKeyValue string) (int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.CountSortKeyValues(ctx, row, partKeyValue)
}

func (t SyncTable[T]) ReadAllPartKeyValues(ctx context.Context, row v.TableRow[T]) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadAllPartKeyValues(ctx, row)
}

func (t SyncTable[T]) ReadAllSortKeyValues(ctx context.Context, row v.TableRow[T], partKeyValue string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadAllSortKeyValues(ctx, row, partKeyValue)
}

func (t SyncTable[T]) ReadPartKeyValues(ctx context.Context, row v.TableRow[T], reverse bool, limit int, offset string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadPartKeyValues(ctx, row, reverse, limit, offset)
}

func (t SyncTable[T]) ReadSortKeyValues(ctx context.Context, row v.TableRow[T], partKeyValue string, reverse bool, limit int, offset string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadSortKeyValues(ctx, row, partKeyValue, reverse, limit, offset)
}

func (t SyncTable[T]) ReadFirstSortKeyValue(ctx context.Context, row v.TableRow[T], partKeyValue string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadFirstSortKeyValue(ctx, row, partKeyValue)
}

func (t SyncTable[T]) ReadLastSortKeyValue(ctx context.Context, row v.TableRow[T], partKeyValue string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadLastSortKeyValue(ctx, row, partKeyValue)
}

func (t SyncTable[T]) ReadAllEntityIDs(ctx context.Context) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadAllEntityIDs(ctx)
}

func (t SyncTable[T]) ReadEntityIDs(ctx context.Context, reverse bool, limit int, offset string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntityIDs(ctx, reverse, limit, offset)
}

func (t SyncTable[T]) ReadAllEntityVersionIDs(ctx context.Context, entityID string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadAllEntityVersionIDs(ctx, entityID)
}

func (t SyncTable[T]) ReadEntityVersionIDs(ctx context.Context, entityID string, reverse bool, limit int, offset string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntityVersionIDs(ctx, entityID, reverse, limit, offset)
}

func (t SyncTable[T]) ReadCurrentEntityVersionID(ctx context.Context, entityID string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadCurrentEntityVersionID(ctx, entityID)
}

func (t SyncTable[T]) ReadEntities(ctx context.Context, entityIDs []string) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntities(ctx, entityIDs)
}

func (t SyncTable[T]) ReadEntitiesAsJSON(ctx context.Context, entityIDs []string) []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntitiesAsJSON(ctx, entityIDs)
}

func (t SyncTable[T]) ReadEntity(ctx context.Context, entityID string) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntity(ctx, entityID)
}

func (t SyncTable[T]) ReadEntityAsJSON(ctx context.Context, entityID string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntityAsJSON(ctx, entityID)
}

func (t SyncTable[T]) ReadEntityAsCompressedJSON(ctx context.Context, entityID string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntityAsCompressedJSON(ctx, entityID)
}

func (t SyncTable[T]) ReadEntityVersion(ctx context.Context, entityID string, versionID string) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntityVersion(ctx, entityID, versionID)
}

func (t SyncTable[T]) ReadEntityVersionAsJSON(ctx context.Context, entityID string, versionID string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntityVersionAsJSON(ctx, entityID, versionID)
}

func (t SyncTable[T]) ReadEntityVersions(ctx context.Context, entityID string, reverse bool, limit int, offset string) ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntityVersions(ctx, entityID, reverse, limit, offset)
}

func (t SyncTable[T]) ReadEntityVersionsAsJSON(ctx context.Context, entityID string, reverse bool, limit int, offset string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntityVersionsAsJSON(ctx, entityID, reverse, limit, offset)
}

func (t SyncTable[T]) ReadAllEntityVersions(ctx context.Context, entityID string) ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadAllEntityVersions(ctx, entityID)
}

func (t SyncTable[T]) ReadAllEntityVersionsAsJSON(ctx context.Context, entityID string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadAllEntityVersionsAsJSON(ctx, entityID)
}

func (t SyncTable[T]) ReadEntityFromRow(ctx context.Context, row v.TableRow[T], partKeyValue string, sortKeyValue string) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntityFromRow(ctx, row, partKeyValue, sortKeyValue)
}

func (t SyncTable[T]) ReadEntityFromRowAsJSON(ctx context.Context, row v.TableRow[T], partKeyValue string, sortKeyValue string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntityFromRowAsJSON(ctx, row, partKeyValue, sortKeyValue)
}

func (t SyncTable[T]) ReadEntityFromRowAsCompressedJSON(ctx context.Context, row v.TableRow[T], partKeyValue string, sortKeyValue string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntityFromRowAsCompressedJSON(ctx, row, partKeyValue, sortKeyValue)
}

func (t SyncTable[T]) ReadEntitiesFromRow(ctx context.Context, row v.TableRow[T], partKeyValue string, reverse bool, limit int, offset string) ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntitiesFromRow(ctx, row, partKeyValue, reverse, limit, offset)
}

func (t SyncTable[T]) ReadEntitiesFromRowAsJSON(ctx context.Context, row v.TableRow[T], partKeyValue string, reverse bool, limit int, offset string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntitiesFromRowAsJSON(ctx, row, partKeyValue, reverse, limit, offset)
}

func (t SyncTable[T]) ReadAllEntitiesFromRow(ctx context.Context, row v.TableRow[T], partKeyValue string) ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadAllEntitiesFromRow(ctx, row, partKeyValue)
}

func (t SyncTable[T]) ReadAllEntitiesFromRowAsJSON(ctx context.Context, row v.TableRow[T], partKeyValue string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadAllEntitiesFromRowAsJSON(ctx, row, partKeyValue)
}

func (t SyncTable[T]) ReadRecord(ctx context.Context, row v.TableRow[T], partKeyValue string, sortKeyValue string) (v.Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadRecord(ctx, row, partKeyValue, sortKeyValue)
}

func (t SyncTable[T]) ReadRecords(ctx context.Context, row v.TableRow[T], partKeyValue string, reverse bool, limit int, offset string) ([]v.Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadRecords(ctx, row, partKeyValue, reverse, limit, offset)
}

func (t SyncTable[T]) ReadAllRecords(ctx context.Context, row v.TableRow[T], partKeyValue string) ([]v.Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadAllRecords(ctx, row, partKeyValue)
}

func (t SyncTable[T]) ReadEntityLabel(ctx context.Context, entityID string) (v.TextValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntityLabel(ctx, entityID)
}

func (t SyncTable[T]) ReadEntityLabels(ctx context.Context, reverse bool, limit int, offset string) ([]v.TextValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadEntityLabels(ctx, reverse, limit, offset)
}

func (t SyncTable[T]) ReadAllEntityLabels(ctx context.Context, sortByValue bool) ([]v.TextValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadAllEntityLabels(ctx, sortByValue)
}

func (t SyncTable[T]) FilterEntityLabels(ctx context.Context, f func(v.TextValue) bool) ([]v.TextValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.FilterEntityLabels(ctx, f)
}

func (t SyncTable[T]) ReadPartKeyLabel(ctx context.Context, row v.TableRow[T], partKeyValue string) (v.TextValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadPartKeyLabel(ctx, row, partKeyValue)
}

func (t SyncTable[T]) ReadPartKeyLabels(ctx context.Context, row v.TableRow[T], reverse bool, limit int, offset string) ([]v.TextValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadPartKeyLabels(ctx, row, reverse, limit, offset)
}

func (t SyncTable[T]) ReadAllPartKeyLabels(ctx context.Context, row v.TableRow[T], sortByValue bool) ([]v.TextValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadAllPartKeyLabels(ctx, row, sortByValue)
}

func (t SyncTable[T]) FilterPartKeyLabels(ctx context.Context, row v.TableRow[T], f func(v.TextValue) bool) ([]v.TextValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.FilterPartKeyLabels(ctx, row, f)
}

func (t SyncTable[T]) ReadTextValue(ctx context.Context, row v.TableRow[T], partKeyValue string, sortKeyValue string) (v.TextValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadTextValue(ctx, row, partKeyValue, sortKeyValue)
}

func (t SyncTable[T]) ReadTextValues(ctx context.Context, row v.TableRow[T], partKeyValue string, reverse bool, limit int, offset string) ([]v.TextValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadTextValues(ctx, row, partKeyValue, reverse, limit, offset)
}

func (t SyncTable[T]) ReadAllTextValues(ctx context.Context, row v.TableRow[T], partKeyValue string, sortByValue bool) ([]v.TextValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadAllTextValues(ctx, row, partKeyValue, sortByValue)
}

func (t SyncTable[T]) FilterTextValues(ctx context.Context, row v.TableRow[T], partKeyValue string, f func(v.TextValue) bool) ([]v.TextValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.FilterTextValues(ctx, row, partKeyValue, f)
}

func (t SyncTable[T]) ReadNumericValue(ctx context.Context, row v.TableRow[T], partKeyValue string, sortKeyValue string) (v.NumValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadNumericValue(ctx, row, partKeyValue, sortKeyValue)
}

func (t SyncTable[T]) ReadNumericValues(ctx context.Context, row v.TableRow[T], partKeyValue string, reverse bool, limit int, offset string) ([]v.NumValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadNumericValues(ctx, row, partKeyValue, reverse, limit, offset)
}

func (t SyncTable[T]) ReadAllNumericValues(ctx context.Context, row v.TableRow[T], partKeyValue string, sortByValue bool) ([]v.NumValue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ReadAllNumericValues(ctx, row, partKeyValue, sortByValue)
}
