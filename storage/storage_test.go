package storage

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"founder-dashboard/domain"
)

type fakeTable struct {
	rows    map[string][]byte
	listErr error
	deleted []string
}

func newFakeTable() *fakeTable {
	return &fakeTable{rows: make(map[string][]byte)}
}

func (f *fakeTable) CreateTable(context.Context, *aztables.CreateTableOptions) (aztables.CreateTableResponse, error) {
	return aztables.CreateTableResponse{}, nil
}

func (f *fakeTable) NewListEntitiesPager(*aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse] {
	keys := make([]string, 0, len(f.rows))
	for k := range f.rows {
		keys = append(keys, k)
	}
	// Reverse order so the store has to sort by the Order column.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	var page aztables.ListEntitiesResponse
	for _, k := range keys {
		page.Entities = append(page.Entities, f.rows[k])
	}
	return runtime.NewPager(runtime.PagingHandler[aztables.ListEntitiesResponse]{
		More: func(aztables.ListEntitiesResponse) bool { return false },
		Fetcher: func(ctx context.Context, _ *aztables.ListEntitiesResponse) (aztables.ListEntitiesResponse, error) {
			if f.listErr != nil {
				return aztables.ListEntitiesResponse{}, f.listErr
			}
			return page, nil
		},
	})
}

func (f *fakeTable) UpsertEntity(_ context.Context, entity []byte, _ *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error) {
	var ent struct {
		RowKey string `json:"RowKey"`
	}
	if err := sonic.Unmarshal(entity, &ent); err != nil {
		return aztables.UpsertEntityResponse{}, err
	}
	f.rows[ent.RowKey] = entity
	return aztables.UpsertEntityResponse{}, nil
}

func (f *fakeTable) DeleteEntity(_ context.Context, _ string, rowKey string, _ *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error) {
	delete(f.rows, rowKey)
	f.deleted = append(f.deleted, rowKey)
	return aztables.DeleteEntityResponse{}, nil
}

func TestDecodeTaskEntity(t *testing.T) {
	data := []byte(`{"PartitionKey":"dashboard","RowKey":"7","Text":"ship","Completed":true,"Order":2}`)
	task, order, err := decodeTaskEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task != (domain.Task{ID: 7, Text: "ship", Completed: true}) || order != 2 {
		t.Fatalf("unexpected task: %+v order=%d", task, order)
	}

	if _, _, err := decodeTaskEntity([]byte(`{"RowKey":"abc"}`)); err == nil {
		t.Fatalf("expected error for non numeric row key")
	}
}

func TestTableStoreSaveThenLoadKeepsOrder(t *testing.T) {
	table := newFakeTable()
	store := &TableStore{table: table, partition: DefaultPartition}
	ctx := context.Background()

	tasks := []domain.Task{{ID: 12, Text: "c"}, {ID: 3, Text: "a", Completed: true}, {ID: 5, Text: "b"}}
	if err := store.SaveTasks(ctx, tasks); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.LoadTasks(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(loaded, tasks) {
		t.Fatalf("unexpected tasks: %#v", loaded)
	}

	if err := store.SaveTasks(ctx, tasks[1:]); err != nil {
		t.Fatalf("save after delete: %v", err)
	}
	if !reflect.DeepEqual(table.deleted, []string{"12"}) {
		t.Fatalf("expected row 12 deleted, got %v", table.deleted)
	}
	loaded, _ = store.LoadTasks(ctx)
	if !reflect.DeepEqual(loaded, tasks[1:]) {
		t.Fatalf("unexpected tasks after delete: %#v", loaded)
	}
}

func TestTableStoreLoadError(t *testing.T) {
	table := newFakeTable()
	table.listErr = errors.New("boom")
	store := &TableStore{table: table, partition: DefaultPartition}

	tasks, err := store.LoadTasks(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if tasks == nil || len(tasks) != 0 {
		t.Fatalf("expected empty list alongside error, got %#v", tasks)
	}
}
