package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"founder-dashboard/domain"
)

// DefaultPartition groups all rows of one dashboard in the tasks table.
const DefaultPartition = "dashboard"

// tableClient is the subset of *aztables.Client used by TableStore.
type tableClient interface {
	CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey string, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
}

// TableStore keeps the checklist in an Azure Storage table, one row per task.
type TableStore struct {
	table     tableClient
	partition string
}

// NewTableStore creates a TableStore from the given connection string.
func NewTableStore(connStr, tableName, partition string) (*TableStore, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Second * 30,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	if partition == "" {
		partition = DefaultPartition
	}
	return &TableStore{table: svc.NewClient(tableName), partition: partition}, nil
}

// EnsureTable creates the tasks table if it does not exist yet.
func (s *TableStore) EnsureTable(ctx context.Context) error {
	_, err := s.table.CreateTable(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create tasks table: %w", err)
	}
	return nil
}

type taskEntity struct {
	aztables.Entity
	Text      string `json:"Text"`
	Completed bool   `json:"Completed"`
	Order     int    `json:"Order"`
}

func decodeTaskEntity(data []byte) (domain.Task, int, error) {
	var ent taskEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, 0, err
	}
	id, err := strconv.Atoi(ent.RowKey)
	if err != nil {
		return domain.Task{}, 0, fmt.Errorf("task row key %q: %w", ent.RowKey, err)
	}
	return domain.Task{ID: id, Text: ent.Text, Completed: ent.Completed}, ent.Order, nil
}

func (s *TableStore) encodeTaskEntity(t domain.Task, order int) ([]byte, error) {
	return sonic.Marshal(taskEntity{
		Entity: aztables.Entity{
			PartitionKey: s.partition,
			RowKey:       strconv.Itoa(t.ID),
		},
		Text:      t.Text,
		Completed: t.Completed,
		Order:     order,
	})
}

type orderedTask struct {
	task  domain.Task
	order int
}

func (s *TableStore) listRows(ctx context.Context) ([]orderedTask, error) {
	filter := "PartitionKey eq '" + s.partition + "'"
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	rows := []orderedTask{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			task, order, err := decodeTaskEntity(e)
			if err != nil {
				return nil, err
			}
			rows = append(rows, orderedTask{task: task, order: order})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].order < rows[j].order })
	return rows, nil
}

// LoadTasks retrieves the checklist in list order.
func (s *TableStore) LoadTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.listRows(ctx)
	if err != nil {
		return []domain.Task{}, fmt.Errorf("load tasks: %w", err)
	}
	tasks := make([]domain.Task, len(rows))
	for i, r := range rows {
		tasks[i] = r.task
	}
	return tasks, nil
}

// SaveTasks makes the table hold exactly tasks: every task is upserted with
// its position and rows for removed tasks are deleted.
func (s *TableStore) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	existing, err := s.listRows(ctx)
	if err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	keep := make(map[int]struct{}, len(tasks))
	for i, t := range tasks {
		data, err := s.encodeTaskEntity(t, i)
		if err != nil {
			return fmt.Errorf("save tasks: %w", err)
		}
		if _, err := s.table.UpsertEntity(ctx, data, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace}); err != nil {
			return fmt.Errorf("save task %d: %w", t.ID, err)
		}
		keep[t.ID] = struct{}{}
	}
	for _, row := range existing {
		if _, ok := keep[row.task.ID]; ok {
			continue
		}
		if _, err := s.table.DeleteEntity(ctx, s.partition, strconv.Itoa(row.task.ID), nil); err != nil {
			return fmt.Errorf("delete task %d: %w", row.task.ID, err)
		}
	}
	return nil
}
