package migrate

import (
	"context"
	"fmt"
	"sync"

	"github.com/leapstack-labs/tablemigrate/pkg/connector"
	"github.com/leapstack-labs/tablemigrate/pkg/core"
	"github.com/leapstack-labs/tablemigrate/pkg/typemap"
)

// memConnector is an in-memory connector.Connector for pipeline tests.
type memConnector struct {
	mu        sync.Mutex
	connected bool
	schemas   map[string]*core.TableSchema
	data      map[string][]core.Row

	extractErr  error
	loadErr     error
	loadCalls   int
	disconnects int
}

var _ connector.Connector = (*memConnector)(nil)

func newMem() *memConnector {
	return &memConnector{
		connected: true,
		schemas:   map[string]*core.TableSchema{},
		data:      map[string][]core.Row{},
	}
}

func (m *memConnector) withTable(schema *core.TableSchema, rows ...core.Row) *memConnector {
	m.schemas[schema.Name] = schema
	m.data[schema.Name] = rows
	return m
}

func (m *memConnector) Connect(context.Context, core.ConnectionConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

func (m *memConnector) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.disconnects++
	return nil
}

func (m *memConnector) check() error {
	if !m.connected {
		return connector.ErrNotConnected
	}
	return nil
}

func (m *memConnector) ListTables(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	var names []string
	for name := range m.schemas {
		names = append(names, name)
	}
	return names, nil
}

func (m *memConnector) GetSchema(_ context.Context, table string) (*core.TableSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	return m.schemas[table], nil
}

func (m *memConnector) CreateTable(_ context.Context, name string, schema core.TableSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if _, ok := m.schemas[name]; !ok {
		m.schemas[name] = core.NewTableSchema(name, schema.Columns)
	}
	return nil
}

func (m *memConnector) ExtractData(_ context.Context, table string) ([]core.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	if m.extractErr != nil {
		return nil, &connector.TableError{Kind: connector.ErrExtractionFailure, Table: table, Err: m.extractErr}
	}
	return append([]core.Row{}, m.data[table]...), nil
}

func (m *memConnector) LoadData(_ context.Context, table string, rows []core.Row) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return 0, err
	}
	m.loadCalls++
	if m.loadErr != nil {
		return 0, &connector.TableError{Kind: connector.ErrLoadFailure, Table: table, Err: m.loadErr}
	}
	if _, ok := m.schemas[table]; !ok {
		return 0, fmt.Errorf("no such table: %s", table)
	}
	m.data[table] = append(m.data[table], rows...)
	return int64(len(rows)), nil
}

func (m *memConnector) Dialect() typemap.Dialect {
	return typemap.SQLite
}

func usersTable() *core.TableSchema {
	return core.NewTableSchema("users", []core.ColumnSchema{
		{Name: "id", DataType: "INTEGER", IsPrimaryKey: true, OrdinalPosition: 1},
		{Name: "name", DataType: "TEXT", OrdinalPosition: 2},
	})
}

func userRow(id int64, name string) core.Row {
	return core.Row{Columns: []string{"id", "name"}, Values: []core.Value{core.Int(id), core.Text(name)}}
}
