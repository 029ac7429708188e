package graph

import (
	"fmt"
	"reflect"

	memdb "github.com/hashicorp/go-memdb"
	"github.com/on-the-ground/calcgraph_go/engine/function"
)

const (
	portfolioTable = "portfolio"
	outputTable    = "output"
	idIndex        = "id"
	columnIndex    = "column"
)

// FunctionModel describes the function chosen for one column and input
// type, or for one non-portfolio output.
type FunctionModel struct {
	Column             string
	InputType          string
	Output             string
	FunctionID         string
	FunctionName       string
	DeclaringType      string
	ImplementationType string
}

func newFunctionModel(column string, inputType reflect.Type, output string, fn function.Function) *FunctionModel {
	return &FunctionModel{
		Column:             column,
		InputType:          typeName(inputType),
		Output:             output,
		FunctionID:         fn.ID(),
		FunctionName:       fn.Name(),
		DeclaringType:      typeName(fn.DeclaringType()),
		ImplementationType: typeName(fn.ImplementationType()),
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

var modelSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		portfolioTable: {
			Name: portfolioTable,
			Indexes: map[string]*memdb.IndexSchema{
				idIndex: {
					Name:   idIndex,
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "Column"},
							&memdb.StringFieldIndex{Field: "InputType"},
						},
					},
				},
				columnIndex: {
					Name:    columnIndex,
					Indexer: &memdb.StringFieldIndex{Field: "Column"},
				},
			},
		},
		outputTable: {
			Name: outputTable,
			Indexes: map[string]*memdb.IndexSchema{
				idIndex: {
					Name:    idIndex,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Column"},
				},
			},
		},
	},
}

// ModelIndex is a queryable record of which function serves each column,
// input type and non-portfolio output of a graph.
type ModelIndex struct {
	db *memdb.MemDB
}

func newModelIndex() (*ModelIndex, error) {
	db, err := memdb.NewMemDB(modelSchema)
	if err != nil {
		return nil, fmt.Errorf("model index: %w", err)
	}
	return &ModelIndex{db: db}, nil
}

func (m *ModelIndex) insert(table string, models ...*FunctionModel) error {
	txn := m.db.Txn(true)
	defer txn.Abort()

	for _, model := range models {
		if err := txn.Insert(table, model); err != nil {
			return fmt.Errorf("indexing %s/%s: %w", model.Column, model.InputType, err)
		}
	}
	txn.Commit()
	return nil
}

// ForColumn returns the model for rows of inputType in column.
func (m *ModelIndex) ForColumn(column string, inputType reflect.Type) (FunctionModel, bool) {
	txn := m.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(portfolioTable, idIndex, column, typeName(inputType))
	if err != nil || raw == nil {
		return FunctionModel{}, false
	}
	return *raw.(*FunctionModel), true
}

// ColumnModels returns every model registered for column.
func (m *ModelIndex) ColumnModels(column string) []FunctionModel {
	txn := m.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(portfolioTable, columnIndex, column)
	if err != nil {
		return nil
	}
	var models []FunctionModel
	for raw := it.Next(); raw != nil; raw = it.Next() {
		models = append(models, *raw.(*FunctionModel))
	}
	return models
}

// ForOutput returns the model of the named non-portfolio output.
func (m *ModelIndex) ForOutput(name string) (FunctionModel, bool) {
	txn := m.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(outputTable, idIndex, name)
	if err != nil || raw == nil {
		return FunctionModel{}, false
	}
	return *raw.(*FunctionModel), true
}
