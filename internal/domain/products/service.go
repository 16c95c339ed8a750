package products

import (
	"datagrid/internal/domain"
	"datagrid/internal/metadata"
)

// NewTableService builds the products table. Name, label, columns, row id and
// the TableDef are filled in; a zero Defaults gets DefaultSorts.
func NewTableService(cfg domain.TableServiceConfig[Product]) (*domain.TableService[Product], error) {
	cols, err := Columns()
	if err != nil {
		return nil, err
	}
	def, err := metadata.Inspect[Product](TableName)
	if err != nil {
		return nil, err
	}
	def.Label = "Products"

	cfg.Name = TableName
	cfg.Label = def.Label
	cfg.Columns = cols
	cfg.RowID = RowID
	cfg.Describe = def
	if cfg.Defaults.Sorts == nil {
		cfg.Defaults.Sorts = DefaultSorts()
	}
	return domain.NewTableService(cfg)
}
