package store

// DayIndex is the reserved column key holding the log timestamp. It is never
// collected interactively.
const DayIndex = "day"

// Column describes one inventory column of a warehouse.
type Column struct {
	Title     string `json:"title" yaml:"title"`
	DataIndex string `json:"dataIndex" yaml:"dataIndex"`
	DataType  string `json:"dataType" yaml:"dataType"`
}

// Sector is a business sector owned by a user. The core only ever reads
// sectors where Owner matches the requesting user and Deleted is false.
type Sector struct {
	ID       string
	Name     string
	Owner    string
	Location string
	Deleted  bool
}

// Warehouse belongs to a sector and carries the ordered column definitions
// that drive the log-collection dialog.
type Warehouse struct {
	ID       string
	Name     string
	Owner    string
	SectorID string
	Columns  []Column
}

// LogRecord is one inventory log entry, write-only from the chat core.
type LogRecord struct {
	ID          string
	WarehouseID string
	Owner       string
	Data        map[string]any
}

// InventoryColumns returns the warehouse columns excluding the reserved day
// column, in definition order.
func (w *Warehouse) InventoryColumns() []Column {
	cols := make([]Column, 0, len(w.Columns))
	for _, c := range w.Columns {
		if c.DataIndex == DayIndex {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}
