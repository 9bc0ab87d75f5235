package testutil

// Tables is the extraction list used across pipeline tests.
var Tables = []string{"customers", "orders", "order_items"}

// Models is the export list used across pipeline tests.
var Models = []string{"customer_orders", "order_details"}

// ShopSource returns a MemorySource holding small customers, orders and
// order_items tables in the "public" schema.
func ShopSource() *MemorySource {
	return &MemorySource{
		SchemaName: "public",
		Tables: map[string]string{
			"customers": `SELECT * FROM (VALUES
				(1, 'Ada Lovelace', 'ada@example.com'),
				(2, 'Grace Hopper', 'grace@example.com'),
				(3, 'Alan Turing', 'alan@example.com')
			) t(customer_id, name, email)`,
			"orders": `SELECT * FROM (VALUES
				(10, 1, DATE '2024-01-05', 'shipped'),
				(11, 1, DATE '2024-02-11', 'pending'),
				(12, 2, DATE '2024-03-02', 'shipped'),
				(13, 3, DATE '2024-03-09', 'cancelled')
			) t(order_id, customer_id, order_date, status)`,
			"order_items": `SELECT * FROM (VALUES
				(100, 10, 'widget', 2, 9.99),
				(101, 10, 'gadget', 1, 24.50),
				(102, 11, 'widget', 5, 9.99),
				(103, 12, 'gizmo', 1, 120.00),
				(104, 13, 'gadget', 3, 24.50)
			) t(item_id, order_id, product, quantity, unit_price)`,
		},
	}
}

// ShopRowCounts are the row counts of the tables in ShopSource.
var ShopRowCounts = map[string]int64{"customers": 3, "orders": 4, "order_items": 5}
