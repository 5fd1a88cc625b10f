package orders

const (
	TopicOrderCreated    = "bookstore.order.created"
	TopicOrderCompleted  = "bookstore.order.completed"
	TopicCatalogActivity = "bookstore.catalog.activity"
)

// Partition key = order_id, so all events for one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
