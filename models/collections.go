package models

// Collection names used by the remote data service and the change feed.
const (
	CollectionTables       = "tables"
	CollectionZones        = "zones"
	CollectionSessions     = "table_sessions"
	CollectionOrders       = "orders"
	CollectionOrderItems   = "order_items"
	CollectionProducts     = "products"
	CollectionCategories   = "categories"
	CollectionStations     = "stations"
	CollectionShifts       = "cash_shifts"
	CollectionTransactions = "cash_transactions"
)
