// Package reports folds store snapshots into financial and operational
// summaries. Everything in this file is a pure function of its inputs.
package reports

import (
	"sort"
	"time"

	"github.com/aruizmx/comandero/models"
)

const unknownProductName = "Producto Desconocido"

// Window is a closed time interval.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// MonthWindow is the calendar month containing t.
func MonthWindow(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return Window{Start: start, End: end}
}

// ShiftSummary is the expected cash position of a shift.
type ShiftSummary struct {
	Base          float64 `json:"base"`
	TotalSales    float64 `json:"total_sales_cash"`
	TotalIncomes  float64 `json:"total_incomes"`
	TotalExpenses float64 `json:"total_expenses"`
	ExpectedTotal float64 `json:"expected_total"`
}

// SummarizeShift computes the expected cash for a shift: base amount, plus
// item subtotals of orders paid since the shift opened, plus manual incomes,
// minus manual expenses.
func SummarizeShift(
	shift models.CashShift,
	transactions []models.CashTransaction,
	orders []models.Order,
	items []models.OrderItem,
) ShiftSummary {
	s := ShiftSummary{Base: shift.BaseAmount}

	for _, t := range transactions {
		if t.ShiftID != shift.ID {
			continue
		}
		switch t.Type {
		case models.TransactionIncome:
			s.TotalIncomes += t.Amount
		case models.TransactionExpense:
			s.TotalExpenses += t.Amount
		}
	}

	itemsByOrder := groupItems(items)
	for _, o := range orders {
		if o.Status != models.OrderPaid || o.UpdatedAt.Before(shift.OpenedAt) {
			continue
		}
		for _, it := range itemsByOrder[o.ID] {
			s.TotalSales += it.Subtotal()
		}
	}

	s.ExpectedTotal = s.Base + s.TotalSales + s.TotalIncomes - s.TotalExpenses
	return s
}

type TopProduct struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"total_revenue"`
}

type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

type MonthlyStats struct {
	// Financial
	TotalIncome   float64 `json:"total_income"`
	TotalExpenses float64 `json:"total_expenses"`
	NetProfit     float64 `json:"net_profit"`
	ProfitMargin  float64 `json:"profit_margin"`

	// Sales
	TotalSales    float64 `json:"total_sales"`
	OrderCount    int     `json:"order_count"`
	AverageTicket float64 `json:"average_ticket"`

	// Operational
	CustomerCount     int     `json:"customer_count"`
	ItemsSold         int     `json:"items_sold"`
	AvgItemsPerOrder  float64 `json:"avg_items_per_order"`
	TableTurnoverRate float64 `json:"table_turnover_rate"`

	// Efficiency, in minutes
	AvgAttentionTime float64 `json:"avg_attention_time"`
	AvgPrepTime      float64 `json:"avg_prep_time"`

	// Analytics
	TopProducts []TopProduct `json:"top_products"`
	PeakHours   []HourCount  `json:"peak_hours"`
}

// Monthly folds the snapshots into the monthly report. Paid orders are
// selected by updated_at, closed sessions by end_time, expense transactions
// by created_at, all against the same window.
func Monthly(
	orders []models.Order,
	items []models.OrderItem,
	products []models.Product,
	sessions []models.TableSession,
	transactions []models.CashTransaction,
	w Window,
) MonthlyStats {
	var stats MonthlyStats

	nameOf := make(map[string]string, len(products))
	for _, p := range products {
		nameOf[p.ID] = p.Name
	}
	itemsByOrder := groupItems(items)

	type bucket struct {
		quantity int
		revenue  float64
	}
	productAgg := make(map[string]*bucket)
	var productOrder []string
	hourCounts := make([]int, 24)

	var prepTotal time.Duration
	prepCount := 0

	var paid []models.Order
	for _, o := range orders {
		if o.Status != models.OrderPaid || !w.contains(o.UpdatedAt) {
			continue
		}
		paid = append(paid, o)
		stats.OrderCount++
		hourCounts[o.CreatedAt.Hour()]++

		for _, it := range itemsByOrder[o.ID] {
			subtotal := it.Subtotal()
			stats.TotalSales += subtotal
			stats.ItemsSold += it.Quantity

			name := nameOf[it.ProductID]
			if name == "" {
				name = unknownProductName
			}
			agg, ok := productAgg[name]
			if !ok {
				agg = &bucket{}
				productAgg[name] = agg
				productOrder = append(productOrder, name)
			}
			agg.quantity += it.Quantity
			agg.revenue += subtotal

			if it.FinishedAt != nil {
				start := prepStart(it, o)
				if d := it.FinishedAt.Sub(start); d > 0 {
					prepTotal += d
					prepCount++
				}
			}
		}
	}

	// Order-level kitchen stamps are the fallback only when no item carried
	// its own timing.
	if prepCount == 0 {
		for _, o := range paid {
			if o.KitchenStartedAt == nil || o.KitchenFinishedAt == nil {
				continue
			}
			if d := o.KitchenFinishedAt.Sub(*o.KitchenStartedAt); d > 0 {
				prepTotal += d
				prepCount++
			}
		}
	}

	var attentionTotal time.Duration
	attentionCount := 0
	closedSessions := 0
	tablesUsed := make(map[string]struct{})
	for _, s := range sessions {
		if s.Status != models.SessionClosed || s.EndTime == nil || !w.contains(*s.EndTime) {
			continue
		}
		closedSessions++
		stats.CustomerCount += s.ClientCount
		tablesUsed[s.TableID] = struct{}{}
		if d := s.EndTime.Sub(s.StartTime); d > 0 {
			attentionTotal += d
			attentionCount++
		}
	}

	for _, t := range transactions {
		if t.Type == models.TransactionExpense && w.contains(t.CreatedAt) {
			stats.TotalExpenses += t.Amount
		}
	}

	// Top products: quantity descending, stable on first-encounter order.
	tops := make([]TopProduct, 0, len(productOrder))
	for _, name := range productOrder {
		agg := productAgg[name]
		tops = append(tops, TopProduct{Name: name, Quantity: agg.quantity, Revenue: agg.revenue})
	}
	sort.SliceStable(tops, func(i, j int) bool { return tops[i].Quantity > tops[j].Quantity })
	if len(tops) > 5 {
		tops = tops[:5]
	}
	stats.TopProducts = tops

	stats.PeakHours = make([]HourCount, 24)
	for h := 0; h < 24; h++ {
		stats.PeakHours[h] = HourCount{Hour: h, Count: hourCounts[h]}
	}

	if stats.OrderCount > 0 {
		stats.AverageTicket = stats.TotalSales / float64(stats.OrderCount)
		stats.AvgItemsPerOrder = float64(stats.ItemsSold) / float64(stats.OrderCount)
	}
	if prepCount > 0 {
		stats.AvgPrepTime = prepTotal.Minutes() / float64(prepCount)
	}
	if attentionCount > 0 {
		stats.AvgAttentionTime = attentionTotal.Minutes() / float64(attentionCount)
	}
	if len(tablesUsed) > 0 {
		stats.TableTurnoverRate = float64(closedSessions) / float64(len(tablesUsed))
	}

	stats.TotalIncome = stats.TotalSales
	stats.NetProfit = stats.TotalIncome - stats.TotalExpenses
	if stats.TotalIncome > 0 {
		stats.ProfitMargin = stats.NetProfit / stats.TotalIncome * 100
	}
	return stats
}

// prepStart picks the item preparation start: started_at, else the item's
// creation, else the order's creation.
func prepStart(it models.OrderItem, o models.Order) time.Time {
	if it.StartedAt != nil {
		return *it.StartedAt
	}
	if !it.CreatedAt.IsZero() {
		return it.CreatedAt
	}
	return o.CreatedAt
}

func groupItems(items []models.OrderItem) map[string][]models.OrderItem {
	out := make(map[string][]models.OrderItem)
	for _, it := range items {
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out
}
