package main

import (
	"context"

	"github.com/joho/godotenv"

	"github.com/aruizmx/comandero/cash"
	"github.com/aruizmx/comandero/catalog"
	"github.com/aruizmx/comandero/changefeed"
	"github.com/aruizmx/comandero/config"
	"github.com/aruizmx/comandero/floor"
	"github.com/aruizmx/comandero/hub"
	"github.com/aruizmx/comandero/kitchen"
	"github.com/aruizmx/comandero/models"
	"github.com/aruizmx/comandero/remote"
	"github.com/aruizmx/comandero/reports"
	"github.com/aruizmx/comandero/router"
	"github.com/aruizmx/comandero/store"
	"github.com/aruizmx/comandero/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.Load()

	db, err := config.OpenDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := remote.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}

	svc := remote.NewGormService(db)
	svc.Interval = cfg.FeedInterval

	if cfg.AMQPURL != "" {
		client, err := remote.DialAMQP(cfg.AMQPURL)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to connect to broker: %v", err)
		}
		defer client.Close()
		// Fan every change out to the broker so secondary terminals can run
		// their feed off the exchange instead of polling this database.
		svc.SubscribeAllChanges(func(ev remote.ChangeEvent) {
			if err := client.PublishChange(context.Background(), ev); err != nil {
				utils.ErrorLogger.Printf("broker publish %s/%s: %v", ev.Collection, ev.Type, err)
			}
		})
		utils.InfoLogger.Printf("Bridging change feed to %s", cfg.AMQPURL)
	}

	tables := store.New[models.Table](models.CollectionTables)
	zones := store.New[models.Zone](models.CollectionZones)
	sessions := store.New[models.TableSession](models.CollectionSessions)
	orders := store.New[models.Order](models.CollectionOrders)
	orderItems := store.New[models.OrderItem](models.CollectionOrderItems)
	products := store.New[models.Product](models.CollectionProducts)
	categories := store.New[models.Category](models.CollectionCategories)
	shifts := store.New[models.CashShift](models.CollectionShifts)
	transactions := store.New[models.CashTransaction](models.CollectionTransactions)

	ctx := context.Background()
	load(ctx, svc, tables, "number")
	load(ctx, svc, zones, "name")
	load(ctx, svc, sessions, "start_time")
	load(ctx, svc, orders, "created_at")
	load(ctx, svc, orderItems, "created_at")
	load(ctx, svc, products, "name")
	load(ctx, svc, categories, "name")
	load(ctx, svc, shifts, "opened_at")
	load(ctx, svc, transactions, "created_at")

	adapter := changefeed.New(svc)
	defer adapter.Close()
	bind(adapter, tables)
	bind(adapter, zones)
	bind(adapter, sessions)
	bind(adapter, orders)
	bind(adapter, orderItems)
	bind(adapter, products)
	bind(adapter, categories)
	bind(adapter, shifts)
	bind(adapter, transactions)

	scheduler := kitchen.NewScheduler(kitchen.Config{
		WarningAfter:  cfg.KitchenWarningAfter,
		CriticalAfter: cfg.KitchenCriticalAfter,
		Tick:          cfg.KitchenTick,
	}, svc, orders, orderItems, products, categories)
	scheduler.Start()
	defer scheduler.Stop()

	floorCtrl := floor.NewController(svc, tables, zones, sessions, orders)
	floorCtrl.BaseURL = cfg.BaseURL
	cashReg := cash.NewRegister(svc, shifts, transactions)
	catalogMgr := catalog.NewManager(svc, products, categories)
	engine := reports.NewEngine(orders, orderItems, products, sessions, shifts, transactions)

	h := hub.New()
	hub.BindStore(h, tables, hub.EventTables)
	hub.BindStore(h, zones, hub.EventZones)
	hub.BindStore(h, sessions, hub.EventSessions)
	hub.BindStore(h, orders, hub.EventOrders)
	hub.BindStore(h, orderItems, hub.EventOrderItems)
	hub.BindStore(h, products, hub.EventProducts)
	hub.BindStore(h, categories, hub.EventCategories)
	hub.BindStore(h, shifts, hub.EventShifts)
	hub.BindStore(h, transactions, hub.EventTransactions)
	hub.BindScheduler(h, scheduler)

	svc.StartMonitor()
	defer svc.StopMonitor()

	r := router.Setup(router.Deps{
		Hub:          h,
		Floor:        floorCtrl,
		Cash:         cashReg,
		Catalog:      catalogMgr,
		Kitchen:      scheduler,
		Reports:      engine,
		Assets:       svc,
		Tables:       tables,
		Zones:        zones,
		Sessions:     sessions,
		Orders:       orders,
		OrderItems:   orderItems,
		Products:     products,
		Categories:   categories,
		Shifts:       shifts,
		Transactions: transactions,
	})

	utils.InfoLogger.Printf("Listening on port %s", cfg.HTTPPort)
	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

// load seeds a store from a bulk fetch, ordered server-side.
func load[T store.Entity](ctx context.Context, svc remote.Service, s *store.Store[T], orderBy string) {
	items, err := remote.QueryAs[T](ctx, svc, s.Collection(), remote.Filter{OrderBy: orderBy})
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load %s: %v", s.Collection(), err)
	}
	s.ReplaceAll(items)
	utils.InfoLogger.Printf("Loaded %d %s", len(items), s.Collection())
}

func bind[T store.Entity](a *changefeed.Adapter, s *store.Store[T]) {
	if err := changefeed.Bind(a, s); err != nil {
		utils.ErrorLogger.Fatalf("Failed to subscribe %s: %v", s.Collection(), err)
	}
}
