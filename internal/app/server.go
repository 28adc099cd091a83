package app

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"markethub_api/config"
	"markethub_api/internal/aggregator"
	"markethub_api/internal/app/web/handlers"
	"markethub_api/internal/catalogsync"
	"markethub_api/internal/currency"
	"markethub_api/internal/sources"
	"markethub_api/internal/sources/stylehub"
	"markethub_api/internal/sources/techmart"
	"markethub_api/internal/storage"
	"markethub_api/internal/storage/repositories"
	"markethub_api/metrics"
	"markethub_api/pkg/dbconnect"
	"markethub_api/pkg/middleware"
)

// Server wires the aggregation engine together: storage, both source
// adapters, the coordinator, the syncer and the currency manager, exposed
// through the operator HTTP surface.
type Server struct {
	cfg    *config.AppConfig
	dbconnect.DbConnector
	writer io.Writer
}

func NewServer(cfg *config.AppConfig, connector dbconnect.DbConnector, writer io.Writer) *Server {
	return &Server{cfg: cfg, DbConnector: connector, writer: writer}
}

func (s *Server) Run() error {
	db, err := s.Connect()
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	for _, m := range storage.Migrations() {
		if err := m.UpMigration(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	log.Println("Migrations applied successfully!")

	productRepo := repositories.NewProductRepository(db)
	conversionRepo := repositories.NewConversionSettingRepository(db)

	currencyManager := currency.NewManager(conversionRepo, productRepo, s.cfg.Currency, s.writer)

	techmartAdapter := techmart.NewAdapter(s.cfg.TechMart, s.cfg.Client, s.writer)
	stylehubAdapter := stylehub.NewAdapter(s.cfg.StyleHub, s.cfg.Client, s.writer)
	adapters := []sources.Adapter{techmartAdapter, stylehubAdapter}

	canonicalizer := sources.NewCanonicalizer(s.cfg.Currency.ToCurrency, s.writer)

	coordinator := aggregator.NewCoordinator(adapters, canonicalizer, currencyManager,
		s.cfg.Currency.FromCurrency, s.cfg.Currency.ToCurrency, s.writer)
	healthMonitor := aggregator.NewHealthMonitor(adapters, s.writer)
	syncer := catalogsync.NewSyncer(techmartAdapter, canonicalizer, productRepo,
		currencyManager, s.cfg.Sync, s.cfg.Currency, s.writer)

	catalogHandler := handlers.NewCatalogHandler(coordinator, productRepo)
	syncHandler := handlers.NewSyncHandler(syncer, s.cfg.Sync.Region, s.cfg.Sync.PerCategoryTarget)
	conversionHandler := handlers.NewConversionHandler(currencyManager, s.cfg.Currency)
	healthHandler := handlers.NewHealthHandler(healthMonitor, adapters)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", catalogHandler.GetProductsHandler)
	mux.HandleFunc("GET /api/products/{id}", catalogHandler.GetProductDetailsHandler)
	mux.HandleFunc("DELETE /api/products/{id}", catalogHandler.DeleteProductHandler)
	mux.HandleFunc("GET /api/categories", catalogHandler.GetCategoriesHandler)
	mux.HandleFunc("GET /api/health", healthHandler.CheckHealthHandler)
	mux.HandleFunc("POST /api/sync", syncHandler.SyncNowHandler)
	mux.HandleFunc("GET /api/conversion/rate", conversionHandler.GetRateHandler)
	mux.HandleFunc("POST /api/conversion/rate", conversionHandler.SetRateHandler)
	mux.Handle("GET /metrics", metrics.Handler())

	log.Printf("Listening on %s", s.cfg.Addr)
	return http.ListenAndServe(s.cfg.Addr, middleware.PrometheusMiddleware(mux))
}
