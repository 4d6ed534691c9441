package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apihandler "github.com/maraichr/tablescan/internal/api/handler"
	apimw "github.com/maraichr/tablescan/internal/api/middleware"
	"github.com/maraichr/tablescan/internal/auth"
	"github.com/maraichr/tablescan/internal/remediation"
	"github.com/maraichr/tablescan/internal/scanner"
)

// RouterDeps holds the router's dependencies. Everything except Scans and
// Scanners is optional; the matching endpoints answer 503 when unset.
type RouterDeps struct {
	Scans    *remediation.Service
	Scanners *scanner.Holder
	DB       apihandler.Pinger
	Reports  apihandler.ReportStore
	Archive  apihandler.ReportArchive
	Producer apihandler.JobEnqueuer
	Graph    apihandler.ProgramFinder
	Verifier auth.TokenVerifier // nil = dev mode
	Limits   apihandler.Limits
	CORS     []string
}

func NewRouter(logger *slog.Logger, deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(apimw.Logger(logger))
	r.Use(apimw.CORS(deps.CORS))
	r.Use(chimw.Recoverer)

	// Health checks
	health := apihandler.NewHealthHandler(deps.Scanners, deps.DB)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	limits := deps.Limits
	if limits.MaxUnits == 0 {
		limits = apihandler.DefaultLimits
	}

	authn := auth.DevModeMiddleware(logger)
	if deps.Verifier != nil {
		authn = auth.RequireAuth(deps.Verifier, logger)
	}
	canRead := auth.RequireScope(auth.ScopeRead, auth.ScopeWrite)
	canWrite := auth.RequireScope(auth.ScopeWrite)

	scans := apihandler.NewScanHandler(logger, deps.Scans, limits)

	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.With(canRead).Post("/remediate-tables", scans.Remediate)

		// API v1
		r.Route("/api/v1", func(r chi.Router) {
			r.With(canRead).Post("/scan/issues", scans.Issues)

			reports := apihandler.NewReportHandler(logger, deps.Scans, deps.Reports, deps.Archive, limits)
			r.Route("/reports", func(r chi.Router) {
				r.With(canRead).Get("/", reports.List)
				r.With(canWrite).Post("/", reports.Create)
				r.Route("/{reportID}", func(r chi.Router) {
					r.Use(canRead)
					r.Get("/", reports.Get)
					r.Get("/archive", reports.Archive)
				})
			})

			scanJobs := apihandler.NewScanJobHandler(logger, deps.Reports, deps.Producer, limits)
			r.With(canWrite).Post("/scan-jobs", scanJobs.Create)

			mappings := apihandler.NewMappingHandler(deps.Scanners)
			r.Route("/mappings", func(r chi.Router) {
				r.Use(canRead)
				r.Get("/", mappings.List)
				r.Get("/{table}", mappings.Get)
			})

			tables := apihandler.NewTableHandler(logger, deps.Graph)
			r.With(canRead).Get("/tables/{table}/programs", tables.Programs)
		})
	})

	return r
}
