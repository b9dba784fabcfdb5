package main

import (
	"context"
	"flag"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-console/internal/config"
	"github.com/jwalitptl/clinic-console/internal/controller"
	"github.com/jwalitptl/clinic-console/internal/fakeapi"
	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/notifier"
	"github.com/jwalitptl/clinic-console/internal/resource"
	"github.com/jwalitptl/clinic-console/internal/session"
	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/metrics"
)

// The console binary runs a scripted list → edit → save → delete pass
// over clinics, either against a configured backend or against the
// embedded fake API when -demo is set. It exists to exercise the full
// wiring end to end.
func main() {
	demo := flag.Bool("demo", false, "run against the embedded fake API")
	token := flag.String("token", "", "admin bearer token")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := logger.NewLogger(&logger.Config{
		Level:  level,
		Output: os.Stdout,
		Pretty: cfg.Logging.Pretty,
	})

	tokens := session.NewStore()
	if *demo {
		fake := fakeapi.NewServer()
		fake.AllowToken("demo-admin-token", "admin")
		fake.Seed("clinics",
			gin.H{"name": "Sunrise Clinic", "address": "12 High St", "phone": "0123456789", "email": "sunrise@example.com", "booking_limit": 20, "status": "active"},
			gin.H{"name": "Riverside Clinic", "address": "3 Quay Rd", "phone": "0987654321", "email": "riverside@example.com", "booking_limit": 15, "status": "active"},
		)
		srv := httptest.NewServer(fake.Handler())
		defer srv.Close()
		cfg.API.BaseURL = srv.URL
		tokens.SetToken(session.RoleAdmin, "demo-admin-token")
		log.Info("embedded fake API started", "url", srv.URL)
	} else {
		if *token == "" {
			log.Fatal(nil, "a bearer token is required outside demo mode")
		}
		tokens.SetToken(session.RoleAdmin, *token)
	}

	m := metrics.NewMetrics("clinic_console", prometheus.DefaultRegisterer)
	queue := notifier.NewQueue(notifier.WithMetrics(m))

	clinics := resource.NewClient[model.Clinic](
		cfg.API.BaseURL, cfg.API.Prefix, "clinics", tokens, session.RoleAdmin,
		resource.WithListKey[model.Clinic]("clinicList"),
		resource.WithMetrics[model.Clinic](m),
		resource.WithLogger[model.Clinic](log.WithComponent("clinics")),
	)

	list := controller.NewListView[model.Clinic](clinics, queue, cfg.View.DefaultPageSize,
		controller.WithLocalFilter(clinicMatches),
		controller.WithSortKeys(map[string]func(model.Clinic) string{
			"name": func(c model.Clinic) string { return c.Name },
		}),
		controller.WithListMetrics[model.Clinic](m),
		controller.WithListLogger[model.Clinic](log.WithComponent("clinic-list")),
	)
	detail := controller.NewDetailEdit[model.Clinic](clinics, queue,
		controller.WithOnSaved(func(entity model.Clinic, sent resource.Partial) {
			list.PatchEntity(entity.ID, sent)
		}),
		controller.WithDetailLogger[model.Clinic](log.WithComponent("clinic-detail")),
	)
	confirm := controller.NewConfirmable()

	ctx := context.Background()
	if err := list.Load(ctx); err != nil {
		log.Fatal(err, "initial clinic list failed")
	}
	page := list.VisiblePage()
	log.Info("clinics loaded", "visible", len(page), "total", list.FilteredCount())
	if len(page) == 0 {
		log.Info("nothing to edit, done")
		return
	}

	first := page[0]
	if err := detail.Load(ctx, first.ID); err != nil {
		log.Fatal(err, "clinic detail load failed")
	}
	if err := detail.BeginEdit(); err != nil {
		log.Fatal(err, "begin edit failed")
	}
	if err := detail.UpdateField("description", func(d *model.Clinic) {
		d.Description = "Updated from the console demo"
	}); err != nil {
		log.Fatal(err, "update field failed")
	}
	if err := detail.Save(ctx); err != nil {
		log.Fatal(err, "clinic save failed")
	}
	log.Info("clinic saved", "id", first.ID)

	confirm.Request("delete clinic", first.ID, func(ctx context.Context) error {
		if err := clinics.Delete(ctx, first.ID); err != nil {
			return err
		}
		list.RemoveEntity(first.ID)
		return nil
	})
	if err := confirm.Confirm(ctx); err != nil {
		log.Fatal(err, "clinic delete failed")
	}
	log.Info("clinic deleted", "id", first.ID, "remaining", list.FilteredCount())

	for _, n := range queue.Active() {
		log.Info("notification", "kind", string(n.Kind), "message", n.Message)
	}
}

func clinicMatches(c model.Clinic, f controller.ViewFilter) bool {
	if f.StatusFilter != "" && c.Status != f.StatusFilter {
		return false
	}
	if f.SearchText == "" {
		return true
	}
	return containsFold(c.Name, f.SearchText) || containsFold(c.Address, f.SearchText)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
