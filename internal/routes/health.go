package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/custodia/custodia/internal/ledger"
)

const (
	statusOK       = "ok"
	statusDisabled = "disabled"
)

// RegisterHealthRoutes adds the readiness endpoint. Backends that are not
// configured report "disabled" and do not fail the check.
func RegisterHealthRoutes(app *fiber.App, d Deps, store ledger.Store) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		storeStatus := statusOK
		if err := store.Ping(ctx); err != nil {
			storeStatus = err.Error()
		}
		redisStatus := statusDisabled
		if d.Cache != nil {
			redisStatus = statusOK
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		natsStatus := statusDisabled
		if d.NATS != nil {
			natsStatus = statusOK
			if st := d.NATS.Status(); st != nats.CONNECTED {
				natsStatus = st.String()
			}
		}

		status := http.StatusOK
		for _, s := range []string{storeStatus, redisStatus, natsStatus} {
			if s != statusOK && s != statusDisabled {
				status = http.StatusServiceUnavailable
			}
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"store": storeStatus, "redis": redisStatus, "nats": natsStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
