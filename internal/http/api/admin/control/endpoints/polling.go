package endpoints

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
	"github.com/Nixie-Tech-LLC/mesophy/internal/polling"
)

type PollingController struct {
	store  db.Store
	config *polling.Config
	now    func() time.Time
}

// PollingModule mounts GET /polling-config.
func PollingModule(store db.Store, config *polling.Config) api.Module {
	ctl := &PollingController{store: store, config: config, now: time.Now}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/polling-config", ctl.getConfig)
	})
}

// GET /api/polling-config[?screens=N]
func (p *PollingController) getConfig(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	screens := -1
	if raw := ctx.Query("screens"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, api.BadRequest("screens must be a non-negative integer")
		}
		screens = n
	}
	if screens < 0 {
		n, err := p.store.CountScreensInOrganization(user.OrganizationID)
		if err != nil {
			return nil, api.FromStore(err, "screens")
		}
		screens = n
	}

	interval, window := p.config.IntervalAt(p.now())
	return packets.PollingConfigResponse{
		Config:   p.config,
		Current:  packets.CurrentInterval{Window: window, IntervalSeconds: interval},
		Estimate: p.config.EstimateDailyCalls(screens),
	}, nil
}
