package http

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/jhoicas/molino-api/internal/application/dto"
	"github.com/jhoicas/molino-api/internal/application/guard"
	"github.com/jhoicas/molino-api/pkg/logger"
)

// streamBuffer eventos pendientes por conexión SSE; si se llena se descartan decisiones.
const streamBuffer = 32

// GuardHandler expone el Route Guard al dashboard renderizado en el cliente.
type GuardHandler struct {
	paths     guard.Paths
	heartbeat time.Duration
	log       *logger.Logger
}

// NewGuardHandler construye el handler. heartbeat <= 0 usa 15s.
func NewGuardHandler(paths guard.Paths, heartbeat time.Duration, log *logger.Logger) *GuardHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &GuardHandler{paths: paths.WithDefaults(), heartbeat: heartbeat, log: log.Component("guard_stream")}
}

// Check godoc
// @Summary      Evaluar un requisito contra la sesión actual
// @Tags         guard
// @Produce      json
// @Param        required_permission  query  string  false  "p.ej. farmers:read"
// @Param        required_role        query  string  false  "p.ej. mill_owner"
// @Param        fallback_path        query  string  false  "destino para no autenticados"
// @Success      200   {object}  guard.Decision
// @Router       /api/guard/check [get]
func (h *GuardHandler) Check(c *fiber.Ctx) error {
	var req guard.Requirement
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	return c.JSON(guard.Evaluate(snapshot(c), req, h.paths))
}

type streamEvent struct {
	name string
	data interface{}
}

// Stream godoc
// @Summary      Decisiones del guard en vivo (Server-Sent Events)
// @Description  Emite "decision" con cada decisión nueva y "redirect" cuando hay que navegar,
// @Description  p.ej. tras una revocación remota de la sesión.
// @Tags         guard
// @Produce      text/event-stream
// @Param        required_permission  query  string  false  "p.ej. farmers:read"
// @Param        required_role        query  string  false  "p.ej. mill_owner"
// @Success      200
// @Router       /api/guard/stream [get]
func (h *GuardHandler) Stream(c *fiber.Ctx) error {
	store := GetStore(c)
	if store == nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "COOKIE_REQUIRED", Message: "el stream requiere la cookie de sesión"})
	}
	var req guard.Requirement
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}

	events := make(chan streamEvent, streamBuffer)
	push := func(ev streamEvent) {
		select {
		case events <- ev:
		default:
		}
	}
	w := guard.Watch(store, req, h.paths,
		guard.NavigatorFunc(func(target string) {
			push(streamEvent{name: "redirect", data: fiber.Map{"redirect_to": target}})
		}),
		guard.WithObserver(func(d guard.Decision) {
			push(streamEvent{name: "decision", data: d})
		}),
	)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	heartbeat := h.heartbeat
	log := h.log
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(bw *bufio.Writer) {
		defer w.Close()
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		for {
			select {
			case ev := <-events:
				payload, err := json.Marshal(ev.data)
				if err != nil {
					log.Error().Err(err).Msg("serializar evento")
					continue
				}
				fmt.Fprintf(bw, "event: %s\ndata: %s\n\n", ev.name, payload)
			case <-ticker.C:
				fmt.Fprint(bw, ": ping\n\n")
			}
			if err := bw.Flush(); err != nil {
				// El navegador cerró la conexión.
				return
			}
		}
	}))
	return nil
}
