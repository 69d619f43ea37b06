package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-safedrive/pkg/alert"
	"github.com/teslashibe/go-safedrive/pkg/hub"
)

// PolicyEntry is one row of the level table
type PolicyEntry struct {
	Level alert.Level `json:"level"`
	Color alert.BGR   `json:"color_bgr"`
	Sound bool        `json:"sound"`
}

// handleStatus returns the latest status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// handlePolicy returns the level table in severity order
func (s *Server) handlePolicy(c *fiber.Ctx) error {
	entries := make([]PolicyEntry, 0, len(alert.Levels))
	for _, l := range alert.Levels {
		entries = append(entries, PolicyEntry{
			Level: l,
			Color: s.policy.Color(l),
			Sound: s.policy.ShouldSound(l),
		})
	}
	return c.JSON(entries)
}

// handleEvents returns recent level transitions, oldest first
func (s *Server) handleEvents(c *fiber.Ctx) error {
	events, err := s.RecentEvents(c.QueryInt("limit", maxEvents))
	if err != nil {
		s.logger.Warn("read event history", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "event history unavailable")
	}
	return c.JSON(events)
}

// handleStatusWS sends the current status, then streams updates
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	if client == nil {
		return
	}
	if data, err := json.Marshal(s.Status()); err == nil {
		client.Greet(hub.NewJSONMessage(data))
	}
	client.Run()
}

// handleCameraWS streams JPEG frames
func (s *Server) handleCameraWS(c *websocket.Conn) {
	client := hub.NewClient(s.cameraHub, c)
	if client == nil {
		return
	}
	client.Run()
}
