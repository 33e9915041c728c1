package http

import (
	"io"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestChannelSubject(t *testing.T) {
	tests := []struct {
		channel string
		admin   bool
		want    string
		wantErr bool
	}{
		{"", false, "footpath.points.>", false},
		{"points", false, "footpath.points.>", false},
		{"cache", false, "footpath.cache.>", false},
		{"ratelimit", false, "", true},
		{"ratelimit", true, "footpath.ratelimit.>", false},
		{"metrics", true, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.channel+"/"+strconv.FormatBool(tt.admin), func(t *testing.T) {
			got, err := channelSubject(tt.channel, tt.admin)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestWSUpgrade(t *testing.T) {
	deps := &Dependencies{AdminSecret: "s3cret"}
	app := fiber.New()
	app.Use("/ws", wsUpgrade(deps))
	app.Get("/ws", func(c *fiber.Ctx) error {
		admin, _ := c.Locals(wsAdminKey).(bool)
		return c.SendString(strconv.FormatBool(admin))
	})

	tests := []struct {
		name    string
		path    string
		upgrade bool
		status  int
		admin   string
	}{
		{"plain request", "/ws", false, fiber.StatusUpgradeRequired, ""},
		{"no secret", "/ws", true, 200, "false"},
		{"wrong secret", "/ws?secret=nope", true, 200, "false"},
		{"admin secret", "/ws?secret=s3cret", true, 200, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			resp, _ := app.Test(req, -1)
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			if tt.admin == "" {
				return
			}
			body, _ := io.ReadAll(resp.Body)
			if got := string(body); got != tt.admin {
				t.Errorf("expected admin=%s, got %q", tt.admin, got)
			}
		})
	}
}

func TestValidSecret_UnsetNeverMatches(t *testing.T) {
	if validSecret(&Dependencies{}, "") {
		t.Error("empty secret must not authorize")
	}
	if !validSecret(&Dependencies{AdminSecret: "x"}, "x") {
		t.Error("matching secret must authorize")
	}
}
