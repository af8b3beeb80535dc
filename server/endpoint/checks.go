package endpoint

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speechbridge/component"
	"github.com/kbukum/speechbridge/version"
)

// HealthChecker returns health status for registered components.
type HealthChecker func(ctx context.Context) []component.Health

// SpeechStatus summarizes the recognition session for operators.
type SpeechStatus struct {
	Backend   string `json:"backend"`
	Locale    string `json:"locale"`
	State     string `json:"state"`
	Available bool   `json:"available"`
	Listening bool   `json:"listening"`
}

// Checks serves the operational endpoints. Checker and Speech are optional.
type Checks struct {
	Service string
	Checker HealthChecker
	Speech  func() SpeechStatus
}

var startTime = time.Now()

func (p Checks) components(ctx context.Context) []component.Health {
	if p.Checker == nil {
		return nil
	}
	return p.Checker(ctx)
}

func (p Checks) body(status any) gin.H {
	h := gin.H{
		"status":    status,
		"service":   p.Service,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if p.Speech != nil {
		h["speech"] = p.Speech()
	}
	return h
}

// Health reports overall health with per-component statuses. A degraded
// session, such as an unavailable recognition service, still answers 200.
func (p Checks) Health(c *gin.Context) {
	components := p.components(c.Request.Context())
	status := component.Overall(components)
	code := http.StatusOK
	if status == component.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	body := p.body(status)
	body["components"] = components
	c.JSON(code, body)
}

// Liveness confirms the process can serve HTTP.
func (p Checks) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "service": p.Service})
}

// Readiness answers 503 while any component is unhealthy and names them.
func (p Checks) Readiness(c *gin.Context) {
	var blocking []string
	for _, h := range p.components(c.Request.Context()) {
		if h.Status == component.StatusUnhealthy {
			blocking = append(blocking, h.Name)
		}
	}
	if len(blocking) > 0 {
		body := p.body("not_ready")
		body["blocking"] = blocking
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, p.body("ready"))
}

// Info reports build information and uptime.
func (p Checks) Info(c *gin.Context) {
	body := p.body("ok")
	body["build"] = version.Get()
	body["uptime"] = time.Since(startTime).Round(time.Second).String()
	c.JSON(http.StatusOK, body)
}

// Metrics reports runtime memory and goroutine counts. Session metrics go
// out over OTLP; this is a quick local view.
func (p Checks) Metrics(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	c.JSON(http.StatusOK, gin.H{
		"goroutines": runtime.NumGoroutine(),
		"alloc_mb":   m.Alloc / 1024 / 1024,
		"sys_mb":     m.Sys / 1024 / 1024,
		"gc_runs":    m.NumGC,
	})
}
