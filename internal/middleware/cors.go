package middleware

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var devOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

// CORS allows the configured frontend plus the local dev server.
func CORS(frontendURL string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(frontendURL),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "Idempotency-Key"},
		AllowCredentials: true,
	})
}

func allowedOrigins(frontendURL string) []string {
	out := make([]string, 0, len(devOrigins)+1)
	if u := strings.TrimRight(strings.TrimSpace(frontendURL), "/"); u != "" {
		out = append(out, u)
	}
	for _, o := range devOrigins {
		if len(out) > 0 && out[0] == o {
			continue
		}
		out = append(out, o)
	}
	return out
}
