package monitor

import (
	"bufio"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultTailLines = 200
	maxTailLines     = 5000
)

// RegisterLogsRoute exposes the tail of the API log file. Passing
// ?requestId=REQ_... keeps only the lines logged for that pipeline run.
func RegisterLogsRoute(router gin.IRoutes, logPath string) {
	router.GET("/logs", func(c *gin.Context) {
		lines := defaultTailLines
		if raw := c.Query("lines"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "lines must be a positive integer"})
				return
			}
			lines = min(n, maxTailLines)
		}

		tail, err := tailFile(logPath, lines, c.Query("requestId"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read log"})
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(strings.Join(tail, "\n")))
	})
}

// tailFile returns up to n trailing lines, optionally only those containing filter.
func tailFile(path string, n int, filter string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if filter != "" && !strings.Contains(line, filter) {
			continue
		}
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, line)
	}
	return ring, scanner.Err()
}
