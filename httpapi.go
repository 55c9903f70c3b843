package merchpilot

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Assistant is the chat boundary. The orchestration core hands a resolved
// task to the assistant so it can answer the merchant's original message
// with fresh platform data; the assistant itself lives elsewhere.
type Assistant interface {
	RespondWithTaskResult(userMessage string, task Task) (string, error)
}

type connectRequest struct {
	PlatformName string              `json:"platformName" binding:"required"`
	Credentials  PlatformCredentials `json:"credentials"`
}

type platformNameRequest struct {
	PlatformName string `json:"platformName" binding:"required"`
}

type actionRequest struct {
	PlatformName string `json:"platformName" binding:"required"`
	Action       struct {
		Type string         `json:"type" binding:"required"`
		Data map[string]any `json:"data"`
	} `json:"action" binding:"required"`
}

// NewRouter builds the HTTP surface over the platform service. assistant
// may be nil; the chat polling endpoint then returns the raw result.
func NewRouter(svc *PlatformService, assistant Assistant) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")

	api.GET("/platforms", func(c *gin.Context) {
		platforms, err := svc.ListPlatforms(c.Request.Context(), svc.cfg.MerchantID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch platform connections"})
			return
		}
		if platforms == nil {
			platforms = []PlatformConnection{}
		}
		c.JSON(http.StatusOK, platforms)
	})

	api.POST("/platforms/connect", func(c *gin.Context) {
		var req connectRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Credentials.Username == "" || req.Credentials.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Platform name and credentials are required"})
			return
		}
		result := svc.AuthenticatePlatform(c.Request.Context(), svc.cfg.MerchantID, req.PlatformName, req.Credentials)
		if !result.Success {
			c.JSON(http.StatusBadRequest, gin.H{"message": result.Message})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": result.Message, "taskId": result.TaskID})
	})

	api.POST("/platforms/disconnect", func(c *gin.Context) {
		var req platformNameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Platform name is required"})
			return
		}
		result := svc.DisconnectPlatform(c.Request.Context(), svc.cfg.MerchantID, req.PlatformName)
		if !result.Success {
			c.JSON(http.StatusBadRequest, gin.H{"message": result.Message})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": result.Message})
	})

	api.POST("/platforms/refresh", func(c *gin.Context) {
		var req platformNameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Platform name is required"})
			return
		}
		result := svc.RefreshConnection(c.Request.Context(), svc.cfg.MerchantID, req.PlatformName)
		if !result.Success {
			c.JSON(http.StatusBadRequest, gin.H{"message": result.Message})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": result.Message, "taskId": result.TaskID})
	})

	api.GET("/browser/tasks", func(c *gin.Context) {
		tasks := svc.ListTasks()
		if tasks == nil {
			tasks = []TaskSummary{}
		}
		c.JSON(http.StatusOK, tasks)
	})

	api.GET("/browser/tasks/:taskId", func(c *gin.Context) {
		snap, ok := svc.TaskStatus(c.Param("taskId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	api.POST("/platforms/action", func(c *gin.Context) {
		var req actionRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Action.Type == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Platform name and action are required"})
			return
		}
		result := svc.ExecuteActionAndWait(c.Request.Context(), svc.cfg.MerchantID, req.PlatformName, req.Action.Type, req.Action.Data)
		c.JSON(http.StatusOK, gin.H{
			"success":   result.Success,
			"message":   result.Message,
			"taskId":    result.TaskID,
			"result":    result.Data,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api.GET("/platforms/action/poll/:taskId", func(c *gin.Context) {
		task, ok := svc.TaskResult(c.Param("taskId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}
		switch task.Status {
		case TaskPending, TaskRunning:
			c.JSON(http.StatusOK, gin.H{
				"status":     "processing",
				"message":    "Action is being executed...",
				"taskStatus": task.Status,
			})
		case TaskCompleted:
			c.JSON(http.StatusOK, gin.H{
				"status":    "completed",
				"success":   true,
				"message":   "Action executed successfully",
				"result":    task.Result,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		default:
			c.JSON(http.StatusOK, gin.H{
				"status":    "failed",
				"success":   false,
				"message":   "Action failed to execute",
				"error":     task.Error,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		}
	})

	api.GET("/ai/chat/poll/:taskId", func(c *gin.Context) {
		message := c.Query("message")
		if message == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Task ID and message are required"})
			return
		}

		task, ok := svc.TaskResult(c.Param("taskId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}

		switch task.Status {
		case TaskPending:
			c.JSON(http.StatusOK, gin.H{
				"status":     "processing",
				"message":    "Task is queued for processing...",
				"taskStatus": task.Status,
			})
		case TaskRunning:
			c.JSON(http.StatusOK, gin.H{
				"status":     "processing",
				"message":    "Still gathering data from your platforms...",
				"taskStatus": task.Status,
			})
		case TaskFailed:
			c.JSON(http.StatusOK, gin.H{
				"status":  "error",
				"message": "I encountered an issue while fetching the latest data. Let me help you with the information I have available.",
				"error":   task.Error,
			})
		default:
			reply := ""
			if assistant != nil {
				answer, err := assistant.RespondWithTaskResult(message, task)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to process AI request"})
					return
				}
				reply = answer
			} else if task.Result != nil {
				reply = task.Result.Result
			}
			c.JSON(http.StatusOK, gin.H{
				"status":  "completed",
				"message": reply,
			})
		}
	})

	return r
}
