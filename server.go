package rs

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewServer returns a gin engine exposing the reader over HTTP.
// Thin plumbing only; no filtering logic lives here.
func NewServer(reader *Reader) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/items", func(c *gin.Context) {
		response := gin.H{
			"state": reader.State(),
			"feed": gin.H{
				"title":       reader.FeedTitle(),
				"description": reader.FeedDescription(),
			},
			"items": reader.Items(),
		}
		if err := reader.LastError(); err != nil {
			response["error"] = err.Error()
		}
		c.JSON(http.StatusOK, response)
	})

	router.POST("/refresh", func(c *gin.Context) {
		resetVisitTime := c.Query("reset") != "false"
		if err := reader.Load(c.Request.Context(), resetVisitTime); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"state": reader.State(),
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"state": reader.State(),
		})
	})

	router.GET("/rss.xml", func(c *gin.Context) {
		bytes, err := reader.PublishXML(
			reader.FeedTitle(),
			"",
			reader.FeedDescription(),
			"", "",
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/rss+xml", bytes)
	})

	categories := router.Group("/categories")
	{
		categories.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"blocked": reader.BlockedCategories(),
				"staged":  reader.StagedCategories(),
			})
		})
		categories.POST("/:name/stage", func(c *gin.Context) {
			reader.StageCategory(c.Param("name"))
			c.JSON(http.StatusOK, gin.H{"staged": reader.StagedCategories()})
		})
		categories.POST("/:name/toggle", func(c *gin.Context) {
			reader.ToggleStaged(c.Param("name"))
			c.JSON(http.StatusOK, gin.H{"staged": reader.StagedCategories()})
		})
		categories.POST("/apply", func(c *gin.Context) {
			if err := reader.ApplyStaged(); err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"blocked": reader.BlockedCategories()})
		})
		categories.POST("/cancel", func(c *gin.Context) {
			reader.CancelStaged()
			c.JSON(http.StatusOK, gin.H{"staged": reader.StagedCategories()})
		})
		categories.DELETE("/:name", func(c *gin.Context) {
			if err := reader.UnblockCategory(c.Param("name")); err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"blocked": reader.BlockedCategories()})
		})
	}

	phrases := router.Group("/phrases")
	{
		phrases.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"phrases": reader.Phrases()})
		})
		phrases.POST("", func(c *gin.Context) {
			var payload struct {
				Phrase        string `json:"phrase" binding:"required"`
				MatchTitle    bool   `json:"match_title"`
				MatchContent  bool   `json:"match_content"`
				CaseSensitive bool   `json:"case_sensitive"`
			}
			if err := c.ShouldBindJSON(&payload); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			saved, err := reader.AddPhrase(PhraseRule{
				Phrase:        payload.Phrase,
				MatchTitle:    payload.MatchTitle,
				MatchContent:  payload.MatchContent,
				CaseSensitive: payload.CaseSensitive,
			})
			if err != nil {
				if saved.ID == "" {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				// saved locally, remote write failed
				c.JSON(http.StatusBadGateway, gin.H{
					"phrase": saved,
					"error":  err.Error(),
				})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"phrase": saved})
		})
		phrases.DELETE("/:id", func(c *gin.Context) {
			if err := reader.RemovePhrase(c.Param("id")); err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			c.Status(http.StatusNoContent)
		})
	}

	return router
}
