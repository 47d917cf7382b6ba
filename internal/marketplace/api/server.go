package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace-mirror/internal/marketplace/model"
	"marketplace-mirror/internal/marketplace/store"
)

const maxLimit = 200

type Server struct {
	Log     *zap.Logger
	Backend store.Backend
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/listings", s.listListings) // ?page=1&limit=20
	r.GET("/listings/:id", s.getListing)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	return r
}

func (s *Server) listListings(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	// page 很大时 (page-1)*limit 会溢出
	if int64(page-1) > math.MaxInt64/int64(limit) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page out of range"})
		return
	}
	skip := int64(page-1) * int64(limit)

	docs, total, err := s.Backend.ListDocuments(c, skip, int64(limit))
	if err != nil {
		s.Log.Error("Failed to list listings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total": total,
		"data":  docs,
		"page":  page,
		"limit": limit,
	})
}

func (s *Server) getListing(c *gin.Context) {
	doc, err := s.Backend.GetDocument(c, c.Param("id"))
	if errors.Is(err, model.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
		return
	}
	if err != nil {
		s.Log.Error("Failed to get listing", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": doc})
}
