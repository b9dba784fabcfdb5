package fakeapi

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Server is an in-memory stand-in for the clinic REST backend, faithful
// to its quirks: bearer-guarded routes except the public booking
// submission, and deliberately inconsistent response envelopes. Some
// resources answer {"data": {"<resource>List": [...]}} while others
// answer {"data": [...]}, so the client's normalization layer gets
// exercised the way production would.
type Server struct {
	engine *gin.Engine

	mu     sync.Mutex
	tokens map[string]string // bearer token → role
	stores map[string]*store
}

type store struct {
	listKey string // "" means the bare-array envelope
	order   []string
	items   map[string]gin.H
}

// resources maps resource path to its list envelope key.
var resources = map[string]string{
	"clinics":     "clinicList",
	"bookings":    "",
	"users":       "userList",
	"contacts":    "",
	"medications": "medicationList",
	"refunds":     "",
	"schedules":   "scheduleList",
}

func NewServer() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		engine: gin.New(),
		tokens: make(map[string]string),
		stores: make(map[string]*store),
	}
	for name, listKey := range resources {
		s.stores[name] = &store{listKey: listKey, items: make(map[string]gin.H)}
	}
	s.registerRoutes()
	return s
}

// Handler exposes the server for httptest.
func (s *Server) Handler() http.Handler { return s.engine }

// AllowToken registers an accepted bearer token for a role.
func (s *Server) AllowToken(token, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = role
}

// Seed inserts entities directly into a resource's store, bypassing the
// API. Entities without an "id" get one assigned.
func (s *Server) Seed(resource string, entities ...gin.H) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stores[resource]
	ids := make([]string, 0, len(entities))
	for _, entity := range entities {
		id, _ := entity["id"].(string)
		if id == "" {
			id = uuid.New().String()
			entity["id"] = id
		}
		st.items[id] = entity
		st.order = append(st.order, id)
		ids = append(ids, id)
	}
	return ids
}

// Count returns how many entities a resource currently holds.
func (s *Server) Count(resource string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores[resource].order)
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api/v1")
	for name := range resources {
		name := name
		group := api.Group("/" + name)
		if name == "bookings" {
			// Public booking submission stays anonymous.
			group.POST("", s.create(name))
			group.Use(s.authenticate())
		} else {
			group.Use(s.authenticate())
			group.POST("", s.create(name))
		}
		group.GET("", s.list(name))
		group.GET("/:id", s.get(name))
		group.PUT("/:id", s.update(name))
		group.DELETE("/:id", s.remove(name))
	}
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing authorization header"})
			return
		}
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid authorization format"})
			return
		}
		s.mu.Lock()
		role, ok := s.tokens[parts[1]]
		s.mu.Unlock()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		c.Set("role", role)
		c.Next()
	}
}

func (s *Server) list(resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		st := s.stores[resource]

		items := make([]gin.H, 0, len(st.order))
		for _, id := range st.order {
			entity := st.items[id]
			if status := c.Query("status"); status != "" && entity["status"] != status {
				continue
			}
			if keyword := c.Query("keyword"); keyword != "" && !matchesKeyword(entity, keyword) {
				continue
			}
			items = append(items, entity)
		}
		total := len(items)

		// limit/page are honored when sent; otherwise full list.
		if limit, _ := strconv.Atoi(c.Query("limit")); limit > 0 {
			page, _ := strconv.Atoi(c.Query("page"))
			if page < 1 {
				page = 1
			}
			start := (page - 1) * limit
			if start > len(items) {
				start = len(items)
			}
			end := start + limit
			if end > len(items) {
				end = len(items)
			}
			items = items[start:end]
		}

		if st.listKey == "" {
			c.JSON(http.StatusOK, gin.H{"data": items, "total": total})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{st.listKey: items, "total": total}})
	}
}

func (s *Server) get(resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		entity, ok := s.stores[resource].items[c.Param("id")]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": resource + " not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": entity})
	}
}

func (s *Server) create(resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload gin.H
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		st := s.stores[resource]
		id := uuid.New().String()
		payload["id"] = id
		payload["created_at"] = time.Now().UTC().Format(time.RFC3339)
		st.items[id] = payload
		st.order = append(st.order, id)
		c.JSON(http.StatusCreated, gin.H{"data": payload})
	}
}

func (s *Server) update(resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload gin.H
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		st := s.stores[resource]
		entity, ok := st.items[c.Param("id")]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": resource + " not found"})
			return
		}
		for key, value := range payload {
			if key == "id" {
				continue
			}
			entity[key] = value
		}
		entity["updated_at"] = time.Now().UTC().Format(time.RFC3339)
		c.JSON(http.StatusOK, gin.H{"data": entity})
	}
}

func (s *Server) remove(resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		st := s.stores[resource]
		id := c.Param("id")
		if _, ok := st.items[id]; !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": resource + " not found"})
			return
		}
		delete(st.items, id)
		for i, existing := range st.order {
			if existing == id {
				st.order = append(st.order[:i], st.order[i+1:]...)
				break
			}
		}
		c.Status(http.StatusNoContent)
	}
}

func matchesKeyword(entity gin.H, keyword string) bool {
	keyword = strings.ToLower(keyword)
	for _, value := range entity {
		if str, ok := value.(string); ok && strings.Contains(strings.ToLower(str), keyword) {
			return true
		}
	}
	return false
}
