package server

import (
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/MohdAleeRehman/Phonely/internal/inspection"
	"github.com/MohdAleeRehman/Phonely/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Config holds the front-door settings.
type Config struct {
	// APIKey authenticates both inbound requests and outbound callbacks.
	APIKey string
	// BackendURL is where completed inspections are delivered.
	BackendURL string
}

// Server is the HTTP front door: it accepts inspection requests, runs the
// pipeline in the background and delivers the output record via callback.
type Server struct {
	cfg       Config
	orch      *inspection.Orchestrator
	assembler *inspection.Assembler
	store     storage.Store
	callbacks *callbackClient
	wg        sync.WaitGroup
}

func New(cfg Config, orch *inspection.Orchestrator, store storage.Store) *Server {
	return &Server{
		cfg:       cfg,
		orch:      orch,
		assembler: inspection.NewAssembler(orch.PricingConfig()),
		store:     store,
		callbacks: newCallbackClient(cfg.BackendURL, cfg.APIKey),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/", s.handleRoot)
	engine.GET("/health", s.handleHealth)
	engine.POST("/api/v1/inspection/start", s.handleStart)
	engine.GET("/api/v1/inspection/:id/report", s.handleGetReport)
	return engine
}

// Wait blocks until all background inspections have finished. Used during
// shutdown so in-flight callbacks are not dropped.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Phonely AI Service",
		"status":  "running",
		"agents":  []string{"Vision Agent", "Text Agent", "Pricing Agent"},
		"tools":   []string{"WhatMobile Pakistan", "OLX Market Scraper"},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// PhoneDetails matches the backend's request payload.
type PhoneDetails struct {
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Storage     string `json:"storage"`
	RAM         string `json:"ram"`
	Color       string `json:"color"`
	HasBox      bool   `json:"hasBox"`
	HasWarranty bool   `json:"hasWarranty"`
	LaunchDate  string `json:"launchDate"`
	RetailPrice int    `json:"retailPrice"`
	AgeMonths   int    `json:"ageMonths"`
	PTAApproved *bool  `json:"ptaApproved"`
}

// StartRequest is the inbound inspection request.
type StartRequest struct {
	InspectionID string       `json:"inspection_id" binding:"required"`
	Images       []string     `json:"images"`
	PhoneDetails PhoneDetails `json:"phone_details"`
	Description  string       `json:"description"`
}

func (s *Server) handleStart(c *gin.Context) {
	if !s.authorized(c) {
		log.Warn().Str("remote", c.ClientIP()).Msg("invalid api key on inspection request")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
		return
	}

	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := req.toInput()
	log.Info().
		Str("inspectionID", req.InspectionID).
		Str("brand", input.Brand).
		Str("model", input.Model).
		Int("images", len(input.Images)).
		Msg("new inspection request")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.process(req.InspectionID, input)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"inspection_id": req.InspectionID,
		"status":        "processing",
		"message":       "Inspection started. Results will be sent via callback.",
	})
}

func (s *Server) handleGetReport(c *gin.Context) {
	if !s.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
		return
	}
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report storage disabled"})
		return
	}

	report, err := s.store.GetReport(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "inspection not found"})
		return
	}
	c.Data(http.StatusOK, "application/json", report)
}

func (s *Server) authorized(c *gin.Context) bool {
	key := c.GetHeader("x-api-key")
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.APIKey)) == 1
}

// toInput converts the request shape to the pipeline's immutable input.
// Age is derived from the launch date when the backend doesn't precompute it.
func (r StartRequest) toInput() inspection.Input {
	pta := true
	if r.PhoneDetails.PTAApproved != nil {
		pta = *r.PhoneDetails.PTAApproved
	}
	age := r.PhoneDetails.AgeMonths
	if age <= 0 {
		age = ageMonths(r.PhoneDetails.LaunchDate, time.Now())
	}
	return inspection.Input{
		Brand:       r.PhoneDetails.Brand,
		Model:       r.PhoneDetails.Model,
		Storage:     r.PhoneDetails.Storage,
		RAM:         r.PhoneDetails.RAM,
		Color:       r.PhoneDetails.Color,
		Description: r.Description,
		Images:      r.Images,
		HasBox:      r.PhoneDetails.HasBox,
		HasWarranty: r.PhoneDetails.HasWarranty,
		LaunchDate:  r.PhoneDetails.LaunchDate,
		RetailPrice: r.PhoneDetails.RetailPrice,
		AgeMonths:   age,
		PTAApproved: pta,
	}
}
