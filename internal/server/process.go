package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MohdAleeRehman/Phonely/internal/inspection"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// processTimeout caps one background inspection run. It must exceed the
// pipeline's worst case: three stages of four generation attempts each, plus
// the market gather budget.
const processTimeout = 15 * time.Minute

// callbackTimeout bounds one callback delivery.
const callbackTimeout = 30 * time.Second

// process runs the pipeline for one request and delivers the output record.
// It runs detached from the HTTP request: the 202 response has already been
// sent by the time the pipeline starts.
func (s *Server) process(inspectionID string, input inspection.Input) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	final := s.orch.Run(ctx, input)
	report := s.assembler.Assemble(final)

	log.Info().
		Str("inspectionID", inspectionID).
		Str("status", report.Status).
		Strs("tools", report.ToolsExecuted).
		Float64("totalMs", totalMillis(report)).
		Msg("inspection processed")

	if s.store != nil {
		payload, err := json.Marshal(report)
		if err != nil {
			log.Error().Err(err).Str("inspectionID", inspectionID).Msg("failed to encode report")
		} else if err := s.store.SaveReport(inspectionID, report.Status, payload); err != nil {
			log.Error().Err(err).Str("inspectionID", inspectionID).Msg("failed to persist report")
		}
	}

	// The callback gets its own context: a run that died on the deadline
	// above must still report its failure to the backend.
	s.callbacks.deliver(inspectionID, report)
}

func totalMillis(report *inspection.Report) float64 {
	if report.ProcessingTime == nil {
		return 0
	}
	return report.ProcessingTime.Total
}

// callbackClient posts output records back to the backend.
type callbackClient struct {
	client     *resty.Client
	backendURL string
	apiKey     string
}

func newCallbackClient(backendURL, apiKey string) *callbackClient {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &callbackClient{
		client:     client,
		backendURL: strings.TrimSuffix(backendURL, "/"),
		apiKey:     apiKey,
	}
}

// callbackPayload adds the inspection id on top of the output record.
type callbackPayload struct {
	InspectionID string `json:"inspection_id"`
	*inspection.Report
}

func (c *callbackClient) deliver(inspectionID string, report *inspection.Report) {
	if c.backendURL == "" {
		log.Debug().Str("inspectionID", inspectionID).Msg("no backend URL configured, skipping callback")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/v1/inspections/%s/callback", c.backendURL, inspectionID)
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", c.apiKey).
		SetBody(callbackPayload{InspectionID: inspectionID, Report: report}).
		Post(url)
	if err != nil {
		log.Error().Err(err).Str("inspectionID", inspectionID).Msg("callback delivery failed")
		return
	}
	if resp.IsError() {
		log.Error().
			Int("status", resp.StatusCode()).
			Str("inspectionID", inspectionID).
			Str("body", resp.String()).
			Msg("callback rejected by backend")
		return
	}
	log.Info().Str("inspectionID", inspectionID).Msg("callback delivered")
}
