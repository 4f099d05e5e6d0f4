package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tiller/httpapi"
	"pkt.systems/tiller/schema"
)

// newAgentMockCmd serves a scripted producer endpoint for local
// development. It emits a fixed run over SSE for every prompt.
func newAgentMockCmd() *cobra.Command {
	var addr string
	var scriptPath string
	var delayMS int
	cmd := &cobra.Command{
		Use:   "agent-mock",
		Short: "Run a scripted agent stream producer",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			delay := time.Duration(delayMS) * time.Millisecond

			var scripted []schema.StreamEvent
			if scriptPath != "" {
				events, err := loadMockScript(scriptPath)
				if err != nil {
					return err
				}
				scripted = events
				logger.Info("agent-mock script loaded", "path", scriptPath, "events", len(scripted))
			}

			mux := http.NewServeMux()
			mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					w.WriteHeader(http.StatusMethodNotAllowed)
					return
				}
				var req struct {
					SessionID schema.SessionID `json:"session_id"`
					RunID     schema.RunID     `json:"run_id"`
					Prompt    string           `json:"prompt"`
					TargetURL string           `json:"target_url"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				flusher, ok := w.(http.Flusher)
				if !ok {
					http.Error(w, "stream unsupported", http.StatusInternalServerError)
					return
				}
				w.Header().Set("Content-Type", "text/event-stream")
				w.Header().Set("Cache-Control", "no-cache")

				events := scripted
				if len(events) == 0 {
					events = defaultMockRun(req.RunID, req.Prompt, req.TargetURL)
				}
				logger.Info("agent-mock run", "run", req.RunID, "prompt_len", len(req.Prompt), "events", len(events))
				for _, event := range events {
					data, err := json.Marshal(event)
					if err != nil {
						continue
					}
					if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
						return
					}
					flusher.Flush()
					select {
					case <-r.Context().Done():
						return
					case <-time.After(delay):
					}
				}
			})

			logger.Info("agent-mock listening", "addr", addr)
			return httpapi.ListenAndServe(cmd.Context(), addr, mux)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":27520", "listen address")
	cmd.Flags().StringVar(&scriptPath, "script", "", "path to a JSON array of stream events to replay")
	cmd.Flags().IntVar(&delayMS, "delay-ms", 150, "delay between events")
	return cmd
}

func loadMockScript(path string) ([]schema.StreamEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var events []schema.StreamEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	return events, nil
}

func defaultMockRun(runID schema.RunID, prompt, targetURL string) []schema.StreamEvent {
	events := []schema.StreamEvent{
		{Kind: schema.EventRunStarted, RunID: runID},
		{Kind: schema.EventThinking, Message: "reading the page to find the relevant controls"},
		{Kind: schema.EventReasoningStep, Step: 1, Message: "locate the form"},
	}
	if targetURL != "" {
		events = append(events, schema.StreamEvent{
			Kind: schema.EventToolCallStarted,
			Action: &schema.ActionPayload{
				Kind:      "api",
				Safety:    "low",
				Title:     "open target page",
				Rationale: "the task needs the page loaded first",
				Name:      "navigate",
				Args:      targetURL,
			},
		})
	}
	events = append(events,
		schema.StreamEvent{Kind: schema.EventContentChunk, Chunk: fmt.Sprintf("<Steps>2</Steps><Thought>%s</Thought>", prompt)},
		schema.StreamEvent{Kind: schema.EventContentChunk, Chunk: "<Action>click('#submit')</Action>"},
		schema.StreamEvent{Kind: schema.EventRunCompleted, RunID: runID},
	)
	return events
}
