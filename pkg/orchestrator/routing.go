package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"

	"curvelaboratory/promptgateway/pkg/config"
	"curvelaboratory/promptgateway/pkg/embeddings"
)

// Routing signals reported to the Recorder.
const (
	SignalEmbedding = "embedding"
	SignalIntent    = "intent"
	SignalDefault   = "default"
	SignalNone      = "none"
)

type intentRequest struct {
	Input  string   `json:"input"`
	Labels []string `json:"labels"`
	Model  string   `json:"model"`
}

type intentResponse struct {
	Scores         map[string]float64 `json:"scores"`
	Predicted      string             `json:"predicted"`
	PredictedScore float64            `json:"predicted_score"`
}

func (s *Stream) embeddingEnabled() bool {
	return !s.o.cfg.Routing.DisableEmbedding && s.o.store.Ready() && s.o.store.Len() > 0
}

func (s *Stream) intentEnabled() bool {
	return !s.o.cfg.Routing.DisableIntent && len(s.o.labels) > 0
}

// route starts target selection. Under intent precedence both signals are
// requested at once; otherwise intent is only asked when similarity finds
// no match.
func (s *Stream) route() Action {
	s.state = stateAwaitingRouting

	var calls []Call
	embedding := s.embeddingEnabled()
	if embedding {
		call, err := s.embeddingCall()
		if err != nil {
			return s.fail(err)
		}
		calls = append(calls, call)
	}
	if s.intentEnabled() && (!embedding || s.o.cfg.Routing.Precedence == config.PrecedenceIntent) {
		call, err := s.intentCall()
		if err != nil {
			return s.fail(err)
		}
		calls = append(calls, call)
	}

	if len(calls) == 0 {
		return s.decide()
	}
	s.routingPending = len(calls)
	return dispatch(calls...)
}

func (s *Stream) embeddingCall() (Call, error) {
	return s.modelServerCall(StageEmbedding, s.o.cfg.ModelServer.EmbeddingsPath,
		embeddings.Request{Input: s.userMessage, Model: s.o.cfg.Models.Embedding},
		s.o.cfg.Stages.Embedding.Timeout)
}

func (s *Stream) intentCall() (Call, error) {
	s.intentAsked = true
	return s.modelServerCall(StageIntent, s.o.cfg.ModelServer.IntentPath,
		intentRequest{Input: s.userMessage, Labels: s.o.labels, Model: s.o.cfg.Models.Intent},
		s.o.cfg.Stages.Intent.Timeout)
}

func (s *Stream) onEmbedding(resp CallResponse) Action {
	s.routingPending--

	err := resp.Err
	if err == nil {
		var vector []float64
		if vector, err = embeddings.ParseResponse(resp.Body); err == nil {
			s.similarity = s.o.store.Scores(vector)
		}
	}
	if err != nil {
		return s.stageFailure(StageEmbedding, s.o.cfg.Stages.Embedding, err, s.decide)
	}
	return s.decide()
}

func (s *Stream) onIntent(resp CallResponse) Action {
	s.routingPending--

	err := resp.Err
	if err == nil {
		s.intent, err = parseIntentResponse(resp.Body, s.o.labels)
	}
	if err != nil {
		return s.stageFailure(StageIntent, s.o.cfg.Stages.Intent, err, s.decide)
	}
	return s.decide()
}

// decide applies the precedence rule once every routing call has completed.
func (s *Stream) decide() Action {
	if s.routingPending > 0 {
		return pause()
	}

	routing := s.o.cfg.Routing
	embTarget, embOK := embeddings.Select(s.similarity, routing.SimilarityMin())
	intentTarget, intentOK := embeddings.Select(s.intent, routing.IntentMin())

	if routing.Precedence == config.PrecedenceIntent {
		if intentOK {
			return s.resolve(intentTarget, SignalIntent)
		}
		if embOK {
			return s.resolve(embTarget, SignalEmbedding)
		}
		return s.fallback()
	}

	if embOK {
		return s.resolve(embTarget, SignalEmbedding)
	}
	if !s.intentAsked && s.intentEnabled() {
		call, err := s.intentCall()
		if err != nil {
			return s.fail(err)
		}
		s.routingPending = 1
		return dispatch(call)
	}
	if intentOK {
		return s.resolve(intentTarget, SignalIntent)
	}
	return s.fallback()
}

func (s *Stream) fallback() Action {
	if t := s.o.cfg.DefaultTarget(); t != nil {
		s.o.recorder.RoutingDecision(t.Name, SignalDefault)
		s.logger.Debug("no confident match, using default target", "target", t.Name)
		return s.dispatchDefaultTarget(t)
	}

	s.o.recorder.RoutingDecision(SignalNone, SignalNone)
	s.logger.Debug("no confident match, passing request through")
	return s.passThrough()
}

func (s *Stream) resolve(name, signal string) Action {
	t := s.o.cfg.Target(name)
	if t == nil {
		s.logger.Warn("routing selected an unknown target", "target", name, "signal", signal)
		return s.fallback()
	}

	s.target = t
	s.o.recorder.RoutingDecision(t.Name, signal)
	s.logger.Info("prompt target selected", "target", t.Name, "signal", signal)

	switch {
	case t.Default:
		return s.dispatchDefaultTarget(t)
	case len(t.Parameters) > 0 || t.Endpoint != nil:
		return s.dispatchFunctionCall()
	default:
		return s.resume()
	}
}

// parseIntentResponse returns one score per label, in label order.
func parseIntentResponse(body []byte, labels []string) ([]embeddings.Score, error) {
	var r intentResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("invalid intent response: %w", err)
	}

	scores := make([]embeddings.Score, 0, len(labels))
	switch {
	case len(r.Scores) > 0:
		for _, l := range labels {
			scores = append(scores, embeddings.Score{Target: l, Value: r.Scores[l]})
		}
	case r.Predicted != "":
		for _, l := range labels {
			v := 0.0
			if l == r.Predicted {
				v = r.PredictedScore
			}
			scores = append(scores, embeddings.Score{Target: l, Value: v})
		}
	default:
		return nil, errors.New("intent response carries no scores")
	}
	return scores, nil
}
